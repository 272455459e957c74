package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := GetConfig()

	assert.Equal(t, DefaultActuatorDriver, cfg.DriveCfg.ActuatorDriver)
	assert.Equal(t, byte(DefaultAddress), cfg.DriveCfg.Address)
	assert.Equal(t, 20*time.Millisecond, cfg.ServerCfg.ControlPeriod)
	assert.Equal(t, 10*time.Second, cfg.SysIdCfg.Timeout)
	assert.Equal(t, "fl", cfg.DriveCfg.Motors[0].Name)
	assert.Equal(t, DefaultBackRightChan, cfg.DriveCfg.Motors[3].Channel)

	want := math.Pi * DefaultWheelDiameterM / DefaultGearRatio
	assert.InDelta(t, want, cfg.DriveCfg.PositionFactor, 1e-12)
	assert.InDelta(t, want, cfg.DriveCfg.VelocityFactor, 1e-12)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(AppEnvBase+"ACTUATORDRIVER", "SIM")
	t.Setenv(AppEnvBase+"ADDRESS", "0x41")
	t.Setenv(AppEnvBase+"MOTOR_FR_CHANNEL", "7")
	t.Setenv(AppEnvBase+"POSITION_FACTOR", "0.05")
	t.Setenv(AppEnvBase+"SUPPLY_NAME", "BAT1")
	t.Setenv(AppEnvBase+"COMMAND_TIMEOUT", "350ms")
	t.Setenv(AppEnvBase+"SYSID_DYNAMIC_S", "1.5")

	cfg := GetConfig()
	assert.Equal(t, "sim", cfg.DriveCfg.ActuatorDriver)
	assert.Equal(t, byte(0x41), cfg.DriveCfg.Address)
	assert.Equal(t, 7, cfg.DriveCfg.Motors[1].Channel)
	assert.Equal(t, 0.05, cfg.DriveCfg.PositionFactor)
	assert.Equal(t, "BAT1", cfg.PowerCfg.SupplyName)
	assert.Equal(t, 350*time.Millisecond, cfg.ServerCfg.CommandTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.SysIdCfg.DynamicRunTime)
}

func TestBadValuesFallBack(t *testing.T) {
	t.Setenv(AppEnvBase+"COUNTS_PER_REV", "lots")
	t.Setenv(AppEnvBase+"TELEMETRY", "maybe")
	t.Setenv(AppEnvBase+"DEADBAND", "x")

	cfg := GetConfig()
	assert.Equal(t, DefaultCountsPerRev, cfg.EncoderCfg.CountsPerRev)
	assert.Equal(t, DefaultTelemetry, cfg.ServerCfg.Telemetry)
	assert.Equal(t, DefaultDeadband, cfg.DriveCfg.Deadband)
}

func TestWheelFactor(t *testing.T) {
	assert.Equal(t, 0.0, WheelFactor(0.1, 0))
	assert.InDelta(t, math.Pi*0.1, WheelFactor(0.1, 1), 1e-12)
}
