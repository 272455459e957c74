package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Speshl/gorrc_drive/internal/config"
	"github.com/Speshl/gorrc_drive/internal/hardware"
	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/Speshl/gorrc_drive/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simConfig() config.Config {
	cfg := config.Config{
		ServerCfg: config.ServerConfig{
			CommandTimeout: 200 * time.Millisecond,
			ControlPeriod:  2 * time.Millisecond,
		},
		DriveCfg: config.DriveConfig{
			ActuatorDriver: hardware.DriverSim,
			PositionFactor: 0.05,
			VelocityFactor: 0.05,
		},
		EncoderCfg: config.EncoderConfig{EncoderDriver: hardware.EncoderSim},
		PowerCfg:   config.PowerConfig{Source: hardware.PowerSim, FixedVolts: 12},
		SysIdCfg: config.SysIdConfig{
			Mode:               ModeSysId,
			RampRate:           1,
			StepVoltage:        7,
			QuasistaticRunTime: 40 * time.Millisecond,
			DynamicRunTime:     40 * time.Millisecond,
			Pause:              5 * time.Millisecond,
		},
	}
	for i, name := range []string{"fl", "fr", "bl", "br"} {
		cfg.DriveCfg.Motors[i] = config.MotorConfig{Name: name, Channel: i}
	}
	return cfg
}

func newSimApp(t *testing.T, sink *telemetry.MemorySink) *App {
	cfg := simConfig()
	hw, err := hardware.New(cfg)
	require.NoError(t, err)
	a, err := newApp(cfg, nil, hw, sink)
	require.NoError(t, err)
	return a
}

func TestSysIdSequence(t *testing.T) {
	sink := &telemetry.MemorySink{}
	a := newSimApp(t, sink)

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = a.scheduler.Run(ctx, a.Cfg.ServerCfg.ControlPeriod)
	}()

	err := a.runSysIdSequence(ctx)
	cancel()
	wg.Wait()
	require.NoError(t, err)

	tests := map[string]int{}
	stops := 0
	for _, entry := range sink.States() {
		assert.Equal(t, "sysid-test-state-drive", entry.Name)
		if entry.State == "none" {
			stops++
			continue
		}
		tests[entry.State]++
	}
	assert.Equal(t, 4, stops)
	for _, name := range []string{"quasistatic-forward", "quasistatic-reverse", "dynamic-forward", "dynamic-reverse"} {
		assert.Greater(t, tests[name], 0, name)
	}

	for _, f := range sink.Frames() {
		switch f.Test {
		case "dynamic-forward":
			assert.Greater(t, f.Voltage, 0.0)
		case "dynamic-reverse":
			assert.Less(t, f.Voltage, 0.0)
		}
	}

	for _, state := range a.drive.State() {
		assert.Equal(t, 0.0, state.Power)
	}
}

func TestSysIdSequenceStopsOnCancel(t *testing.T) {
	a := newSimApp(t, &telemetry.MemorySink{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.runSysIdSequence(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOnDriveFeedsDefaultCommand(t *testing.T) {
	a := newSimApp(t, &telemetry.MemorySink{})

	a.onDrive(nil, `{"forward":0.5,"rotation":0,"time_stamp":1}`)
	a.onDrive(nil, `not json`)
	a.scheduler.RunOnce() // schedules the default
	a.scheduler.RunOnce()

	states := a.drive.State()
	assert.Equal(t, 0.5, states[0].Power)
	assert.Equal(t, 0.5, states[1].Power)
}

func TestHealth(t *testing.T) {
	a := newSimApp(t, &telemetry.MemorySink{})
	health := a.health()
	assert.Equal(t, models.Health{SupplyVoltage: 12, Mode: ModeSysId}, health)
}

func TestNewAppRejectsUnknownMode(t *testing.T) {
	cfg := simConfig()
	cfg.SysIdCfg.Mode = "race"
	_, err := NewApp(cfg, nil)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestUsesServer(t *testing.T) {
	a := newSimApp(t, &telemetry.MemorySink{})
	assert.False(t, a.usesServer())
	assert.NoError(t, a.RegisterHandlers())
}
