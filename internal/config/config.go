package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

var motorNames = [4]string{"fl", "fr", "bl", "br"}

var defaultChannels = [4]int{DefaultFrontLeftChan, DefaultFrontRightChan, DefaultBackLeftChan, DefaultBackRightChan}

func GetConfig() Config {
	cfg := Config{
		ServerCfg:  GetServerConfig(),
		DriveCfg:   GetDriveConfig(),
		EncoderCfg: GetEncoderConfig(),
		PowerCfg:   GetPowerConfig(),
		SysIdCfg:   GetSysIdConfig(),
	}

	log.Printf("app Config: \n%+v\n", cfg)
	return cfg
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Server:         GetStringEnv("SERVER", DefaultServer),
		Key:            GetStringEnv("CARKEY", DefaultCarKey),
		Password:       GetStringEnv("CARPASSWORD", DefaultPassword),
		Telemetry:      GetBoolEnv("TELEMETRY", DefaultTelemetry),
		HealthInterval: GetDurationEnv("HEALTH_INTERVAL", DefaultHealthInterval),
		CommandTimeout: GetDurationEnv("COMMAND_TIMEOUT", DefaultCommandTimeout),
		ControlPeriod:  time.Duration(GetIntEnv("CONTROL_PERIOD_MS", DefaultControlPeriodMS)) * time.Millisecond,
	}
}

func GetDriveConfig() DriveConfig {
	driveCfg := DriveConfig{
		ActuatorDriver: GetStringEnv("ACTUATORDRIVER", DefaultActuatorDriver),
		Address:        byte(GetIntEnv("ADDRESS", DefaultAddress)),
		I2CDevice:      GetStringEnv("I2CDEVICE", DefaultI2CDevice),
		InvertLeftSide: GetBoolEnv("INVERT_LEFT", DefaultInvertLeftSide),
		Deadband:       GetFloatEnv("DEADBAND", DefaultDeadband),
		SquareInputs:   GetBoolEnv("SQUARE_INPUTS", DefaultSquareInputs),
		WheelDiameterM: GetFloatEnv("WHEEL_DIAMETER_M", DefaultWheelDiameterM),
		GearRatio:      GetFloatEnv("GEAR_RATIO", DefaultGearRatio),
		PositionFactor: GetFloatEnv("POSITION_FACTOR", DefaultPositionFactor),
		VelocityFactor: GetFloatEnv("VELOCITY_FACTOR", DefaultVelocityFactor),
	}

	for i := range driveCfg.Motors {
		envPrefix := fmt.Sprintf("MOTOR_%s_", strings.ToUpper(motorNames[i]))
		driveCfg.Motors[i] = MotorConfig{
			Name:     motorNames[i],
			Channel:  GetIntEnv(envPrefix+"CHANNEL", defaultChannels[i]),
			MaxPulse: float64(GetIntEnv(envPrefix+"MAXPULSE", DefaultMaxPulse)),
			MinPulse: float64(GetIntEnv(envPrefix+"MINPULSE", DefaultMinPulse)),
			EncoderA: GetIntEnv(envPrefix+"ENCODER_A", DefaultEncoderPinsA[i]),
			EncoderB: GetIntEnv(envPrefix+"ENCODER_B", DefaultEncoderPinsB[i]),
		}
	}

	wheelFactor := WheelFactor(driveCfg.WheelDiameterM, driveCfg.GearRatio)
	if driveCfg.PositionFactor == 0 {
		driveCfg.PositionFactor = wheelFactor
	}
	if driveCfg.VelocityFactor == 0 {
		driveCfg.VelocityFactor = wheelFactor
	}
	return driveCfg
}

// WheelFactor is the linear distance in meters covered per motor rotation.
func WheelFactor(wheelDiameterM, gearRatio float64) float64 {
	if gearRatio == 0 {
		return 0
	}
	return math.Pi * wheelDiameterM / gearRatio
}

func GetEncoderConfig() EncoderConfig {
	return EncoderConfig{
		EncoderDriver:     GetStringEnv("ENCODERDRIVER", DefaultEncoderDriver),
		CountsPerRev:      GetIntEnv("COUNTS_PER_REV", DefaultCountsPerRev),
		PollInterval:      time.Duration(GetIntEnv("ENCODER_POLL_US", DefaultEncoderPollMicros)) * time.Microsecond,
		VelocityWindow:    time.Duration(GetIntEnv("VELOCITY_WINDOW_MS", DefaultVelocityWindowMS)) * time.Millisecond,
		AuxEnabled:        GetBoolEnv("AUX_ENCODER", DefaultAuxEncoderEnabled),
		AuxPinA:           GetIntEnv("AUX_ENCODER_A", 24),
		AuxPinB:           GetIntEnv("AUX_ENCODER_B", 25),
		AuxReversed:       GetBoolEnv("AUX_ENCODER_REVERSED", false),
		AuxCountsPerRev:   GetIntEnv("AUX_COUNTS_PER_REV", DefaultAuxCountsPerRev),
		AuxWheelDiameterM: GetFloatEnv("AUX_WHEEL_DIAMETER_M", DefaultAuxWheelDiameterM),
	}
}

func GetPowerConfig() PowerConfig {
	return PowerConfig{
		Source:     GetStringEnv("POWER_SOURCE", DefaultPowerSource),
		SysfsMount: GetStringEnv("SYSFS_MOUNT", DefaultSysfsMount),
		SupplyName: GetRawStringEnv("SUPPLY_NAME", DefaultSupplyName),
		FixedVolts: GetFloatEnv("FIXED_VOLTS", DefaultFixedVolts),
	}
}

func GetSysIdConfig() SysIdConfig {
	return SysIdConfig{
		Mode:               GetStringEnv("MODE", DefaultMode),
		RampRate:           GetFloatEnv("SYSID_RAMP_RATE", DefaultRampRate),
		StepVoltage:        GetFloatEnv("SYSID_STEP_VOLTAGE", DefaultStepVoltage),
		Timeout:            seconds(GetFloatEnv("SYSID_TIMEOUT_S", DefaultSysIdTimeoutS)),
		QuasistaticRunTime: seconds(GetFloatEnv("SYSID_QUASISTATIC_S", DefaultQuasistaticSeconds)),
		DynamicRunTime:     seconds(GetFloatEnv("SYSID_DYNAMIC_S", DefaultDynamicSeconds)),
		Pause:              seconds(GetFloatEnv("SYSID_PAUSE_S", DefaultSysIdPauseSeconds)),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func GetIntEnv(env string, defaultValue int) int {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		value, err := strconv.ParseInt(strings.Trim(envValue, "\r"), 0, 32)
		if err != nil {
			log.Printf("warning:%s not parsed - error: %s\n", env, err)
			return defaultValue
		} else {
			return int(value)
		}
	}
}

func GetBoolEnv(env string, defaultValue bool) bool {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		value, err := strconv.ParseBool(strings.Trim(envValue, "\r"))
		if err != nil {
			log.Printf("warning:%s not parsed - error: %s\n", env, err)
			return defaultValue
		} else {
			return value
		}
	}
}

func GetStringEnv(env string, defaultValue string) string {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		return strings.ToLower(strings.Trim(envValue, "\r"))
	}
}

// GetRawStringEnv is GetStringEnv without lower casing, for case sensitive names like sysfs devices.
func GetRawStringEnv(env string, defaultValue string) string {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	}
	return strings.Trim(envValue, "\r")
}

func GetFloatEnv(env string, defaultValue float64) float64 {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	} else {
		value, err := strconv.ParseFloat(strings.Trim(envValue, "\r"), 64)
		if err != nil {
			log.Printf("warning:%s not parsed - error: %s\n", env, err)
			return defaultValue
		}
		return value
	}
}

func GetDurationEnv(env string, defaultValue time.Duration) time.Duration {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	}
	value, err := time.ParseDuration(strings.Trim(envValue, "\r"))
	if err != nil {
		log.Printf("warning:%s not parsed - error: %s\n", env, err)
		return defaultValue
	}
	return value
}
