package config

import "time"

const (
	AppEnvBase = "GORRC_DRIVE_"

	DefaultServer          = "127.0.0.1:8181"
	DefaultCarKey          = ""
	DefaultPassword        = ""
	DefaultTelemetry       = false
	DefaultHealthInterval  = 30 * time.Second
	DefaultCommandTimeout  = 200 * time.Millisecond
	DefaultControlPeriodMS = 20

	// Default Drive Options
	DefaultActuatorDriver  = "pca9685"
	DefaultAddress         = 0x40
	DefaultI2CDevice       = "/dev/i2c-1"
	DefaultMaxPulse        = 2000
	DefaultMinPulse        = 1000
	DefaultInvertLeftSide  = false
	DefaultDeadband        = 0.0
	DefaultSquareInputs    = false
	DefaultWheelDiameterM  = 0.1524
	DefaultGearRatio       = 8.45
	DefaultPositionFactor  = 0.0 // derived from wheel diameter and gear ratio when zero
	DefaultVelocityFactor  = 0.0
	DefaultFrontLeftChan   = 0
	DefaultFrontRightChan  = 1
	DefaultBackLeftChan    = 2
	DefaultBackRightChan   = 3
	MaxSupportedPWMChannel = 15

	// Default Encoder Options
	DefaultEncoderDriver     = "quadrature"
	DefaultCountsPerRev      = 42
	DefaultEncoderPollMicros = 250
	DefaultVelocityWindowMS  = 20
	DefaultAuxEncoderEnabled = false
	DefaultAuxCountsPerRev   = 2048
	DefaultAuxWheelDiameterM = 0.1524

	// Default Power Options
	DefaultPowerSource = "fixed"
	DefaultSysfsMount  = "/sys"
	DefaultSupplyName  = "BAT0"
	DefaultFixedVolts  = 12.0

	// Default SysId Options
	DefaultMode               = "drive"
	DefaultRampRate           = 1.0
	DefaultStepVoltage        = 7.0
	DefaultSysIdTimeoutS      = 10.0
	DefaultQuasistaticSeconds = 8.0
	DefaultDynamicSeconds     = 2.0
	DefaultSysIdPauseSeconds  = 2.0
)

var (
	DefaultEncoderPinsA = [4]int{5, 6, 17, 22}
	DefaultEncoderPinsB = [4]int{12, 13, 27, 23}
)

type Config struct {
	ServerCfg  ServerConfig
	DriveCfg   DriveConfig
	EncoderCfg EncoderConfig
	PowerCfg   PowerConfig
	SysIdCfg   SysIdConfig
}

type ServerConfig struct {
	Server         string
	Key            string
	Password       string
	Telemetry      bool
	HealthInterval time.Duration
	CommandTimeout time.Duration
	ControlPeriod  time.Duration
}

type DriveConfig struct {
	ActuatorDriver string
	Address        byte
	I2CDevice      string
	Motors         [4]MotorConfig // front-left, front-right, back-left, back-right
	InvertLeftSide bool
	Deadband       float64
	SquareInputs   bool
	WheelDiameterM float64
	GearRatio      float64
	PositionFactor float64
	VelocityFactor float64
}

type MotorConfig struct {
	Name     string
	Channel  int
	MaxPulse float64
	MinPulse float64
	EncoderA int
	EncoderB int
}

type EncoderConfig struct {
	EncoderDriver  string
	CountsPerRev   int
	PollInterval   time.Duration
	VelocityWindow time.Duration

	AuxEnabled        bool
	AuxPinA           int
	AuxPinB           int
	AuxReversed       bool
	AuxCountsPerRev   int
	AuxWheelDiameterM float64
}

type PowerConfig struct {
	Source     string
	SysfsMount string
	SupplyName string
	FixedVolts float64
}

type SysIdConfig struct {
	Mode               string
	RampRate           float64
	StepVoltage        float64
	Timeout            time.Duration
	QuasistaticRunTime time.Duration
	DynamicRunTime     time.Duration
	Pause              time.Duration
}
