package hardware

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/Speshl/gorrc_drive/internal/actuator/pca9685"
	pipwm "github.com/Speshl/gorrc_drive/internal/actuator/pi_pwm"
	"github.com/Speshl/gorrc_drive/internal/config"
	"github.com/Speshl/gorrc_drive/internal/encoder/quadrature"
	"github.com/Speshl/gorrc_drive/internal/hardware/sim"
	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/Speshl/gorrc_drive/internal/motor"
	"github.com/Speshl/gorrc_drive/internal/power"
	"github.com/stianeikeland/go-rpio/v4"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	DriverPCA9685 = "pca9685"
	DriverPiPWM   = "pi_pwm"
	DriverSim     = "sim"

	EncoderQuadrature = "quadrature"
	EncoderSim        = "sim"

	PowerFixed = "fixed"
	PowerSysfs = "sysfs"
	PowerSim   = "sim"
)

// Motor is one physical drive motor: an output and the encoder mounted on it.
type Motor struct {
	Name     string
	Actuator motor.Actuator
	Encoder  motor.Encoder
}

type Hardware struct {
	FrontLeft  Motor
	FrontRight Motor
	BackLeft   Motor
	BackRight  Motor

	Supply power.Sensor

	// AuxEncoder is an optional free spinning wheel on the right side, nil when not fitted.
	AuxEncoder motor.Encoder
	// AuxFactor converts AuxEncoder rotations to meters.
	AuxFactor float64

	samplers []*quadrature.Encoder
	closers  []func() error
}

// Motors returns the four drive motors in front-left, front-right, back-left, back-right order.
func (h *Hardware) Motors() [4]Motor {
	return [4]Motor{h.FrontLeft, h.FrontRight, h.BackLeft, h.BackRight}
}

// New opens the actuator driver, encoders and supply sensor chosen by cfg.
func New(cfg config.Config) (*Hardware, error) {
	h := &Hardware{}
	if err := h.open(cfg); err != nil {
		return nil, multierr.Append(err, h.Close())
	}
	return h, nil
}

func (h *Hardware) open(cfg config.Config) error {
	driveCfg := cfg.DriveCfg
	encoderCfg := cfg.EncoderCfg

	if driveCfg.ActuatorDriver == DriverSim || encoderCfg.EncoderDriver == EncoderSim {
		if driveCfg.ActuatorDriver != DriverSim || encoderCfg.EncoderDriver != EncoderSim {
			return fmt.Errorf("sim actuators and sim encoders must be used together: %w", models.ErrConfiguration)
		}
		return h.openSim(cfg)
	}

	needGPIO := driveCfg.ActuatorDriver == DriverPiPWM || encoderCfg.EncoderDriver == EncoderQuadrature
	if needGPIO {
		if err := rpio.Open(); err != nil {
			return fmt.Errorf("error opening gpio - %w", err)
		}
		h.closers = append(h.closers, rpio.Close)
	}

	actuators, err := h.openActuators(driveCfg)
	if err != nil {
		return err
	}

	var encoders [4]motor.Encoder
	switch encoderCfg.EncoderDriver {
	case EncoderQuadrature:
		for i, motorCfg := range driveCfg.Motors {
			enc, err := quadrature.New(quadrature.Config{
				Name:           motorCfg.Name,
				PinA:           motorCfg.EncoderA,
				PinB:           motorCfg.EncoderB,
				CountsPerRev:   encoderCfg.CountsPerRev,
				PollInterval:   encoderCfg.PollInterval,
				VelocityWindow: encoderCfg.VelocityWindow,
			})
			if err != nil {
				return err
			}
			h.samplers = append(h.samplers, enc)
			encoders[i] = enc
		}
	default:
		return fmt.Errorf("unsupported encoder driver %q: %w", encoderCfg.EncoderDriver, models.ErrConfiguration)
	}

	if encoderCfg.AuxEnabled {
		aux, err := quadrature.New(quadrature.Config{
			Name:           "aux-right",
			PinA:           encoderCfg.AuxPinA,
			PinB:           encoderCfg.AuxPinB,
			CountsPerRev:   encoderCfg.AuxCountsPerRev,
			Reversed:       encoderCfg.AuxReversed,
			PollInterval:   encoderCfg.PollInterval,
			VelocityWindow: encoderCfg.VelocityWindow,
		})
		if err != nil {
			return err
		}
		h.samplers = append(h.samplers, aux)
		h.AuxEncoder = aux
		h.AuxFactor = math.Pi * encoderCfg.AuxWheelDiameterM
	}

	h.assign(driveCfg, actuators, encoders)

	h.Supply, err = openSupply(cfg.PowerCfg)
	return err
}

func (h *Hardware) openActuators(driveCfg config.DriveConfig) ([4]motor.Actuator, error) {
	var actuators [4]motor.Actuator
	switch driveCfg.ActuatorDriver {
	case DriverPCA9685:
		driver := pca9685.NewDriver(driveCfg)
		if err := driver.Init(); err != nil {
			return actuators, fmt.Errorf("error initializing pca9685 - %w", err)
		}
		h.closers = append(h.closers, driver.Close)
		for i, motorCfg := range driveCfg.Motors {
			esc, err := driver.ESC(motorCfg.Channel)
			if err != nil {
				return actuators, err
			}
			actuators[i] = esc
		}
	case DriverPiPWM:
		driver := pipwm.NewDriver(driveCfg)
		if err := driver.Init(); err != nil {
			return actuators, fmt.Errorf("error initializing pi pwm - %w", err)
		}
		h.closers = append(h.closers, driver.Close)
		for i := range driveCfg.Motors {
			esc, err := driver.ESC(i)
			if err != nil {
				return actuators, err
			}
			actuators[i] = esc
		}
	default:
		return actuators, fmt.Errorf("unsupported actuator driver %q: %w", driveCfg.ActuatorDriver, models.ErrConfiguration)
	}
	return actuators, nil
}

func (h *Hardware) openSim(cfg config.Config) error {
	var (
		actuators [4]motor.Actuator
		encoders  [4]motor.Encoder
		motors    = make([]*sim.Motor, 0, 4)
	)
	for i, motorCfg := range cfg.DriveCfg.Motors {
		m := sim.NewMotor(motorCfg.Name, nil)
		actuators[i] = m
		encoders[i] = m
		motors = append(motors, m)
	}
	h.assign(cfg.DriveCfg, actuators, encoders)

	if cfg.PowerCfg.Source == PowerSim {
		h.Supply = sim.NewBattery(cfg.PowerCfg.FixedVolts, motors...)
		return nil
	}
	supply, err := openSupply(cfg.PowerCfg)
	h.Supply = supply
	return err
}

func (h *Hardware) assign(driveCfg config.DriveConfig, actuators [4]motor.Actuator, encoders [4]motor.Encoder) {
	motors := make([]Motor, 4)
	for i, motorCfg := range driveCfg.Motors {
		motors[i] = Motor{
			Name:     motorCfg.Name,
			Actuator: actuators[i],
			Encoder:  encoders[i],
		}
	}
	h.FrontLeft, h.FrontRight, h.BackLeft, h.BackRight = motors[0], motors[1], motors[2], motors[3]
}

func openSupply(cfg config.PowerConfig) (power.Sensor, error) {
	switch cfg.Source {
	case PowerFixed:
		return power.Fixed(cfg.FixedVolts), nil
	case PowerSysfs:
		return power.NewSysfs(cfg.SysfsMount, cfg.SupplyName)
	default:
		return nil, fmt.Errorf("unsupported power source %q: %w", cfg.Source, models.ErrConfiguration)
	}
}

// Start runs the encoder samplers until ctx is done.
func (h *Hardware) Start(ctx context.Context) error {
	if len(h.samplers) == 0 {
		<-ctx.Done()
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, enc := range h.samplers {
		enc := enc
		group.Go(func() error {
			return enc.Start(groupCtx)
		})
	}
	return group.Wait()
}

// Close releases drivers in reverse order of opening.
func (h *Hardware) Close() error {
	log.Println("closing hardware")
	var err error
	for i := len(h.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, h.closers[i]())
	}
	h.closers = nil
	return err
}
