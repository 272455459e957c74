package pca9685

import (
	"fmt"
	"log"

	"github.com/Speshl/gorrc_drive/internal/actuator"
	"github.com/Speshl/gorrc_drive/internal/config"
	"github.com/Speshl/gorrc_drive/internal/motor"
	"github.com/googolgl/go-i2c"
	"github.com/googolgl/go-pca9685"
)

const (
	AcRange = pca9685.ServoRangeDef

	MaxSupportedChannels = 16
)

// Driver owns one PCA9685 board with a motor ESC on each used channel.
type Driver struct {
	cfg      config.DriveConfig
	closeBus func() error
	driver   *pca9685.PCA9685
	escs     map[int]*ESC
}

// ESC is a motor speed controller driven by one PCA9685 channel.
type ESC struct {
	name  string
	servo *pca9685.Servo
}

var _ motor.Actuator = (*ESC)(nil)

func NewDriver(cfg config.DriveConfig) *Driver {
	return &Driver{
		cfg: cfg,
	}
}

func (d *Driver) Init() error {
	bus, err := i2c.New(d.cfg.Address, d.cfg.I2CDevice)
	if err != nil {
		return fmt.Errorf("error starting i2c with address - %w", err)
	}
	d.closeBus = bus.Close

	d.driver, err = pca9685.New(bus, nil)
	if err != nil {
		return fmt.Errorf("error getting pwm driver - %w", err)
	}

	escs := make(map[int]*ESC, len(d.cfg.Motors))
	for _, motorCfg := range d.cfg.Motors {
		if motorCfg.Channel < 0 || motorCfg.Channel >= MaxSupportedChannels {
			return fmt.Errorf("motor %s channel %d out of range", motorCfg.Name, motorCfg.Channel)
		}
		if _, taken := escs[motorCfg.Channel]; taken {
			return fmt.Errorf("motor %s reuses channel %d", motorCfg.Name, motorCfg.Channel)
		}
		escs[motorCfg.Channel] = &ESC{
			name: motorCfg.Name,
			servo: d.driver.ServoNew(motorCfg.Channel, &pca9685.ServOptions{
				AcRange:  AcRange,
				MinPulse: float32(motorCfg.MinPulse),
				MaxPulse: float32(motorCfg.MaxPulse),
			}),
		}
		log.Printf("esc added: %s on channel %d\n", motorCfg.Name, motorCfg.Channel)
	}
	d.escs = escs
	d.NeutralAll()
	return nil
}

// ESC returns the actuator on channel. Init must have succeeded.
func (d *Driver) ESC(channel int) (*ESC, error) {
	esc, ok := d.escs[channel]
	if !ok {
		return nil, fmt.Errorf("no esc configured on channel %d", channel)
	}
	return esc, nil
}

func (d *Driver) NeutralAll() {
	log.Println("setting all escs to neutral")
	for _, esc := range d.escs {
		if err := esc.Set(0); err != nil {
			log.Printf("failed setting %s neutral: %s\n", esc.name, err)
		}
	}
}

func (d *Driver) Close() error {
	d.NeutralAll()
	if d.closeBus == nil {
		return nil
	}
	return d.closeBus()
}

func (e *ESC) Set(power float64) error {
	fraction := actuator.PowerToFraction(power)
	err := e.servo.Fraction(float32(fraction))
	if err != nil {
		return fmt.Errorf("failed setting esc value - name: %s value: %.2f - error: %w", e.name, fraction, err)
	}
	return nil
}
