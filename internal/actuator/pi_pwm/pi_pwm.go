package pipwm

import (
	"fmt"
	"log"

	"github.com/Speshl/gorrc_drive/internal/actuator"
	"github.com/Speshl/gorrc_drive/internal/config"
	"github.com/Speshl/gorrc_drive/internal/motor"
	"github.com/stianeikeland/go-rpio/v4"
)

const (
	Frequency   = 100000
	CycleLength = uint32(2000) // one 20ms ESC frame in 10us ticks at Frequency
	TickMicros  = 10

	MaxSupportedMotors = 4
)

// Hardware PWM capable pins. The Pi has two PWM channels so motors sharing a channel
// (12/18 and 13/19) receive the same duty cycle; pair them with a follower.
var PinMap = []int{12, 13, 18, 19}

// Driver drives ESCs straight from the Pi's hardware PWM pins. rpio must already be open.
type Driver struct {
	cfg  config.DriveConfig
	escs []*ESC
}

type ESC struct {
	name     string
	pin      rpio.Pin
	maxValue uint32
	minValue uint32
}

var _ motor.Actuator = (*ESC)(nil)

func NewDriver(cfg config.DriveConfig) *Driver {
	return &Driver{
		cfg: cfg,
	}
}

func (d *Driver) Init() error {
	escs := make([]*ESC, 0, MaxSupportedMotors)
	for i, motorCfg := range d.cfg.Motors {
		if i >= MaxSupportedMotors {
			break
		}

		esc := &ESC{
			name:     motorCfg.Name,
			pin:      rpio.Pin(PinMap[i]),
			maxValue: uint32(motorCfg.MaxPulse / TickMicros),
			minValue: uint32(motorCfg.MinPulse / TickMicros),
		}
		if esc.maxValue <= esc.minValue || esc.maxValue > CycleLength {
			return fmt.Errorf("motor %s pulse range %.0f-%.0f is not usable", motorCfg.Name, motorCfg.MinPulse, motorCfg.MaxPulse)
		}
		esc.pin.Mode(rpio.Pwm)
		esc.pin.Freq(Frequency)
		escs = append(escs, esc)
		log.Printf("esc added: %s on pin %d\n", motorCfg.Name, PinMap[i])
	}
	d.escs = escs
	d.NeutralAll()
	return nil
}

func (d *Driver) ESC(index int) (*ESC, error) {
	if index < 0 || index >= len(d.escs) {
		return nil, fmt.Errorf("no esc at index %d", index)
	}
	return d.escs[index], nil
}

func (d *Driver) NeutralAll() {
	log.Println("setting all escs to neutral")
	for _, esc := range d.escs {
		_ = esc.Set(0)
	}
}

func (d *Driver) Close() error {
	d.NeutralAll()
	return nil
}

func (e *ESC) Set(power float64) error {
	e.pin.DutyCycle(e.dutyFor(power), CycleLength)
	return nil
}

func (e *ESC) dutyFor(power float64) uint32 {
	mappedValue := actuator.MapToRange(power, actuator.MinPower, actuator.MaxPower, float64(e.minValue), float64(e.maxValue))
	return uint32(mappedValue)
}
