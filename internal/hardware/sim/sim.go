// Package sim provides stand-in motors and a battery for running the drivetrain without
// hardware attached.
package sim

import (
	"math"
	"sync"
	"time"

	"github.com/Speshl/gorrc_drive/internal/motor"
	"github.com/Speshl/gorrc_drive/internal/power"
)

const (
	DefaultFreeSpeed    = 10.0 // rotations per second at full power
	DefaultTimeConstant = 100 * time.Millisecond
	DefaultBatteryVolts = 12.6
	DefaultSag          = 1.2 // volts lost at full power across all motors
)

// Motor is a first order model of a DC motor: velocity settles exponentially towards
// power * FreeSpeed and position integrates velocity.
type Motor struct {
	name         string
	freeSpeed    float64
	timeConstant time.Duration
	clock        func() time.Time

	lock     sync.Mutex
	last     time.Time
	power    float64
	velocity float64
	position float64
}

var (
	_ motor.Actuator = (*Motor)(nil)
	_ motor.Encoder  = (*Motor)(nil)
)

func NewMotor(name string, clock func() time.Time) *Motor {
	if clock == nil {
		clock = time.Now
	}
	return &Motor{
		name:         name,
		freeSpeed:    DefaultFreeSpeed,
		timeConstant: DefaultTimeConstant,
		clock:        clock,
		last:         clock(),
	}
}

func (m *Motor) Name() string {
	return m.name
}

func (m *Motor) Set(power float64) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.advance()
	m.power = math.Max(-1, math.Min(1, power))
	return nil
}

// Power is the last value the motor received.
func (m *Motor) Power() float64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.power
}

func (m *Motor) RawPosition() (float64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.advance()
	return m.position, nil
}

func (m *Motor) RawVelocity() (float64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.advance()
	return m.velocity, nil
}

func (m *Motor) advance() {
	now := m.clock()
	dt := now.Sub(m.last).Seconds()
	m.last = now
	if dt <= 0 {
		return
	}

	target := m.power * m.freeSpeed
	decay := math.Exp(-dt / m.timeConstant.Seconds())
	next := target + (m.velocity-target)*decay
	// exact integral of the exponential approach over dt
	m.position += target*dt + (m.velocity-target)*m.timeConstant.Seconds()*(1-decay)
	m.velocity = next
}

// Battery sags linearly with the average absolute power of its motors.
type Battery struct {
	nominal float64
	sag     float64
	motors  []*Motor
}

var _ power.Sensor = (*Battery)(nil)

func NewBattery(nominal float64, motors ...*Motor) *Battery {
	if nominal <= 0 {
		nominal = DefaultBatteryVolts
	}
	return &Battery{
		nominal: nominal,
		sag:     DefaultSag,
		motors:  motors,
	}
}

func (b *Battery) SupplyVoltage() (float64, error) {
	load := 0.0
	for _, m := range b.motors {
		load += math.Abs(m.Power())
	}
	if len(b.motors) > 0 {
		load /= float64(len(b.motors))
	}
	return b.nominal - b.sag*load, nil
}
