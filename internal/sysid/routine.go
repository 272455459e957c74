package sysid

import (
	"time"

	"github.com/Speshl/gorrc_drive/internal/measure"
	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/Speshl/gorrc_drive/internal/scheduler"
)

const (
	DefaultRampRate    = 1.0 // volts per second
	DefaultStepVoltage = 7.0
	DefaultTimeout     = 10 * time.Second
)

type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

func (d Direction) sign() float64 {
	if d == Reverse {
		return -1
	}
	return 1
}

type Phase int

const (
	Quasistatic Phase = iota
	Dynamic
)

func (p Phase) String() string {
	if p == Dynamic {
		return "dynamic"
	}
	return "quasistatic"
}

type Config struct {
	RampRate    float64 // volts per second
	StepVoltage float64
	Timeout     time.Duration // zero runs until cancelled
}

func DefaultConfig() Config {
	return Config{
		RampRate:    DefaultRampRate,
		StepVoltage: DefaultStepVoltage,
		Timeout:     DefaultTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.RampRate <= 0 {
		c.RampRate = DefaultRampRate
	}
	if c.StepVoltage <= 0 {
		c.StepVoltage = DefaultStepVoltage
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	return c
}

// Mechanism plumbs the routine into the hardware being characterized.
type Mechanism struct {
	// Drive applies the commanded voltage to every driven actuator.
	Drive func(volts measure.Measure) error
	// Log records one frame per motor channel into log.
	Log func(log *Log) error
	// Stop zeroes the actuators without needing a supply reading. Drive(0 V) is used when nil.
	Stop func() error

	Subsystem scheduler.Subsystem
}

// Sink receives the frames produced by a session. Slices passed to WriteFrames are reused on
// the next cycle.
type Sink interface {
	WriteFrames(frames []models.Frame) error
	WriteState(entry models.StateEntry) error
}

type Routine struct {
	cfg       Config
	mechanism Mechanism
	sink      Sink

	// Clock is read once per cycle. Defaults to time.Now.
	Clock func() time.Time
}

func NewRoutine(cfg Config, mechanism Mechanism, sink Sink) *Routine {
	return &Routine{
		cfg:       cfg.withDefaults(),
		mechanism: mechanism,
		sink:      sink,
		Clock:     time.Now,
	}
}

func (r *Routine) Config() Config {
	return r.cfg
}

// Quasistatic returns a session ramping voltage from zero at the configured rate.
func (r *Routine) Quasistatic(direction Direction) *Session {
	return newSession(r, Quasistatic, direction)
}

// Dynamic returns a session stepping straight to the configured voltage.
func (r *Routine) Dynamic(direction Direction) *Session {
	return newSession(r, Dynamic, direction)
}

func (r *Routine) stateName() string {
	if r.mechanism.Subsystem == nil {
		return "sysid-test-state"
	}
	return "sysid-test-state-" + r.mechanism.Subsystem.Name()
}
