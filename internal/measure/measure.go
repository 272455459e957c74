package measure

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"
)

var ErrUnitMismatch = errors.New("unit mismatch")

type Kind int

const (
	KindVoltage Kind = iota
	KindDistance
	KindLinearVelocity
)

func (k Kind) String() string {
	switch k {
	case KindVoltage:
		return "voltage"
	case KindDistance:
		return "distance"
	case KindLinearVelocity:
		return "linear velocity"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Unit scales a magnitude into the periph base unit of its kind (nanovolts, nanometres,
// nanometres per second).
type Unit struct {
	kind   Kind
	symbol string
	base   float64
}

func (u Unit) Kind() Kind {
	return u.kind
}

func (u Unit) String() string {
	return u.symbol
}

var (
	Volts      = Unit{kind: KindVoltage, symbol: "V", base: float64(physic.Volt)}
	Millivolts = Unit{kind: KindVoltage, symbol: "mV", base: float64(physic.MilliVolt)}

	Meters      = Unit{kind: KindDistance, symbol: "m", base: float64(physic.Metre)}
	Millimeters = Unit{kind: KindDistance, symbol: "mm", base: float64(physic.MilliMetre)}
	Inches      = Unit{kind: KindDistance, symbol: "in", base: float64(physic.Inch)}
	Feet        = Unit{kind: KindDistance, symbol: "ft", base: float64(physic.Foot)}

	MetersPerSecond      = Unit{kind: KindLinearVelocity, symbol: "m/s", base: float64(physic.MetrePerSecond)}
	MillimetersPerSecond = Unit{kind: KindLinearVelocity, symbol: "mm/s", base: float64(physic.MetrePerSecond) / 1000}
	FeetPerSecond        = Unit{kind: KindLinearVelocity, symbol: "ft/s", base: float64(physic.Foot)}
)

// Measure is a read-only view of a unit tagged magnitude.
type Measure interface {
	Kind() Kind
	Unit() Unit
	In(u Unit) (float64, error)
	String() string
}

type value struct {
	magnitude float64
	unit      Unit
}

// Of returns an immutable measure.
func Of(magnitude float64, u Unit) Measure {
	return value{magnitude: magnitude, unit: u}
}

func (v value) Kind() Kind { return v.unit.kind }

func (v value) Unit() Unit { return v.unit }

func (v value) In(u Unit) (float64, error) {
	return convert(v.magnitude, v.unit, u)
}

func (v value) String() string {
	return fmt.Sprintf("%.4f %s", v.magnitude, v.unit)
}

func convert(magnitude float64, from, to Unit) (float64, error) {
	if from.kind != to.kind {
		return 0, fmt.Errorf("cannot read %s as %s: %w", from.kind, to.kind, ErrUnitMismatch)
	}
	if from.base == to.base {
		return magnitude, nil
	}
	return magnitude * from.base / to.base, nil
}

// Mutable is a reusable measure whose kind is fixed at creation and whose magnitude is
// overwritten in place every control cycle.
type Mutable struct {
	kind      Kind
	magnitude float64
	unit      Unit
}

func NewMutable(magnitude float64, u Unit) *Mutable {
	return &Mutable{
		kind:      u.kind,
		magnitude: magnitude,
		unit:      u,
	}
}

// Replace overwrites the magnitude and returns the holder as a read-only view.
func (m *Mutable) Replace(magnitude float64, u Unit) (Measure, error) {
	if u.kind != m.kind {
		return m, fmt.Errorf("cannot store %s in %s holder: %w", u.kind, m.kind, ErrUnitMismatch)
	}
	m.magnitude = magnitude
	m.unit = u
	return m, nil
}

func (m *Mutable) Kind() Kind { return m.kind }

func (m *Mutable) Unit() Unit { return m.unit }

func (m *Mutable) In(u Unit) (float64, error) {
	return convert(m.magnitude, m.unit, u)
}

func (m *Mutable) String() string {
	return fmt.Sprintf("%.4f %s", m.magnitude, m.unit)
}

func ElectricPotential(m Measure) (physic.ElectricPotential, error) {
	v, err := m.In(Volts)
	if err != nil {
		return 0, err
	}
	return physic.ElectricPotential(v * float64(physic.Volt)), nil
}

func Distance(m Measure) (physic.Distance, error) {
	v, err := m.In(Meters)
	if err != nil {
		return 0, err
	}
	return physic.Distance(v * float64(physic.Metre)), nil
}

func Speed(m Measure) (physic.Speed, error) {
	v, err := m.In(MetersPerSecond)
	if err != nil {
		return 0, err
	}
	return physic.Speed(v * float64(physic.MetrePerSecond)), nil
}
