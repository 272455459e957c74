package kinematics

import "math"

const (
	MaxInput = 1.0
	MinInput = -1.0
)

// Options shape operator input before mixing. The zero value mixes the raw input.
type Options struct {
	Deadband     float64
	SquareInputs bool
}

// Arcade maps forward and rotation intent to left and right side power. Both sides are
// divided by the same factor when either would exceed 1 so their ratio, and therefore the
// commanded curvature, is kept.
func Arcade(forward, rotation float64) (left, right float64) {
	forward = clampInput(forward)
	rotation = clampInput(rotation)

	left = forward + rotation
	right = forward - rotation

	scale := math.Max(1, math.Max(math.Abs(left), math.Abs(right)))
	return left / scale, right / scale
}

func (o Options) Arcade(forward, rotation float64) (left, right float64) {
	forward = o.shape(clampInput(forward))
	rotation = o.shape(clampInput(rotation))
	return Arcade(forward, rotation)
}

func (o Options) shape(value float64) float64 {
	value = ApplyDeadband(value, o.Deadband)
	if o.SquareInputs {
		value = math.Copysign(value*value, value)
	}
	return value
}

// ApplyDeadband zeroes values within deadband of center and rescales the rest so the output
// still spans [-1, 1] without a jump at the deadband edge.
func ApplyDeadband(value, deadband float64) float64 {
	if deadband <= 0 || deadband >= 1 {
		return value
	}
	if math.Abs(value) < deadband {
		return 0
	}
	return math.Copysign((math.Abs(value)-deadband)/(1-deadband), value)
}

func clampInput(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return math.Max(MinInput, math.Min(MaxInput, value))
}
