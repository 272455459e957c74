package motor

import (
	"errors"
	"fmt"
	"math"

	"github.com/Speshl/gorrc_drive/internal/measure"
	"github.com/Speshl/gorrc_drive/internal/models"
	"go.uber.org/multierr"
)

const (
	MaxPower = 1.0
	MinPower = -1.0
)

var (
	ErrAlreadyBound    = errors.New("motor group already follows a leader")
	ErrFollowerCommand = errors.New("follower motor group cannot be commanded directly")
)

// Actuator is a single physical motor output. Set receives the power already corrected
// for the motor's mounting polarity.
type Actuator interface {
	Set(power float64) error
}

// Encoder reports readings in sensor native units (rotations, rotations per second).
type Encoder interface {
	RawPosition() (float64, error)
	RawVelocity() (float64, error)
}

type Polarity int

const (
	Normal   Polarity = 1
	Inverted Polarity = -1
)

func (p Polarity) valid() bool {
	return p == Normal || p == Inverted
}

func (p Polarity) String() string {
	if p == Inverted {
		return "inverted"
	}
	return "normal"
}

type Config struct {
	Name     string
	Leader   Actuator
	Polarity Polarity

	// Followers mirror every command given to this group, each scaled by the matching
	// entry of FollowerPolarities.
	Followers          []*Group
	FollowerPolarities []Polarity

	Encoder        Encoder
	PositionFactor float64
	VelocityFactor float64
}

type mirror struct {
	group    *Group
	polarity Polarity
}

// Group is one logical actuator: a commanded motor plus the groups mirroring it.
type Group struct {
	name     string
	actuator Actuator
	polarity Polarity
	encoder  Encoder

	positionFactor float64
	velocityFactor float64

	leader  *Group
	mirrors []mirror

	power float64
}

func NewGroup(cfg Config) (*Group, error) {
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("motor group %s: %w", cfg.Name, err)
	}

	g := &Group{
		name:           cfg.Name,
		actuator:       cfg.Leader,
		polarity:       cfg.Polarity,
		encoder:        cfg.Encoder,
		positionFactor: cfg.PositionFactor,
		velocityFactor: cfg.VelocityFactor,
	}

	for i := range cfg.Followers {
		cfg.Followers[i].leader = g
		g.mirrors = append(g.mirrors, mirror{
			group:    cfg.Followers[i],
			polarity: cfg.FollowerPolarities[i],
		})
	}
	return g, nil
}

// validate checks everything before any follower is bound so a failed construction leaves
// the followers untouched.
func validate(cfg Config) error {
	if cfg.Leader == nil {
		return fmt.Errorf("missing leader actuator: %w", models.ErrConfiguration)
	}
	if cfg.Encoder == nil {
		return fmt.Errorf("missing encoder: %w", models.ErrConfiguration)
	}
	if !cfg.Polarity.valid() {
		return fmt.Errorf("invalid polarity %d: %w", cfg.Polarity, models.ErrConfiguration)
	}
	if len(cfg.Followers) != len(cfg.FollowerPolarities) {
		return fmt.Errorf("%d followers but %d follower polarities: %w", len(cfg.Followers), len(cfg.FollowerPolarities), models.ErrConfiguration)
	}
	if !usableFactor(cfg.PositionFactor) || !usableFactor(cfg.VelocityFactor) {
		return fmt.Errorf("conversion factors must be finite and non-zero: %w", models.ErrConfiguration)
	}

	seen := make(map[*Group]bool, len(cfg.Followers))
	for i, follower := range cfg.Followers {
		switch {
		case follower == nil:
			return fmt.Errorf("follower %d is nil: %w", i, models.ErrConfiguration)
		case seen[follower]:
			return fmt.Errorf("follower %s listed twice: %w", follower.name, models.ErrConfiguration)
		case follower.leader != nil:
			return fmt.Errorf("follower %s already follows %s: %w", follower.name, follower.leader.name, ErrAlreadyBound)
		case len(follower.mirrors) > 0:
			return fmt.Errorf("follower %s leads other groups: %w", follower.name, models.ErrConfiguration)
		case !cfg.FollowerPolarities[i].valid():
			return fmt.Errorf("invalid polarity %d for follower %s: %w", cfg.FollowerPolarities[i], follower.name, models.ErrConfiguration)
		}
		seen[follower] = true
	}
	return nil
}

func usableFactor(f float64) bool {
	return f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (g *Group) Name() string {
	return g.name
}

func (g *Group) Polarity() Polarity {
	return g.polarity
}

// Leader returns the group this one mirrors, or nil for an independently commanded group.
func (g *Group) Leader() *Group {
	return g.leader
}

// SetPower commands the group and every follower in the same call. Finite values outside
// [-1, 1] are clamped silently; NaN and infinities command zero and return ErrOutOfRangeCommand.
func (g *Group) SetPower(power float64) error {
	if g.leader != nil {
		return fmt.Errorf("%s follows %s: %w", g.name, g.leader.name, ErrFollowerCommand)
	}

	var err error
	if math.IsNaN(power) || math.IsInf(power, 0) {
		err = fmt.Errorf("%s power %v: %w", g.name, power, models.ErrOutOfRangeCommand)
		power = 0
	}
	return multierr.Append(err, g.apply(clamp(power)))
}

// SetVoltage commands volts / supply as power. The supply reading must be positive.
func (g *Group) SetVoltage(volts, supply measure.Measure) error {
	v, err := volts.In(measure.Volts)
	if err != nil {
		return err
	}
	s, err := supply.In(measure.Volts)
	if err != nil {
		return err
	}
	if math.IsNaN(s) || s <= 0 {
		return fmt.Errorf("%s supply voltage %.2f: %w", g.name, s, models.ErrSensorUnavailable)
	}
	return g.SetPower(v / s)
}

func (g *Group) apply(power float64) error {
	g.power = power
	err := g.actuator.Set(power * float64(g.polarity))
	for _, m := range g.mirrors {
		err = multierr.Append(err, m.group.apply(power*float64(m.polarity)))
	}
	if err != nil {
		return fmt.Errorf("failed setting %s power %.3f: %w", g.name, power, err)
	}
	return nil
}

// CurrentPower is the last commanded power before mounting polarity is applied.
func (g *Group) CurrentPower() float64 {
	return g.power
}

func (g *Group) Position() (float64, error) {
	raw, err := g.encoder.RawPosition()
	if err != nil {
		return 0, fmt.Errorf("%s position: %w", g.name, err)
	}
	return raw * g.positionFactor, nil
}

func (g *Group) Velocity() (float64, error) {
	raw, err := g.encoder.RawVelocity()
	if err != nil {
		return 0, fmt.Errorf("%s velocity: %w", g.name, err)
	}
	return raw * g.velocityFactor, nil
}

func clamp(power float64) float64 {
	if power > MaxPower {
		return MaxPower
	} else if power < MinPower {
		return MinPower
	}
	return power
}
