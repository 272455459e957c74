package drive

import (
	"fmt"
	"log"

	"github.com/Speshl/gorrc_drive/internal/config"
	"github.com/Speshl/gorrc_drive/internal/hardware"
	"github.com/Speshl/gorrc_drive/internal/kinematics"
	"github.com/Speshl/gorrc_drive/internal/measure"
	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/Speshl/gorrc_drive/internal/motor"
	"github.com/Speshl/gorrc_drive/internal/power"
	"github.com/Speshl/gorrc_drive/internal/scheduler"
	"github.com/Speshl/gorrc_drive/internal/sysid"
	"go.uber.org/multierr"
)

const (
	SubsystemName = "drive"
	ChannelPrefix = "drive-"
)

type channel struct {
	name  string
	group *motor.Group
}

// Drive is a four motor differential drivetrain. The back motors follow the front motor on
// their side, so only the front groups are ever commanded.
type Drive struct {
	frontLeft  *motor.Group
	frontRight *motor.Group
	backLeft   *motor.Group
	backRight  *motor.Group
	channels   []channel

	supply  power.Sensor
	shaping kinematics.Options

	aux       motor.Encoder
	auxFactor float64

	routine *sysid.Routine

	appliedVoltage *measure.Mutable
	distance       *measure.Mutable
	velocity       *measure.Mutable
}

var _ scheduler.Subsystem = (*Drive)(nil)

// New wires the four motors of hw into groups. The right side is mounted mirrored to the
// left, so it is inverted unless InvertLeftSide says the left side is the mirrored one.
func New(hw *hardware.Hardware, cfg config.DriveConfig, sysIdCfg sysid.Config, sink sysid.Sink) (*Drive, error) {
	if hw == nil || hw.Supply == nil {
		return nil, fmt.Errorf("drive needs hardware with a supply sensor: %w", models.ErrConfiguration)
	}

	leftPolarity, rightPolarity := motor.Normal, motor.Inverted
	if cfg.InvertLeftSide {
		leftPolarity, rightPolarity = motor.Inverted, motor.Normal
	}

	d := &Drive{
		supply: hw.Supply,
		shaping: kinematics.Options{
			Deadband:     cfg.Deadband,
			SquareInputs: cfg.SquareInputs,
		},
		aux:            hw.AuxEncoder,
		auxFactor:      hw.AuxFactor,
		appliedVoltage: measure.NewMutable(0, measure.Volts),
		distance:       measure.NewMutable(0, measure.Meters),
		velocity:       measure.NewMutable(0, measure.MetersPerSecond),
	}

	var err error
	d.backLeft, err = newGroup(hw.BackLeft, leftPolarity, cfg, nil)
	if err != nil {
		return nil, err
	}
	d.backRight, err = newGroup(hw.BackRight, rightPolarity, cfg, nil)
	if err != nil {
		return nil, err
	}
	d.frontLeft, err = newGroup(hw.FrontLeft, leftPolarity, cfg, d.backLeft)
	if err != nil {
		return nil, err
	}
	d.frontRight, err = newGroup(hw.FrontRight, rightPolarity, cfg, d.backRight)
	if err != nil {
		return nil, err
	}

	d.channels = []channel{
		{name: ChannelPrefix + hw.FrontLeft.Name, group: d.frontLeft},
		{name: ChannelPrefix + hw.FrontRight.Name, group: d.frontRight},
		{name: ChannelPrefix + hw.BackLeft.Name, group: d.backLeft},
		{name: ChannelPrefix + hw.BackRight.Name, group: d.backRight},
	}

	d.routine = sysid.NewRoutine(sysIdCfg, sysid.Mechanism{
		Drive:     d.driveVoltage,
		Log:       d.logFrames,
		Stop:      d.stop,
		Subsystem: d,
	}, sink)

	log.Printf("drive ready: left %s, right %s\n", leftPolarity, rightPolarity)
	return d, nil
}

func newGroup(m hardware.Motor, polarity motor.Polarity, cfg config.DriveConfig, follower *motor.Group) (*motor.Group, error) {
	var encoder motor.Encoder
	if m.Encoder != nil {
		encoder = mountedEncoder{encoder: m.Encoder, polarity: polarity}
	}
	groupCfg := motor.Config{
		Name:     m.Name,
		Leader:   m.Actuator,
		Polarity: polarity,
		Encoder:  encoder,
		// same conversion on every wheel
		PositionFactor: cfg.PositionFactor,
		VelocityFactor: cfg.VelocityFactor,
	}
	if follower != nil {
		groupCfg.Followers = []*motor.Group{follower}
		groupCfg.FollowerPolarities = []motor.Polarity{motor.Normal}
	}
	return motor.NewGroup(groupCfg)
}

// mountedEncoder reports a motor's rotation in the robot's forward sense, the way an
// inverted motor controller inverts its integrated encoder.
type mountedEncoder struct {
	encoder  motor.Encoder
	polarity motor.Polarity
}

func (e mountedEncoder) RawPosition() (float64, error) {
	raw, err := e.encoder.RawPosition()
	return raw * float64(e.polarity), err
}

func (e mountedEncoder) RawVelocity() (float64, error) {
	raw, err := e.encoder.RawVelocity()
	return raw * float64(e.polarity), err
}

func (d *Drive) Name() string {
	return SubsystemName
}

// Drive mixes forward and rotation into side powers and commands both front groups. It is
// meant to be called every control cycle; errors are logged and the next cycle retries.
func (d *Drive) Drive(forward, rotation float64) {
	left, right := d.shaping.Arcade(forward, rotation)

	err := multierr.Append(d.frontLeft.SetPower(left), d.frontRight.SetPower(right))
	if err != nil {
		log.Printf("warning: drive cycle failed: %s\n", err.Error())
	}
}

// Stop zeroes both sides.
func (d *Drive) Stop() {
	if err := d.stop(); err != nil {
		log.Printf("error: failed stopping drive: %s\n", err.Error())
	}
}

func (d *Drive) stop() error {
	return multierr.Append(d.frontLeft.SetPower(0), d.frontRight.SetPower(0))
}

// ArcadeDriveCommand returns a command driving with fresh values from forward and rotation
// every cycle. The drive stops when the command ends.
func (d *Drive) ArcadeDriveCommand(forward, rotation func() float64) scheduler.Command {
	return scheduler.Run("arcadeDrive", func() {
		d.Drive(forward(), rotation())
	}, d).OnEnd(func(bool) {
		d.Stop()
	})
}

func (d *Drive) SysIdQuasistatic(direction sysid.Direction) *sysid.Session {
	return d.routine.Quasistatic(direction)
}

func (d *Drive) SysIdDynamic(direction sysid.Direction) *sysid.Session {
	return d.routine.Dynamic(direction)
}

func (d *Drive) supplyVoltage() (measure.Measure, error) {
	volts, err := d.supply.SupplyVoltage()
	if err != nil {
		return nil, err
	}
	return measure.Of(volts, measure.Volts), nil
}

func (d *Drive) driveVoltage(volts measure.Measure) error {
	supply, err := d.supplyVoltage()
	if err != nil {
		return err
	}
	return multierr.Append(
		d.frontLeft.SetVoltage(volts, supply),
		d.frontRight.SetVoltage(volts, supply),
	)
}

// logFrames records every channel against one supply reading. Encoder failures zero that
// channel's reading for the cycle; a missing supply fails the whole cycle.
func (d *Drive) logFrames(l *sysid.Log) error {
	supply, err := d.supply.SupplyVoltage()
	if err != nil {
		return err
	}

	for _, ch := range d.channels {
		position, err := ch.group.Position()
		if err != nil {
			log.Printf("warning: %s\n", err.Error())
			position = 0
		}
		velocity, err := ch.group.Velocity()
		if err != nil {
			log.Printf("warning: %s\n", err.Error())
			velocity = 0
		}

		applied, _ := d.appliedVoltage.Replace(ch.group.CurrentPower()*supply, measure.Volts)
		distance, _ := d.distance.Replace(position, measure.Meters)
		speed, _ := d.velocity.Replace(velocity, measure.MetersPerSecond)
		l.Motor(ch.name).
			Voltage(applied).
			LinearPosition(distance).
			LinearVelocity(speed)
	}
	return nil
}

// ChannelState is a read-only snapshot of one motor group.
type ChannelState struct {
	Name     string
	Power    float64
	Position float64
	Velocity float64
	Err      error
}

// State reads back every channel in front-left, front-right, back-left, back-right order.
func (d *Drive) State() []ChannelState {
	states := make([]ChannelState, 0, len(d.channels))
	for _, ch := range d.channels {
		state := ChannelState{
			Name:  ch.name,
			Power: ch.group.CurrentPower(),
		}
		var posErr, velErr error
		state.Position, posErr = ch.group.Position()
		state.Velocity, velErr = ch.group.Velocity()
		state.Err = multierr.Append(posErr, velErr)
		states = append(states, state)
	}
	return states
}

// AuxiliaryDistance is the distance in meters covered by the optional right side tracking
// wheel. It takes no part in driving or characterization.
func (d *Drive) AuxiliaryDistance() (float64, error) {
	if d.aux == nil {
		return 0, fmt.Errorf("no auxiliary encoder fitted: %w", models.ErrSensorUnavailable)
	}
	rotations, err := d.aux.RawPosition()
	if err != nil {
		return 0, err
	}
	return rotations * d.auxFactor, nil
}
