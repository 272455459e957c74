package sysid

import (
	"fmt"
	"testing"
	"time"

	"github.com/Speshl/gorrc_drive/internal/measure"
	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1700000000, 0)} }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type memorySink struct {
	cycles [][]models.Frame
	states []models.StateEntry
}

func (m *memorySink) WriteFrames(frames []models.Frame) error {
	m.cycles = append(m.cycles, append([]models.Frame(nil), frames...))
	return nil
}

func (m *memorySink) WriteState(entry models.StateEntry) error {
	m.states = append(m.states, entry)
	return nil
}

type testSubsystem struct{}

func (testSubsystem) Name() string { return "drive" }

// fakeMechanism stands in for a drivetrain: every channel reports the commanded voltage.
type fakeMechanism struct {
	volts     float64
	supply    float64
	stops     int
	driveLog  []float64
	lastEvent string
}

func (f *fakeMechanism) mechanism() Mechanism {
	return Mechanism{
		Drive: func(v measure.Measure) error {
			volts, err := v.In(measure.Volts)
			if err != nil {
				return err
			}
			if f.supply <= 0 {
				return fmt.Errorf("supply %.1f: %w", f.supply, models.ErrSensorUnavailable)
			}
			f.volts = volts
			f.driveLog = append(f.driveLog, volts)
			f.lastEvent = "drive"
			return nil
		},
		Log: func(l *Log) error {
			for _, name := range []string{"drive-fl", "drive-fr", "drive-bl", "drive-br"} {
				l.Motor(name).
					Voltage(measure.Of(f.volts, measure.Volts)).
					LinearPosition(measure.Of(f.volts/10, measure.Meters)).
					LinearVelocity(measure.Of(f.volts/100, measure.MetersPerSecond))
			}
			return nil
		},
		Stop: func() error {
			f.volts = 0
			f.stops++
			f.lastEvent = "stop"
			return nil
		},
		Subsystem: testSubsystem{},
	}
}

func newTestRoutine(mech *fakeMechanism, sink Sink) (*Routine, *fakeClock) {
	clock := newFakeClock()
	r := NewRoutine(DefaultConfig(), mech.mechanism(), sink)
	r.Clock = clock.Now
	return r, clock
}

func TestQuasistaticRamp(t *testing.T) {
	mech := &fakeMechanism{supply: 12}
	sink := &memorySink{}
	r, clock := newTestRoutine(mech, sink)

	for _, dir := range []Direction{Forward, Reverse} {
		mech.driveLog = nil
		s := r.Quasistatic(dir)
		assert.Equal(t, Idle, s.State())
		s.Initialize()
		assert.Equal(t, Ramping, s.State())

		for i := 0; i < 5; i++ {
			clock.Advance(500 * time.Millisecond)
			s.Execute()
		}
		want := []float64{0.5, 1, 1.5, 2, 2.5}
		for i := range want {
			assert.InDelta(t, want[i]*dir.sign(), mech.driveLog[i], 1e-9)
		}
		s.Cancel()
		assert.Equal(t, Cancelled, s.State())
	}
}

func TestDynamicStep(t *testing.T) {
	mech := &fakeMechanism{supply: 12}
	r, clock := newTestRoutine(mech, &memorySink{})

	s := r.Dynamic(Reverse)
	s.Initialize()
	assert.Equal(t, Stepped, s.State())
	s.Execute()
	clock.Advance(2 * time.Second)
	s.Execute()

	assert.Equal(t, []float64{-7, -7}, mech.driveLog)
	assert.Equal(t, "sysid-drive-dynamic-reverse", s.Name())
}

func TestFourFramesPerCycleShareTimestamp(t *testing.T) {
	mech := &fakeMechanism{supply: 12}
	sink := &memorySink{}
	r, clock := newTestRoutine(mech, sink)

	s := r.Quasistatic(Reverse)
	s.Initialize()
	for i := 0; i < 3; i++ {
		clock.Advance(20 * time.Millisecond)
		s.Execute()
	}

	require.Len(t, sink.cycles, 3)
	for _, frames := range sink.cycles {
		require.Len(t, frames, 4)
		names := map[string]bool{}
		for _, f := range frames {
			names[f.Motor] = true
			assert.Equal(t, frames[0].TimeStamp, f.TimeStamp)
			assert.Equal(t, s.ID().String(), f.Session)
			assert.Equal(t, "quasistatic-reverse", f.Test)
			assert.Less(t, f.Voltage, 0.0)
		}
		assert.Len(t, names, 4)
	}
	assert.NotEqual(t, sink.cycles[0][0].TimeStamp, sink.cycles[1][0].TimeStamp)
	assert.Equal(t, "sysid-test-state-drive", sink.states[0].Name)
	assert.Equal(t, "quasistatic-reverse", sink.states[0].State)
}

func TestSupplyUnavailableAborts(t *testing.T) {
	mech := &fakeMechanism{supply: 0}
	sink := &memorySink{}
	r, clock := newTestRoutine(mech, sink)

	s := r.Dynamic(Forward)
	s.Initialize()
	clock.Advance(20 * time.Millisecond)
	s.Execute()

	assert.Equal(t, Cancelled, s.State())
	assert.True(t, s.IsFinished())
	assert.Equal(t, 1, mech.stops)
	assert.Empty(t, sink.cycles)
	assert.Equal(t, noTest, sink.states[len(sink.states)-1].State)
}

func TestTimeoutCompletes(t *testing.T) {
	mech := &fakeMechanism{supply: 12}
	r, clock := newTestRoutine(mech, nil)

	s := r.Quasistatic(Forward)
	s.Initialize()
	clock.Advance(DefaultTimeout)
	s.Execute()

	assert.Equal(t, Complete, s.State())
	assert.Equal(t, "stop", mech.lastEvent)
}

func TestCancelLeavesActuatorsStopped(t *testing.T) {
	mech := &fakeMechanism{supply: 12}
	r, clock := newTestRoutine(mech, nil)

	s := r.Dynamic(Forward)
	s.Initialize()
	clock.Advance(20 * time.Millisecond)
	s.Execute()
	assert.Equal(t, 7.0, mech.volts)

	s.End(true)
	assert.Equal(t, Cancelled, s.State())
	assert.Equal(t, "stop", mech.lastEvent)
	assert.Equal(t, 0.0, mech.volts)

	// already terminal: no-op
	s.Cancel()
	s.End(false)
	assert.Equal(t, Cancelled, s.State())
	assert.Equal(t, 1, mech.stops)
}

func TestCancelFromIdle(t *testing.T) {
	mech := &fakeMechanism{supply: 12}
	r, _ := newTestRoutine(mech, nil)

	s := r.Quasistatic(Forward)
	s.Cancel()
	assert.Equal(t, Cancelled, s.State())
	s.Execute()
	assert.Empty(t, mech.driveLog)
}

func TestEndWithoutInterruptCompletes(t *testing.T) {
	mech := &fakeMechanism{supply: 12}
	r, _ := newTestRoutine(mech, nil)

	s := r.Quasistatic(Forward)
	s.Initialize()
	s.End(false)
	assert.Equal(t, Complete, s.State())
}

func TestConfigDefaults(t *testing.T) {
	r := NewRoutine(Config{}, Mechanism{}, nil)
	cfg := r.Config()
	assert.Equal(t, DefaultRampRate, cfg.RampRate)
	assert.Equal(t, DefaultStepVoltage, cfg.StepVoltage)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
}

func TestMotorLogUnitMismatch(t *testing.T) {
	l := newLog("s", "t", 1)
	l.reset(time.Unix(0, 0))
	l.Motor("drive-fl").Voltage(measure.Of(3, measure.Meters))
	assert.ErrorIs(t, l.Err(), measure.ErrUnitMismatch)
	assert.Equal(t, 0.0, l.Frames()[0].Voltage)
}
