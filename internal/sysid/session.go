package sysid

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Speshl/gorrc_drive/internal/measure"
	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/Speshl/gorrc_drive/internal/scheduler"
	"github.com/google/uuid"
)

type State int

const (
	Idle State = iota
	Ramping
	Stepped
	Complete
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ramping:
		return "ramping"
	case Stepped:
		return "stepped"
	case Complete:
		return "complete"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) Terminal() bool {
	return s == Complete || s == Cancelled
}

const noTest = "none"

// Session is one characterization test run. It implements scheduler.Command and requires
// the mechanism's subsystem while active.
type Session struct {
	id        uuid.UUID
	routine   *Routine
	phase     Phase
	direction Direction
	state     State

	start   time.Time
	elapsed time.Duration

	voltage *measure.Mutable
	log     *Log
}

var _ scheduler.Command = (*Session)(nil)

func newSession(r *Routine, phase Phase, direction Direction) *Session {
	id := uuid.New()
	test := fmt.Sprintf("%s-%s", phase, direction)
	return &Session{
		id:        id,
		routine:   r,
		phase:     phase,
		direction: direction,
		state:     Idle,
		voltage:   measure.NewMutable(0, measure.Volts),
		log:       newLog(id.String(), test, 4),
	}
}

func (s *Session) ID() uuid.UUID          { return s.id }
func (s *Session) Phase() Phase           { return s.phase }
func (s *Session) Direction() Direction   { return s.direction }
func (s *Session) State() State           { return s.state }
func (s *Session) Elapsed() time.Duration { return s.elapsed }

func (s *Session) Test() string {
	return fmt.Sprintf("%s-%s", s.phase, s.direction)
}

func (s *Session) Name() string {
	if s.routine.mechanism.Subsystem == nil {
		return "sysid-" + s.Test()
	}
	return fmt.Sprintf("sysid-%s-%s", s.routine.mechanism.Subsystem.Name(), s.Test())
}

func (s *Session) Requirements() []scheduler.Subsystem {
	if s.routine.mechanism.Subsystem == nil {
		return nil
	}
	return []scheduler.Subsystem{s.routine.mechanism.Subsystem}
}

func (s *Session) Initialize() {
	if s.state != Idle {
		return
	}
	s.start = s.routine.Clock()
	s.elapsed = 0
	if s.phase == Dynamic {
		s.state = Stepped
	} else {
		s.state = Ramping
	}
	log.Printf("starting sysid %s session %s\n", s.Test(), s.id)
}

// CommandedVoltage is the voltage the session drives after elapsed time in its phase.
func (s *Session) CommandedVoltage(elapsed time.Duration) float64 {
	cfg := s.routine.cfg
	if s.phase == Dynamic {
		return cfg.StepVoltage * s.direction.sign()
	}
	return cfg.RampRate * elapsed.Seconds() * s.direction.sign()
}

// Execute runs one cycle: command the voltage, then read back and log every channel.
func (s *Session) Execute() {
	if s.state == Idle {
		s.Initialize()
	}
	if s.state.Terminal() {
		return
	}

	now := s.routine.Clock()
	s.elapsed = now.Sub(s.start)
	if timeout := s.routine.cfg.Timeout; timeout > 0 && s.elapsed >= timeout {
		log.Printf("sysid %s reached timeout after %s\n", s.Test(), s.elapsed)
		s.finish(Complete)
		return
	}

	volts, _ := s.voltage.Replace(s.CommandedVoltage(s.elapsed), measure.Volts)
	if err := s.routine.mechanism.Drive(volts); err != nil {
		if s.abortOn(err) {
			return
		}
		log.Printf("warning: sysid %s drive failed: %s\n", s.Test(), err)
	}

	s.log.reset(now)
	if err := s.routine.mechanism.Log(s.log); err != nil {
		if s.abortOn(err) {
			return
		}
		log.Printf("warning: sysid %s logging failed: %s\n", s.Test(), err)
	}
	if err := s.log.Err(); err != nil {
		log.Printf("warning: sysid %s frame units: %s\n", s.Test(), err)
	}

	s.write(now, s.Test())
}

func (s *Session) abortOn(err error) bool {
	if !errors.Is(err, models.ErrSensorUnavailable) {
		return false
	}
	log.Printf("error: aborting sysid %s: %s\n", s.Test(), err)
	s.finish(Cancelled)
	return true
}

func (s *Session) write(now time.Time, state string) {
	sink := s.routine.sink
	if sink == nil {
		return
	}
	if state != noTest {
		if err := sink.WriteFrames(s.log.Frames()); err != nil {
			log.Printf("warning: failed writing sysid frames: %s\n", err)
		}
	}
	err := sink.WriteState(models.StateEntry{
		Session:   s.id.String(),
		Name:      s.routine.stateName(),
		State:     state,
		TimeStamp: now,
	})
	if err != nil {
		log.Printf("warning: failed writing sysid state: %s\n", err)
	}
}

func (s *Session) IsFinished() bool {
	return s.state.Terminal()
}

func (s *Session) End(interrupted bool) {
	if s.state.Terminal() {
		return
	}
	if interrupted {
		s.finish(Cancelled)
	} else {
		s.finish(Complete)
	}
}

// Cancel stops an active session. Cancelling a finished session does nothing.
func (s *Session) Cancel() {
	if s.state.Terminal() {
		return
	}
	s.finish(Cancelled)
}

func (s *Session) finish(state State) {
	s.state = state
	s.stop()
	s.write(s.routine.Clock(), noTest)
	log.Printf("sysid %s session %s %s\n", s.Test(), s.id, state)
}

func (s *Session) stop() {
	mech := s.routine.mechanism
	var err error
	if mech.Stop != nil {
		err = mech.Stop()
	} else {
		err = mech.Drive(measure.Of(0, measure.Volts))
	}
	if err != nil {
		log.Printf("error: failed stopping sysid %s: %s\n", s.Test(), err)
	}
}
