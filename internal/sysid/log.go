package sysid

import (
	"time"

	"github.com/Speshl/gorrc_drive/internal/measure"
	"github.com/Speshl/gorrc_drive/internal/models"
	"go.uber.org/multierr"
)

// Log collects the frames of one control cycle. Every frame shares the cycle's timestamp.
type Log struct {
	session   string
	test      string
	timestamp time.Time
	frames    []models.Frame
	err       error
}

func newLog(session, test string, channels int) *Log {
	return &Log{
		session: session,
		test:    test,
		frames:  make([]models.Frame, 0, channels),
	}
}

func (l *Log) reset(timestamp time.Time) {
	l.timestamp = timestamp
	l.frames = l.frames[:0]
	l.err = nil
}

func (l *Log) Timestamp() time.Time {
	return l.timestamp
}

// Motor starts the frame for one named channel.
func (l *Log) Motor(name string) MotorLog {
	l.frames = append(l.frames, models.Frame{
		Session:   l.session,
		Test:      l.test,
		Motor:     name,
		TimeStamp: l.timestamp,
	})
	return MotorLog{log: l, index: len(l.frames) - 1}
}

func (l *Log) Frames() []models.Frame {
	return l.frames
}

// Err reports unit mismatches hit while recording this cycle.
func (l *Log) Err() error {
	return l.err
}

type MotorLog struct {
	log   *Log
	index int
}

func (m MotorLog) Voltage(v measure.Measure) MotorLog {
	m.log.frames[m.index].Voltage = m.read(v, measure.Volts)
	return m
}

func (m MotorLog) LinearPosition(p measure.Measure) MotorLog {
	m.log.frames[m.index].Position = m.read(p, measure.Meters)
	return m
}

func (m MotorLog) LinearVelocity(v measure.Measure) MotorLog {
	m.log.frames[m.index].Velocity = m.read(v, measure.MetersPerSecond)
	return m
}

func (m MotorLog) read(value measure.Measure, u measure.Unit) float64 {
	f, err := value.In(u)
	if err != nil {
		m.log.err = multierr.Append(m.log.err, err)
		return 0
	}
	return f
}
