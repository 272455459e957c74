// Package telemetry delivers characterization frames and state entries to their consumers.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/Speshl/gorrc_drive/internal/sysid"
	"go.uber.org/multierr"
)

const (
	FrameEvent  = "sysid_frame"
	StateEvent  = "sysid_state"
	HealthEvent = "car_healthy"
)

// Emitter is the send half of a socket.io client.
type Emitter interface {
	Emit(event string, args ...interface{})
}

var (
	_ sysid.Sink = (*LogSink)(nil)
	_ sysid.Sink = (*MemorySink)(nil)
	_ sysid.Sink = (*SocketSink)(nil)
	_ sysid.Sink = MultiSink(nil)
)

// Encode is the JSON text form every socket message is sent in.
func Encode(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("error encoding %T - %w", v, err)
	}
	return string(data), nil
}

func Decode(msg string, v interface{}) error {
	err := json.Unmarshal([]byte(msg), v)
	if err != nil {
		return fmt.Errorf("error decoding %T - %w", v, err)
	}
	return nil
}

// LogSink writes frames to the process log.
type LogSink struct{}

func (LogSink) WriteFrames(frames []models.Frame) error {
	for _, f := range frames {
		log.Printf("sysid %s %s: %.3fV %.4fm %.4fm/s\n", f.Test, f.Motor, f.Voltage, f.Position, f.Velocity)
	}
	return nil
}

func (LogSink) WriteState(entry models.StateEntry) error {
	log.Printf("%s: %s\n", entry.Name, entry.State)
	return nil
}

// MemorySink keeps copies of everything written to it.
type MemorySink struct {
	lock   sync.Mutex
	frames []models.Frame
	states []models.StateEntry
}

func (m *MemorySink) WriteFrames(frames []models.Frame) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.frames = append(m.frames, frames...)
	return nil
}

func (m *MemorySink) WriteState(entry models.StateEntry) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.states = append(m.states, entry)
	return nil
}

func (m *MemorySink) Frames() []models.Frame {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]models.Frame(nil), m.frames...)
}

func (m *MemorySink) States() []models.StateEntry {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]models.StateEntry(nil), m.states...)
}

// SocketSink emits each cycle as one socket.io message. A cycle's frames travel together so
// the receiver sees them with their shared timestamp.
type SocketSink struct {
	client Emitter
}

func NewSocketSink(client Emitter) *SocketSink {
	return &SocketSink{
		client: client,
	}
}

func (s *SocketSink) WriteFrames(frames []models.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	encodedMsg, err := Encode(frames)
	if err != nil {
		return err
	}
	s.client.Emit(FrameEvent, encodedMsg)
	return nil
}

func (s *SocketSink) WriteState(entry models.StateEntry) error {
	encodedMsg, err := Encode(entry)
	if err != nil {
		return err
	}
	s.client.Emit(StateEvent, encodedMsg)
	return nil
}

// MultiSink writes to every sink, continuing past failures.
type MultiSink []sysid.Sink

func (m MultiSink) WriteFrames(frames []models.Frame) error {
	var err error
	for _, sink := range m {
		err = multierr.Append(err, sink.WriteFrames(frames))
	}
	return err
}

func (m MultiSink) WriteState(entry models.StateEntry) error {
	var err error
	for _, sink := range m {
		err = multierr.Append(err, sink.WriteState(entry))
	}
	return err
}
