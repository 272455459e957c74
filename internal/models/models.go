package models

import (
	"errors"
	"time"
)

var (
	// ErrConfiguration is returned at start-up when hardware or motor groups are wired inconsistently.
	ErrConfiguration = errors.New("configuration error")

	// ErrSensorUnavailable is returned when a supply voltage or encoder reading cannot be trusted.
	ErrSensorUnavailable = errors.New("sensor unavailable")

	// ErrOutOfRangeCommand is returned when a command was not finite and had to be replaced.
	ErrOutOfRangeCommand = errors.New("command out of range")
)

// Frame is one characterization sample for a single motor channel.
type Frame struct {
	Session   string    `json:"session"`
	Test      string    `json:"test"`
	Motor     string    `json:"motor"`
	TimeStamp time.Time `json:"time_stamp"`
	Voltage   float64   `json:"voltage"`  // volts
	Position  float64   `json:"position"` // meters
	Velocity  float64   `json:"velocity"` // meters per second
}

// StateEntry records the characterization test state of a subsystem for one cycle.
type StateEntry struct {
	Session   string    `json:"session"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	TimeStamp time.Time `json:"time_stamp"`
}

// DriveRequest is the remote arcade drive intent.
type DriveRequest struct {
	Forward   float64 `json:"forward"`
	Rotation  float64 `json:"rotation"`
	TimeStamp int64   `json:"time_stamp"`
}

type ConnectReq struct {
	Key      string `json:"key"`
	Password string `json:"password"`
}

type Health struct {
	SupplyVoltage float64 `json:"supply_voltage"`
	AuxDistance   float64 `json:"aux_distance"`
	Mode          string  `json:"mode"`
}
