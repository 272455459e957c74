package power

import (
	"fmt"
	"math"

	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/prometheus/procfs/sysfs"
)

const microVoltsPerVolt = 1e6

// Sensor reports the supply voltage feeding the motor controllers. It is read fresh every
// control cycle.
type Sensor interface {
	SupplyVoltage() (float64, error)
}

// Fixed reports a constant supply, for bench supplies with no voltage telemetry.
type Fixed float64

func (f Fixed) SupplyVoltage() (float64, error) {
	return checked(float64(f), "fixed")
}

// Sysfs reads voltage_now of a kernel power_supply device (e.g. a battery fuel gauge or UPS hat).
type Sysfs struct {
	fs   sysfs.FS
	name string
}

func NewSysfs(mountPoint, name string) (*Sysfs, error) {
	fs, err := sysfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed opening sysfs at %s: %w", mountPoint, err)
	}
	return &Sysfs{
		fs:   fs,
		name: name,
	}, nil
}

func (s *Sysfs) SupplyVoltage() (float64, error) {
	supplies, err := s.fs.PowerSupplyClass()
	if err != nil {
		return 0, fmt.Errorf("failed reading power supplies: %s: %w", err.Error(), models.ErrSensorUnavailable)
	}

	supply, ok := supplies[s.name]
	if !ok {
		return 0, fmt.Errorf("power supply %s not found: %w", s.name, models.ErrSensorUnavailable)
	}
	if supply.VoltageNow == nil {
		return 0, fmt.Errorf("power supply %s has no voltage_now: %w", s.name, models.ErrSensorUnavailable)
	}
	return checked(float64(*supply.VoltageNow)/microVoltsPerVolt, s.name)
}

func checked(volts float64, source string) (float64, error) {
	if math.IsNaN(volts) || math.IsInf(volts, 0) || volts <= 0 {
		return 0, fmt.Errorf("%s supply reported %.3f V: %w", source, volts, models.ErrSensorUnavailable)
	}
	return volts, nil
}
