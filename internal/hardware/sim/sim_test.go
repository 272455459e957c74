package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	return c.now
}

func TestMotorSettlesToFreeSpeed(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	m := NewMotor("fl", clock.Now)

	require.NoError(t, m.Set(0.5))
	clock.now = clock.now.Add(2 * time.Second)

	vel, err := m.RawVelocity()
	require.NoError(t, err)
	assert.InDelta(t, 0.5*DefaultFreeSpeed, vel, 1e-6)

	pos, err := m.RawPosition()
	require.NoError(t, err)
	// 2s at 5 rot/s less the lag of one time constant
	assert.InDelta(t, 10-0.5*DefaultFreeSpeed*DefaultTimeConstant.Seconds(), pos, 1e-6)
}

func TestMotorReversesAndClamps(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	m := NewMotor("fr", clock.Now)

	require.NoError(t, m.Set(-3))
	assert.Equal(t, -1.0, m.Power())

	clock.now = clock.now.Add(time.Second)
	vel, _ := m.RawVelocity()
	assert.Less(t, vel, 0.0)
	pos, _ := m.RawPosition()
	assert.Less(t, pos, 0.0)
}

func TestBatterySags(t *testing.T) {
	a := NewMotor("a", nil)
	b := NewMotor("b", nil)
	battery := NewBattery(12, a, b)

	v, err := battery.SupplyVoltage()
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)

	_ = a.Set(1)
	_ = b.Set(-1)
	v, _ = battery.SupplyVoltage()
	assert.InDelta(t, 12-DefaultSag, v, 1e-12)

	assert.Equal(t, DefaultBatteryVolts, NewBattery(0).nominal)
}
