package quadrature

import (
	"errors"
	"testing"

	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Gray code sequence for one forward electrical cycle, starting from 00.
var forwardCycle = [][2]bool{
	{true, false},
	{true, true},
	{false, true},
	{false, false},
}

func TestDecoderCountsBothDirections(t *testing.T) {
	d := decoder{}
	for i := 0; i < 3; i++ {
		for _, step := range forwardCycle {
			d.update(step[0], step[1])
		}
	}
	assert.Equal(t, int64(12), d.counts)

	for i := len(forwardCycle) - 2; i >= 0; i-- {
		d.update(forwardCycle[i][0], forwardCycle[i][1])
	}
	d.update(false, false)
	assert.Equal(t, int64(8), d.counts)
	assert.Equal(t, int64(0), d.errors)
}

func TestDecoderIgnoresRepeatsAndFlagsSkips(t *testing.T) {
	d := decoder{}
	d.update(false, false)
	d.update(true, false)
	d.update(true, false)
	assert.Equal(t, int64(1), d.counts)

	// 10 -> 01 changes both lines at once.
	d.update(false, true)
	assert.Equal(t, int64(1), d.counts)
	assert.Equal(t, int64(1), d.errors)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{Name: "fl", PinA: 5, PinB: 6})
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	_, err = New(Config{Name: "fl", PinA: 5, PinB: 5, CountsPerRev: 42})
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	enc, err := New(Config{Name: "fl", PinA: 5, PinB: 6, CountsPerRev: 42})
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, enc.pollInterval)
	assert.Equal(t, DefaultVelocityWindow, enc.velocityWindow)
}

func TestReadingsScaleToRotations(t *testing.T) {
	enc, err := New(Config{Name: "fr", PinA: 5, PinB: 6, CountsPerRev: 10, Reversed: true})
	require.NoError(t, err)

	_, err = enc.RawPosition()
	assert.True(t, errors.Is(err, models.ErrSensorUnavailable))

	enc.running.Store(true)
	for _, step := range forwardCycle {
		enc.sample(step[0], step[1])
	}
	enc.storeRate(80)

	pos, err := enc.RawPosition()
	require.NoError(t, err)
	assert.InDelta(t, -0.1, pos, 1e-12)

	vel, err := enc.RawVelocity()
	require.NoError(t, err)
	assert.InDelta(t, -2.0, vel, 1e-12)
}
