package actuator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapToRange(t *testing.T) {
	assert.InDelta(t, 1500, MapToRange(0, -1, 1, 1000, 2000), 1e-9)
	assert.InDelta(t, 2000, MapToRange(1, -1, 1, 1000, 2000), 1e-9)
	assert.InDelta(t, 1000, MapToRange(-5, -1, 1, 1000, 2000), 1e-9)
	assert.InDelta(t, 1250, MapToRange(-0.5, -1, 1, 1000, 2000), 1e-9)
}

func TestPowerToFraction(t *testing.T) {
	assert.Equal(t, 0.5, PowerToFraction(0))
	assert.Equal(t, 1.0, PowerToFraction(1))
	assert.Equal(t, 0.0, PowerToFraction(-1))
	assert.Equal(t, 0.75, PowerToFraction(0.5))
}
