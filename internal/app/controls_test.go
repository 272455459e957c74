package app

import (
	"testing"
	"time"

	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestControlsTimeout(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewControls(200 * time.Millisecond)
	c.clock = func() time.Time { return now }

	assert.False(t, c.Active())
	assert.Equal(t, 0.0, c.Forward())

	c.Update(models.DriveRequest{Forward: 0.4, Rotation: -0.2, TimeStamp: 10})
	assert.True(t, c.Active())
	assert.Equal(t, 0.4, c.Forward())
	assert.Equal(t, -0.2, c.Rotation())

	now = now.Add(150 * time.Millisecond)
	assert.Equal(t, 0.4, c.Forward())

	now = now.Add(100 * time.Millisecond)
	assert.Equal(t, 0.0, c.Forward())
	assert.Equal(t, 0.0, c.Rotation())
	assert.False(t, c.Active())
}

func TestControlsDropsStaleRequests(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewControls(time.Second)
	c.clock = func() time.Time { return now }

	c.Update(models.DriveRequest{Forward: 0.4, TimeStamp: 10})
	c.Update(models.DriveRequest{Forward: 0.9, TimeStamp: 5})
	assert.Equal(t, 0.4, c.Forward())

	c.Update(models.DriveRequest{Forward: -0.3, TimeStamp: 11})
	assert.Equal(t, -0.3, c.Forward())
}
