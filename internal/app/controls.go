package app

import (
	"log"
	"sync"
	"time"

	"github.com/Speshl/gorrc_drive/internal/models"
)

// Controls holds the latest remote drive request. Requests older than the timeout read as
// zero so a dropped connection stops the robot.
type Controls struct {
	lock    sync.Mutex
	timeout time.Duration
	clock   func() time.Time

	active          bool
	nextCommand     models.DriveRequest
	lastCommandTime time.Time
}

func NewControls(timeout time.Duration) *Controls {
	return &Controls{
		timeout: timeout,
		clock:   time.Now,
	}
}

// Update keeps req unless a newer request already arrived.
func (c *Controls) Update(req models.DriveRequest) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.active && req.TimeStamp != 0 && req.TimeStamp < c.nextCommand.TimeStamp {
		return
	}
	if !c.active {
		log.Println("drive commands active")
	}
	c.nextCommand = req
	c.lastCommandTime = c.clock()
	c.active = true
}

func (c *Controls) Forward() float64 {
	return c.current().Forward
}

func (c *Controls) Rotation() float64 {
	return c.current().Rotation
}

func (c *Controls) Active() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.expire()
	return c.active
}

func (c *Controls) current() models.DriveRequest {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.expire()
	if !c.active {
		return models.DriveRequest{}
	}
	return c.nextCommand
}

func (c *Controls) expire() {
	if c.active && c.clock().Sub(c.lastCommandTime) > c.timeout {
		log.Println("drive commands inactive due to time since last command")
		c.active = false
	}
}
