package quadrature

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/Speshl/gorrc_drive/internal/motor"
	"github.com/stianeikeland/go-rpio/v4"
)

const (
	DefaultPollInterval   = 250 * time.Microsecond
	DefaultVelocityWindow = 20 * time.Millisecond
)

// transitions maps (previous AB state << 2 | current AB state) to a count delta. Invalid
// double steps count as zero.
var transitions = [16]int64{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

type decoder struct {
	state  uint8
	counts int64
	errors int64
}

func (d *decoder) update(a, b bool) {
	var next uint8
	if a {
		next |= 2
	}
	if b {
		next |= 1
	}
	if next == d.state {
		return
	}
	delta := transitions[d.state<<2|next]
	if delta == 0 {
		d.errors++
	}
	d.counts += delta
	d.state = next
}

// Encoder decodes a quadrature encoder wired to two GPIO pins by polling them. Position is
// reported in rotations and velocity in rotations per second.
type Encoder struct {
	name         string
	pinA, pinB   rpio.Pin
	countsPerRev float64
	reversed     bool

	pollInterval   time.Duration
	velocityWindow time.Duration

	dec     decoder
	counts  atomic.Int64
	rate    atomic.Uint64 // float64 bits, counts per second
	running atomic.Bool

	lock sync.Mutex
}

var _ motor.Encoder = (*Encoder)(nil)

type Config struct {
	Name           string
	PinA, PinB     int
	CountsPerRev   int
	Reversed       bool
	PollInterval   time.Duration
	VelocityWindow time.Duration
}

func New(cfg Config) (*Encoder, error) {
	if cfg.CountsPerRev <= 0 {
		return nil, fmt.Errorf("encoder %s counts per revolution must be positive: %w", cfg.Name, models.ErrConfiguration)
	}
	if cfg.PinA == cfg.PinB {
		return nil, fmt.Errorf("encoder %s uses pin %d twice: %w", cfg.Name, cfg.PinA, models.ErrConfiguration)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.VelocityWindow <= 0 {
		cfg.VelocityWindow = DefaultVelocityWindow
	}
	return &Encoder{
		name:           cfg.Name,
		pinA:           rpio.Pin(cfg.PinA),
		pinB:           rpio.Pin(cfg.PinB),
		countsPerRev:   float64(cfg.CountsPerRev) * 4, // x4 decoding
		reversed:       cfg.Reversed,
		pollInterval:   cfg.PollInterval,
		velocityWindow: cfg.VelocityWindow,
	}, nil
}

func (e *Encoder) Name() string {
	return e.name
}

// Start polls the pins until ctx is done. rpio must already be open.
func (e *Encoder) Start(ctx context.Context) error {
	e.lock.Lock()
	e.pinA.Input()
	e.pinA.PullUp()
	e.pinB.Input()
	e.pinB.PullUp()
	e.dec.state = readState(e.pinA, e.pinB)
	e.lock.Unlock()

	log.Printf("starting encoder %s\n", e.name)
	e.running.Store(true)
	defer e.running.Store(false)

	poll := time.NewTicker(e.pollInterval)
	defer poll.Stop()

	windowStart := time.Now()
	windowCounts := int64(0)
	for {
		select {
		case <-ctx.Done():
			log.Printf("stopping encoder %s: %s\n", e.name, ctx.Err().Error())
			return nil
		case now := <-poll.C:
			e.sample(e.pinA.Read() == rpio.High, e.pinB.Read() == rpio.High)

			if elapsed := now.Sub(windowStart); elapsed >= e.velocityWindow {
				counts := e.counts.Load()
				e.storeRate(float64(counts-windowCounts) / elapsed.Seconds())
				windowCounts = counts
				windowStart = now
			}
		}
	}
}

func readState(a, b rpio.Pin) uint8 {
	var state uint8
	if a.Read() == rpio.High {
		state |= 2
	}
	if b.Read() == rpio.High {
		state |= 1
	}
	return state
}

func (e *Encoder) sample(a, b bool) {
	e.lock.Lock()
	e.dec.update(a, b)
	counts := e.dec.counts
	e.lock.Unlock()
	e.counts.Store(counts)
}

func (e *Encoder) storeRate(countsPerSecond float64) {
	e.rate.Store(math.Float64bits(countsPerSecond))
}

func (e *Encoder) sign() float64 {
	if e.reversed {
		return -1
	}
	return 1
}

func (e *Encoder) RawPosition() (float64, error) {
	if !e.running.Load() {
		return 0, fmt.Errorf("encoder %s not running: %w", e.name, models.ErrSensorUnavailable)
	}
	return e.sign() * float64(e.counts.Load()) / e.countsPerRev, nil
}

func (e *Encoder) RawVelocity() (float64, error) {
	if !e.running.Load() {
		return 0, fmt.Errorf("encoder %s not running: %w", e.name, models.ErrSensorUnavailable)
	}
	return e.sign() * math.Float64frombits(e.rate.Load()) / e.countsPerRev, nil
}

// Errors is the number of invalid transitions seen, a sign the poll interval is too slow.
func (e *Encoder) Errors() int64 {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.dec.errors
}
