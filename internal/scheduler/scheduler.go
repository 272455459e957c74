package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

const DefaultPeriod = 20 * time.Millisecond

// Scheduler runs commands cooperatively on a single control loop. A subsystem is required by
// at most one scheduled command; scheduling a conflicting command cancels the current one.
// Command callbacks run with the scheduler lock held and must not call back into it.
type Scheduler struct {
	lock      sync.Mutex
	scheduled []Command
	owners    map[Subsystem]Command
	defaults  map[Subsystem]Command
}

func New() *Scheduler {
	return &Scheduler{
		owners:   make(map[Subsystem]Command),
		defaults: make(map[Subsystem]Command),
	}
}

// SetDefaultCommand registers the command that runs whenever nothing else requires sub.
func (s *Scheduler) SetDefaultCommand(sub Subsystem, cmd Command) error {
	if !requires(cmd, sub) {
		return fmt.Errorf("default command %s must require %s", cmd.Name(), sub.Name())
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.defaults[sub] = cmd
	return nil
}

func (s *Scheduler) Schedule(cmd Command) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.schedule(cmd)
}

func (s *Scheduler) schedule(cmd Command) {
	if s.isScheduled(cmd) {
		return
	}

	for _, sub := range cmd.Requirements() {
		if owner, ok := s.owners[sub]; ok {
			log.Printf("%s interrupted by %s\n", owner.Name(), cmd.Name())
			s.cancel(owner)
		}
	}

	for _, sub := range cmd.Requirements() {
		s.owners[sub] = cmd
	}
	s.scheduled = append(s.scheduled, cmd)
	log.Printf("scheduled %s\n", cmd.Name())
	s.guard(cmd, "initialize", cmd.Initialize)
}

func (s *Scheduler) Cancel(cmd Command) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.cancel(cmd)
}

func (s *Scheduler) cancel(cmd Command) {
	if !s.isScheduled(cmd) {
		return
	}
	s.remove(cmd)
	s.guard(cmd, "end", func() { cmd.End(true) })
	log.Printf("cancelled %s\n", cmd.Name())
}

func (s *Scheduler) CancelAll() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for len(s.scheduled) > 0 {
		s.cancel(s.scheduled[0])
	}
}

func (s *Scheduler) IsScheduled(cmd Command) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.isScheduled(cmd)
}

func (s *Scheduler) isScheduled(cmd Command) bool {
	for _, c := range s.scheduled {
		if c == cmd {
			return true
		}
	}
	return false
}

func (s *Scheduler) remove(cmd Command) {
	for i, c := range s.scheduled {
		if c == cmd {
			s.scheduled = append(s.scheduled[:i], s.scheduled[i+1:]...)
			break
		}
	}
	for _, sub := range cmd.Requirements() {
		if s.owners[sub] == cmd {
			delete(s.owners, sub)
		}
	}
}

// RunOnce executes one control cycle.
func (s *Scheduler) RunOnce() {
	s.lock.Lock()
	defer s.lock.Unlock()

	running := append([]Command(nil), s.scheduled...)
	for _, cmd := range running {
		if !s.isScheduled(cmd) {
			continue
		}
		if !s.guard(cmd, "execute", cmd.Execute) {
			s.cancel(cmd)
			continue
		}
		if cmd.IsFinished() {
			s.remove(cmd)
			s.guard(cmd, "end", func() { cmd.End(false) })
			log.Printf("finished %s\n", cmd.Name())
		}
	}

	for sub, cmd := range s.defaults {
		if _, owned := s.owners[sub]; !owned {
			s.schedule(cmd)
		}
	}
}

// Run calls RunOnce every period until ctx is done, then cancels everything still running.
func (s *Scheduler) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		period = DefaultPeriod
	}
	log.Printf("starting scheduler with %s period\n", period)
	defer s.CancelAll()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("stopping scheduler: %s\n", ctx.Err().Error())
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// guard keeps a panicking command from halting the control loop.
func (s *Scheduler) guard(cmd Command, stage string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("error: %s panicked during %s: %v\n", cmd.Name(), stage, r)
			ok = false
		}
	}()
	fn()
	return true
}

func requires(cmd Command, sub Subsystem) bool {
	for _, r := range cmd.Requirements() {
		if r == sub {
			return true
		}
	}
	return false
}
