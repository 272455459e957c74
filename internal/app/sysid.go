package app

import (
	"context"
	"log"
	"time"

	"github.com/Speshl/gorrc_drive/internal/scheduler"
	"github.com/Speshl/gorrc_drive/internal/sysid"
)

type sysIdTest struct {
	session *sysid.Session
	runTime time.Duration
}

// runSysIdSequence runs the four standard tests back to back with a pause in between so the
// robot comes to rest before the next one.
func (a *App) runSysIdSequence(ctx context.Context) error {
	cfg := a.Cfg.SysIdCfg
	tests := []sysIdTest{
		{session: a.drive.SysIdQuasistatic(sysid.Forward), runTime: cfg.QuasistaticRunTime},
		{session: a.drive.SysIdQuasistatic(sysid.Reverse), runTime: cfg.QuasistaticRunTime},
		{session: a.drive.SysIdDynamic(sysid.Forward), runTime: cfg.DynamicRunTime},
		{session: a.drive.SysIdDynamic(sysid.Reverse), runTime: cfg.DynamicRunTime},
	}

	for i, test := range tests {
		if i > 0 {
			if err := wait(ctx, cfg.Pause); err != nil {
				return err
			}
		}
		if err := a.runSysIdTest(ctx, test); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) runSysIdTest(ctx context.Context, test sysIdTest) error {
	log.Printf("running %s for %s\n", test.session.Name(), test.runTime)
	a.scheduler.Schedule(test.session)
	defer func() {
		a.scheduler.Cancel(test.session)
		log.Printf("%s ended %s after %s\n", test.session.Name(), test.session.State(), test.session.Elapsed())
	}()

	timer := time.NewTimer(test.runTime)
	defer timer.Stop()
	period := a.Cfg.ServerCfg.ControlPeriod
	if period <= 0 {
		period = scheduler.DefaultPeriod
	}
	poll := time.NewTicker(period)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-poll.C:
			// finished early on timeout or a lost sensor
			if !a.scheduler.IsScheduled(test.session) {
				return nil
			}
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
