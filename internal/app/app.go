package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Speshl/gorrc_drive/internal/config"
	"github.com/Speshl/gorrc_drive/internal/drive"
	"github.com/Speshl/gorrc_drive/internal/hardware"
	"github.com/Speshl/gorrc_drive/internal/models"
	"github.com/Speshl/gorrc_drive/internal/scheduler"
	"github.com/Speshl/gorrc_drive/internal/sysid"
	"github.com/Speshl/gorrc_drive/internal/telemetry"
	socketio "github.com/googollee/go-socket.io"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	ModeDrive = "drive"
	ModeSysId = "sysid"
)

type App struct {
	ctx       context.Context
	ctxCancel context.CancelFunc

	client *socketio.Client
	Cfg    config.Config

	hw        *hardware.Hardware
	drive     *drive.Drive
	scheduler *scheduler.Scheduler
	controls  *Controls
}

func NewApp(cfg config.Config, client *socketio.Client) (*App, error) {
	if cfg.SysIdCfg.Mode != ModeDrive && cfg.SysIdCfg.Mode != ModeSysId {
		return nil, fmt.Errorf("unsupported mode %q: %w", cfg.SysIdCfg.Mode, models.ErrConfiguration)
	}

	hw, err := hardware.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("error opening hardware - %w", err)
	}

	sinks := telemetry.MultiSink{telemetry.LogSink{}}
	if cfg.ServerCfg.Telemetry && client != nil {
		sinks = append(sinks, telemetry.NewSocketSink(client))
	}

	app, err := newApp(cfg, client, hw, sinks)
	if err != nil {
		return nil, multierr.Append(err, hw.Close())
	}
	return app, nil
}

func newApp(cfg config.Config, client *socketio.Client, hw *hardware.Hardware, sink sysid.Sink) (*App, error) {
	driveSubsystem, err := drive.New(hw, cfg.DriveCfg, sysid.Config{
		RampRate:    cfg.SysIdCfg.RampRate,
		StepVoltage: cfg.SysIdCfg.StepVoltage,
		Timeout:     cfg.SysIdCfg.Timeout,
	}, sink)
	if err != nil {
		return nil, fmt.Errorf("error building drive - %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		ctx:       ctx,
		ctxCancel: cancel,
		client:    client,
		Cfg:       cfg,
		hw:        hw,
		drive:     driveSubsystem,
		scheduler: scheduler.New(),
		controls:  NewControls(cfg.ServerCfg.CommandTimeout),
	}

	err = a.scheduler.SetDefaultCommand(driveSubsystem, driveSubsystem.ArcadeDriveCommand(a.controls.Forward, a.controls.Rotation))
	if err != nil {
		cancel()
		return nil, err
	}
	return a, nil
}

// usesServer is false for a bench characterization run with telemetry off.
func (a *App) usesServer() bool {
	if a.client == nil {
		return false
	}
	return a.Cfg.SysIdCfg.Mode == ModeDrive || a.Cfg.ServerCfg.Telemetry
}

func (a *App) RegisterHandlers() error {
	if !a.usesServer() {
		log.Println("running without server")
		return nil
	}

	log.Println("registering handlers")
	a.client.OnEvent("reply", func(s socketio.Conn, msg string) {
		log.Println("Receive Message /reply: ", "reply", msg)
	})

	a.client.OnEvent("drive", a.onDrive)

	a.client.OnEvent("register_success", a.onRegisterSuccess)

	log.Println("attemping to connect to server...")
	err := a.client.Connect() //Client must have atleast 1 event handler to work
	if err != nil {
		return fmt.Errorf("error connecting to server - %w", err)
	}
	log.Println("connected to server")
	return nil
}

func (a *App) Start() error {
	group, groupCtx := errgroup.WithContext(a.ctx)
	log.Printf("starting in %s mode...\n", a.Cfg.SysIdCfg.Mode)

	defer func() {
		log.Println("stopping...")
		a.drive.Stop()
		if err := a.hw.Close(); err != nil {
			log.Printf("error closing hardware: %s\n", err.Error())
		}
	}()

	//kill listener
	group.Go(func() error {
		signalChannel := make(chan os.Signal, 1)
		signal.Notify(signalChannel, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-signalChannel:
			log.Printf("received signal: %s\n", sig)
			a.ctxCancel()
			return fmt.Errorf("received signal: %s", sig)
		case <-groupCtx.Done():
			log.Println("closing signal goroutine")
			return groupCtx.Err()
		}
	})

	//Start encoder samplers
	group.Go(func() error {
		return a.hw.Start(groupCtx)
	})

	//Start control loop
	group.Go(func() error {
		return a.scheduler.Run(groupCtx, a.Cfg.ServerCfg.ControlPeriod)
	})

	if a.Cfg.SysIdCfg.Mode == ModeSysId {
		group.Go(func() error {
			err := a.runSysIdSequence(groupCtx)
			if err != nil {
				return err
			}
			log.Println("sysid sequence complete")
			a.ctxCancel()
			return nil
		})
	}

	//Send connect and send healthchecks
	if a.usesServer() {
		group.Go(func() error {
			return a.reportHealth(groupCtx)
		})
	}

	err := group.Wait()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Println("context was cancelled")
			return a.closeClient()
		} else {
			return fmt.Errorf("client stopping due to error - %w", err)
		}
	}

	log.Println("shutting down")
	return a.closeClient()
}

// Close stops the drive and releases the hardware of an app that was never started.
func (a *App) Close() error {
	a.ctxCancel()
	a.drive.Stop()
	return a.hw.Close()
}

func (a *App) closeClient() error {
	if !a.usesServer() {
		return nil
	}
	return a.client.Close()
}

func (a *App) reportHealth(ctx context.Context) error {
	encodedMsg, err := telemetry.Encode(models.ConnectReq{
		Key:      a.Cfg.ServerCfg.Key,
		Password: a.Cfg.ServerCfg.Password,
	})
	if err != nil {
		return err
	}
	a.client.Emit("car_connect", encodedMsg)

	healthTicker := time.NewTicker(a.Cfg.ServerCfg.HealthInterval)
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("health checker stopped")
			return ctx.Err()
		case <-healthTicker.C:
			encodedMsg, err := telemetry.Encode(a.health())
			if err != nil {
				log.Printf("failed encoding health: %s\n", err.Error())
				continue
			}
			log.Println("healthcheck: healthy")
			a.client.Emit(telemetry.HealthEvent, encodedMsg)
		}
	}
}

func (a *App) health() models.Health {
	health := models.Health{
		Mode: a.Cfg.SysIdCfg.Mode,
	}

	volts, err := a.hw.Supply.SupplyVoltage()
	if err != nil {
		log.Printf("warning: health supply reading failed: %s\n", err.Error())
	}
	health.SupplyVoltage = volts

	if a.hw.AuxEncoder != nil {
		distance, err := a.drive.AuxiliaryDistance()
		if err != nil {
			log.Printf("warning: health aux distance failed: %s\n", err.Error())
		}
		health.AuxDistance = distance
	}
	return health
}
