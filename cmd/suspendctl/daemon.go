package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"codeberg.org/mutker/suspendctl/internal/action"
	"codeberg.org/mutker/suspendctl/internal/check"
	"codeberg.org/mutker/suspendctl/internal/config"
	"codeberg.org/mutker/suspendctl/internal/daemon"
	"codeberg.org/mutker/suspendctl/internal/errors"
	"codeberg.org/mutker/suspendctl/internal/history"
	"codeberg.org/mutker/suspendctl/internal/logger"
	"codeberg.org/mutker/suspendctl/internal/pid"
)

var (
	flagAllChecks bool
	flagRunFor    float64
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the continuously operating daemon",
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVarP(&flagAllChecks, "all-checks", "a", false,
		"execute all checks even if one already detected activity, useful to debug individual checks")
	daemonCmd.Flags().Float64VarP(&flagRunFor, "run-for", "r", 0,
		"run for the given amount of seconds before exiting instead of endless execution")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.SuspendCmd == "" {
		return errors.New().WithMessage(errors.ErrMissingConfig, "suspend_cmd must be configured")
	}

	if err := pid.Write(); err != nil {
		logger.FatalWithCode(asDomainError(err)).Msg("Unable to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Warn().Err(err).Msg("Unable to remove PID file")
		}
	}()

	activities, err := check.BuildActivities(cfg.Checks)
	if err != nil {
		return err
	}
	wakeups, err := check.BuildWakeups(cfg.Wakeups)
	if err != nil {
		return err
	}

	recorder := history.NewNoop()
	if cfg.History.Enabled {
		recorder, err = history.NewRepository(history.Config{
			Path:         cfg.History.Path,
			BatchSize:    cfg.History.BatchSize,
			BatchTimeout: time.Duration(cfg.History.BatchTimeout) * time.Second,
		})
		if err != nil {
			return err
		}
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Warn().Err(err).Msg("Unable to close decision history")
		}
	}()

	suspender := action.NewSuspender(cfg.SuspendCmd, cfg.NotifyCmdWakeup, cfg.NotifyCmdNoWakeup)
	scheduler := action.NewScheduler(cfg.WakeupCmd)

	processor := daemon.NewProcessor(
		activities,
		wakeups,
		daemon.ProcessorConfig{
			IdleTime:     time.Duration(cfg.IdleTime) * time.Second,
			MinSleepTime: time.Duration(cfg.MinSleepTime) * time.Second,
			WakeupDelta:  time.Duration(cfg.WakeupDelta) * time.Second,
			AllChecks:    flagAllChecks || cfg.AllChecks,
		},
		suspender.Suspend,
		scheduler.Schedule,
		recorder,
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go handleSignals(cancel)

	if logger.IsService() {
		if _, err := sd.SdNotify(false, sd.SdNotifyReady); err != nil {
			logger.Debug().Err(err).Msg("Unable to notify service manager")
		}
	}

	loopCfg := daemon.LoopConfig{
		Interval:    time.Duration(cfg.Interval) * time.Second,
		RunFor:      time.Duration(flagRunFor * float64(time.Second)),
		WokeUpFile:  cfg.WokeUpFile,
		LockFile:    cfg.LockFile,
		LockTimeout: time.Duration(cfg.LockTimeout) * time.Second,
	}
	if err := daemon.Loop(ctx, processor, loopCfg); err != nil {
		logger.FatalWithCode(asDomainError(err)).Msg("Severe check failure, terminating")
	}

	logger.Info().Msg("Exiting...")

	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := []config.Option{config.WithFlags(cmd.Flags())}
	if flagConfig != "" {
		opts = append(opts, config.WithConfigFile(flagConfig))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.Debug || flagDebug, cfg.Verbose || flagVerbose, logger.IsService(), cfg.LogFile)
	logger.Debug().Msg("Config loaded")

	return cfg, nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// asDomainError makes sure an error carries a code before it reaches the
// coded log helpers.
func asDomainError(err error) errors.Error {
	var domainErr errors.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}

	return errors.New().Wrap(errors.ErrInternal, err)
}
