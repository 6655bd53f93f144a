package main

import (
	"time"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/suspendctl/internal/action"
	"codeberg.org/mutker/suspendctl/internal/check"
	"codeberg.org/mutker/suspendctl/internal/daemon"
)

var presuspendCmd = &cobra.Command{
	Use:   "presuspend",
	Short: "Hook to be called by the system before suspending",
	Long:  "Computes the next wake time from the configured wakeup checks, programs the wake alarm, and leaves a marker so the daemon resets its state after resume. Intended for system sleep hooks.",
	RunE:  runPresuspend,
}

func init() {
	rootCmd.AddCommand(presuspendCmd)
}

func runPresuspend(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	wakeups, err := check.BuildWakeups(cfg.Wakeups)
	if err != nil {
		return err
	}

	scheduler := action.NewScheduler(cfg.WakeupCmd)

	return daemon.Presuspend(cmd.Context(), wakeups, scheduler.Schedule, daemon.HookConfig{
		WakeupDelta: time.Duration(cfg.WakeupDelta) * time.Second,
		WokeUpFile:  cfg.WokeUpFile,
		LockFile:    cfg.LockFile,
		LockTimeout: time.Duration(cfg.LockTimeout) * time.Second,
	})
}
