package action

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTimestampToken(t *testing.T) {
	wakeAt := time.Unix(1700000000, 500*int64(time.Millisecond))

	expanded := Expand("rtcwake -m no -t {timestamp}", wakeAt)
	assert.Equal(t, "rtcwake -m no -t 1700000000.500", expanded)
}

func TestExpandIsoToken(t *testing.T) {
	wakeAt := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	expanded := Expand("notify-send 'wake at {iso}'", wakeAt)
	assert.Equal(t, "notify-send 'wake at 2024-03-01T12:30:00Z'", expanded)
}

func TestExpandNoTokens(t *testing.T) {
	assert.Equal(t, "systemctl suspend", Expand("systemctl suspend", time.Now()))
}

func TestRunSuccess(t *testing.T) {
	require.NoError(t, Run(context.Background(), "true"))
}

func TestRunFailure(t *testing.T) {
	err := Run(context.Background(), "exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
}

func TestRunCommandNotFound(t *testing.T) {
	err := Run(context.Background(), "definitely-not-a-real-command-xyz")
	require.Error(t, err)
	assert.Equal(t, 127, ExitCode(err))
}

func TestExitCodeNonExitError(t *testing.T) {
	assert.Equal(t, -1, ExitCode(fmt.Errorf("not an exit error")))
	assert.Equal(t, -1, ExitCode(nil))
}

func TestOutput(t *testing.T) {
	out, err := Output(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", strings.TrimSpace(out))
}

func TestSuspenderRunsNotifyAndSuspend(t *testing.T) {
	dir := t.TempDir()
	notifyFile := filepath.Join(dir, "notify")
	suspendFile := filepath.Join(dir, "suspend")

	s := NewSuspender(
		fmt.Sprintf("touch %s", suspendFile),
		fmt.Sprintf("echo {timestamp} > %s", notifyFile),
		"")

	wakeAt := time.Unix(1700000000, 0)
	require.NoError(t, s.Suspend(context.Background(), wakeAt))

	assert.FileExists(t, suspendFile)

	notified, err := os.ReadFile(notifyFile)
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000", strings.TrimSpace(string(notified)))
}

func TestSuspenderNoWakeupNotification(t *testing.T) {
	dir := t.TempDir()
	notifyFile := filepath.Join(dir, "notify")

	s := NewSuspender("true", "false", fmt.Sprintf("touch %s", notifyFile))
	require.NoError(t, s.Suspend(context.Background(), time.Time{}))
	assert.FileExists(t, notifyFile)
}

func TestSuspenderReportsCommandFailure(t *testing.T) {
	s := NewSuspender("exit 1", "", "")
	assert.Error(t, s.Suspend(context.Background(), time.Time{}))
}

func TestSchedulerExpandsCommand(t *testing.T) {
	dir := t.TempDir()
	scheduleFile := filepath.Join(dir, "schedule")

	s := NewScheduler(fmt.Sprintf("echo {iso} > %s", scheduleFile))
	wakeAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Schedule(context.Background(), wakeAt)

	scheduled, err := os.ReadFile(scheduleFile)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:00:00Z", strings.TrimSpace(string(scheduled)))
}
