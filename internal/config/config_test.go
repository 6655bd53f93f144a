package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/suspendctl/internal/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "suspendctl.toml")
	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err)

	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
interval = 30
idle_time = 600
min_sleep_time = 900
wakeup_delta = 45
all_checks = true
suspend_cmd = "systemctl suspend"
wakeup_cmd = "sh -c 'echo 0 > /sys/class/rtc/rtc0/wakealarm && echo {timestamp} > /sys/class/rtc/rtc0/wakealarm'"
notify_cmd_wakeup = "su myuser -c 'notify-send -a suspendctl \"Suspending until {iso}\"'"
woke_up_file = "/tmp/suspendctl-woke-up"
lock_file = "/tmp/suspendctl.lock"
lock_timeout = 10

[history]
enabled = true
path = "/var/lib/suspendctl/history.db"

[check.remote_users]
enabled = true
class = "Users"

[check.ping]
enabled = false
class = "Ping"
hosts = "192.168.0.7"

[wakeup.backup]
enabled = true
class = "File"
path = "/var/run/suspendctl/wakeup"
`)

	t.Setenv("SUSPENDCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Interval, "Expected Interval 30")
	assert.Equal(t, 600, cfg.IdleTime, "Expected IdleTime 600")
	assert.Equal(t, 900, cfg.MinSleepTime, "Expected MinSleepTime 900")
	assert.Equal(t, 45, cfg.WakeupDelta, "Expected WakeupDelta 45")
	assert.True(t, cfg.AllChecks, "Expected AllChecks true")
	assert.Equal(t, "systemctl suspend", cfg.SuspendCmd)
	assert.Contains(t, cfg.WakeupCmd, "{timestamp}")
	assert.Contains(t, cfg.NotifyCmdWakeup, "{iso}")
	assert.Equal(t, "/tmp/suspendctl-woke-up", cfg.WokeUpFile)
	assert.Equal(t, "/tmp/suspendctl.lock", cfg.LockFile)
	assert.Equal(t, 10, cfg.LockTimeout)

	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "/var/lib/suspendctl/history.db", cfg.History.Path)

	require.Contains(t, cfg.Checks, "remote_users")
	require.Contains(t, cfg.Checks, "ping")
	assert.Equal(t, "Users", cfg.Checks["remote_users"]["class"])
	assert.Equal(t, false, cfg.Checks["ping"]["enabled"])

	require.Contains(t, cfg.Wakeups, "backup")
	assert.Equal(t, "File", cfg.Wakeups["backup"]["class"])
}

func TestLoadDefaults(t *testing.T) {
	// Empty file, so every value comes from the defaults
	configPath := writeConfig(t, "")
	t.Setenv("SUSPENDCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultInterval, cfg.Interval)
	assert.Equal(t, config.DefaultIdleTime, cfg.IdleTime)
	assert.Equal(t, config.DefaultMinSleepTime, cfg.MinSleepTime)
	assert.Equal(t, config.DefaultWakeupDelta, cfg.WakeupDelta)
	assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
	assert.Equal(t, config.DefaultWokeUpFile, cfg.WokeUpFile)
	assert.Equal(t, config.DefaultLockFile, cfg.LockFile)
	assert.False(t, cfg.AllChecks)
	assert.False(t, cfg.History.Enabled)
	assert.Empty(t, cfg.Checks)
	assert.Empty(t, cfg.Wakeups)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfig(t, `
This is not a valid TOML file
`)

	t.Setenv("SUSPENDCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read configuration")
}

func TestLoadInvalidInterval(t *testing.T) {
	configPath := writeConfig(t, `
interval = 0
`)

	t.Setenv("SUSPENDCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid interval")
}

func TestLoadHistoryRequiresPath(t *testing.T) {
	configPath := writeConfig(t, `
[history]
enabled = true
`)

	t.Setenv("SUSPENDCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history.path")
}

func TestLoadFlagOverrides(t *testing.T) {
	configPath := writeConfig(t, `
interval = 30
all_checks = false
`)

	t.Setenv("SUSPENDCTL_CONFIG", configPath)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("interval", config.DefaultInterval, "")
	fs.Bool("all-checks", false, "")
	require.NoError(t, fs.Parse([]string{"--all-checks"}))

	cfg, err := config.Load(config.WithFlags(fs))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Interval, "Unset flag must not mask the file value")
	assert.True(t, cfg.AllChecks, "Set flag must override the file value")
}
