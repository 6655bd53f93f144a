package check

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLogFile(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.log")
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func newLogActivity(t *testing.T, path string) Activity {
	t.Helper()

	c, err := NewLastLogActivity("log", Options{
		"log_file": path,
		"pattern":  `^(\S+ \S+) .*$`,
		"minutes":  10,
	})
	require.NoError(t, err)

	return c
}

func TestLastLogActivity(t *testing.T) {
	t.Run("recent entry reports activity", func(t *testing.T) {
		stamp := time.Now().UTC().Add(-time.Minute).Format("2006-01-02 15:04:05")
		path := writeLogFile(t, fmt.Sprintf("%s something happened", stamp))

		reason, err := newLogActivity(t, path).Check(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, reason)
	})

	t.Run("stale entry reports no activity", func(t *testing.T) {
		stamp := time.Now().UTC().Add(-time.Hour).Format("2006-01-02 15:04:05")
		path := writeLogFile(t, fmt.Sprintf("%s something happened", stamp))

		reason, err := newLogActivity(t, path).Check(context.Background())
		require.NoError(t, err)
		assert.Empty(t, reason)
	})

	t.Run("only the newest matching line counts", func(t *testing.T) {
		recent := time.Now().UTC().Add(-time.Minute).Format("2006-01-02 15:04:05")
		old := time.Now().UTC().Add(-time.Hour).Format("2006-01-02 15:04:05")
		path := writeLogFile(t,
			fmt.Sprintf("%s recent entry", recent),
			fmt.Sprintf("%s old entry", old),
		)

		reason, err := newLogActivity(t, path).Check(context.Background())
		require.NoError(t, err)
		assert.Empty(t, reason, "the last line decides, not any earlier one")
	})

	t.Run("future timestamps are temporary failures", func(t *testing.T) {
		stamp := time.Now().UTC().Add(time.Hour).Format("2006-01-02 15:04:05")
		path := writeLogFile(t, fmt.Sprintf("%s from the future", stamp))

		_, err := newLogActivity(t, path).Check(context.Background())
		require.Error(t, err)
		assert.True(t, IsTemporary(err))
	})

	t.Run("missing file is temporary", func(t *testing.T) {
		_, err := newLogActivity(t, filepath.Join(t.TempDir(), "absent.log")).Check(context.Background())
		require.Error(t, err)
		assert.True(t, IsTemporary(err))
	})

	t.Run("pattern must have one capture group", func(t *testing.T) {
		_, err := NewLastLogActivity("log", Options{
			"log_file": "/var/log/syslog",
			"pattern":  `no groups here`,
		})
		assert.Error(t, err)
	})
}
