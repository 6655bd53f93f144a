package check

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalCommand(t *testing.T) {
	t.Run("succeeding command reports activity", func(t *testing.T) {
		c, err := NewExternalCommand("cmd", Options{"command": "true"})
		require.NoError(t, err)

		reason, err := c.Check(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, reason)
	})

	t.Run("failing command reports no activity", func(t *testing.T) {
		c, err := NewExternalCommand("cmd", Options{"command": "false"})
		require.NoError(t, err)

		reason, err := c.Check(context.Background())
		require.NoError(t, err)
		assert.Empty(t, reason)
	})

	t.Run("missing binary is severe", func(t *testing.T) {
		c, err := NewExternalCommand("cmd", Options{"command": "surely-not-a-binary-anywhere"})
		require.NoError(t, err)

		_, err = c.Check(context.Background())
		require.Error(t, err)
		assert.False(t, IsTemporary(err))
	})

	t.Run("missing command option is rejected", func(t *testing.T) {
		_, err := NewExternalCommand("cmd", Options{})
		assert.Error(t, err)
	})
}

func TestCommandWakeup(t *testing.T) {
	now := time.Now().UTC()

	t.Run("epoch output becomes a wake time", func(t *testing.T) {
		c, err := NewCommandWakeup("wake", Options{"command": "echo 1700000000"})
		require.NoError(t, err)

		at, err := c.NextWakeup(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), at)
	})

	t.Run("empty output means no opinion", func(t *testing.T) {
		c, err := NewCommandWakeup("wake", Options{"command": "true"})
		require.NoError(t, err)

		at, err := c.NextWakeup(context.Background(), now)
		require.NoError(t, err)
		assert.True(t, at.IsZero())
	})

	t.Run("garbage output is temporary", func(t *testing.T) {
		c, err := NewCommandWakeup("wake", Options{"command": "echo not-a-timestamp"})
		require.NoError(t, err)

		_, err = c.NextWakeup(context.Background(), now)
		require.Error(t, err)
		assert.True(t, IsTemporary(err))
	})

	t.Run("failing command is temporary", func(t *testing.T) {
		c, err := NewCommandWakeup("wake", Options{"command": "false"})
		require.NoError(t, err)

		_, err = c.NextWakeup(context.Background(), now)
		require.Error(t, err)
		assert.True(t, IsTemporary(err))
	})
}
