package check

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsString(t *testing.T) {
	opts := Options{"url": "http://localhost", "port": 8080}

	assert.Equal(t, "http://localhost", opts.String("url", ""))
	assert.Equal(t, "8080", opts.String("port", ""))
	assert.Equal(t, "fallback", opts.String("missing", "fallback"))
}

func TestOptionsRequiredString(t *testing.T) {
	opts := Options{"url": "http://localhost", "blank": "  "}

	url, err := opts.RequiredString("url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost", url)

	_, err = opts.RequiredString("blank")
	assert.Error(t, err)

	_, err = opts.RequiredString("missing")
	assert.Error(t, err)
}

func TestOptionsInt(t *testing.T) {
	opts := Options{"threshold": "42", "native": int64(7), "bad": "not a number"}

	n, err := opts.Int("threshold", 0)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = opts.Int("native", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = opts.Int("missing", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = opts.Int("bad", 0)
	assert.Error(t, err)
}

func TestOptionsBool(t *testing.T) {
	opts := Options{"enabled": "true", "flag": false}

	b, err := opts.Bool("enabled", false)
	require.NoError(t, err)
	assert.True(t, b)

	b, err = opts.Bool("flag", true)
	require.NoError(t, err)
	assert.False(t, b)

	b, err = opts.Bool("missing", true)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestOptionsSeconds(t *testing.T) {
	opts := Options{"timeout": "2.5"}

	d, err := opts.Seconds("timeout", 0)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, d)

	d, err = opts.Seconds("missing", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestOptionsStringSlice(t *testing.T) {
	opts := Options{
		"hosts":  "alpha, beta , gamma",
		"native": []any{"one", "two"},
	}

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, opts.StringSlice("hosts"))
	assert.Equal(t, []string{"one", "two"}, opts.StringSlice("native"))
	assert.Nil(t, opts.StringSlice("missing"))
}

func TestOptionsCaseInsensitiveKeys(t *testing.T) {
	opts := Options{"url": "http://localhost"}

	assert.True(t, opts.Has("URL"))
	assert.Equal(t, "http://localhost", opts.String("Url", ""))
}

func TestFailureClassification(t *testing.T) {
	assert.True(t, IsTemporary(Temporary("probe unavailable", nil)))
	assert.False(t, IsTemporary(Severe("binary missing", nil)))
	assert.False(t, IsTemporary(nil))
}
