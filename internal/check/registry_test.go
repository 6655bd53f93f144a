package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildActivities(t *testing.T) {
	sections := map[string]map[string]any{
		"editor": {
			"enabled": true,
			"class":   "ExternalCommand",
			"command": "pgrep vim",
		},
		"disabled": {
			"enabled": false,
			"class":   "ExternalCommand",
			"command": "true",
		},
	}

	activities, err := BuildActivities(sections)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "editor", activities[0].Name())
}

func TestBuildActivitiesClassDefaultsToSectionName(t *testing.T) {
	sections := map[string]map[string]any{
		"load": {"enabled": true},
	}

	activities, err := BuildActivities(sections)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "load", activities[0].Name())
}

func TestBuildActivitiesDeterministicOrder(t *testing.T) {
	sections := map[string]map[string]any{
		"zeta":  {"enabled": true, "class": "ExternalCommand", "command": "true"},
		"alpha": {"enabled": true, "class": "ExternalCommand", "command": "true"},
		"mid":   {"enabled": true, "class": "ExternalCommand", "command": "true"},
	}

	activities, err := BuildActivities(sections)
	require.NoError(t, err)
	require.Len(t, activities, 3)
	assert.Equal(t, "alpha", activities[0].Name())
	assert.Equal(t, "mid", activities[1].Name())
	assert.Equal(t, "zeta", activities[2].Name())
}

func TestBuildActivitiesUnknownClass(t *testing.T) {
	sections := map[string]map[string]any{
		"bogus": {"enabled": true, "class": "NoSuchCheck"},
	}

	_, err := BuildActivities(sections)
	assert.Error(t, err)
}

func TestBuildActivitiesNoneEnabled(t *testing.T) {
	sections := map[string]map[string]any{
		"editor": {"enabled": false, "class": "ExternalCommand", "command": "true"},
	}

	_, err := BuildActivities(sections)
	assert.Error(t, err)
}

func TestBuildWakeups(t *testing.T) {
	sections := map[string]map[string]any{
		"backup": {
			"enabled": true,
			"class":   "Periodic",
			"unit":    "hours",
			"value":   6,
		},
	}

	wakeups, err := BuildWakeups(sections)
	require.NoError(t, err)
	require.Len(t, wakeups, 1)
	assert.Equal(t, "backup", wakeups[0].Name())
}

func TestBuildWakeupsEmptyIsValid(t *testing.T) {
	wakeups, err := BuildWakeups(nil)
	require.NoError(t, err)
	assert.Empty(t, wakeups)
}

func TestBuildWakeupsInvalidOptions(t *testing.T) {
	sections := map[string]map[string]any{
		"broken": {
			"enabled": true,
			"class":   "Periodic",
			"value":   -5,
		},
	}

	_, err := BuildWakeups(sections)
	assert.Error(t, err)
}
