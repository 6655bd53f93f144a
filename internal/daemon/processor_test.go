package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/suspendctl/internal/check"
)

type fakeActivity struct {
	name   string
	reason string
	err    error
	calls  int
}

func (f *fakeActivity) Name() string { return f.name }

func (f *fakeActivity) Check(context.Context) (string, error) {
	f.calls++
	return f.reason, f.err
}

type fakeWakeup struct {
	name  string
	at    time.Time
	err   error
	calls int
}

func (f *fakeWakeup) Name() string { return f.name }

func (f *fakeWakeup) NextWakeup(context.Context, time.Time) (time.Time, error) {
	f.calls++
	return f.at, f.err
}

type recordedActions struct {
	suspends  []time.Time
	schedules []time.Time
}

func (r *recordedActions) suspend(_ context.Context, wakeAt time.Time) error {
	r.suspends = append(r.suspends, wakeAt)
	return nil
}

func (r *recordedActions) schedule(_ context.Context, wakeAt time.Time) {
	r.schedules = append(r.schedules, wakeAt)
}

func newTestProcessor(t *testing.T, activities []check.Activity, wakeups []check.Wakeup, cfg ProcessorConfig) (*Processor, *recordedActions) {
	t.Helper()

	actions := &recordedActions{}
	return NewProcessor(activities, wakeups, cfg, actions.suspend, actions.schedule, nil), actions
}

func TestIdleSinceTransitions(t *testing.T) {
	active := &fakeActivity{name: "probe", reason: "busy"}
	processor, _ := newTestProcessor(t, []check.Activity{active}, nil, ProcessorConfig{
		IdleTime: time.Hour,
	})

	now := time.Now().UTC()

	require.NoError(t, processor.Iteration(context.Background(), now, false))
	assert.True(t, processor.IdleSince().IsZero(), "active system must not be idle")

	// first no-activity iteration sets idle_since to that instant
	active.reason = ""
	require.NoError(t, processor.Iteration(context.Background(), now.Add(time.Minute), false))
	assert.Equal(t, now.Add(time.Minute), processor.IdleSince())

	// further no-activity iterations leave it untouched
	require.NoError(t, processor.Iteration(context.Background(), now.Add(2*time.Minute), false))
	assert.Equal(t, now.Add(time.Minute), processor.IdleSince())

	// any activity clears it
	active.reason = "busy again"
	require.NoError(t, processor.Iteration(context.Background(), now.Add(3*time.Minute), false))
	assert.True(t, processor.IdleSince().IsZero())
}

func TestNoSuspendBeforeIdleTime(t *testing.T) {
	idle := &fakeActivity{name: "probe"}
	processor, actions := newTestProcessor(t, []check.Activity{idle}, nil, ProcessorConfig{
		IdleTime: 300 * time.Second,
	})

	now := time.Now().UTC()
	require.NoError(t, processor.Iteration(context.Background(), now, false))
	require.NoError(t, processor.Iteration(context.Background(), now.Add(299*time.Second), false))

	assert.Empty(t, actions.suspends, "suspend must not run below the idle threshold")

	require.NoError(t, processor.Iteration(context.Background(), now.Add(300*time.Second), false))
	assert.Len(t, actions.suspends, 1, "suspend must run once the idle threshold is reached")
}

func TestShortCircuitEvaluation(t *testing.T) {
	errFake := check.Severe("broken probe", nil)

	cheap := &fakeActivity{name: "cheap", reason: "busy"}
	throwing := &fakeActivity{name: "throwing", err: errFake}

	processor, _ := newTestProcessor(t, []check.Activity{cheap, throwing}, nil, ProcessorConfig{
		IdleTime: time.Hour,
	})

	require.NoError(t, processor.Iteration(context.Background(), time.Now().UTC(), false))
	assert.Equal(t, 1, cheap.calls)
	assert.Equal(t, 0, throwing.calls, "short-circuit must skip checks after the first match")

	all, _ := newTestProcessor(t, []check.Activity{cheap, throwing}, nil, ProcessorConfig{
		IdleTime:  time.Hour,
		AllChecks: true,
	})

	err := all.Iteration(context.Background(), time.Now().UTC(), false)
	require.Error(t, err, "severe error must surface under all-checks policy")
	assert.Equal(t, 1, throwing.calls)
}

func TestWakeupAggregationPicksEarliest(t *testing.T) {
	now := time.Now().UTC()

	near := &fakeWakeup{name: "near", at: now.Add(10 * time.Second)}
	far := &fakeWakeup{name: "far", at: now.Add(time.Hour)}
	failing := &fakeWakeup{name: "failing", err: check.Temporary("unreachable", nil)}

	at, err := nextWakeup(context.Background(), []check.Wakeup{far, failing, near}, now)
	require.NoError(t, err, "temporary wakeup failures must not surface")
	assert.Equal(t, now.Add(10*time.Second), at)
}

func TestWakeupIgnoresPastTimes(t *testing.T) {
	now := time.Now().UTC()

	past := &fakeWakeup{name: "past", at: now.Add(-time.Minute)}
	future := &fakeWakeup{name: "future", at: now.Add(time.Hour)}

	at, err := nextWakeup(context.Background(), []check.Wakeup{past, future}, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), at)
}

func TestSuspendWithoutWakeup(t *testing.T) {
	idle := &fakeActivity{name: "probe"}
	silent := &fakeWakeup{name: "silent"}

	processor, actions := newTestProcessor(t, []check.Activity{idle}, []check.Wakeup{silent}, ProcessorConfig{})

	require.NoError(t, processor.Iteration(context.Background(), time.Now().UTC(), false))

	assert.Empty(t, actions.schedules, "no wake opinion must not invoke the scheduling action")
	require.Len(t, actions.suspends, 1)
	assert.True(t, actions.suspends[0].IsZero())
}

func TestSuspendDeferredBelowMinSleepTime(t *testing.T) {
	now := time.Now().UTC()

	idle := &fakeActivity{name: "probe"}
	soon := &fakeWakeup{name: "soon", at: now.Add(10 * time.Minute)}

	processor, actions := newTestProcessor(t, []check.Activity{idle}, []check.Wakeup{soon}, ProcessorConfig{
		MinSleepTime: 20 * time.Minute,
	})

	require.NoError(t, processor.Iteration(context.Background(), now, false))
	assert.Empty(t, actions.suspends, "a too-short sleep window must defer suspension")
	assert.Empty(t, actions.schedules)

	// idle state survives the deferral and a later iteration retries
	assert.Equal(t, now, processor.IdleSince())
}

func TestSuspendSchedulesWakeWithDelta(t *testing.T) {
	now := time.Now().UTC()
	wakeAt := now.Add(2 * time.Hour)

	idle := &fakeActivity{name: "probe"}
	wake := &fakeWakeup{name: "wake", at: wakeAt}

	processor, actions := newTestProcessor(t, []check.Activity{idle}, []check.Wakeup{wake}, ProcessorConfig{
		MinSleepTime: 20 * time.Minute,
		WakeupDelta:  30 * time.Second,
	})

	require.NoError(t, processor.Iteration(context.Background(), now, false))

	require.Len(t, actions.schedules, 1)
	assert.Equal(t, wakeAt.Add(-30*time.Second), actions.schedules[0])
	require.Len(t, actions.suspends, 1)
	assert.Equal(t, wakeAt.Add(-30*time.Second), actions.suspends[0])
}

func TestJustWokeUpResetsState(t *testing.T) {
	idle := &fakeActivity{name: "probe"}
	processor, _ := newTestProcessor(t, []check.Activity{idle}, nil, ProcessorConfig{
		IdleTime: time.Hour,
	})

	now := time.Now().UTC()
	require.NoError(t, processor.Iteration(context.Background(), now, false))
	require.False(t, processor.IdleSince().IsZero())

	require.NoError(t, processor.Iteration(context.Background(), now.Add(time.Minute), true))
	assert.True(t, processor.IdleSince().IsZero(), "post-resume state must be treated as active")
	assert.Equal(t, 1, idle.calls, "a just-woke-up iteration must not probe")
}

func TestIdleStateClearedAfterSuspend(t *testing.T) {
	idle := &fakeActivity{name: "probe"}
	processor, actions := newTestProcessor(t, []check.Activity{idle}, nil, ProcessorConfig{})

	require.NoError(t, processor.Iteration(context.Background(), time.Now().UTC(), false))

	require.Len(t, actions.suspends, 1)
	assert.True(t, processor.IdleSince().IsZero(), "idle state must be cleared around suspension")
}

func TestTemporaryActivityErrorCountsAsActivity(t *testing.T) {
	flaky := &fakeActivity{name: "flaky", err: check.Temporary("timeout", nil)}
	processor, actions := newTestProcessor(t, []check.Activity{flaky}, nil, ProcessorConfig{})

	require.NoError(t, processor.Iteration(context.Background(), time.Now().UTC(), false))

	assert.True(t, processor.IdleSince().IsZero(), "uncertainty must keep the system awake")
	assert.Empty(t, actions.suspends)
}
