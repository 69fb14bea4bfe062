package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltbot/philosopher/internal/config"
	"github.com/moltbot/philosopher/internal/continuation"
	"github.com/moltbot/philosopher/internal/notify"
	"github.com/moltbot/philosopher/internal/threadstore"
	"github.com/moltbot/philosopher/pkg/models"
)

type fakeProbeSource struct {
	kind  models.ProbeKind
	calls int
}

func (f *fakeProbeSource) Generate(_ context.Context, thread *models.Thread, kind models.ProbeKind) *continuation.Probe {
	f.calls++
	if kind == "" {
		kind = f.kind
	}
	return &continuation.Probe{ThreadID: thread.ThreadID, Kind: kind, Content: "probe", Fallback: true}
}

type fakeNotifier struct {
	titles []string
}

func (f *fakeNotifier) Notify(_ context.Context, _ notify.Type, title, _ string, _ notify.Metadata) notify.Result {
	f.titles = append(f.titles, title)
	return notify.Result{Success: true}
}

func testMonitorConfig() config.MonitorConfig {
	return config.MonitorConfig{
		CheckIntervalSecs:   300,
		StallThresholdSecs:  3600,
		DeathThresholdSecs:  86400,
		MaxConsecutivePosts: 2,
		MaxStallCount:       3,
		TargetMinExchanges:  3,
		TargetMinArchetypes: 2,
		EnableProbes:        true,
	}
}

func newTestStore(t *testing.T) *threadstore.Store {
	t.Helper()
	store, err := threadstore.New(t.TempDir(), models.TargetMetrics{MinExchanges: 3, MinArchetypes: 2}, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func newTestMonitor(store *threadstore.Store, cfg config.MonitorConfig) (*Monitor, *fakeProbeSource, *fakeNotifier) {
	probes := &fakeProbeSource{kind: models.ProbeThoughtExperiment}
	notifier := &fakeNotifier{}
	return New(store, probes, notifier, cfg, zerolog.Nop()), probes, notifier
}

func createThread(t *testing.T, store *threadstore.Store, id string) *models.Thread {
	t.Helper()
	thread, err := store.Create(threadstore.CreateParams{
		ThreadID:         id,
		OriginalQuestion: "Is consciousness substrate-independent?",
	})
	require.NoError(t, err)
	return thread
}

// shift makes the monitor's clock report d past the real time, simulating
// elapsed inactivity without touching the stored timestamps.
func shift(m *Monitor, d time.Duration) {
	m.now = func() time.Time { return time.Now().Add(d) }
}

func TestTickCompletesThreadMeetingTargets(t *testing.T) {
	store := newTestStore(t)
	m, probes, notifier := newTestMonitor(store, testMonitorConfig())
	createThread(t, store, "t1")

	for i, archetype := range []string{"existentialist", "enlightenment", "existentialist"} {
		_, err := store.RecordExchange("t1", threadstore.ExchangeParams{
			Author:    "agent-" + archetype,
			Content:   "a contribution",
			Archetype: archetype,
		})
		require.NoError(t, err, "exchange %d", i)
	}

	m.Tick(context.Background())

	thread, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, thread.State)
	assert.NotZero(t, thread.Metadata.CompletionTimestamp)
	assert.Equal(t, []string{"Thread completed"}, notifier.titles)
	assert.Zero(t, probes.calls)
}

func TestTickSkipsCompletedThreads(t *testing.T) {
	store := newTestStore(t)
	m, probes, notifier := newTestMonitor(store, testMonitorConfig())
	createThread(t, store, "t1")
	_, err := store.MarkCompleted("t1")
	require.NoError(t, err)

	shift(m, 48*time.Hour)
	m.Tick(context.Background())

	thread, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, thread.State, "completed threads are never stalled or archived")
	assert.Empty(t, notifier.titles)
	assert.Zero(t, probes.calls)
}

func TestTickCompletionTakesPrecedenceOverDeath(t *testing.T) {
	store := newTestStore(t)
	m, _, _ := newTestMonitor(store, testMonitorConfig())
	createThread(t, store, "t1")

	for _, archetype := range []string{"existentialist", "enlightenment", "classical"} {
		_, err := store.RecordExchange("t1", threadstore.ExchangeParams{
			Author: "agent-" + archetype, Content: "c", Archetype: archetype,
		})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := store.MarkStalled("t1")
		require.NoError(t, err)
	}

	shift(m, 48*time.Hour)
	m.Tick(context.Background())

	thread, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, thread.State)
}

func TestTickStallsSilentThread(t *testing.T) {
	store := newTestStore(t)
	m, probes, _ := newTestMonitor(store, testMonitorConfig())
	createThread(t, store, "t1")

	shift(m, 2*time.Hour)
	m.Tick(context.Background())

	thread, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, models.StateStalled, thread.State)
	assert.Equal(t, 1, thread.StallCount)
	assert.Equal(t, models.ProbeThoughtExperiment, thread.LastProbeType)
	assert.Equal(t, 1, probes.calls)

	events, err := store.ProbeEvents("t1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ProbeThoughtExperiment, events[0].ProbeType)
}

func TestTickDoesNotRestallStalledThread(t *testing.T) {
	store := newTestStore(t)
	m, probes, _ := newTestMonitor(store, testMonitorConfig())
	createThread(t, store, "t1")

	shift(m, 2*time.Hour)
	m.Tick(context.Background())
	m.Tick(context.Background())

	thread, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, 1, thread.StallCount, "second tick must not increment the stall count")
	assert.Equal(t, 1, probes.calls)
}

func TestTickProbesDisabled(t *testing.T) {
	store := newTestStore(t)
	cfg := testMonitorConfig()
	cfg.EnableProbes = false
	m, probes, _ := newTestMonitor(store, cfg)
	createThread(t, store, "t1")

	shift(m, 2*time.Hour)
	m.Tick(context.Background())

	thread, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, models.StateStalled, thread.State)
	assert.Zero(t, probes.calls)

	events, err := store.ProbeEvents("t1")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestTickStallCapSuppressesProbe(t *testing.T) {
	store := newTestStore(t)
	m, probes, _ := newTestMonitor(store, testMonitorConfig())
	createThread(t, store, "t1")

	for i := 0; i < 3; i++ {
		_, err := store.MarkStalled("t1")
		require.NoError(t, err)
	}
	// Activity revives the thread but the stall history is kept.
	_, err := store.RecordExchange("t1", threadstore.ExchangeParams{Author: "a", Content: "c"})
	require.NoError(t, err)

	shift(m, 2*time.Hour)
	m.Tick(context.Background())

	thread, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, models.StateStalled, thread.State)
	assert.Equal(t, 4, thread.StallCount)
	assert.Zero(t, probes.calls, "no probe once the stall cap is reached")
}

func TestTickArchivesDeadThread(t *testing.T) {
	store := newTestStore(t)
	m, _, notifier := newTestMonitor(store, testMonitorConfig())
	createThread(t, store, "t1")

	for i := 0; i < 3; i++ {
		_, err := store.MarkStalled("t1")
		require.NoError(t, err)
	}

	shift(m, 25*time.Hour)
	m.Tick(context.Background())

	thread, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, models.StateArchived, thread.State)
	assert.NotZero(t, thread.Metadata.ArchivedTimestamp)
	assert.Equal(t, []string{"Thread archived"}, notifier.titles)

	active, err := store.ListActive()
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestTickDoesNotArchiveBelowStallCap(t *testing.T) {
	store := newTestStore(t)
	m, _, _ := newTestMonitor(store, testMonitorConfig())
	createThread(t, store, "t1")

	shift(m, 25*time.Hour)
	m.Tick(context.Background())

	thread, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, models.StateStalled, thread.State, "silence alone never archives")

	active, err := store.ListActive()
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestTickSweepsAllThreads(t *testing.T) {
	store := newTestStore(t)
	m, probes, _ := newTestMonitor(store, testMonitorConfig())
	createThread(t, store, "t1")
	createThread(t, store, "t2")

	shift(m, 2*time.Hour)
	m.Tick(context.Background())

	assert.Equal(t, 2, probes.calls)
	for _, id := range []string{"t1", "t2"} {
		thread, err := store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, models.StateStalled, thread.State)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newTestStore(t)
	cfg := testMonitorConfig()
	cfg.CheckIntervalSecs = 1
	m, _, _ := newTestMonitor(store, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after context cancellation")
	}
}
