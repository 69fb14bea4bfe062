package threadstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltbot/philosopher/internal/apperrors"
	"github.com/moltbot/philosopher/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(t.TempDir(), models.TargetMetrics{MinExchanges: 7, MinArchetypes: 3}, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestCreate(t *testing.T) {
	store := newTestStore(t)

	t.Run("InitializesCounters", func(t *testing.T) {
		thread, err := store.Create(CreateParams{
			ThreadID:         "t1",
			OriginalQuestion: "Can machines understand?",
			Constraints:      []string{"no appeals to authority"},
		})
		require.NoError(t, err)

		assert.Equal(t, models.StateInitiated, thread.State)
		assert.Zero(t, thread.ExchangeCount)
		assert.Zero(t, thread.StallCount)
		assert.Empty(t, thread.Participants)
		assert.Empty(t, thread.SynthesisChain)
		assert.Equal(t, 7, thread.TargetMetrics.MinExchanges)
		assert.Equal(t, "philosophy_of_mind", thread.Metadata.TopicDomain)
		assert.Equal(t, 5, thread.Metadata.ComplexityScore)
	})

	t.Run("RejectsDuplicates", func(t *testing.T) {
		_, err := store.Create(CreateParams{ThreadID: "t1", OriginalQuestion: "again?"})
		require.ErrorIs(t, err, apperrors.ErrDuplicateThread)
	})

	t.Run("RejectsDuplicateOfArchivedThread", func(t *testing.T) {
		_, err := store.Create(CreateParams{ThreadID: "t2", OriginalQuestion: "q"})
		require.NoError(t, err)
		_, err = store.Archive("t2")
		require.NoError(t, err)

		_, err = store.Create(CreateParams{ThreadID: "t2", OriginalQuestion: "q"})
		require.ErrorIs(t, err, apperrors.ErrDuplicateThread)
	})

	t.Run("TruncatesConstraints", func(t *testing.T) {
		thread, err := store.Create(CreateParams{
			ThreadID:         "t3",
			OriginalQuestion: "q",
			Constraints:      []string{"a", "b", "c", "d"},
		})
		require.NoError(t, err)
		assert.Len(t, thread.Constraints, 3)
	})

	t.Run("RequiresFields", func(t *testing.T) {
		_, err := store.Create(CreateParams{OriginalQuestion: "q"})
		assert.True(t, apperrors.IsValidation(err))

		_, err = store.Create(CreateParams{ThreadID: "t4"})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestGetIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(CreateParams{ThreadID: "t1", OriginalQuestion: "q"})
	require.NoError(t, err)

	first, err := store.Get("t1")
	require.NoError(t, err)
	second, err := store.Get("t1")
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRecordExchange(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(CreateParams{ThreadID: "t1", OriginalQuestion: "q"})
	require.NoError(t, err)

	t.Run("FirstExchangeActivates", func(t *testing.T) {
		thread, err := store.RecordExchange("t1", ExchangeParams{
			Author:    "alice",
			Content:   "A first position on the question.",
			Archetype: "existentialist",
		})
		require.NoError(t, err)

		assert.Equal(t, models.StateActive, thread.State)
		assert.Equal(t, 1, thread.ExchangeCount)
		assert.Equal(t, []string{"alice"}, thread.Participants)
		assert.Equal(t, []string{"existentialist"}, thread.ArchetypesEngaged)
	})

	t.Run("ParticipantsStayUnique", func(t *testing.T) {
		thread, err := store.RecordExchange("t1", ExchangeParams{
			Author:    "alice",
			Content:   "A follow-up.",
			Archetype: "existentialist",
		})
		require.NoError(t, err)

		assert.Equal(t, 2, thread.ExchangeCount)
		assert.Equal(t, []string{"alice"}, thread.Participants)
		assert.Equal(t, []string{"existentialist"}, thread.ArchetypesEngaged)
	})

	t.Run("StalledReturnsToActive", func(t *testing.T) {
		_, err := store.MarkStalled("t1")
		require.NoError(t, err)

		thread, err := store.RecordExchange("t1", ExchangeParams{Author: "bob", Content: "Reviving."})
		require.NoError(t, err)
		assert.Equal(t, models.StateActive, thread.State)
		assert.Equal(t, 1, thread.StallCount, "stall count keeps history")
	})

	t.Run("ResetsOrchestratorPosts", func(t *testing.T) {
		_, err := store.RecordSynthesis("t1", SynthesisParams{Synthesis: "s", Tension: "t", Propagation: "p?"})
		require.NoError(t, err)

		thread, err := store.RecordExchange("t1", ExchangeParams{Author: "carol", Content: "Replying."})
		require.NoError(t, err)
		assert.Zero(t, thread.OrchestratorPosts)
	})

	t.Run("UnknownThread", func(t *testing.T) {
		_, err := store.RecordExchange("nope", ExchangeParams{Author: "a", Content: "c"})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestExchangeCountMatchesRecordCalls(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(CreateParams{ThreadID: "t1", OriginalQuestion: "q"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := store.RecordExchange("t1", ExchangeParams{Author: "alice", Content: "x"})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := store.RecordSynthesis("t1", SynthesisParams{Synthesis: "s", Tension: "t", Propagation: "p?"})
		require.NoError(t, err)
	}

	thread, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, 5, thread.ExchangeCount)
	assert.Len(t, thread.SynthesisChain, 2)
}

func TestRecordSynthesis(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time { return time.Unix(1700000000, 0) }

	_, err := store.Create(CreateParams{ThreadID: "t1", OriginalQuestion: "q"})
	require.NoError(t, err)

	thread, err := store.RecordSynthesis("t1", SynthesisParams{
		Synthesis:   "The prior position holds that minds are computational.",
		Tension:     "This sits uneasily with qualia.",
		Propagation: "What would count as evidence either way?",
	})
	require.NoError(t, err)

	require.Len(t, thread.SynthesisChain, 1)
	entry := thread.SynthesisChain[0]
	assert.Equal(t, 1, entry.ExchangeNumber)
	assert.Equal(t, "orchestrator", entry.Author)
	assert.Equal(t, int64(1700000000), entry.Timestamp)
	assert.Equal(t, 1, thread.ExchangeCount)
	assert.Equal(t, 1, thread.OrchestratorPosts)
}

func TestArchiveExclusivity(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(CreateParams{ThreadID: "t1", OriginalQuestion: "q"})
	require.NoError(t, err)
	_, err = store.Create(CreateParams{ThreadID: "t2", OriginalQuestion: "q"})
	require.NoError(t, err)

	archived, err := store.Archive("t1")
	require.NoError(t, err)
	assert.Equal(t, models.StateArchived, archived.State)
	assert.NotZero(t, archived.Metadata.ArchivedTimestamp)

	// Still reachable through Get, but gone from the active listing.
	got, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, models.StateArchived, got.State)

	active, err := store.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "t2", active[0].ThreadID)

	_, err = os.Stat(store.threadPath("t1", false))
	assert.True(t, os.IsNotExist(err), "active copy must be removed")
}

func TestListActiveSkipsCorruptRecords(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(CreateParams{ThreadID: "good", OriginalQuestion: "q"})
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(store.activeDir, "thread-bad.json"), []byte("{not json"), 0644)
	require.NoError(t, err)

	threads, err := store.ListActive()
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "good", threads[0].ThreadID)
}

func TestRecordProbe(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(CreateParams{ThreadID: "t1", OriginalQuestion: "q"})
	require.NoError(t, err)
	_, err = store.MarkStalled("t1")
	require.NoError(t, err)

	thread, err := store.RecordProbe("t1", models.ProbeMetaQuestion)
	require.NoError(t, err)
	assert.Equal(t, models.ProbeMetaQuestion, thread.LastProbeType)

	events, err := store.ProbeEvents("t1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "t1", events[0].ThreadID)
	assert.Equal(t, models.ProbeMetaQuestion, events[0].ProbeType)
	assert.Equal(t, 1, events[0].StallCount)
	assert.NotEmpty(t, events[0].ID)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(CreateParams{ThreadID: "t1", OriginalQuestion: "q"})
	require.NoError(t, err)
	_, err = store.Create(CreateParams{ThreadID: "t2", OriginalQuestion: "q"})
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		_, err := store.RecordExchange("t1", ExchangeParams{
			Author:    "p",
			Content:   "c",
			Archetype: []string{"a", "b", "c", "a", "b", "c", "a"}[i],
		})
		require.NoError(t, err)
	}

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalActive)
	assert.Equal(t, 7, stats.TotalExchanges)
	assert.Equal(t, 1, stats.SuccessfulThreads)
	assert.Equal(t, 1, stats.ByState[models.StateActive])
	assert.Equal(t, 1, stats.ByState[models.StateInitiated])
}
