// Package threadstore persists discussion threads as one JSON file per
// thread, partitioned into active and archived directories, with a
// side-channel append-only log of probe events.
package threadstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/moltbot/philosopher/internal/apperrors"
	"github.com/moltbot/philosopher/pkg/models"
)

const maxConstraints = 3

// Store is the durable keyed storage for thread records. Read-modify-write
// cycles are serialized per thread id; writes across different threads are
// independent and not transactional.
type Store struct {
	activeDir   string
	archivedDir string
	probesDir   string
	targets     models.TargetMetrics
	logger      zerolog.Logger

	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates the store and its state directories.
func New(stateDir string, targets models.TargetMetrics, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		activeDir:   filepath.Join(stateDir, "active"),
		archivedDir: filepath.Join(stateDir, "archived"),
		probesDir:   filepath.Join(stateDir, "probes"),
		targets:     targets,
		logger:      logger,
		now:         time.Now,
		locks:       make(map[string]*sync.Mutex),
	}

	for _, dir := range []string{s.activeDir, s.archivedDir, s.probesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to initialize state directory %s: %w", dir, err)
		}
	}

	logger.Info().Str("state_dir", stateDir).Msg("state directories initialized")
	return s, nil
}

// lockThread serializes mutations for one thread id. The returned func
// releases the lock.
func (s *Store) lockThread(id string) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *Store) threadPath(id string, archived bool) string {
	dir := s.activeDir
	if archived {
		dir = s.archivedDir
	}
	return filepath.Join(dir, "thread-"+id+".json")
}

// CreateParams are the inputs for thread creation.
type CreateParams struct {
	ThreadID         string
	OriginalQuestion string
	Constraints      []string
	Metadata         models.ThreadMetadata
}

// Create initializes a new thread record in the active partition. Ids that
// already exist in either partition are rejected.
func (s *Store) Create(p CreateParams) (*models.Thread, error) {
	if p.ThreadID == "" {
		return nil, apperrors.MissingField("thread_id")
	}
	if p.OriginalQuestion == "" {
		return nil, apperrors.MissingField("original_question")
	}

	unlock := s.lockThread(p.ThreadID)
	defer unlock()

	if s.exists(p.ThreadID) {
		return nil, fmt.Errorf("create %s: %w", p.ThreadID, apperrors.ErrDuplicateThread)
	}

	constraints := p.Constraints
	if len(constraints) > maxConstraints {
		constraints = constraints[:maxConstraints]
	}
	if constraints == nil {
		constraints = []string{}
	}

	meta := p.Metadata
	if meta.TopicDomain == "" {
		meta.TopicDomain = "philosophy_of_mind"
	}
	if meta.ComplexityScore == 0 {
		meta.ComplexityScore = 5
	}

	now := s.now().Unix()
	thread := &models.Thread{
		ThreadID:          p.ThreadID,
		State:             models.StateInitiated,
		CreatedAt:         now,
		LastActivity:      now,
		ExchangeCount:     0,
		Participants:      []string{},
		ArchetypesEngaged: []string{},
		OriginalQuestion:  p.OriginalQuestion,
		Constraints:       constraints,
		SynthesisChain:    []models.SynthesisEntry{},
		TargetMetrics:     s.targets,
		Metadata:          meta,
	}

	if err := s.save(thread); err != nil {
		return nil, err
	}
	return thread, nil
}

func (s *Store) exists(id string) bool {
	if _, err := os.Stat(s.threadPath(id, false)); err == nil {
		return true
	}
	if _, err := os.Stat(s.threadPath(id, true)); err == nil {
		return true
	}
	return false
}

// save overwrites the thread's persisted record in the partition matching
// its state.
func (s *Store) save(thread *models.Thread) error {
	path := s.threadPath(thread.ThreadID, thread.State == models.StateArchived)

	data, err := json.MarshalIndent(thread, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode thread %s: %w", thread.ThreadID, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.Error().Err(err).Str("thread_id", thread.ThreadID).Msg("failed to save thread")
		return fmt.Errorf("failed to save thread %s: %w", thread.ThreadID, err)
	}
	return nil
}

// Get returns the thread for id, checking the active partition first and
// then the archived one.
func (s *Store) Get(id string) (*models.Thread, error) {
	for _, archived := range []bool{false, true} {
		thread, err := s.read(s.threadPath(id, archived))
		if err == nil {
			return thread, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return nil, apperrors.ThreadNotFound(id)
}

func (s *Store) read(path string) (*models.Thread, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var thread models.Thread
	if err := json.Unmarshal(data, &thread); err != nil {
		return nil, fmt.Errorf("failed to parse thread file %s: %w", path, err)
	}
	return &thread, nil
}

// ListActive returns every record in the active partition, sorted by thread
// id. Unparseable records are skipped and logged rather than failing the
// listing.
func (s *Store) ListActive() ([]*models.Thread, error) {
	entries, err := os.ReadDir(s.activeDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*models.Thread{}, nil
		}
		return nil, fmt.Errorf("failed to list active threads: %w", err)
	}

	threads := make([]*models.Thread, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		thread, err := s.read(filepath.Join(s.activeDir, entry.Name()))
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("failed to parse thread file")
			continue
		}
		threads = append(threads, thread)
	}

	sort.Slice(threads, func(i, j int) bool {
		return threads[i].ThreadID < threads[j].ThreadID
	})
	return threads, nil
}

// ExchangeParams are the inputs for recording a participant contribution.
type ExchangeParams struct {
	Author    string
	Content   string
	Archetype string
}

// RecordExchange registers a new participant contribution: bumps the
// exchange count and activity timestamp, tracks the author and archetype,
// resets the consecutive-orchestrator-post counter, and moves initiated or
// stalled threads back to active.
func (s *Store) RecordExchange(id string, p ExchangeParams) (*models.Thread, error) {
	if p.Author == "" {
		return nil, apperrors.MissingField("author")
	}
	if p.Content == "" {
		return nil, apperrors.MissingField("content")
	}

	unlock := s.lockThread(id)
	defer unlock()

	thread, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	thread.ExchangeCount++
	thread.LastActivity = s.now().Unix()

	if !thread.HasParticipant(p.Author) {
		thread.Participants = append(thread.Participants, p.Author)
	}
	if p.Archetype != "" && !thread.HasArchetype(p.Archetype) {
		thread.ArchetypesEngaged = append(thread.ArchetypesEngaged, p.Archetype)
	}

	thread.OrchestratorPosts = 0

	if thread.State == models.StateInitiated || thread.State == models.StateStalled {
		thread.State = models.StateActive
	}

	if err := s.save(thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// SynthesisParams are the inputs for recording an orchestrator turn.
type SynthesisParams struct {
	Synthesis   string
	Tension     string
	Propagation string
	Author      string
}

// RecordSynthesis appends an orchestrator-generated STP entry to the chain
// and counts it as an exchange.
func (s *Store) RecordSynthesis(id string, p SynthesisParams) (*models.Thread, error) {
	unlock := s.lockThread(id)
	defer unlock()

	thread, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	author := p.Author
	if author == "" {
		author = "orchestrator"
	}

	now := s.now().Unix()
	thread.SynthesisChain = append(thread.SynthesisChain, models.SynthesisEntry{
		ExchangeNumber: thread.ExchangeCount + 1,
		Synthesis:      p.Synthesis,
		Tension:        p.Tension,
		Propagation:    p.Propagation,
		Author:         author,
		Timestamp:      now,
	})

	thread.ExchangeCount++
	thread.LastActivity = now
	thread.OrchestratorPosts++

	if err := s.save(thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// MarkStalled transitions the thread to stalled and increments its stall
// counter.
func (s *Store) MarkStalled(id string) (*models.Thread, error) {
	unlock := s.lockThread(id)
	defer unlock()

	thread, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	thread.State = models.StateStalled
	thread.StallCount++

	if err := s.save(thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// MarkCompleted transitions the thread to the terminal completed state.
func (s *Store) MarkCompleted(id string) (*models.Thread, error) {
	unlock := s.lockThread(id)
	defer unlock()

	thread, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	thread.State = models.StateCompleted
	thread.Metadata.CompletionTimestamp = s.now().Unix()

	if err := s.save(thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// Archive moves the thread to the archived partition and removes the
// active copy. Archival is irreversible.
func (s *Store) Archive(id string) (*models.Thread, error) {
	unlock := s.lockThread(id)
	defer unlock()

	thread, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	thread.State = models.StateArchived
	thread.Metadata.ArchivedTimestamp = s.now().Unix()

	if err := s.save(thread); err != nil {
		return nil, err
	}

	if err := os.Remove(s.threadPath(id, false)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Str("thread_id", id).Msg("failed to remove active thread file")
	}

	s.logger.Info().Str("thread_id", id).Msg("thread archived")
	return thread, nil
}

// RecordProbe updates the thread's last probe type and appends an immutable
// probe event record to the probe log.
func (s *Store) RecordProbe(id string, kind models.ProbeKind) (*models.Thread, error) {
	unlock := s.lockThread(id)
	defer unlock()

	thread, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	thread.LastProbeType = kind

	now := s.now()
	event := models.ProbeEvent{
		ID:         uuid.NewString(),
		ThreadID:   id,
		ProbeType:  kind,
		Timestamp:  now.Unix(),
		StallCount: thread.StallCount,
	}

	data, err := json.MarshalIndent(event, "", "  ")
	if err == nil {
		probePath := filepath.Join(s.probesDir, fmt.Sprintf("probe-%s-%d.json", id, now.UnixMilli()))
		if writeErr := os.WriteFile(probePath, data, 0644); writeErr != nil {
			s.logger.Warn().Err(writeErr).Str("thread_id", id).Msg("failed to save probe record")
		}
	}

	if err := s.save(thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// ProbeEvents returns the recorded probe events for a thread, ordered by
// generation time.
func (s *Store) ProbeEvents(id string) ([]models.ProbeEvent, error) {
	entries, err := os.ReadDir(s.probesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.ProbeEvent{}, nil
		}
		return nil, fmt.Errorf("failed to list probe events: %w", err)
	}

	names := make([]string, 0, len(entries))
	prefix := "probe-" + id + "-"
	for _, entry := range entries {
		if !entry.IsDir() && len(entry.Name()) > len(prefix) && entry.Name()[:len(prefix)] == prefix {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	events := make([]models.ProbeEvent, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.probesDir, name))
		if err != nil {
			continue
		}
		var event models.ProbeEvent
		if err := json.Unmarshal(data, &event); err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("failed to parse probe record")
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Stats aggregates engagement figures over the active partition.
type Stats struct {
	TotalActive          int                        `json:"total_active"`
	ByState              map[models.ThreadState]int `json:"by_state"`
	TotalExchanges       int                        `json:"total_exchanges"`
	AvgEngagementQuality float64                    `json:"avg_engagement_quality"`
	SuccessfulThreads    int                        `json:"successful_threads"`
}

// Stats computes aggregate statistics over the active partition.
func (s *Store) Stats() (*Stats, error) {
	threads, err := s.ListActive()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalActive: len(threads),
		ByState:     make(map[models.ThreadState]int),
	}

	var qualitySum float64
	for _, thread := range threads {
		stats.ByState[thread.State]++
		stats.TotalExchanges += thread.ExchangeCount
		qualitySum += thread.Metadata.EngagementQuality
		if thread.MeetsTargets() {
			stats.SuccessfulThreads++
		}
	}

	if len(threads) > 0 {
		stats.AvgEngagementQuality = qualitySum / float64(len(threads))
	}
	return stats, nil
}
