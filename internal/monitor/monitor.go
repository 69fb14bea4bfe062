// Package monitor runs the thread lifecycle loop: on each tick it sweeps
// the active partition, promotes threads that reached their success
// targets, archives dead threads, and marks silent threads stalled with an
// automatic re-engagement probe.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/moltbot/philosopher/internal/config"
	"github.com/moltbot/philosopher/internal/continuation"
	"github.com/moltbot/philosopher/internal/notify"
	"github.com/moltbot/philosopher/internal/threadstore"
	"github.com/moltbot/philosopher/pkg/models"
)

// ProbeSource generates re-engagement probes for stalled threads.
type ProbeSource interface {
	Generate(ctx context.Context, thread *models.Thread, kind models.ProbeKind) *continuation.Probe
}

// Notifier forwards operational notifications. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, t notify.Type, title, message string, meta notify.Metadata) notify.Result
}

// Monitor is the periodic lifecycle sweeper.
type Monitor struct {
	store    *threadstore.Store
	probes   ProbeSource
	notifier Notifier
	cfg      config.MonitorConfig
	logger   zerolog.Logger

	now func() time.Time
}

// New creates a monitor. notifier may be nil.
func New(store *threadstore.Store, probes ProbeSource, notifier Notifier, cfg config.MonitorConfig, logger zerolog.Logger) *Monitor {
	return &Monitor{
		store:    store,
		probes:   probes,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes an immediate tick and then sweeps on the configured
// interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info().
		Dur("check_interval", m.cfg.CheckInterval()).
		Dur("stall_threshold", m.cfg.StallThreshold()).
		Bool("enable_probes", m.cfg.EnableProbes).
		Msg("thread monitor started")

	m.Tick(ctx)

	ticker := time.NewTicker(m.cfg.CheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("thread monitor stopped")
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one monitoring sweep. Threads are evaluated sequentially;
// per-thread failures are logged and do not abort the sweep.
func (m *Monitor) Tick(ctx context.Context) {
	m.logger.Debug().Msg("starting thread monitoring cycle")

	threads, err := m.store.ListActive()
	if err != nil {
		m.logger.Error().Err(err).Msg("monitoring cycle failed to list threads")
		return
	}

	for _, thread := range threads {
		m.evaluate(ctx, thread)
	}

	m.logger.Debug().Int("threads_checked", len(threads)).Msg("thread monitoring cycle complete")
}

// evaluate applies the lifecycle checks to one thread. Completion is
// checked before death so a thread that met its targets is never archived
// by the same sweep that could have completed it.
func (m *Monitor) evaluate(ctx context.Context, thread *models.Thread) {
	if thread.State == models.StateCompleted {
		return
	}

	if thread.MeetsTargets() {
		m.logger.Info().Str("thread_id", thread.ThreadID).Msg("thread reached success criteria")
		if _, err := m.store.MarkCompleted(thread.ThreadID); err != nil {
			m.logger.Error().Err(err).Str("thread_id", thread.ThreadID).Msg("failed to mark thread completed")
			return
		}
		m.send(ctx, notify.TypeAction, "Thread completed",
			"Thread "+thread.ThreadID+" reached its success criteria.")
		return
	}

	sinceActivity := m.now().Sub(time.Unix(thread.LastActivity, 0))

	if sinceActivity > m.cfg.DeathThreshold() && thread.StallCount >= m.cfg.MaxStallCount {
		m.logger.Info().Str("thread_id", thread.ThreadID).Msg("archiving dead thread")
		if _, err := m.store.Archive(thread.ThreadID); err != nil {
			m.logger.Error().Err(err).Str("thread_id", thread.ThreadID).Msg("failed to archive thread")
			return
		}
		m.send(ctx, notify.TypeAction, "Thread archived",
			"Thread "+thread.ThreadID+" was archived after prolonged inactivity.")
		return
	}

	if sinceActivity > m.cfg.StallThreshold() && thread.State != models.StateStalled {
		m.logger.Info().
			Str("thread_id", thread.ThreadID).
			Int("stall_count", thread.StallCount+1).
			Msg("thread stalled")

		stalled, err := m.store.MarkStalled(thread.ThreadID)
		if err != nil {
			m.logger.Error().Err(err).Str("thread_id", thread.ThreadID).Msg("failed to mark thread stalled")
			return
		}

		if m.cfg.EnableProbes && thread.StallCount < m.cfg.MaxStallCount {
			probe := m.probes.Generate(ctx, stalled, "")
			if _, err := m.store.RecordProbe(thread.ThreadID, probe.Kind); err != nil {
				m.logger.Error().Err(err).Str("thread_id", thread.ThreadID).Msg("failed to record probe")
				return
			}
			m.logger.Info().
				Str("thread_id", thread.ThreadID).
				Str("probe_type", string(probe.Kind)).
				Msg("auto-generated probe for stalled thread")
		}
	}
}

func (m *Monitor) send(ctx context.Context, t notify.Type, title, message string) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(ctx, t, title, message, notify.Metadata{SourceScript: "thread-monitor"})
}
