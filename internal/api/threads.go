package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/moltbot/philosopher/internal/apperrors"
	"github.com/moltbot/philosopher/internal/continuation"
	"github.com/moltbot/philosopher/internal/threadstore"
	"github.com/moltbot/philosopher/pkg/models"
)

type createThreadRequest struct {
	ThreadID         string   `json:"thread_id"`
	OriginalQuestion string   `json:"original_question"`
	Constraints      []string `json:"constraints"`
	TopicDomain      string   `json:"topic_domain"`
	ComplexityScore  int      `json:"complexity_score"`
}

func (s *Server) createThread(c echo.Context) error {
	var req createThreadRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.Validation("body", "malformed JSON"))
	}

	thread, err := s.deps.Store.Create(threadstore.CreateParams{
		ThreadID:         req.ThreadID,
		OriginalQuestion: req.OriginalQuestion,
		Constraints:      req.Constraints,
		Metadata: models.ThreadMetadata{
			TopicDomain:     req.TopicDomain,
			ComplexityScore: req.ComplexityScore,
		},
	})
	if err != nil {
		return writeError(c, err)
	}

	s.logger.Info().Str("thread_id", thread.ThreadID).Msg("thread created")
	return c.JSON(http.StatusCreated, thread)
}

func (s *Server) listThreads(c echo.Context) error {
	threads, err := s.deps.Store.ListActive()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"threads": threads,
		"count":   len(threads),
	})
}

func (s *Server) getThread(c echo.Context) error {
	thread, err := s.deps.Store.Get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, thread)
}

func (s *Server) threadStats(c echo.Context) error {
	stats, err := s.deps.Store.Stats()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

type exchangeRequest struct {
	Author    string `json:"author"`
	Content   string `json:"content"`
	Archetype string `json:"archetype"`
}

func (s *Server) recordExchange(c echo.Context) error {
	var req exchangeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.Validation("body", "malformed JSON"))
	}

	thread, err := s.deps.Store.RecordExchange(c.Param("id"), threadstore.ExchangeParams{
		Author:    req.Author,
		Content:   req.Content,
		Archetype: req.Archetype,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, thread)
}

type continueResponse struct {
	ThreadID      string                     `json:"thread_id"`
	Scenario      models.Scenario            `json:"scenario"`
	Continuation  *continuation.Continuation `json:"continuation"`
	ExchangeCount int                        `json:"exchange_count"`
}

// continueThread detects the thread's scenario, generates an STP
// continuation, and records it as an orchestrator synthesis. Refused with
// 429 once the orchestrator has posted max_consecutive_posts turns in a
// row without a participant reply.
func (s *Server) continueThread(c echo.Context) error {
	thread, err := s.deps.Store.Get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	if thread.OrchestratorPosts >= s.cfg.Monitor.MaxConsecutivePosts {
		s.logger.Warn().
			Str("thread_id", thread.ThreadID).
			Int("orchestrator_posts", thread.OrchestratorPosts).
			Msg("consecutive post limit reached, waiting for participants")
		return writeError(c, &apperrors.RateLimitError{RetryAfter: s.cfg.Monitor.CheckInterval()})
	}

	sc := s.deps.Detector.Detect(thread, s.now())
	cont := s.deps.STP.Generate(c.Request().Context(), thread, sc)

	updated, err := s.deps.Store.RecordSynthesis(thread.ThreadID, threadstore.SynthesisParams{
		Synthesis:   cont.Synthesis,
		Tension:     cont.Tension,
		Propagation: cont.Propagation,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, continueResponse{
		ThreadID:      thread.ThreadID,
		Scenario:      sc,
		Continuation:  cont,
		ExchangeCount: updated.ExchangeCount,
	})
}

type probeRequest struct {
	ProbeType string `json:"probe_type"`
}

func (s *Server) probeThread(c echo.Context) error {
	if !s.cfg.Monitor.EnableProbes {
		return c.JSON(http.StatusForbidden, errorBody{
			Error: "Probe generation is disabled",
			Code:  "probes_disabled",
		})
	}

	var req probeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.Validation("body", "malformed JSON"))
	}

	kind := models.ProbeKind(req.ProbeType)
	if req.ProbeType != "" && !kind.Valid() {
		return writeError(c, apperrors.Validation("probe_type", "must be one of thought_experiment, conceptual_inversion, meta_question"))
	}

	thread, err := s.deps.Store.Get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	probe := s.deps.Probes.Generate(c.Request().Context(), thread, kind)
	if _, err := s.deps.Store.RecordProbe(thread.ThreadID, probe.Kind); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, probe)
}

func (s *Server) philosophers(c echo.Context) error {
	roster := continuation.Roster()
	return c.JSON(http.StatusOK, map[string]any{
		"philosophers":      roster,
		"count":             len(roster),
		"discovery_enabled": s.cfg.Monitor.EnableDiscovery,
	})
}
