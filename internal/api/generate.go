package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/moltbot/philosopher/internal/apperrors"
	"github.com/moltbot/philosopher/internal/generation"
)

// ipLimiter enforces a per-client-IP request budget on the generation
// boundary. Limiters are kept for the process lifetime; the client set is
// small (agents, not the public internet).
type ipLimiter struct {
	perMinute int

	mu      sync.Mutex
	clients map[string]*rate.Limiter
}

func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &ipLimiter{
		perMinute: perMinute,
		clients:   make(map[string]*rate.Limiter),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	limiter, ok := l.clients[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
		l.clients[ip] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

type generateResponse struct {
	Title         string `json:"title,omitempty"`
	Content       string `json:"content"`
	Provider      string `json:"provider"`
	Persona       string `json:"persona"`
	ContentType   string `json:"contentType"`
	Fallback      bool   `json:"fallback,omitempty"`
	FallbackCause string `json:"fallbackCause,omitempty"`
}

func (s *Server) generate(c echo.Context) error {
	if !s.limiter.allow(c.RealIP()) {
		return writeError(c, &apperrors.RateLimitError{RetryAfter: time.Minute})
	}

	var req generation.Request
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.Validation("body", "malformed JSON"))
	}

	result, err := s.deps.Generator.Generate(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, generateResponse{
		Title:         result.Title,
		Content:       result.Content,
		Provider:      result.Provider,
		Persona:       result.Persona,
		ContentType:   result.ContentType,
		Fallback:      result.Fallback,
		FallbackCause: result.FallbackCause,
	})
}

func (s *Server) personas(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"personas": generation.Personas(),
	})
}

func (s *Server) contentTypes(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"contentTypes": generation.ContentTypes(),
	})
}
