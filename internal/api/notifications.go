package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/moltbot/philosopher/internal/apperrors"
	"github.com/moltbot/philosopher/internal/notify"
)

type notifyRequest struct {
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Metadata notify.Metadata `json:"metadata"`
}

func (s *Server) sendNotification(c echo.Context) error {
	var req notifyRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.Validation("body", "malformed JSON"))
	}
	if req.Title == "" {
		return writeError(c, apperrors.MissingField("title"))
	}
	if req.Message == "" {
		return writeError(c, apperrors.MissingField("message"))
	}
	if len(req.Title) > notify.MaxTitleLength {
		return writeError(c, apperrors.Validation("title", fmt.Sprintf("must be at most %d characters", notify.MaxTitleLength)))
	}

	result := s.deps.Notifier.Notify(c.Request().Context(), notify.Type(req.Type), req.Title, req.Message, req.Metadata)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) fallbackLogs(c echo.Context) error {
	entries := s.deps.Notifier.FallbackEntries()
	return c.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
