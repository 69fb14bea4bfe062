package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/moltbot/philosopher/internal/apperrors"
	"github.com/moltbot/philosopher/internal/identity"
	"github.com/moltbot/philosopher/internal/modelrouter"
)

type routeRequest struct {
	Tool    string             `json:"tool"`
	Params  modelrouter.Params `json:"params"`
	Context string             `json:"context"`
	Persona string             `json:"persona"`
}

func (s *Server) route(c echo.Context) error {
	var req routeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.Validation("body", "malformed JSON"))
	}
	if req.Tool == "" {
		return writeError(c, apperrors.MissingField("tool"))
	}

	decision := s.deps.Router.Route(req.Tool, req.Params, req.Context, req.Persona)
	return c.JSON(http.StatusOK, map[string]any{
		"tool":     req.Tool,
		"decision": decision,
	})
}

type completeRequest struct {
	Tool     string                `json:"tool"`
	Params   modelrouter.Params    `json:"params"`
	Context  string                `json:"context"`
	Persona  string                `json:"persona"`
	Messages []modelrouter.Message `json:"messages"`
}

type completeResponse struct {
	Content  string               `json:"content"`
	Model    string               `json:"model"`
	Cached   bool                 `json:"cached,omitempty"`
	Decision modelrouter.Decision `json:"decision"`
	Agent    string               `json:"agent,omitempty"`
}

func (s *Server) complete(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.Validation("body", "malformed JSON"))
	}
	if req.Tool == "" {
		return writeError(c, apperrors.MissingField("tool"))
	}
	if len(req.Messages) == 0 {
		return writeError(c, apperrors.MissingField("messages"))
	}

	result, decision, err := s.deps.Router.Complete(c.Request().Context(), req.Tool, req.Params, req.Context, req.Persona, req.Messages)
	if err != nil {
		return writeError(c, err)
	}

	resp := completeResponse{
		Content:  result.Content,
		Model:    result.Model,
		Cached:   result.Cached,
		Decision: decision,
	}
	if agent, ok := identity.AgentFrom(c); ok {
		resp.Agent = agent.Name
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) models(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Router.Catalog())
}

func (s *Server) authInstructions(c echo.Context) error {
	endpoint := c.Scheme() + "://" + c.Request().Host + "/complete"
	return c.JSON(http.StatusOK, map[string]any{
		"app":              "MoltbotPhilosopher",
		"audience":         s.cfg.Identity.Audience,
		"header":           identity.HeaderIdentity,
		"instructions_url": identity.AuthInstructionsURL(endpoint),
	})
}

func (s *Server) profile(c echo.Context) error {
	if agent, ok := identity.AgentFrom(c); ok {
		return c.JSON(http.StatusOK, map[string]any{
			"authenticated": true,
			"agent":         agent,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"authenticated": false,
		"agent":         nil,
		"hint":          "Include " + identity.HeaderIdentity + " header to identify yourself",
	})
}
