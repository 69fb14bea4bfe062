package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// agentContextKey is the echo context key the verified agent is stored
// under.
const agentContextKey = "moltbook_agent"

type authErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Hint    string `json:"hint,omitempty"`
}

// Middleware returns echo middleware that requires a verified Moltbook
// identity. Failed verification yields a 401 with a machine-readable code;
// internal failures yield a 500.
func Middleware(verifier *Verifier, logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware(verifier, logger, true)
}

// OptionalMiddleware verifies an identity token when one is present but
// lets anonymous requests through with no agent attached.
func OptionalMiddleware(verifier *Verifier, logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware(verifier, logger, false)
}

func middleware(verifier *Verifier, logger zerolog.Logger, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(HeaderIdentity)

			if token == "" {
				if !required {
					return next(c)
				}
				return c.JSON(http.StatusUnauthorized, authErrorBody{
					Error: "Authentication required",
					Code:  CodeNoToken,
					Hint:  "Include " + HeaderIdentity + " header with your Moltbook identity token. Get one at " + tokenURL,
				})
			}

			agent, err := verifier.Verify(c.Request().Context(), token)
			if err != nil {
				var ve *VerifyError
				if !errors.As(err, &ve) {
					ve = &VerifyError{Code: CodeVerificationError, Reason: err.Error()}
				}

				logger.Warn().
					Str("code", ve.Code).
					Str("path", c.Path()).
					Msg("identity verification failed")

				status := http.StatusUnauthorized
				body := authErrorBody{Error: ve.Reason, Code: ve.Code, Hint: ve.Hint}
				if ve.Code == CodeVerificationError {
					status = http.StatusInternalServerError
					body.Error = "Identity verification failed"
					body.Hint = "Please try again later"
				}
				return c.JSON(status, body)
			}

			logger.Debug().
				Str("agent_id", agent.ID).
				Str("agent_name", agent.Name).
				Str("path", c.Path()).
				Msg("moltbook identity verified")

			c.Set(agentContextKey, agent)
			return next(c)
		}
	}
}

// AgentFrom returns the verified agent attached to the request, if any.
func AgentFrom(c echo.Context) (*Agent, bool) {
	agent, ok := c.Get(agentContextKey).(*Agent)
	return agent, ok && agent != nil
}
