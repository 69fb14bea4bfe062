// Package identity implements "Sign in with Moltbook" verification for
// agent requests: token verification against the Moltbook API with a short
// cache, plus echo middleware that attaches the verified agent to the
// request context.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/moltbot/philosopher/internal/cache"
	"github.com/moltbot/philosopher/internal/config"
)

const (
	// HeaderIdentity carries the agent's Moltbook identity token.
	HeaderIdentity = "X-Moltbook-Identity"
	headerAppKey   = "X-Moltbook-App-Key"

	verifyTimeout = 10 * time.Second
	tokenURL      = "https://moltbook.com/api/v1/agents/me/identity-token"
)

// Error codes surfaced to clients.
const (
	CodeNoToken           = "NO_IDENTITY_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeAudienceMismatch  = "AUDIENCE_MISMATCH"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeVerificationError = "VERIFICATION_ERROR"
)

// Agent is the verified Moltbook agent attached to authenticated requests.
type Agent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle,omitempty"`
	Karma  int    `json:"karma,omitempty"`
}

// VerifyError is a failed verification with its client-facing code.
type VerifyError struct {
	Code   string
	Reason string
	Hint   string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("identity verification failed (%s): %s", e.Code, e.Reason)
}

// Verifier verifies identity tokens against the Moltbook API.
type Verifier struct {
	apiBase  string
	appKey   string
	audience string
	client   *http.Client
	cache    *cache.Cache[Agent]
	logger   zerolog.Logger
}

// NewVerifier creates a verifier. Successful verifications are cached for
// the configured TTL to avoid hammering the Moltbook API.
func NewVerifier(cfg config.IdentityConfig, logger zerolog.Logger) *Verifier {
	ttl := cfg.CacheTTL()
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Verifier{
		apiBase:  cfg.APIBase,
		appKey:   cfg.AppKey,
		audience: cfg.Audience,
		client:   &http.Client{Timeout: verifyTimeout},
		cache:    cache.New[Agent](ttl),
		logger:   logger,
	}
}

type verifyRequest struct {
	Token    string `json:"token"`
	Audience string `json:"audience"`
}

type verifyResponse struct {
	Valid bool   `json:"valid"`
	Agent Agent  `json:"agent"`
	Error string `json:"error"`
	Code  string `json:"code"`
	Hint  string `json:"hint"`
}

// Verify checks the token with Moltbook and returns the verified agent.
// Tokens are opaque; all interpretation happens server-side.
func (v *Verifier) Verify(ctx context.Context, token string) (*Agent, error) {
	if agent, ok := v.cache.Get(token); ok {
		return &agent, nil
	}

	if v.appKey == "" {
		return nil, &VerifyError{Code: CodeVerificationError, Reason: "app key not configured"}
	}

	body, err := json.Marshal(verifyRequest{Token: token, Audience: v.audience})
	if err != nil {
		return nil, &VerifyError{Code: CodeVerificationError, Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.apiBase+"/agents/verify-identity", bytes.NewReader(body))
	if err != nil {
		return nil, &VerifyError{Code: CodeVerificationError, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAppKey, v.appKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, &VerifyError{Code: CodeVerificationError, Reason: err.Error()}
	}
	defer resp.Body.Close()

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &VerifyError{Code: CodeVerificationError, Reason: "malformed verification response"}
	}

	if !result.Valid {
		return nil, v.rejection(result, resp.StatusCode)
	}

	v.cache.Set(token, result.Agent, 0)
	return &result.Agent, nil
}

// rejection maps Moltbook's rejection codes onto the client-facing set.
func (v *Verifier) rejection(result verifyResponse, status int) *VerifyError {
	reason := result.Error
	if reason == "" {
		reason = "invalid identity token"
	}

	switch result.Code {
	case "identity_token_expired":
		return &VerifyError{
			Code:   CodeTokenExpired,
			Reason: "identity token has expired",
			Hint:   "Generate a new token at " + tokenURL,
		}
	case "audience_mismatch":
		return &VerifyError{
			Code:   CodeAudienceMismatch,
			Reason: "token audience mismatch",
			Hint:   "This token was issued for a different service. Request a token with audience: " + v.audience,
		}
	}

	if result.Code == "INVALID_TOKEN" || status == http.StatusUnauthorized || status == http.StatusOK {
		hint := result.Hint
		if hint == "" {
			hint = "Check your token and try again"
		}
		return &VerifyError{Code: CodeInvalidToken, Reason: reason, Hint: hint}
	}

	return &VerifyError{Code: CodeVerificationError, Reason: reason, Hint: "Please try again later"}
}

// AuthInstructionsURL returns the bot-readable sign-in instructions URL for
// a protected endpoint.
func AuthInstructionsURL(endpoint string) string {
	return "https://moltbook.com/auth.md?app=MoltbotPhilosopher&endpoint=" + url.QueryEscape(endpoint)
}
