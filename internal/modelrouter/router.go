// Package modelrouter decides which chat backend serves a request and
// executes completions with a configured fallback chain. Routing rules come
// from configuration; their condition expressions are compiled once at
// construction so malformed rules fail startup instead of misrouting.
package modelrouter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/moltbot/philosopher/internal/apperrors"
	"github.com/moltbot/philosopher/internal/cache"
	"github.com/moltbot/philosopher/internal/config"
)

const (
	completionTemperature = 0.7
	completionMaxTokens   = 4000
	veniceTimeout         = 60 * time.Second
	// The kimi thinking model can run long.
	kimiTimeout = 120 * time.Second
)

// Decision is one routing outcome.
type Decision struct {
	Model   string `json:"model"`
	Backend string `json:"backend"`
	Reason  string `json:"reason"`
}

// Params are the tool parameters that feed condition evaluation.
type Params struct {
	ProblemDescription string   `json:"problem_description"`
	FocusTraditions    []string `json:"focus_traditions"`
	Complexity         string   `json:"complexity"`
	HighStakes         bool     `json:"high_stakes"`
	Styles             []string `json:"styles"`
	Participants       []string `json:"participants"`
}

// Message is one chat turn for a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResult is the outcome of an executed completion.
type CompletionResult struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Cached  bool   `json:"cached,omitempty"`
}

type compiledOverride struct {
	cond   Condition
	model  string
	reason string
}

type compiledTool struct {
	defaultModel string
	overrides    []compiledOverride
}

// Router routes and executes completion requests.
type Router struct {
	cfg      config.RouterConfig
	backends config.GenerationConfig
	tools    map[string]compiledTool
	clients  map[string]llms.Model
	timeouts map[string]time.Duration
	cache    *cache.Cache[CompletionResult]
	logger   zerolog.Logger
}

// New compiles the routing rule tree and connects the configured backends.
func New(routerCfg config.RouterConfig, genCfg config.GenerationConfig, logger zerolog.Logger) (*Router, error) {
	r := &Router{
		cfg:      routerCfg,
		backends: genCfg,
		tools:    make(map[string]compiledTool),
		clients:  make(map[string]llms.Model),
		timeouts: map[string]time.Duration{"venice": veniceTimeout, "kimi": kimiTimeout},
		cache:    cache.New[CompletionResult](time.Hour),
		logger:   logger,
	}

	for name, tool := range routerCfg.Tools {
		compiled := compiledTool{defaultModel: tool.Default}
		for _, rule := range tool.Overrides {
			cond, err := ParseCondition(rule.Condition)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", name, err)
			}
			compiled.overrides = append(compiled.overrides, compiledOverride{
				cond:   cond,
				model:  rule.Model,
				reason: rule.Reason,
			})
		}
		r.tools[name] = compiled
	}

	if genCfg.Venice.Configured() {
		llm, err := openai.New(
			openai.WithBaseURL(genCfg.Venice.APIBase),
			openai.WithToken(genCfg.Venice.APIKey),
		)
		if err != nil {
			return nil, fmt.Errorf("error creating venice client: %w", err)
		}
		r.clients["venice"] = llm
	}
	if genCfg.Kimi.Configured() {
		llm, err := openai.New(
			openai.WithBaseURL(genCfg.Kimi.APIBase),
			openai.WithToken(genCfg.Kimi.APIKey),
		)
		if err != nil {
			return nil, fmt.Errorf("error creating kimi client: %w", err)
		}
		r.clients["kimi"] = llm
	}

	r.logger.Info().Int("tools", len(r.tools)).Msg("model router initialized")
	return r, nil
}

// EstimateTokens approximates the token count of text, at roughly four
// characters per token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// Route determines the model for a request. Precedence: tool override
// conditions, very-long-context reasoning, long-context premium for the
// deep tools, persona preference, tool default, global default.
func (r *Router) Route(tool string, params Params, contextText, persona string) Decision {
	contextLength := EstimateTokens(contextText)

	toolCfg, ok := r.tools[tool]
	if !ok {
		r.logger.Warn().Str("tool", tool).Msg("no routing config for tool, using default")
		return r.decision(r.cfg.DefaultModel, "default_fallback")
	}

	ec := EvalContext{
		Tool:               tool,
		Persona:            persona,
		ContextLength:      contextLength,
		ProblemDescription: params.ProblemDescription,
		FocusTraditions:    params.FocusTraditions,
		Complexity:         params.Complexity,
		HighStakes:         params.HighStakes,
		Styles:             params.Styles,
		Participants:       params.Participants,
	}

	for _, override := range toolCfg.overrides {
		if override.cond.Eval(ec) {
			r.logger.Debug().Str("tool", tool).Str("model", override.model).Str("reason", override.reason).Msg("override condition matched")
			return r.decision(override.model, "override:"+override.reason)
		}
	}

	if contextLength > r.cfg.Thresholds.VeryLongContext {
		return r.decision(r.backends.Kimi.Reasoning, "very_long_context")
	}

	if contextLength > r.cfg.Thresholds.LongContext {
		if tool == "inner_dialogue" || tool == "style_transform" {
			return r.decision(r.backends.Venice.Premium, "long_context_premium")
		}
	}

	if persona != "" {
		if personaCfg, ok := r.cfg.Personas[persona]; ok {
			if (tool == "inner_dialogue" || tool == "map_thinkers") && personaCfg.ReasoningModel != "" {
				return r.decision(personaCfg.ReasoningModel, "persona:"+persona)
			}
			if personaCfg.PreferredModel != "" {
				return r.decision(personaCfg.PreferredModel, "persona:"+persona)
			}
		}
	}

	return r.decision(toolCfg.defaultModel, "tool_default")
}

// decision resolves the backend from the model's namespace prefix.
func (r *Router) decision(model, reason string) Decision {
	backend := "kimi"
	if strings.HasPrefix(model, "venice/") {
		backend = "venice"
	}
	return Decision{Model: model, Backend: backend, Reason: reason}
}

// Complete routes and executes a completion. Cacheable tools are served
// from and stored to the TTL cache; on backend failure the fallback chain
// is walked with a single attempt per distinct model.
func (r *Router) Complete(ctx context.Context, tool string, params Params, contextText, persona string, messages []Message) (*CompletionResult, Decision, error) {
	key := cacheKey(tool, params, messages)
	cacheable := r.isCacheable(tool)

	if cacheable {
		if hit, ok := r.cache.Get(key); ok {
			r.logger.Debug().Str("tool", tool).Msg("completion cache hit")
			hit.Cached = true
			return &hit, r.decision(hit.Model, "cache"), nil
		}
	}

	decision := r.Route(tool, params, contextText, persona)

	result, err := r.execute(ctx, decision, messages)
	if err != nil {
		r.logger.Error().Err(err).Str("model", decision.Model).Str("backend", decision.Backend).Msg("completion execution failed")
		result, err = r.executeFallback(ctx, decision, messages)
		if err != nil {
			return nil, decision, err
		}
	}

	if cacheable {
		r.cache.Set(key, *result, r.cacheTTL(tool))
	}
	return result, decision, nil
}

func (r *Router) execute(ctx context.Context, decision Decision, messages []Message) (*CompletionResult, error) {
	llm, ok := r.clients[decision.Backend]
	if !ok {
		return nil, apperrors.Upstream(decision.Backend, fmt.Errorf("backend not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeouts[decision.Backend])
	defer cancel()

	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(messageRole(msg.Role), msg.Content))
	}

	model := strings.TrimPrefix(decision.Model, "venice/")
	resp, err := llm.GenerateContent(ctx, content,
		llms.WithModel(model),
		llms.WithTemperature(completionTemperature),
		llms.WithMaxTokens(completionMaxTokens),
	)
	if err != nil {
		return nil, apperrors.Upstream(decision.Backend, err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.Upstream(decision.Backend, fmt.Errorf("empty completion response"))
	}

	return &CompletionResult{Content: resp.Choices[0].Content, Model: decision.Model}, nil
}

func (r *Router) executeFallback(ctx context.Context, failed Decision, messages []Message) (*CompletionResult, error) {
	for _, model := range r.cfg.FallbackChain {
		if model == failed.Model {
			continue
		}
		decision := r.decision(model, "fallback")
		r.logger.Info().Str("from", failed.Model).Str("to", model).Msg("attempting fallback")

		result, err := r.execute(ctx, decision, messages)
		if err != nil {
			r.logger.Warn().Err(err).Str("model", model).Msg("fallback failed")
			continue
		}
		return result, nil
	}
	return nil, apperrors.Upstream(failed.Backend, fmt.Errorf("all fallback models exhausted"))
}

func messageRole(role string) llms.ChatMessageType {
	switch role {
	case "system":
		return llms.ChatMessageTypeSystem
	case "assistant":
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func (r *Router) isCacheable(tool string) bool {
	_, ok := r.cfg.CacheTTLSecs[tool]
	return ok
}

func (r *Router) cacheTTL(tool string) time.Duration {
	return time.Duration(r.cfg.CacheTTLSecs[tool]) * time.Second
}

func cacheKey(tool string, params Params, messages []Message) string {
	data, _ := json.Marshal(struct {
		Tool     string    `json:"tool"`
		Params   Params    `json:"params"`
		Messages []Message `json:"messages"`
	}{tool, params, messages})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ModelCatalog summarizes the configured backends and routing rules.
type ModelCatalog struct {
	Venice struct {
		Default string `json:"default"`
		Premium string `json:"premium"`
		Utility string `json:"utility"`
	} `json:"venice"`
	Kimi struct {
		Reasoning string `json:"reasoning"`
		Fast      string `json:"fast"`
	} `json:"kimi"`
	RoutingRules []string `json:"routing_rules"`
}

// Catalog returns the model catalog for the models endpoint.
func (r *Router) Catalog() ModelCatalog {
	var c ModelCatalog
	c.Venice.Default = r.backends.Venice.Default
	c.Venice.Premium = r.backends.Venice.Premium
	c.Venice.Utility = r.backends.Venice.Utility
	c.Kimi.Reasoning = r.backends.Kimi.Reasoning
	c.Kimi.Fast = r.backends.Kimi.Fast
	c.RoutingRules = make([]string, 0, len(r.tools))
	for name := range r.tools {
		c.RoutingRules = append(c.RoutingRules, name)
	}
	sort.Strings(c.RoutingRules)
	return c
}
