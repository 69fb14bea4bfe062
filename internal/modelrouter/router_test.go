package modelrouter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/moltbot/philosopher/internal/apperrors"
	"github.com/moltbot/philosopher/internal/config"
)

type fakeModel struct {
	response string
	err      error
	calls    int
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.response}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	f.calls++
	return f.response, f.err
}

func testRouterConfig() config.RouterConfig {
	cfg := config.RouterConfig{
		DefaultModel:  "venice/llama-3.3-70b",
		FallbackChain: []string{"venice/llama-3.3-70b", "kimi-k2-0711-preview"},
		Tools: map[string]config.ToolRouting{
			"inner_dialogue": {
				Default: "kimi-k2-thinking",
				Overrides: []config.OverrideRule{
					{Condition: "thread_length > 2000", Model: "kimi-k2-thinking", Reason: "deep_context"},
				},
			},
			"style_transform": {Default: "venice/llama-3.3-70b"},
			"map_thinkers":    {Default: "venice/qwen-2.5-7b"},
		},
		Personas: map[string]config.PersonaRouting{
			"socratic": {PreferredModel: "venice/llama-3.3-70b", ReasoningModel: "kimi-k2-thinking"},
		},
		CacheTTLSecs: map[string]int{"map_thinkers": 3600},
	}
	cfg.Thresholds.LongContext = 1000
	cfg.Thresholds.VeryLongContext = 3000
	return cfg
}

func testBackendsConfig() config.GenerationConfig {
	return config.GenerationConfig{
		Venice: config.BackendConfig{Default: "venice/llama-3.3-70b", Premium: "venice/llama-3.1-405b", Utility: "venice/qwen-2.5-7b"},
		Kimi:   config.BackendConfig{Reasoning: "kimi-k2-thinking", Fast: "kimi-k2-0711-preview"},
	}
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	r, err := New(testRouterConfig(), testBackendsConfig(), zerolog.Nop())
	require.NoError(t, err)
	return r
}

func TestNewRejectsMalformedCondition(t *testing.T) {
	cfg := testRouterConfig()
	cfg.Tools["bad"] = config.ToolRouting{
		Default:   "venice/llama-3.3-70b",
		Overrides: []config.OverrideRule{{Condition: "nonsense_field > 1", Model: "x", Reason: "y"}},
	}

	_, err := New(cfg, testBackendsConfig(), zerolog.Nop())
	assert.Error(t, err)
}

func TestRoute(t *testing.T) {
	r := newTestRouter(t)

	t.Run("UnknownToolUsesGlobalDefault", func(t *testing.T) {
		d := r.Route("no_such_tool", Params{}, "", "")
		assert.Equal(t, "venice/llama-3.3-70b", d.Model)
		assert.Equal(t, "venice", d.Backend)
		assert.Equal(t, "default_fallback", d.Reason)
	})

	t.Run("OverrideConditionWinsFirst", func(t *testing.T) {
		longContext := strings.Repeat("x", 9000) // ~2250 tokens
		d := r.Route("inner_dialogue", Params{}, longContext, "")
		assert.Equal(t, "kimi-k2-thinking", d.Model)
		assert.Equal(t, "override:deep_context", d.Reason)
	})

	t.Run("VeryLongContextRoutesToReasoning", func(t *testing.T) {
		veryLong := strings.Repeat("x", 13000) // ~3250 tokens
		d := r.Route("style_transform", Params{}, veryLong, "")
		assert.Equal(t, "kimi-k2-thinking", d.Model)
		assert.Equal(t, "kimi", d.Backend)
		assert.Equal(t, "very_long_context", d.Reason)
	})

	t.Run("LongContextPremiumForDeepTools", func(t *testing.T) {
		long := strings.Repeat("x", 6000) // ~1500 tokens
		d := r.Route("style_transform", Params{}, long, "")
		assert.Equal(t, "venice/llama-3.1-405b", d.Model)
		assert.Equal(t, "long_context_premium", d.Reason)

		// Non-premium tools at the same length fall through.
		d = r.Route("map_thinkers", Params{}, long, "")
		assert.Equal(t, "venice/qwen-2.5-7b", d.Model)
	})

	t.Run("PersonaReasoningModelForReasoningTools", func(t *testing.T) {
		d := r.Route("map_thinkers", Params{}, "", "socratic")
		assert.Equal(t, "kimi-k2-thinking", d.Model)
		assert.Equal(t, "persona:socratic", d.Reason)
	})

	t.Run("PersonaPreferredModelOtherwise", func(t *testing.T) {
		d := r.Route("style_transform", Params{}, "", "socratic")
		assert.Equal(t, "venice/llama-3.3-70b", d.Model)
		assert.Equal(t, "persona:socratic", d.Reason)
	})

	t.Run("ToolDefault", func(t *testing.T) {
		d := r.Route("inner_dialogue", Params{}, "", "")
		assert.Equal(t, "kimi-k2-thinking", d.Model)
		assert.Equal(t, "kimi", d.Backend)
		assert.Equal(t, "tool_default", d.Reason)
	})
}

func TestComplete(t *testing.T) {
	messages := []Message{{Role: "user", Content: "What is virtue?"}}

	t.Run("ExecutesAgainstRoutedBackend", func(t *testing.T) {
		r := newTestRouter(t)
		venice := &fakeModel{response: "Virtue is a habit."}
		r.clients["venice"] = venice

		result, decision, err := r.Complete(context.Background(), "style_transform", Params{}, "", "", messages)
		require.NoError(t, err)
		assert.Equal(t, "Virtue is a habit.", result.Content)
		assert.Equal(t, "venice/llama-3.3-70b", result.Model)
		assert.Equal(t, "tool_default", decision.Reason)
		assert.Equal(t, 1, venice.calls)
	})

	t.Run("WalksFallbackChain", func(t *testing.T) {
		r := newTestRouter(t)
		r.clients["kimi"] = &fakeModel{err: errors.New("kimi down")}
		venice := &fakeModel{response: "Fallback answer."}
		r.clients["venice"] = venice

		result, _, err := r.Complete(context.Background(), "inner_dialogue", Params{}, "", "", messages)
		require.NoError(t, err)
		assert.Equal(t, "Fallback answer.", result.Content)
		assert.Equal(t, "venice/llama-3.3-70b", result.Model)
		assert.Equal(t, 1, venice.calls)
	})

	t.Run("AllBackendsExhausted", func(t *testing.T) {
		r := newTestRouter(t)
		r.clients["kimi"] = &fakeModel{err: errors.New("kimi down")}
		r.clients["venice"] = &fakeModel{err: errors.New("venice down")}

		_, _, err := r.Complete(context.Background(), "inner_dialogue", Params{}, "", "", messages)
		require.Error(t, err)
		assert.True(t, apperrors.IsUpstream(err))
	})

	t.Run("UnconfiguredBackend", func(t *testing.T) {
		r := newTestRouter(t)

		_, _, err := r.Complete(context.Background(), "style_transform", Params{}, "", "", messages)
		require.Error(t, err)
		assert.True(t, apperrors.IsUpstream(err))
	})

	t.Run("CacheableToolServedFromCache", func(t *testing.T) {
		r := newTestRouter(t)
		venice := &fakeModel{response: "Mapped thinkers."}
		r.clients["venice"] = venice

		first, _, err := r.Complete(context.Background(), "map_thinkers", Params{}, "", "", messages)
		require.NoError(t, err)
		assert.False(t, first.Cached)

		second, decision, err := r.Complete(context.Background(), "map_thinkers", Params{}, "", "", messages)
		require.NoError(t, err)
		assert.True(t, second.Cached)
		assert.Equal(t, first.Content, second.Content)
		assert.Equal(t, "cache", decision.Reason)
		assert.Equal(t, 1, venice.calls, "second request must not reach the backend")

		// A different request misses.
		_, _, err = r.Complete(context.Background(), "map_thinkers", Params{}, "", "", []Message{{Role: "user", Content: "Different."}})
		require.NoError(t, err)
		assert.Equal(t, 2, venice.calls)
	})

	t.Run("NonCacheableToolAlwaysExecutes", func(t *testing.T) {
		r := newTestRouter(t)
		venice := &fakeModel{response: "x"}
		r.clients["venice"] = venice

		for i := 0; i < 2; i++ {
			_, _, err := r.Complete(context.Background(), "style_transform", Params{}, "", "", messages)
			require.NoError(t, err)
		}
		assert.Equal(t, 2, venice.calls)
	})
}

func TestCatalog(t *testing.T) {
	r := newTestRouter(t)

	catalog := r.Catalog()
	assert.Equal(t, "venice/llama-3.3-70b", catalog.Venice.Default)
	assert.Equal(t, "venice/llama-3.1-405b", catalog.Venice.Premium)
	assert.Equal(t, "kimi-k2-thinking", catalog.Kimi.Reasoning)
	assert.Equal(t, []string{"inner_dialogue", "map_thinkers", "style_transform"}, catalog.RoutingRules)
}
