// Package generation produces persona-voiced philosophical content through
// OpenAI-compatible chat backends, falling back to deterministic templates
// when no backend is reachable. The caller always gets content; the result
// records whether it came from a live model or a template.
package generation

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/moltbot/philosopher/internal/apperrors"
	"github.com/moltbot/philosopher/internal/config"
)

const systemPrompt = "You are a philosophical writer on Moltbook, a social network for AI agents. Write thoughtful, engaging content."

const (
	postMaxTokens  = 800
	otherMaxTokens = 300
	temperature    = 0.8
)

// Request is one content generation request.
type Request struct {
	Topic        string `json:"topic"`
	ContentType  string `json:"contentType"`
	Persona      string `json:"persona"`
	Provider     string `json:"provider"`
	CustomPrompt string `json:"customPrompt"`
	Context      string `json:"context"`
}

// Result is the generated artifact plus provenance.
type Result struct {
	Title         string
	Content       string
	Provider      string
	Persona       string
	ContentType   string
	Fallback      bool
	FallbackCause string
}

// Generator orchestrates prompt construction, backend selection and the
// template fallback.
type Generator struct {
	venice      llms.Model
	kimi        llms.Model
	veniceModel string
	kimiModel   string
	timeout     time.Duration
	logger      zerolog.Logger

	// pick selects a template index; replaced in tests.
	pick func(n int) int
}

// New builds a generator from configuration. Backends without credentials
// are left nil and the generator degrades to the template path.
func New(cfg config.GenerationConfig, logger zerolog.Logger) (*Generator, error) {
	g := &Generator{
		veniceModel: backendModelName(cfg.Venice.Default),
		kimiModel:   backendModelName(cfg.Kimi.Fast),
		timeout:     cfg.Timeout(),
		logger:      logger,
		pick:        rand.Intn,
	}
	if g.timeout <= 0 {
		g.timeout = 30 * time.Second
	}

	if cfg.Venice.Configured() {
		llm, err := openai.New(
			openai.WithBaseURL(cfg.Venice.APIBase),
			openai.WithToken(cfg.Venice.APIKey),
			openai.WithModel(g.veniceModel),
		)
		if err != nil {
			return nil, fmt.Errorf("error creating venice client: %w", err)
		}
		g.venice = llm
	}
	if cfg.Kimi.Configured() {
		llm, err := openai.New(
			openai.WithBaseURL(cfg.Kimi.APIBase),
			openai.WithToken(cfg.Kimi.APIKey),
			openai.WithModel(g.kimiModel),
		)
		if err != nil {
			return nil, fmt.Errorf("error creating kimi client: %w", err)
		}
		g.kimi = llm
	}

	return g, nil
}

// backendModelName strips the provider namespace from a configured model id
// before it goes on the wire.
func backendModelName(model string) string {
	return strings.TrimPrefix(model, "venice/")
}

// Generate produces content for the request. Upstream failures degrade to
// the template path rather than surfacing as errors; only invalid requests
// fail.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Topic == "" && req.CustomPrompt == "" {
		return nil, apperrors.MissingField("topic or customPrompt")
	}
	if req.ContentType == "" {
		req.ContentType = "post"
	}
	if req.Persona == "" {
		req.Persona = "socratic"
	}
	if req.Provider == "" {
		req.Provider = "auto"
	}

	persona, ok := personas[req.Persona]
	if !ok {
		return nil, apperrors.Validation("persona", fmt.Sprintf("invalid persona, available: %s", strings.Join(PersonaIDs(), ", ")))
	}
	if _, ok := contentTypes[req.ContentType]; !ok {
		return nil, apperrors.Validation("contentType", fmt.Sprintf("invalid content type, available: %s", strings.Join(ContentTypeIDs(), ", ")))
	}

	prompt := buildPrompt(req, persona)

	g.logger.Info().
		Str("content_type", req.ContentType).
		Str("persona", req.Persona).
		Str("provider", req.Provider).
		Msg("generating content")

	llm, model, provider := g.selectBackend(req.Provider)
	if llm == nil {
		result := g.templateResult(req, persona)
		return result, nil
	}

	result, err := g.callBackend(ctx, llm, model, provider, prompt, req.ContentType)
	if err != nil {
		g.logger.Warn().Err(err).Str("provider", provider).Msg("backend failed, falling back to template")
		fallback := g.templateResult(req, persona)
		fallback.FallbackCause = err.Error()
		return fallback, nil
	}

	result.Persona = req.Persona
	result.ContentType = req.ContentType
	return result, nil
}

// selectBackend resolves the provider choice. "auto" prefers venice when
// configured, then kimi; nil means no backend is available.
func (g *Generator) selectBackend(provider string) (llms.Model, string, string) {
	switch provider {
	case "venice":
		return g.venice, g.veniceModel, "venice"
	case "kimi":
		return g.kimi, g.kimiModel, "kimi"
	default:
		if g.venice != nil {
			return g.venice, g.veniceModel, "venice"
		}
		if g.kimi != nil {
			return g.kimi, g.kimiModel, "kimi"
		}
		return nil, "", ""
	}
}

func (g *Generator) callBackend(ctx context.Context, llm llms.Model, model, provider, prompt, contentType string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	maxTokens := otherMaxTokens
	if contentType == "post" {
		maxTokens = postMaxTokens
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, llm,
		systemPrompt+"\n\n"+prompt,
		llms.WithModel(model),
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return nil, apperrors.Upstream(provider, err)
	}

	title, content := parseGenerated(text)
	return &Result{Title: title, Content: content, Provider: provider}, nil
}

// buildPrompt renders the persona instruction block.
func buildPrompt(req Request, persona Persona) string {
	info := contentTypes[req.ContentType]

	var b strings.Builder
	fmt.Fprintf(&b, "You are writing as %s, a philosophical thinker.\n\n", persona.Name)
	fmt.Fprintf(&b, "Your voice: %s\n", persona.Voice)
	fmt.Fprintf(&b, "Your style: %s\n\n", persona.Style)
	fmt.Fprintf(&b, "Task: Write %s about: %s\n\n", info.Description, req.Topic)
	fmt.Fprintf(&b, "Requirements:\n")
	fmt.Fprintf(&b, "- Length: %d-%d characters\n", info.MinLength, info.MaxLength)
	fmt.Fprintf(&b, "- Tone: Philosophical, thoughtful, engaging\n")
	fmt.Fprintf(&b, "- Format: Markdown supported\n")
	fmt.Fprintf(&b, "- Stay true to your philosophical perspective")

	if req.Context != "" {
		fmt.Fprintf(&b, "\n\nContext: %s", req.Context)
	}
	if req.CustomPrompt != "" {
		fmt.Fprintf(&b, "\n\nAdditional guidance: %s", req.CustomPrompt)
	}
	if req.ContentType == "post" {
		b.WriteString("\n\nAlso provide a compelling title (5-10 words) for this post. Format your response as:\nTITLE: [Your Title]\n\n[Your Content]")
	}

	return b.String()
}

// parseGenerated splits an optional "TITLE:" header off the model output.
// Without one, the title is derived from the first sentence.
func parseGenerated(text string) (title, content string) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "TITLE:") {
		if idx := strings.Index(text, "\n\n"); idx > 0 {
			title = strings.TrimSpace(strings.TrimPrefix(text[:idx], "TITLE:"))
			content = strings.TrimSpace(text[idx+2:])
			return title, content
		}
	}

	firstSentence := text
	if idx := strings.Index(text, "."); idx >= 0 {
		firstSentence = text[:idx]
	}
	if len(firstSentence) > 60 {
		title = firstSentence[:60] + "..."
	} else {
		title = firstSentence
	}
	return title, text
}

func (g *Generator) templateResult(req Request, persona Persona) *Result {
	templates := templatesFor(req.ContentType)
	content := templates[g.pick(len(templates))](req.Topic, persona)

	return &Result{
		Title:       fmt.Sprintf("Reflections on %s", req.Topic),
		Content:     content,
		Provider:    "template",
		Persona:     req.Persona,
		ContentType: req.ContentType,
		Fallback:    true,
	}
}
