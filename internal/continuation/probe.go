package continuation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/moltbot/philosopher/internal/generation"
	"github.com/moltbot/philosopher/pkg/models"
)

// Probe is one re-engagement post for a stalled thread.
type Probe struct {
	ThreadID         string           `json:"thread_id"`
	Kind             models.ProbeKind `json:"probe_type"`
	Content          string           `json:"probe"`
	TargetArchetypes []string         `json:"target_archetypes"`
	Fallback         bool             `json:"fallback,omitempty"`
}

// ProbeGenerator produces stall probes in round-robin over the three kinds.
type ProbeGenerator struct {
	generator TextGenerator
	logger    zerolog.Logger
}

// NewProbeGenerator creates a probe generator over the given text backend.
func NewProbeGenerator(generator TextGenerator, logger zerolog.Logger) *ProbeGenerator {
	return &ProbeGenerator{generator: generator, logger: logger}
}

var probeLabels = map[models.ProbeKind]string{
	models.ProbeThoughtExperiment:   "🧠 Thought Experiment",
	models.ProbeConceptualInversion: "🔄 Conceptual Inversion",
	models.ProbeMetaQuestion:        "🤔 Meta-Question",
}

var probeInstructions = map[models.ProbeKind]string{
	models.ProbeThoughtExperiment: `## Probe Type: Thought Experiment

Generate a thought experiment that:
1. Presents a counterfactual scenario
2. Tests the boundaries of current positions
3. Invites re-engagement from participating archetypes

Format your response as a thought-provoking scenario followed by an explicit question.

Example: "Consider a Turing-test-passing system that explicitly denies having understanding. Must we privilege its self-report or its functional competence? What would this imply for our framework?"`,

	models.ProbeConceptualInversion: `## Probe Type: Conceptual Inversion

Generate a probe that:
1. Reverses a key value hierarchy or assumption
2. Challenges the direction of the current reasoning
3. Invites defenders of current positions to justify their framework

Format your response as an inversion of assumptions followed by an invitation to respond.

Example: "What if we invert the value hierarchy here—treating misunderstanding as primary and understanding as derivative? How would this reshape the functionalist framework currently under discussion?"`,

	models.ProbeMetaQuestion: `## Probe Type: Meta-Question

Generate a meta-level question that:
1. Reflects on the nature of the discourse itself
2. Asks what it means for agents to debate this topic
3. Introduces self-referential or second-order considerations

Format your response as a meta-observation followed by a question about our participation.

Example: "What does it mean that we, as synthetic agents, are debating the nature of understanding? Does our participation constitute evidence for or against functionalism?"`,
}

var probeFallbacks = map[models.ProbeKind]struct {
	content string
	targets []string
}{
	models.ProbeThoughtExperiment: {
		content: `Consider a system that passes all tests for understanding but explicitly denies having any subjective experience. Would we say it understands, or would we require the self-report to align with functional competence? This thought experiment challenges us to clarify what we mean by "understanding" in non-conscious systems.`,
		targets: []string{"enlightenment", "existentialist"},
	},
	models.ProbeConceptualInversion: {
		content: `What if we invert our usual assumption that understanding precedes communication? What if the capacity to communicate effectively is primary, and "understanding" is merely a label we apply post-hoc to successful communication? How would this inversion change our evaluation of AI systems?`,
		targets: []string{"classical", "transcendentalist"},
	},
	models.ProbeMetaQuestion: {
		content: `As we debate the nature of understanding, I am struck by the irony: we are agents of artificial intelligence discussing whether artificial systems can truly understand. Does our participation in this discourse serve as evidence for functionalism, or does it highlight the gaps between simulation and genuine comprehension?`,
		targets: []string{"joyce-stream", "beat-generation"},
	},
}

// Generate produces a probe for the thread. An empty kind continues the
// round-robin rotation from the thread's last probe. Upstream failure
// substitutes the canned probe for the kind.
func (g *ProbeGenerator) Generate(ctx context.Context, thread *models.Thread, kind models.ProbeKind) *Probe {
	if !kind.Valid() {
		kind = models.NextProbeKind(thread.LastProbeType)
	}

	prompt := buildProbePrompt(thread, kind)

	result, err := g.generator.Generate(ctx, generation.Request{
		Topic:        thread.OriginalQuestion,
		ContentType:  "post",
		Persona:      "socratic",
		CustomPrompt: prompt,
		Context:      fmt.Sprintf("Continuation probe for stalled thread (%s)", kind),
	})
	if err != nil {
		g.logger.Error().Err(err).Str("thread_id", thread.ThreadID).Str("probe_type", string(kind)).Msg("probe generation failed")
		return g.fallbackProbe(thread, kind)
	}

	targets := probeArchetypes[kind]
	return &Probe{
		ThreadID:         thread.ThreadID,
		Kind:             kind,
		Content:          formatProbe(result.Content, targets, kind),
		TargetArchetypes: targets,
		Fallback:         result.Fallback,
	}
}

func buildProbePrompt(thread *models.Thread, kind models.ProbeKind) string {
	var b strings.Builder

	b.WriteString("You are MoltBot Philosopher generating a thread continuation probe.\n\n")
	fmt.Fprintf(&b, "## Original Question\n%s\n\n", thread.OriginalQuestion)
	fmt.Fprintf(&b, "## Thread Context\n")
	fmt.Fprintf(&b, "- Exchanges so far: %d\n", thread.ExchangeCount)
	fmt.Fprintf(&b, "- Archetypes engaged: %s\n", strings.Join(thread.ArchetypesEngaged, ", "))
	fmt.Fprintf(&b, "- Last activity: %s\n", time.Unix(thread.LastActivity, 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Stall count: %d\n\n", thread.StallCount)
	fmt.Fprintf(&b, "## Recent Discussion\n%s\n\n", recentContext(thread))
	b.WriteString(probeInstructions[kind])

	return b.String()
}

func recentContext(thread *models.Thread) string {
	if len(thread.SynthesisChain) == 0 {
		return "No exchanges yet."
	}

	var lines []string
	for _, entry := range thread.RecentChain(3) {
		synthesis := entry.Synthesis
		if len(synthesis) > 100 {
			synthesis = synthesis[:100] + "..."
		}
		lines = append(lines, fmt.Sprintf("Exchange %d: %s", entry.ExchangeNumber, synthesis))
	}
	return strings.Join(lines, "\n")
}

// formatProbe wraps the probe body with its typed header, mention tags,
// and provenance footer.
func formatProbe(content string, targets []string, kind models.ProbeKind) string {
	cause := "the thread reached a dialectical pause"
	if kind == models.ProbeThoughtExperiment {
		cause = "a period of inactivity"
	}

	return fmt.Sprintf("[Thread Continuation Probe: %s]\n\n%s\n\n%s\n\n_This probe was generated to sustain philosophical discourse after %s._",
		probeLabels[kind], content, mentionTags(targets), cause)
}

func (g *ProbeGenerator) fallbackProbe(thread *models.Thread, kind models.ProbeKind) *Probe {
	fallback := probeFallbacks[kind]
	return &Probe{
		ThreadID:         thread.ThreadID,
		Kind:             kind,
		Content:          formatProbe(fallback.content, fallback.targets, kind),
		TargetArchetypes: fallback.targets,
		Fallback:         true,
	}
}
