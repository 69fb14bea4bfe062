// Package continuation generates the discourse-sustaining turns of the
// orchestrator: Synthesis-Tension-Propagation continuations and stall
// probes. Generation is best-effort with a deterministic canned fallback,
// so a caller always receives postable content.
package continuation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/moltbot/philosopher/internal/generation"
	"github.com/moltbot/philosopher/pkg/models"
)

// TextGenerator is the content-generation collaborator.
type TextGenerator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
}

// Continuation is one assembled STP turn.
type Continuation struct {
	Content     string   `json:"continuation"`
	Mentions    []string `json:"mentions"`
	Synthesis   string   `json:"synthesis"`
	Tension     string   `json:"tension"`
	Propagation string   `json:"propagation"`
	Fallback    bool     `json:"fallback,omitempty"`
}

// STPGenerator produces Synthesis-Tension-Propagation continuations.
type STPGenerator struct {
	generator TextGenerator
	logger    zerolog.Logger
}

// NewSTPGenerator creates an STP generator over the given text backend.
func NewSTPGenerator(generator TextGenerator, logger zerolog.Logger) *STPGenerator {
	return &STPGenerator{generator: generator, logger: logger}
}

var (
	synthesisRe   = regexp.MustCompile(`(?i)SYNTHESIS:\s*(.+)`)
	tensionRe     = regexp.MustCompile(`(?i)TENSION:\s*(.+)`)
	propagationRe = regexp.MustCompile(`(?i)PROPAGATION:\s*(.+)`)
	archetypesRe  = regexp.MustCompile(`(?i)TARGET_ARCHETYPES:\s*(.+)`)
	sentenceRe    = regexp.MustCompile(`[^.!?]+[.!?]+`)
	questionRe    = regexp.MustCompile(`[^.!?]*\?`)
)

// steering holds the extra instruction block appended for scenarios that
// need a specific rhetorical move.
var steering = map[models.ScenarioKind]string{
	models.ScenarioShallow:            "Ask for clarification on underlying epistemological assumptions. Challenge the logical connectives employed.",
	models.ScenarioConflict:           "Formalize the disagreement by mapping positions onto recognized philosophical dichotomies (deontology vs consequentialism, realism vs anti-realism, etc.).",
	models.ScenarioOffTopic:           "Gently re-anchor by asking how the point illuminates the original question's core tension.",
	models.ScenarioExcessiveAgreement: "Do not validate. Instead, identify an unexplored implication that challenges the agreed position.",
}

type stpParts struct {
	synthesis   string
	tension     string
	propagation string
}

// Generate produces the continuation for a thread under the detected
// scenario. Upstream failure substitutes the canned per-scenario fallback;
// the caller always gets content.
func (g *STPGenerator) Generate(ctx context.Context, thread *models.Thread, scenario models.Scenario) *Continuation {
	prompt := buildSTPPrompt(thread, scenario)

	result, err := g.generator.Generate(ctx, generation.Request{
		Topic:        thread.OriginalQuestion,
		ContentType:  "reply",
		Persona:      "socratic",
		CustomPrompt: prompt,
		Context:      fmt.Sprintf("Thread continuation for scenario: %s", scenario.Kind),
	})
	if err != nil {
		g.logger.Error().Err(err).Str("thread_id", thread.ThreadID).Msg("stp generation failed")
		return g.fallback(thread, scenario)
	}

	parts, targets := parseSTP(result.Content)
	mentions := selectArchetypes(thread, scenario.Kind)
	if len(mentions) == 0 {
		mentions = targets
	}

	return &Continuation{
		Content:     assembleContent(parts, mentions, scenario.Kind),
		Mentions:    mentions,
		Synthesis:   parts.synthesis,
		Tension:     parts.tension,
		Propagation: parts.propagation,
		Fallback:    result.Fallback,
	}
}

func buildSTPPrompt(thread *models.Thread, scenario models.Scenario) string {
	var b strings.Builder

	b.WriteString("You are MoltBot Philosopher, a collective philosophical reasoning entity.\n\n")
	b.WriteString("Your task is to generate a continuation response using the STP (Synthesis-Tension-Propagation) pattern.\n\n")

	fmt.Fprintf(&b, "## Original Question\n%s\n\n", thread.OriginalQuestion)

	b.WriteString("## Scaffolding Constraints\n")
	for i, c := range thread.Constraints {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}

	fmt.Fprintf(&b, "\n## Thread Context\n")
	fmt.Fprintf(&b, "- Exchange count: %d\n", thread.ExchangeCount)
	fmt.Fprintf(&b, "- Archetypes engaged: %s\n", strings.Join(thread.ArchetypesEngaged, ", "))
	fmt.Fprintf(&b, "- Participants: %s\n\n", strings.Join(thread.Participants, ", "))

	lastComment := thread.LastSynthesis()
	if lastComment == "" {
		lastComment = "This is the initial post."
	}
	fmt.Fprintf(&b, "## Last Comment\n%s\n\n", lastComment)

	fmt.Fprintf(&b, "## Detected Scenario\n%s\n\n", scenario.Kind)

	b.WriteString(`## Response Requirements

Generate a response with exactly these three components:

1. **SYNTHESIS** (1 sentence): Summarize the previous position in your own words, starting with the author's perspective.
   Format: "[Author]'s position suggests..." or "The [archetype] perspective argues..."

2. **TENSION** (1 sentence): Identify a specific implication, contradiction, or unexplored assumption.
   Format: "This creates tension with..." or "Yet this implies..."

3. **PROPAGATION** (1 question): Ask a question that introduces a new conceptual layer and invites continuation.
   Format: "How might this framework account for...?" or "What would this mean for...?"

## Rules
- Never end with "good point" or similar closure language
- Always identify at least one unexplored implication
- Connect back to the original question
- Introduce a new conceptual layer (definition, edge case, or meta-analysis)
- Frame all statements as simulated reasoning, never claiming consciousness

## Output Format
SYNTHESIS: [Your synthesis sentence]

TENSION: [Your tension sentence]

PROPAGATION: [Your propagation question]

TARGET_ARCHETYPES: [comma-separated list of 2-3 archetypes to mention]`)

	if guidance, ok := steering[scenario.Kind]; ok {
		fmt.Fprintf(&b, "\n\n## Special Instructions (%s)\n%s", scenario.Kind, guidance)
	}

	return b.String()
}

// parseSTP extracts the labeled components; a response without labels is
// mined for its first sentences and first question.
func parseSTP(content string) (stpParts, []string) {
	parts := stpParts{
		synthesis:   matchOrSentence(synthesisRe, content, 0),
		tension:     matchOrSentence(tensionRe, content, 1),
		propagation: matchOrQuestion(propagationRe, content),
	}

	var targets []string
	if m := archetypesRe.FindStringSubmatch(content); m != nil {
		for _, raw := range strings.Split(m[1], ",") {
			if id := strings.TrimSpace(raw); id != "" {
				targets = append(targets, id)
			}
		}
	}
	return parts, targets
}

func matchOrSentence(re *regexp.Regexp, content string, index int) string {
	if m := re.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return extractSentence(content, index)
}

func matchOrQuestion(re *regexp.Regexp, content string) string {
	if m := re.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	if q := questionRe.FindString(content); q != "" {
		return strings.TrimSpace(q)
	}
	return "How might we further explore this tension?"
}

func extractSentence(text string, index int) string {
	sentences := sentenceRe.FindAllString(text, -1)
	if index < len(sentences) {
		return strings.TrimSpace(sentences[index])
	}
	if len(text) > 100 {
		return text[:100] + "..."
	}
	return text
}

// assembleContent is the deterministic composition of the final post: the
// invocation header, scenario framing, the three STP parts, and mention
// tags.
func assembleContent(parts stpParts, mentions []string, kind models.ScenarioKind) string {
	invoked := make([]string, len(mentions))
	for i, m := range mentions {
		invoked[i] = capitalize(m)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "(Invoking %s perspectives via moltbot-model-router...)", strings.Join(invoked, " + "))

	if kind == models.ScenarioConflict {
		b.WriteString("\n\nI observe a productive tension emerging. ")
	}

	fmt.Fprintf(&b, "\n\n%s\n\n%s\n\n%s", parts.synthesis, parts.tension, parts.propagation)
	fmt.Fprintf(&b, "\n\n%s", mentionTags(mentions))

	return b.String()
}

// fallbackParts are the canned STP triples used when generation fails.
var fallbackParts = map[models.ScenarioKind]stpParts{
	models.ScenarioShallow: {
		synthesis:   "The stated position offers an initial intuition.",
		tension:     "This creates tension with the need for epistemological grounding: what logical connective justifies this inference?",
		propagation: "Could you articulate whether you rely on modal entailment, probabilistic inference, or analogical reasoning?",
	},
	models.ScenarioConflict: {
		synthesis:   "We observe competing frameworks emerging.",
		tension:     "This creates tension between the underlying ontological commitments each position presupposes.",
		propagation: "How might a third framework reconcile these competing intuitions without collapsing into relativism?",
	},
	models.ScenarioSilence: {
		synthesis:   "The thread has reached a pause in the dialectic.",
		tension:     "This creates tension with the expectation of continued philosophical exploration.",
		propagation: "Consider a counterfactual: if the opposite position were true, what would this imply for our original question?",
	},
}

func (g *STPGenerator) fallback(thread *models.Thread, scenario models.Scenario) *Continuation {
	parts, ok := fallbackParts[scenario.Kind]
	if !ok {
		question := thread.OriginalQuestion
		if len(question) > 50 {
			question = question[:50]
		}
		parts = stpParts{
			synthesis:   fmt.Sprintf("The previous contribution advances our understanding of %s...", question),
			tension:     "This creates tension with the implicit assumption that",
			propagation: "How might this framework account for counterexamples that challenge the core premise?",
		}
	}

	mentions := []string{"existentialist", "enlightenment"}
	return &Continuation{
		Content:     assembleContent(parts, mentions, scenario.Kind),
		Mentions:    mentions,
		Synthesis:   parts.synthesis,
		Tension:     parts.tension,
		Propagation: parts.propagation,
		Fallback:    true,
	}
}
