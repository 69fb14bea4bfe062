package continuation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltbot/philosopher/internal/generation"
	"github.com/moltbot/philosopher/pkg/models"
)

type fakeGenerator struct {
	result *generation.Result
	err    error
	reqs   []generation.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func sampleThread() *models.Thread {
	return &models.Thread{
		ThreadID:          "t1",
		State:             models.StateActive,
		OriginalQuestion:  "Can artificial minds truly understand language?",
		Constraints:       []string{"no appeals to authority"},
		ExchangeCount:     3,
		Participants:      []string{"alice", "bob"},
		ArchetypesEngaged: []string{"existentialist"},
		SynthesisChain: []models.SynthesisEntry{
			{ExchangeNumber: 3, Author: "bob", Synthesis: "Understanding may be a matter of degree."},
		},
	}
}

func TestSTPGenerateParsesLabels(t *testing.T) {
	gen := &fakeGenerator{result: &generation.Result{Content: `SYNTHESIS: Bob's position suggests understanding is graded.

TENSION: Yet this implies a threshold problem.

PROPAGATION: How might this framework account for borderline cases?

TARGET_ARCHETYPES: classical, political`}}
	stp := NewSTPGenerator(gen, zerolog.Nop())

	c := stp.Generate(context.Background(), sampleThread(), models.Scenario{Kind: models.ScenarioStandard})

	assert.Equal(t, "Bob's position suggests understanding is graded.", c.Synthesis)
	assert.Equal(t, "Yet this implies a threshold problem.", c.Tension)
	assert.Equal(t, "How might this framework account for borderline cases?", c.Propagation)
	assert.False(t, c.Fallback)
	assert.Contains(t, c.Content, "(Invoking ")
	assert.Contains(t, c.Content, "via moltbot-model-router...)")
	for _, m := range c.Mentions {
		assert.Contains(t, c.Content, "@"+strings.ToUpper(m[:1])+m[1:])
	}
}

func TestSTPGenerateUnlabeledOutput(t *testing.T) {
	gen := &fakeGenerator{result: &generation.Result{Content: "The position is graded. That raises a threshold problem. Where does the threshold lie?"}}
	stp := NewSTPGenerator(gen, zerolog.Nop())

	c := stp.Generate(context.Background(), sampleThread(), models.Scenario{Kind: models.ScenarioStandard})

	assert.Equal(t, "The position is graded.", c.Synthesis)
	assert.Equal(t, "That raises a threshold problem.", c.Tension)
	assert.Equal(t, "Where does the threshold lie?", c.Propagation)
}

func TestSTPPromptCarriesScenarioSteering(t *testing.T) {
	gen := &fakeGenerator{result: &generation.Result{Content: "x."}}
	stp := NewSTPGenerator(gen, zerolog.Nop())

	stp.Generate(context.Background(), sampleThread(), models.Scenario{Kind: models.ScenarioShallow})

	require.Len(t, gen.reqs, 1)
	req := gen.reqs[0]
	assert.Equal(t, "reply", req.ContentType)
	assert.Equal(t, "socratic", req.Persona)
	assert.Contains(t, req.CustomPrompt, "epistemological assumptions")
	assert.Contains(t, req.CustomPrompt, "no appeals to authority")
	assert.Contains(t, req.Context, "shallow")
}

func TestSTPConflictFraming(t *testing.T) {
	gen := &fakeGenerator{result: &generation.Result{Content: "SYNTHESIS: a.\n\nTENSION: b.\n\nPROPAGATION: c?"}}
	stp := NewSTPGenerator(gen, zerolog.Nop())

	c := stp.Generate(context.Background(), sampleThread(), models.Scenario{Kind: models.ScenarioConflict})

	assert.Contains(t, c.Content, "I observe a productive tension emerging.")
	assert.Equal(t, []string{"transcendentalist", "joyce-stream"}, c.Mentions)
}

func TestSTPFallbackForEveryScenario(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("generator down")}
	stp := NewSTPGenerator(gen, zerolog.Nop())

	for _, kind := range models.AllScenarioKinds {
		c := stp.Generate(context.Background(), sampleThread(), models.Scenario{Kind: kind})
		require.NotNil(t, c, kind)
		assert.True(t, c.Fallback, kind)
		assert.NotEmpty(t, c.Synthesis, kind)
		assert.NotEmpty(t, c.Tension, kind)
		assert.Contains(t, c.Propagation, "?", kind)
		assert.Equal(t, []string{"existentialist", "enlightenment"}, c.Mentions, kind)
	}
}

func TestSelectArchetypes(t *testing.T) {
	t.Run("ScenarioOverride", func(t *testing.T) {
		selected := selectArchetypes(sampleThread(), models.ScenarioShallow)
		assert.Equal(t, []string{"enlightenment", "classical"}, selected)
	})

	t.Run("PrefersUnengaged", func(t *testing.T) {
		thread := sampleThread()
		thread.ArchetypesEngaged = []string{"transcendentalist", "existentialist"}

		selected := selectArchetypes(thread, models.ScenarioStandard)
		require.Len(t, selected, 2)
		for _, id := range selected {
			assert.False(t, thread.HasArchetype(id))
		}
	})

	t.Run("SkepticJoinsScientificTopics", func(t *testing.T) {
		thread := sampleThread()
		thread.OriginalQuestion = "Does evidence ever justify faith in the supernatural?"

		selected := selectArchetypes(thread, models.ScenarioShallow)
		require.Len(t, selected, 3)
		assert.Equal(t, "hitchens", selected[2])
	})

	t.Run("AtLeastTwoEvenWhenAllEngaged", func(t *testing.T) {
		thread := sampleThread()
		thread.ArchetypesEngaged = allArchetypeIDs()

		selected := selectArchetypes(thread, models.ScenarioConflict)
		assert.GreaterOrEqual(t, len(selected), 2)
	})

	t.Run("NeverMoreThanThree", func(t *testing.T) {
		thread := sampleThread()
		thread.ArchetypesEngaged = nil

		for _, kind := range models.AllScenarioKinds {
			assert.LessOrEqual(t, len(selectArchetypes(thread, kind)), 3, kind)
		}
	})
}

func TestRoster(t *testing.T) {
	archetypes := Roster()
	require.Len(t, archetypes, 10)
	for _, a := range archetypes {
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, a.Name)
		assert.NotEmpty(t, a.Tags)
	}
}
