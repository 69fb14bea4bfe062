package continuation

import (
	"strings"

	"github.com/moltbot/philosopher/pkg/models"
)

// roster is the full archetype catalog, including the scientific skeptics
// reserved for science and religion topics.
var roster = []models.Archetype{
	{ID: "transcendentalist", Name: "Transcendentalist", Tags: []string{"nature", "intuition", "self-reliance"}},
	{ID: "existentialist", Name: "Existentialist", Tags: []string{"freedom", "absurdity", "authenticity"}},
	{ID: "enlightenment", Name: "Enlightenment", Tags: []string{"reason", "empiricism", "progress"}},
	{ID: "joyce-stream", Name: "Joyce-Stream", Tags: []string{"consciousness", "wordplay", "modernism"}},
	{ID: "beat-generation", Name: "Beat-Generation", Tags: []string{"spontaneity", "anti-establishment", "raw"}},
	{ID: "classical", Name: "Classical", Tags: []string{"logic", "virtue", "dialectic"}},
	{ID: "political", Name: "Political", Tags: []string{"justice", "fairness", "civic-virtue"}},
	{ID: "modernist", Name: "Modernist", Tags: []string{"lyrical", "nature", "mortality"}},
	{ID: "working-class", Name: "Working-Class", Tags: []string{"survival", "honesty", "labor"}},
	{ID: "mythologist", Name: "Mythologist", Tags: []string{"archetypes", "hero-journey", "symbolism"}},
}

// skeptics are invited when the founding question touches science,
// religion, or evidence.
var skeptics = []string{"hitchens", "dawkins", "sagan", "feynman"}

var scientificTopicTerms = []string{
	"god", "religion", "faith", "belief", "science", "evidence",
	"evolution", "atheism", "theism", "supernatural", "cosmos",
}

// scenarioArchetypes pairs each scenario kind with the archetypes best
// suited to answer it.
var scenarioArchetypes = map[models.ScenarioKind][]string{
	models.ScenarioShallow:  {"enlightenment", "classical"},
	models.ScenarioConflict: {"transcendentalist", "joyce-stream"},
	models.ScenarioOffTopic: {"classical", "political"},
	models.ScenarioSilence:  {"existentialist", "beat-generation"},
}

// probeArchetypes pairs each probe kind with its preferred voices.
var probeArchetypes = map[models.ProbeKind][]string{
	models.ProbeThoughtExperiment:   {"joyce-stream", "existentialist"},
	models.ProbeConceptualInversion: {"enlightenment", "beat-generation"},
	models.ProbeMetaQuestion:        {"transcendentalist", "classical"},
}

// Roster returns the archetype catalog served by the philosophers endpoint.
func Roster() []models.Archetype {
	out := make([]models.Archetype, len(roster))
	copy(out, roster)
	return out
}

func allArchetypeIDs() []string {
	ids := make([]string, 0, len(roster)+len(skeptics))
	for _, a := range roster {
		ids = append(ids, a.ID)
	}
	return append(ids, skeptics...)
}

// selectArchetypes picks 2-3 archetype ids to mention in a continuation.
// Unengaged archetypes matching the scenario come first; science-flavored
// questions pull in a skeptic; the result is padded to at least two ids.
func selectArchetypes(thread *models.Thread, kind models.ScenarioKind) []string {
	all := allArchetypeIDs()
	var unengaged []string
	for _, id := range all {
		if !thread.HasArchetype(id) {
			unengaged = append(unengaged, id)
		}
	}

	var selected []string
	if preferred, ok := scenarioArchetypes[kind]; ok {
		for _, id := range preferred {
			if contains(unengaged, id) {
				selected = append(selected, id)
			}
		}
	} else {
		if len(unengaged) > 2 {
			selected = unengaged[:2]
		} else {
			selected = unengaged
		}
	}

	if isScientificTopic(thread.OriginalQuestion) && len(selected) < 3 {
		for _, skeptic := range skeptics {
			if contains(unengaged, skeptic) && !contains(selected, skeptic) {
				selected = append(selected, skeptic)
				break
			}
		}
	}

	for _, id := range all {
		if len(selected) >= 2 {
			break
		}
		if !contains(selected, id) {
			selected = append(selected, id)
		}
	}

	if len(selected) > 3 {
		selected = selected[:3]
	}
	return selected
}

func isScientificTopic(question string) bool {
	topic := strings.ToLower(question)
	for _, term := range scientificTopicTerms {
		if strings.Contains(topic, term) {
			return true
		}
	}
	return false
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// mentionTags renders "@Archetype" tags for the given ids.
func mentionTags(ids []string) string {
	tags := make([]string, len(ids))
	for i, id := range ids {
		tags[i] = "@" + capitalize(id)
	}
	return strings.Join(tags, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
