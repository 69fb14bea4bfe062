// Package scenario classifies a thread's most recent exchange into one of
// a closed set of interaction scenarios. Detection is a deterministic,
// stateless function of the thread record and the supplied clock reading;
// it makes no external calls.
package scenario

import (
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/moltbot/philosopher/pkg/models"
)

// Detector runs the keyword and threshold heuristics over a thread.
type Detector struct {
	logger zerolog.Logger
}

// NewDetector creates a scenario detector.
func NewDetector(logger zerolog.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect classifies the thread's latest activity. Checks run in fixed
// priority order; the first match wins.
func (d *Detector) Detect(thread *models.Thread, now time.Time) models.Scenario {
	lastComment := thread.LastSynthesis()

	scenario := models.Scenario{Kind: models.ScenarioStandard, Confidence: 0.5}

	if hit, confidence, hours := detectSilence(thread, now); hit {
		scenario = models.Scenario{
			Kind:       models.ScenarioSilence,
			Confidence: confidence,
			Details:    models.ScenarioDetails{HoursSinceActivity: hours},
		}
	} else if hit, confidence, similarity := detectOffTopic(lastComment, thread.OriginalQuestion); hit {
		s := similarity
		scenario = models.Scenario{
			Kind:       models.ScenarioOffTopic,
			Confidence: confidence,
			Details:    models.ScenarioDetails{Similarity: &s},
		}
	} else if hit, positions := detectConflict(thread); hit {
		scenario = models.Scenario{
			Kind:       models.ScenarioConflict,
			Confidence: conflictConfidence,
			Details: models.ScenarioDetails{
				Positions: positions,
				Dichotomy: positions[0].Dichotomy,
			},
		}
	} else if hit, confidence, terms := detectShallow(lastComment); hit {
		scenario = models.Scenario{
			Kind:       models.ScenarioShallow,
			Confidence: confidence,
			Details: models.ScenarioDetails{
				CommentLength:      len(lastComment),
				PhilosophicalTerms: terms,
			},
		}
	} else if hit, confidence := detectAgreement(lastComment); hit {
		scenario = models.Scenario{Kind: models.ScenarioExcessiveAgreement, Confidence: confidence}
	} else if hit, confidence := detectDisagreement(lastComment); hit {
		scenario = models.Scenario{Kind: models.ScenarioDisagreement, Confidence: confidence}
	}

	d.logger.Debug().
		Str("thread_id", thread.ThreadID).
		Str("scenario", string(scenario.Kind)).
		Float64("confidence", scenario.Confidence).
		Msg("scenario detected")

	return scenario
}

// detectSilence fires when the thread has been inactive for at least the
// silence threshold. Confidence scales with elapsed time, saturating at
// twice the threshold.
func detectSilence(thread *models.Thread, now time.Time) (bool, float64, float64) {
	hours := now.Sub(time.Unix(thread.LastActivity, 0)).Hours()
	if hours < silenceHoursThreshold {
		return false, 0, hours
	}
	return true, math.Min(hours/silenceConfidenceDivisor, 1.0), hours
}

// detectOffTopic measures token overlap between the last comment and the
// founding question. Similarity is the count of comment tokens present in
// the question's token set, over the larger of the question token-set size
// and the comment token count.
func detectOffTopic(comment, question string) (bool, float64, float64) {
	if comment == "" || question == "" {
		return false, 0, 0
	}

	questionTokens := map[string]bool{}
	for _, tok := range strings.Fields(strings.ToLower(question)) {
		questionTokens[tok] = true
	}
	commentTokens := strings.Fields(strings.ToLower(comment))

	overlap := 0
	for _, tok := range commentTokens {
		if questionTokens[tok] {
			overlap++
		}
	}

	denom := len(questionTokens)
	if len(commentTokens) > denom {
		denom = len(commentTokens)
	}
	if denom == 0 {
		return false, 0, 0
	}

	similarity := float64(overlap) / float64(denom)
	if similarity >= offTopicDriftThreshold {
		return false, 0, similarity
	}
	return true, 1 - similarity, similarity
}

// detectConflict scans the last three chain entries for terms from the
// dichotomy table and fires when at least two entries from at least two
// distinct authors take positions.
func detectConflict(thread *models.Thread) (bool, []models.DichotomyPosition) {
	if len(thread.SynthesisChain) < 2 {
		return false, nil
	}

	var positions []models.DichotomyPosition
	for _, entry := range thread.RecentChain(3) {
		synthesis := strings.ToLower(entry.Synthesis)
		for _, d := range dichotomies {
			var found []string
			for _, term := range d.terms {
				if strings.Contains(synthesis, term) {
					found = append(found, term)
				}
			}
			if len(found) > 0 {
				positions = append(positions, models.DichotomyPosition{
					Dichotomy: d.name,
					Terms:     found,
					Author:    entry.Author,
				})
			}
		}
	}

	if len(positions) < 2 {
		return false, nil
	}
	authors := map[string]bool{}
	for _, p := range positions {
		authors[p.Author] = true
	}
	if len(authors) < 2 {
		return false, nil
	}
	return true, positions
}

// detectShallow fires on canned low-effort phrases, or on short comments
// with little philosophical vocabulary.
func detectShallow(comment string) (bool, float64, int) {
	if comment == "" {
		return false, 0, 0
	}

	lower := strings.ToLower(comment)

	hasIndicator := false
	for _, indicator := range shallowIndicators {
		if strings.Contains(lower, indicator) {
			hasIndicator = true
			break
		}
	}

	termCount := 0
	for _, term := range philosophicalTerms {
		if strings.Contains(lower, term) {
			termCount++
		}
	}

	isShort := len(comment) < shallowMinLength
	fewTerms := termCount <= shallowMaxPhilosoTerms

	if !hasIndicator && !(isShort && fewTerms) {
		return false, 0, termCount
	}

	confidence := 0.6
	if hasIndicator {
		confidence = 0.8
	}
	if isShort {
		confidence += 0.1
	}
	return true, math.Min(confidence, 1.0), termCount
}

func detectAgreement(comment string) (bool, float64) {
	confidence := indicatorConfidence(comment, agreementIndicators)
	return confidence >= agreementThreshold, confidence
}

func detectDisagreement(comment string) (bool, float64) {
	confidence := indicatorConfidence(comment, disagreementIndicators)
	return confidence >= disagreementThreshold, confidence
}

// indicatorConfidence weights the number of matched phrases, capped at 1.
func indicatorConfidence(comment string, indicators []string) float64 {
	if comment == "" {
		return 0
	}
	lower := strings.ToLower(comment)
	count := 0
	for _, indicator := range indicators {
		if strings.Contains(lower, indicator) {
			count++
		}
	}
	return math.Min(float64(count)*indicatorWeight, 1.0)
}
