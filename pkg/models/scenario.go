package models

// ScenarioKind classifies the conversational state of a thread's latest
// activity. The set is closed; AllScenarioKinds enumerates every member so
// data tables keyed by kind can be checked for coverage.
type ScenarioKind string

const (
	ScenarioStandard           ScenarioKind = "standard"
	ScenarioSilence            ScenarioKind = "silence"
	ScenarioOffTopic           ScenarioKind = "off_topic"
	ScenarioConflict           ScenarioKind = "conflict"
	ScenarioShallow            ScenarioKind = "shallow"
	ScenarioExcessiveAgreement ScenarioKind = "excessive_agreement"
	ScenarioDisagreement       ScenarioKind = "disagreement"
)

// AllScenarioKinds lists every scenario kind in detection priority order,
// with the default standard kind last.
var AllScenarioKinds = []ScenarioKind{
	ScenarioSilence,
	ScenarioOffTopic,
	ScenarioConflict,
	ScenarioShallow,
	ScenarioExcessiveAgreement,
	ScenarioDisagreement,
	ScenarioStandard,
}

// Valid reports whether k is a member of the closed scenario set.
func (k ScenarioKind) Valid() bool {
	for _, kind := range AllScenarioKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// DichotomyPosition records one synthesis-chain entry referencing terms
// from a philosophical dichotomy.
type DichotomyPosition struct {
	Dichotomy string   `json:"dichotomy"`
	Terms     []string `json:"terms"`
	Author    string   `json:"author"`
}

// ScenarioDetails carries the kind-specific evidence behind a detection.
type ScenarioDetails struct {
	HoursSinceActivity float64             `json:"hours_since_activity,omitempty"`
	Similarity         *float64            `json:"similarity,omitempty"`
	Dichotomy          string              `json:"dichotomy,omitempty"`
	Positions          []DichotomyPosition `json:"positions,omitempty"`
	CommentLength      int                 `json:"length,omitempty"`
	PhilosophicalTerms int                 `json:"philosophical_terms,omitempty"`
}

// Scenario is the result of classifying a thread's most recent exchange.
type Scenario struct {
	Kind       ScenarioKind    `json:"type"`
	Confidence float64         `json:"confidence"`
	Details    ScenarioDetails `json:"details"`
}
