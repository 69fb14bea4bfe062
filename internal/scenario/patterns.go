package scenario

// Detection thresholds. These are configuration constants of the detector,
// not derived values.
const (
	shallowMinLength         = 50
	shallowMaxPhilosoTerms   = 2
	agreementThreshold       = 0.8
	disagreementThreshold    = 0.6
	indicatorWeight          = 0.3
	offTopicDriftThreshold   = 0.5
	silenceHoursThreshold    = 24.0
	silenceConfidenceDivisor = 48.0
	conflictConfidence       = 0.8
)

var shallowIndicators = []string{
	"i agree", "good point", "well said", "nice", "thanks", "interesting",
}

var agreementIndicators = []string{
	"i agree", "you are right", "exactly", "precisely", "couldn't agree more",
}

var disagreementIndicators = []string{
	"however", "but", "yet", "although", "on the contrary", "i disagree",
}

var philosophicalTerms = []string{
	"epistemology", "ontology", "metaphysics", "ethics", "aesthetics",
	"existential", "phenomenology", "dialectic", "hermeneutics",
	"deontology", "consequentialism", "virtue", "teleology",
	"empiricism", "rationalism", "idealism", "realism",
	"determinism", "free will", "consciousness", "qualia",
	"modality", "necessity", "contingency", "a priori",
	"syllogism", "deduction", "induction", "abduction",
	"absurd", "authenticity", "being", "becoming",
	"other", "same", "difference", "identity",
	"evidence", "hypothesis", "theory", "falsifiability", "skepticism",
	"natural selection", "evolution", "meme", "gene", "complexity",
	"cosmos", "empirical", "experiment", "verification", "replication",
}

// dichotomy pairs a recognized philosophical opposition with the terms
// that signal a position within it.
type dichotomy struct {
	name  string
	terms []string
}

// dichotomies are scanned in table order so a synthesis matching more than
// one opposition always yields the same position ordering.
var dichotomies = []dichotomy{
	{"deontology_vs_consequentialism", []string{"duty", "rule", "consequence", "outcome"}},
	{"realism_vs_antirealism", []string{"objective", "subjective", "mind-independent", "construct"}},
	{"rationalism_vs_empiricism", []string{"reason", "experience", "a priori", "observation"}},
	{"freedom_vs_determinism", []string{"choice", "causal", "autonomy", "necessity"}},
	{"materialism_vs_idealism", []string{"physical", "mental", "matter", "idea"}},
	{"science_vs_religion", []string{"evidence", "faith", "experiment", "revelation"}},
	{"naturalism_vs_supernaturalism", []string{"natural", "supernatural", "physical", "spiritual"}},
}
