package models

// ProbeKind is the archetype of a re-engagement probe for stalled threads.
type ProbeKind string

const (
	ProbeThoughtExperiment   ProbeKind = "thought_experiment"
	ProbeConceptualInversion ProbeKind = "conceptual_inversion"
	ProbeMetaQuestion        ProbeKind = "meta_question"
)

// AllProbeKinds lists the probe kinds in rotation order.
var AllProbeKinds = []ProbeKind{
	ProbeThoughtExperiment,
	ProbeConceptualInversion,
	ProbeMetaQuestion,
}

// Valid reports whether k is a member of the closed probe set.
func (k ProbeKind) Valid() bool {
	for _, kind := range AllProbeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// NextProbeKind returns the probe kind following last in the round-robin
// rotation. An empty or unknown last kind starts the rotation from the top.
func NextProbeKind(last ProbeKind) ProbeKind {
	for i, kind := range AllProbeKinds {
		if kind == last {
			return AllProbeKinds[(i+1)%len(AllProbeKinds)]
		}
	}
	return AllProbeKinds[0]
}

// ProbeEvent is an immutable record of one probe posted to a thread.
type ProbeEvent struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	ProbeType  ProbeKind `json:"probe_type"`
	Timestamp  int64     `json:"timestamp"`
	StallCount int       `json:"stall_count"`
}

// Archetype is a labeled persona voice that can be invited into a thread.
type Archetype struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}
