package models

// ThreadState is the lifecycle state of a discussion thread.
type ThreadState string

const (
	StateInitiated ThreadState = "initiated"
	StateActive    ThreadState = "active"
	StateStalled   ThreadState = "stalled"
	StateCompleted ThreadState = "completed"
	StateArchived  ThreadState = "archived"
)

// SynthesisEntry is one orchestrator-generated turn in the synthesis chain.
type SynthesisEntry struct {
	ExchangeNumber int    `json:"exchange_number"`
	Synthesis      string `json:"synthesis"`
	Tension        string `json:"tension"`
	Propagation    string `json:"propagation"`
	Author         string `json:"author"`
	Timestamp      int64  `json:"timestamp"`
}

// TargetMetrics are the success thresholds copied from config at creation.
type TargetMetrics struct {
	MinExchanges  int `json:"min_exchanges"`
	MinArchetypes int `json:"min_archetypes"`
}

// ThreadMetadata carries topical and quality annotations for a thread.
type ThreadMetadata struct {
	TopicDomain         string  `json:"topic_domain"`
	ComplexityScore     int     `json:"complexity_score"`
	EngagementQuality   float64 `json:"engagement_quality"`
	CompletionTimestamp int64   `json:"completion_timestamp,omitempty"`
	ArchivedTimestamp   int64   `json:"archived_timestamp,omitempty"`
}

// Thread is the persistent record for one tracked discussion.
// Participants and ArchetypesEngaged keep insertion order and never shrink.
type Thread struct {
	ThreadID          string           `json:"thread_id"`
	State             ThreadState      `json:"state"`
	CreatedAt         int64            `json:"created_at"`
	LastActivity      int64            `json:"last_activity"`
	ExchangeCount     int              `json:"exchange_count"`
	Participants      []string         `json:"participants"`
	ArchetypesEngaged []string         `json:"archetypes_engaged"`
	OriginalQuestion  string           `json:"original_question"`
	Constraints       []string         `json:"constraints"`
	LastProbeType     ProbeKind        `json:"last_probe_type,omitempty"`
	StallCount        int              `json:"stall_count"`
	OrchestratorPosts int              `json:"orchestrator_posts"`
	SynthesisChain    []SynthesisEntry `json:"synthesis_chain"`
	TargetMetrics     TargetMetrics    `json:"target_metrics"`
	Metadata          ThreadMetadata   `json:"metadata"`
}

// HasParticipant reports whether author has already contributed to the thread.
func (t *Thread) HasParticipant(author string) bool {
	for _, p := range t.Participants {
		if p == author {
			return true
		}
	}
	return false
}

// HasArchetype reports whether the archetype has already been engaged.
func (t *Thread) HasArchetype(id string) bool {
	for _, a := range t.ArchetypesEngaged {
		if a == id {
			return true
		}
	}
	return false
}

// LastSynthesis returns the synthesis text of the most recent chain entry,
// or the empty string when the chain is empty.
func (t *Thread) LastSynthesis() string {
	if len(t.SynthesisChain) == 0 {
		return ""
	}
	return t.SynthesisChain[len(t.SynthesisChain)-1].Synthesis
}

// RecentChain returns up to the last n entries of the synthesis chain.
func (t *Thread) RecentChain(n int) []SynthesisEntry {
	if len(t.SynthesisChain) <= n {
		return t.SynthesisChain
	}
	return t.SynthesisChain[len(t.SynthesisChain)-n:]
}

// MeetsTargets reports whether the thread satisfies its success thresholds.
func (t *Thread) MeetsTargets() bool {
	return t.ExchangeCount >= t.TargetMetrics.MinExchanges &&
		len(t.ArchetypesEngaged) >= t.TargetMetrics.MinArchetypes
}
