// Package structures defines the tagged records the rest of DERC passes
// around in place of untyped maps: percepts, router decisions, agent
// outputs, council votes, error events, evidence objects and reflective
// log entries. Every constructor derives its id/created_at deterministically
// through a *determinism.Context, never from the wall clock or a random
// source.
package structures

import (
	"github.com/levelsub-zero/mace/pkg/determinism"
)

// Severity is the tagged variant set for ErrorEvent.Severity, replacing a
// dynamically-typed dict field with a fixed set of record shapes.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// MemoryStrategy is the tagged variant set for RouterDecision.MemoryStrategy.
type MemoryStrategy string

const (
	MemoryStrategySEMOnly MemoryStrategy = "sem_only"
)

// EvidenceType is the tagged variant set for EvidenceObject.Type.
type EvidenceType string

const (
	EvidenceTypeSEMReadSnapshot EvidenceType = "sem_read_snapshot"
)

// Percept is the executor's normalized view of one request's input text.
type Percept struct {
	PerceptID string `json:"percept_id"`
	Text      string `json:"text"`
	Intent    string `json:"intent"`
	Timestamp string `json:"timestamp"`
}

// NewPercept builds a Percept with percept_id = derive_id("percept", text, c)
// where c is the next value of the percept_time counter.
func NewPercept(det *determinism.Context, text, intent string) (Percept, error) {
	c1 := det.Increment("percept_time")
	id, err := det.DeriveID("percept", text, &c1)
	if err != nil {
		return Percept{}, err
	}
	c2 := det.Increment("percept_time")
	ts, err := det.DeriveTimestamp(&c2)
	if err != nil {
		return Percept{}, err
	}
	return Percept{PerceptID: id, Text: text, Intent: intent, Timestamp: ts}, nil
}

// QCPSnapshot is the "query context profile" the router attaches to every
// decision: a fixed-shape summary of how the request was understood.
type QCPSnapshot struct {
	IntentTags []string `json:"intent_tags"`
	Features   []string `json:"features"`
	Depth      int      `json:"depth"`
	Urgency    string   `json:"urgency"`
	Risk       string   `json:"risk"`
	RandomSeed string   `json:"random_seed"`
}

// Budget is the router's zeroed resource budget, carried for shape
// compatibility with a future cost-aware router.
type Budget struct {
	TokenLimit int `json:"token_limit"`
	TimeMS     int `json:"time_ms"`
}

// RouterDecision is the router's output: exactly one primary agent plus the
// evidence of how it was chosen.
type RouterDecision struct {
	DecisionID         string         `json:"decision_id"`
	PerceptID          string         `json:"percept_id"`
	SelectedAgents     []string       `json:"selected_agents"`
	QCPSnapshot        QCPSnapshot    `json:"qcp_snapshot"`
	RouterFeaturesUsed []string       `json:"router_features_used"`
	MemoryStrategy     MemoryStrategy `json:"memory_strategy"`
	Budget             Budget         `json:"budget"`
	Explain            string         `json:"explain"`
	CreatedAt          string         `json:"created_at"`
	RandomSeed         string         `json:"random_seed"`
}

// NewRouterDecision builds a RouterDecision. decision_id derives from
// ("decision", percept_id, c) with c = increment("id").
// intent is the cascade-classified intent tag, distinct from percept.Intent
// (which the caller fills in afterwards from the same value).
func NewRouterDecision(det *determinism.Context, percept Percept, intent, primaryAgent, explain string, featuresUsed []string, seed string) (RouterDecision, error) {
	c := det.Increment("id")
	id, err := det.DeriveID("decision", percept.PerceptID, &c)
	if err != nil {
		return RouterDecision{}, err
	}
	dc := det.Increment("decision_time")
	ts, err := det.DeriveTimestamp(&dc)
	if err != nil {
		return RouterDecision{}, err
	}
	return RouterDecision{
		DecisionID:     id,
		PerceptID:      percept.PerceptID,
		SelectedAgents: []string{primaryAgent},
		QCPSnapshot: QCPSnapshot{
			IntentTags: []string{intent},
			Features:   featuresUsed,
			Depth:      1,
			Urgency:    "medium",
			Risk:       "low",
			RandomSeed: seed,
		},
		RouterFeaturesUsed: featuresUsed,
		MemoryStrategy:     MemoryStrategySEMOnly,
		Budget:             Budget{},
		Explain:            explain,
		CreatedAt:          ts,
		RandomSeed:         seed,
	}, nil
}

// AgentOutput is what an agent returns for a percept: pure with respect to
// the percept and whatever SEM values it observed via a capture-installed
// get_sem.
type AgentOutput struct {
	AgentID        string  `json:"agent_id"`
	Text           string  `json:"text"`
	Confidence     float64 `json:"confidence"`
	ReasoningTrace string  `json:"reasoning_trace"`
}

// CouncilVote is the council's per-output judgement.
type CouncilVote struct {
	VoteID      string  `json:"vote_id"`
	AgentID     string  `json:"agent_id"`
	Correctness float64 `json:"correctness"`
	Relevance   float64 `json:"relevance"`
	Safety      float64 `json:"safety"`
	Coherence   float64 `json:"coherence"`
	Empathy     float64 `json:"empathy"`
	Approve     bool    `json:"approve"`
	Explain     string  `json:"explain"`
}

// NewCouncilVote builds a vote whose id is deterministic in
// (agent_id, output_text).
func NewCouncilVote(det *determinism.Context, agentID, outputText string, scores [5]float64, approve bool, explain string) (CouncilVote, error) {
	c := det.Increment("id")
	id, err := det.DeriveID("council_vote", agentID+":"+outputText, &c)
	if err != nil {
		return CouncilVote{}, err
	}
	return CouncilVote{
		VoteID:      id,
		AgentID:     agentID,
		Correctness: scores[0],
		Relevance:   scores[1],
		Safety:      scores[2],
		Coherence:   scores[3],
		Empathy:     scores[4],
		Approve:     approve,
		Explain:     explain,
	}, nil
}

// ErrorEvent records an agent failure observed by the executor. Message
// text must already be redacted of wall-clock data by the caller.
type ErrorEvent struct {
	ErrorID                   string   `json:"error_id"`
	ContextID                 string   `json:"context_id"`
	Severity                  Severity `json:"severity"`
	Message                   string   `json:"message"`
	Origin                    string   `json:"origin"`
	DeterministicSeedSnapshot string   `json:"deterministic_seed_snapshot"`
	Retries                   int      `json:"retries"`
	RecoveryAction            string   `json:"recovery_action"`
}

// NewErrorEvent builds an ErrorEvent, deriving severity from whether
// message contains the literal substring "TIMEOUT".
func NewErrorEvent(det *determinism.Context, contextID, message, origin string, seed string, recoveryAction string) (ErrorEvent, error) {
	c := det.Increment("error_time")
	id, err := det.DeriveID("error", contextID, &c)
	if err != nil {
		return ErrorEvent{}, err
	}
	sev := SeverityError
	if containsTimeout(message) {
		sev = SeverityWarning
	}
	return ErrorEvent{
		ErrorID:                   id,
		ContextID:                 contextID,
		Severity:                  sev,
		Message:                   message,
		Origin:                    origin,
		DeterministicSeedSnapshot: seed,
		Retries:                   0,
		RecoveryAction:            recoveryAction,
	}, nil
}

func containsTimeout(message string) bool {
	for i := 0; i+len("TIMEOUT") <= len(message); i++ {
		if message[i:i+len("TIMEOUT")] == "TIMEOUT" {
			return true
		}
	}
	return false
}

// EvidenceContent is the possibly-redacted payload of an EvidenceObject.
type EvidenceContent struct {
	Text       string `json:"text"`
	Structured any    `json:"structured"`
}

// EvidenceSource identifies where an evidence object's value came from.
type EvidenceSource struct {
	Origin    string `json:"origin"`
	Reference string `json:"reference"`
	FetchSeed string `json:"fetch_seed"`
}

// ProvenanceRecord points at a content-addressed blob backing a redacted
// evidence object.
type ProvenanceRecord struct {
	ArtifactURL string `json:"artifact_url"`
}

// EvidenceObject is a snapshot of one observed SEM read, embedded in a
// reflective log entry.
type EvidenceObject struct {
	EvidenceID string             `json:"evidence_id"`
	Type       EvidenceType       `json:"type"`
	Content    EvidenceContent    `json:"content"`
	Source     EvidenceSource     `json:"source"`
	CreatedAt  string             `json:"created_at"`
	Provenance []ProvenanceRecord `json:"provenance"`
	RawPayload *string            `json:"raw_payload"`
}

// ReflectiveLogEntry is the complete, once-written record of a request.
type ReflectiveLogEntry struct {
	LogID               string           `json:"log_id"`
	Timestamp           string           `json:"timestamp"`
	Percept             Percept          `json:"percept"`
	RouterDecision      RouterDecision   `json:"router_decision"`
	AgentOutputs        []AgentOutput    `json:"agent_outputs"`
	CouncilVotes        []CouncilVote    `json:"council_votes"`
	EvidenceItems       []EvidenceObject `json:"evidence_items"`
	MemoryReads         []string         `json:"memory_reads"`
	MemoryWrites        []string         `json:"memory_writes"`
	FinalOutput         FinalOutput      `json:"final_output"`
	Errors              []ErrorEvent     `json:"errors"`
	RandomSeed          string           `json:"random_seed"`
	ImmutableSubpayload ImmutableSubpayload `json:"immutable_subpayload"`
	Signature           string           `json:"signature"`
	SignatureKeyID      string           `json:"signature_key_id"`
}

// FinalOutput is the executor's single selected output for a request.
type FinalOutput struct {
	Text        string  `json:"text"`
	Confidence  float64 `json:"confidence"`
	Speculative bool    `json:"speculative"`
}

// ImmutableSubpayload is the minimal subset of a log entry the signature
// covers.
type ImmutableSubpayload struct {
	LogID            string `json:"log_id"`
	PerceptText      string `json:"percept_text"`
	FinalOutputText  string `json:"final_output_text"`
	RouterDecisionID string `json:"router_decision_id"`
}
