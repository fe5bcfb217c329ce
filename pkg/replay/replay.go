// Package replay re-executes a recorded request under a sandbox SEM
// populated from its own evidence, and asserts byte-exact equality with
// the original log. Because each request carries its own explicit Store
// handle, there is no global store swap to restore: the live executor
// this package is handed is never mutated, so "always restore the Live
// store on exit" holds by construction rather than by a defer/recover
// dance.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/levelsub-zero/mace/pkg/agent"
	"github.com/levelsub-zero/mace/pkg/canonical"
	"github.com/levelsub-zero/mace/pkg/council"
	"github.com/levelsub-zero/mace/pkg/determinism"
	"github.com/levelsub-zero/mace/pkg/executor"
	"github.com/levelsub-zero/mace/pkg/sem"
	"github.com/levelsub-zero/mace/pkg/structures"
	"github.com/levelsub-zero/mace/pkg/telemetry"
)

// Mismatch kinds, one per compared field. These are the stable,
// contract-bearing strings callers switch on via Result.Error; each also
// has a fixed sentinel in sentinelByKind for callers who prefer
// errors.Is/errors.As over string comparison.
const (
	ErrMissingSeed          = "MISSING_SEED"
	ErrEvidenceRedacted     = "EVIDENCE_REDACTED"
	ErrLogIDMismatch        = "LOG_ID_MISMATCH"
	ErrOutputMismatch       = "OUTPUT_MISMATCH"
	ErrRoutingMismatch      = "ROUTING_MISMATCH"
	ErrMemoryReadsMismatch  = "MEMORY_READS_MISMATCH"
	ErrMemoryWritesMismatch = "MEMORY_WRITES_MISMATCH"
	ErrErrorMismatch        = "ERROR_MISMATCH"
	ErrCouncilVoteMismatch  = "COUNCIL_VOTE_MISMATCH"
	ErrAgentOutputMismatch  = "AGENT_OUTPUT_MISMATCH"
)

// Sentinels, one per mismatch kind above, so a caller can test a failed
// Result's Err with errors.Is instead of comparing the Error string.
var (
	SentinelMissingSeed          = errors.New("replay: missing seed")
	SentinelEvidenceRedacted     = errors.New("replay: evidence redacted")
	SentinelLogIDMismatch        = errors.New("replay: log id mismatch")
	SentinelOutputMismatch       = errors.New("replay: output mismatch")
	SentinelRoutingMismatch      = errors.New("replay: routing mismatch")
	SentinelMemoryReadsMismatch  = errors.New("replay: memory reads mismatch")
	SentinelMemoryWritesMismatch = errors.New("replay: memory writes mismatch")
	SentinelErrorMismatch        = errors.New("replay: error mismatch")
	SentinelCouncilVoteMismatch  = errors.New("replay: council vote mismatch")
	SentinelAgentOutputMismatch  = errors.New("replay: agent output mismatch")
)

var sentinelByKind = map[string]error{
	ErrMissingSeed:          SentinelMissingSeed,
	ErrEvidenceRedacted:     SentinelEvidenceRedacted,
	ErrLogIDMismatch:        SentinelLogIDMismatch,
	ErrOutputMismatch:       SentinelOutputMismatch,
	ErrRoutingMismatch:      SentinelRoutingMismatch,
	ErrMemoryReadsMismatch:  SentinelMemoryReadsMismatch,
	ErrMemoryWritesMismatch: SentinelMemoryWritesMismatch,
	ErrErrorMismatch:        SentinelErrorMismatch,
	ErrCouncilVoteMismatch:  SentinelCouncilVoteMismatch,
	ErrAgentOutputMismatch:  SentinelAgentOutputMismatch,
}

// ReplayError is the structured form of a failed Result, mirroring
// config.ValidationError: Kind carries the same stable string as
// Result.Error, and Unwrap exposes the fixed sentinel registered for that
// kind so errors.Is/errors.As work against Result.Err.
type ReplayError struct {
	Kind    string
	Details string
	Err     error
}

func (e *ReplayError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("replay: %s: %s", e.Kind, e.Details)
	}
	return fmt.Sprintf("replay: %s", e.Kind)
}

func (e *ReplayError) Unwrap() error { return e.Err }

// failure builds a Result for the given mismatch kind, wrapping the fixed
// sentinel registered for it in a *ReplayError.
func failure(kind, details string) Result {
	return Result{
		Error:   kind,
		Details: details,
		Err:     &ReplayError{Kind: kind, Details: details, Err: sentinelByKind[kind]},
	}
}

// Result is the tagged outcome of a replay attempt. Err is nil on success
// and a *ReplayError on failure; callers that only need the stable kind
// string can keep reading Error/Details directly.
type Result struct {
	Success bool
	Error   string
	Details string
	Err     error
}

// Engine re-executes logs against fresh sandbox-backed executors sharing
// the production agent registry, council and artifact store.
type Engine struct {
	registry  agent.Registry
	council   council.Council
	artifacts executor.ArtifactStore
	telemetry telemetry.Counters
}

// NewEngine binds the collaborators every replay executor needs.
func NewEngine(registry agent.Registry, c council.Council, artifacts executor.ArtifactStore) *Engine {
	return &Engine{registry: registry, council: c, artifacts: artifacts}
}

// WithTelemetry attaches counters to an already-constructed Engine,
// returning it for chaining.
func (e *Engine) WithTelemetry(c telemetry.Counters) *Engine {
	e.telemetry = c
	return e
}

// Replay re-executes entry under a sandbox SEM store built from its own
// evidence, and compares the result field-by-field.
func (e *Engine) Replay(ctx context.Context, entry structures.ReflectiveLogEntry) Result {
	if e.telemetry != nil {
		e.telemetry.ReplayTotal().Inc()
	}
	result := e.replay(ctx, entry)
	if result.Success {
		slog.Info("replay succeeded", "log_id", entry.LogID)
	} else {
		slog.Warn("replay mismatch", "log_id", entry.LogID, "mismatch", result.Error)
		if e.telemetry != nil {
			e.telemetry.ReplayMismatchesTotal().Inc()
		}
	}
	return result
}

func (e *Engine) replay(ctx context.Context, entry structures.ReflectiveLogEntry) Result {
	if entry.RandomSeed == "" {
		return failure(ErrMissingSeed, "")
	}

	snapshot := map[string][]byte{}
	for _, item := range entry.EvidenceItems {
		if item.Type != structures.EvidenceTypeSEMReadSnapshot {
			continue
		}
		value := item.Content.Structured
		if value == nil {
			if strings.HasPrefix(item.Content.Text, "<Redacted") {
				return failure(ErrEvidenceRedacted, fmt.Sprintf("key %q was redacted in the original log", item.Source.Reference))
			}
			// Structured is nil but text isn't a redaction marker: fall
			// through and parse the text directly as canonical JSON.
			var v any
			if err := json.Unmarshal([]byte(item.Content.Text), &v); err != nil {
				return failure(ErrEvidenceRedacted, fmt.Sprintf("key %q content.text did not parse: %v", item.Source.Reference, err))
			}
			value = v
		}
		blob, err := canonical.Serialize(value)
		if err != nil {
			return failure(ErrEvidenceRedacted, fmt.Sprintf("key %q failed to re-canonicalize: %v", item.Source.Reference, err))
		}
		snapshot[item.Source.Reference] = blob
	}

	sandbox := sem.NewSandboxStore(snapshot, entry.Timestamp)
	det := determinism.NewContext()
	semSvc := sem.NewService(sandbox, det, nil, nil)
	exec := executor.New(det, semSvc, e.registry, e.council, e.artifacts, nil, nil)

	seed := entry.RandomSeed
	_, replayed, err := exec.Execute(ctx, entry.Percept.Text, entry.Percept.Intent, &seed, false)
	if err != nil {
		return failure(ErrOutputMismatch, fmt.Sprintf("replay execution failed: %v", err))
	}

	if mismatch := compare("log_id", entry.LogID, replayed.LogID); mismatch {
		return failure(ErrLogIDMismatch, "")
	}
	if mismatch := compareJSON(entry.FinalOutput, replayed.FinalOutput); mismatch {
		return failure(ErrOutputMismatch, "")
	}
	if mismatch := compareJSON(entry.RouterDecision, replayed.RouterDecision); mismatch {
		return failure(ErrRoutingMismatch, "")
	}
	if mismatch := compareJSON(entry.MemoryReads, replayed.MemoryReads); mismatch {
		return failure(ErrMemoryReadsMismatch, "")
	}
	if mismatch := compareJSON(entry.MemoryWrites, replayed.MemoryWrites); mismatch {
		return failure(ErrMemoryWritesMismatch, "")
	}
	if mismatch := compareJSON(entry.Errors, replayed.Errors); mismatch {
		return failure(ErrErrorMismatch, "")
	}
	if mismatch := compareJSON(entry.CouncilVotes, replayed.CouncilVotes); mismatch {
		return failure(ErrCouncilVoteMismatch, "")
	}
	if mismatch := compareJSON(entry.AgentOutputs, replayed.AgentOutputs); mismatch {
		return failure(ErrAgentOutputMismatch, "")
	}

	return Result{Success: true}
}

func compare(field, want, got string) bool {
	return want != got
}

// compareJSON reports whether a and b's canonical serializations differ.
// Serialization failure is treated as a mismatch rather than panicking,
// since a malformed recorded value is itself evidence of tampering.
func compareJSON(a, b any) bool {
	aBytes, aErr := canonical.Serialize(a)
	bBytes, bErr := canonical.Serialize(b)
	if aErr != nil || bErr != nil {
		return true
	}
	return string(aBytes) != string(bBytes)
}
