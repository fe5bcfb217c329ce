// Package executor orchestrates one request end to end: seed chaining,
// percept construction, routing, agent invocation under capture, evidence
// assembly, council evaluation, final-output selection, and reflective
// log construction and persistence.
package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/levelsub-zero/mace/pkg/agent"
	"github.com/levelsub-zero/mace/pkg/canonical"
	"github.com/levelsub-zero/mace/pkg/council"
	"github.com/levelsub-zero/mace/pkg/determinism"
	"github.com/levelsub-zero/mace/pkg/governance"
	"github.com/levelsub-zero/mace/pkg/reflectivelog"
	"github.com/levelsub-zero/mace/pkg/router"
	"github.com/levelsub-zero/mace/pkg/sem"
	"github.com/levelsub-zero/mace/pkg/structures"
	"github.com/levelsub-zero/mace/pkg/telemetry"
)

// genesisSeed seeds the very first request of a process's chain.
const genesisSeed = "genesis_seed"

// KillSwitchActiveError is returned when the governance kill-switch halts
// the entire call before any work begins. No log is written.
type KillSwitchActiveError struct {
	Reason      string
	ActivatedBy string
}

func (e *KillSwitchActiveError) Error() string {
	return fmt.Sprintf("KILL_SWITCH_ACTIVE: reason=%q activated_by=%q", e.Reason, e.ActivatedBy)
}

// ArtifactStore is the capability the evidence constructor needs to
// persist redacted oversize values (see pkg/artifact.Store).
type ArtifactStore interface {
	Save(blob []byte) (string, error)
	Get(url string) ([]byte, error)
}

// Executor binds every collaborator a request needs. One Executor serves
// many sequential requests in a process, cooperatively, per logical job;
// construct a fresh Executor per concurrent job.
type Executor struct {
	det        *determinism.Context
	sem        *sem.Service
	registry   agent.Registry
	council    council.Council
	artifacts  ArtifactStore
	killSwitch governance.KillSwitch
	log        *reflectivelog.Writer
	telemetry  telemetry.Counters

	mu          sync.Mutex
	currentSeed string
}

// WithTelemetry attaches counters to an already-constructed Executor,
// returning it for chaining. Recording a counter never influences the
// outcome of a request.
func (e *Executor) WithTelemetry(c telemetry.Counters) *Executor {
	e.telemetry = c
	return e
}

// New constructs an Executor. log may be nil when this Executor is only
// ever invoked with logEnabled=false (the replay path).
func New(det *determinism.Context, semSvc *sem.Service, registry agent.Registry, c council.Council, artifacts ArtifactStore, killSwitch governance.KillSwitch, log *reflectivelog.Writer) *Executor {
	return &Executor{
		det:        det,
		sem:        semSvc,
		registry:   registry,
		council:    c,
		artifacts:  artifacts,
		killSwitch: killSwitch,
		log:        log,
	}
}

// Execute runs one request to completion. seed is nil on the normal path
// (the executor derives the next seed from its chain); a non-nil seed is
// the replay path, using it directly and leaving the chain untouched.
func (e *Executor) Execute(ctx context.Context, text, intent string, seed *string, logEnabled bool) (structures.FinalOutput, structures.ReflectiveLogEntry, error) {
	if e.killSwitch != nil && e.killSwitch.IsActive() {
		status := e.killSwitch.Status()
		slog.Warn("execution rejected: kill switch active", "reason", status.Reason, "activated_by", status.ActivatedBy)
		if e.telemetry != nil {
			e.telemetry.KillSwitchBlocked().Inc()
		}
		return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, &KillSwitchActiveError{
			Reason:      status.Reason,
			ActivatedBy: status.ActivatedBy,
		}
	}
	if e.telemetry != nil {
		e.telemetry.RequestsTotal().Inc()
	}
	final, entry, err := e.execute(ctx, text, intent, seed, logEnabled)
	if err != nil && e.telemetry != nil {
		e.telemetry.RequestsFailed().Inc()
	}
	return final, entry, err
}

func (e *Executor) execute(ctx context.Context, text, intent string, seed *string, logEnabled bool) (structures.FinalOutput, structures.ReflectiveLogEntry, error) {
	activeSeed, err := e.resolveSeed(text, intent, seed)
	if err != nil {
		return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, err
	}
	e.det.InitSeed(activeSeed)

	percept, err := structures.NewPercept(e.det, text, intent)
	if err != nil {
		return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, fmt.Errorf("executor: build percept: %w", err)
	}

	decision, classifiedIntent, err := router.Route(e.det, percept, activeSeed)
	if err != nil {
		return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, fmt.Errorf("executor: route: %w", err)
	}
	percept.Intent = classifiedIntent

	primaryAgentID := decision.SelectedAgents[0]
	impl, ok := e.registry[primaryAgentID]
	if !ok {
		return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, fmt.Errorf("executor: no agent registered for %q", primaryAgentID)
	}

	capture := e.sem.StartCapture()
	output, agentErr := impl.Run(ctx, e.sem, percept)
	e.sem.StopCapture()

	var errs []structures.ErrorEvent
	if agentErr != nil {
		slog.Warn("agent invocation failed, substituting fallback output", "agent_id", primaryAgentID, "percept_id", percept.PerceptID)
		if e.telemetry != nil {
			e.telemetry.AgentFailuresTotal().Inc()
		}
		errEvent, buildErr := structures.NewErrorEvent(e.det, percept.PerceptID, agentErr.Error(), primaryAgentID, activeSeed, "fallback_output_substituted")
		if buildErr != nil {
			return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, fmt.Errorf("executor: build error event: %w", buildErr)
		}
		errs = append(errs, errEvent)
		output = structures.AgentOutput{
			AgentID:        primaryAgentID,
			Text:           "",
			Confidence:     0.0,
			ReasoningTrace: "agent failed; fallback output substituted",
		}
	}

	evidence := make([]structures.EvidenceObject, 0, len(capture.Order))
	for _, key := range capture.Order {
		rec := capture.Values[key]
		if !rec.Exists {
			continue
		}
		ev, err := structures.NewSEMReadEvidence(e.det, e.artifacts, key, rec.Value)
		if err != nil {
			return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, fmt.Errorf("executor: build evidence for %q: %w", key, err)
		}
		evidence = append(evidence, ev)
	}

	vote, err := e.council.Evaluate(e.det, output)
	if err != nil {
		return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, fmt.Errorf("executor: council evaluate: %w", err)
	}

	outputs := []structures.AgentOutput{output}
	sort.SliceStable(outputs, func(i, j int) bool {
		if outputs[i].AgentID != outputs[j].AgentID {
			return outputs[i].AgentID < outputs[j].AgentID
		}
		return outputs[i].Confidence > outputs[j].Confidence
	})
	final := structures.FinalOutput{
		Text:        outputs[0].Text,
		Confidence:  outputs[0].Confidence,
		Speculative: false,
	}

	logTimeCounter := e.det.Increment("log_time")
	logTimestamp, err := e.det.DeriveTimestamp(&logTimeCounter)
	if err != nil {
		return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, fmt.Errorf("executor: derive log timestamp: %w", err)
	}

	logIDPayload, err := canonical.Serialize(map[string]any{
		"percept_id": percept.PerceptID,
		"timestamp":  logTimestamp,
	})
	if err != nil {
		return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, fmt.Errorf("executor: serialize log id payload: %w", err)
	}
	logID, err := e.det.DeriveID("reflective_log", string(logIDPayload), nil)
	if err != nil {
		return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, fmt.Errorf("executor: derive log id: %w", err)
	}

	entry := structures.ReflectiveLogEntry{
		LogID:          logID,
		Timestamp:      logTimestamp,
		Percept:        percept,
		RouterDecision: decision,
		AgentOutputs:   outputs,
		CouncilVotes:   []structures.CouncilVote{vote},
		EvidenceItems:  evidence,
		MemoryReads:    capture.Keys(),
		MemoryWrites:   capture.Writes,
		FinalOutput:    final,
		Errors:         errs,
		RandomSeed:     activeSeed,
	}

	if logEnabled {
		if e.log == nil {
			return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, fmt.Errorf("executor: logging enabled but no reflective log writer configured")
		}
		if err := e.log.Append(ctx, &entry); err != nil {
			slog.Error("failed to persist reflective log entry", "log_id", logID, "error", err)
			return structures.FinalOutput{}, structures.ReflectiveLogEntry{}, fmt.Errorf("executor: persist log entry: %w", err)
		}
		slog.Info("reflective log entry persisted", "log_id", logID, "primary_agent", primaryAgentID)
	}

	return final, entry, nil
}

func (e *Executor) resolveSeed(text, intent string, callerSeed *string) (string, error) {
	if callerSeed != nil {
		return *callerSeed, nil
	}

	e.mu.Lock()
	prior := e.currentSeed
	e.mu.Unlock()
	if prior == "" {
		prior = genesisSeed
	}

	sum := sha256.Sum256([]byte(prior + ":" + text + ":" + intent))
	next := hex.EncodeToString(sum[:])

	e.mu.Lock()
	e.currentSeed = next
	e.mu.Unlock()
	return next, nil
}
