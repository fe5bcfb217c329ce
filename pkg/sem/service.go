package sem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/levelsub-zero/mace/pkg/canonical"
	"github.com/levelsub-zero/mace/pkg/determinism"
	"github.com/levelsub-zero/mace/pkg/governance"
	"github.com/levelsub-zero/mace/pkg/telemetry"
)

// Error codes returned in PutResult.Error. These are
// caller-visible strings, not Go sentinel errors, because they are part
// of the wire contract agents and the executor branch on.
const (
	ErrInvalidKeyFormat = "INVALID_KEY_FORMAT"
	ErrPolicyBlocked    = "POLICY_BLOCKED"
	ErrPrivacyBlocked   = "PRIVACY_BLOCKED"
	ErrDBWriteFailed    = "DB_WRITE_FAILED"
)

// PutResult is the outcome of a PutSem call.
type PutResult struct {
	Success     bool
	LastUpdated string
	Error       string
}

// GetResult is the outcome of a GetSem call.
type GetResult struct {
	Exists      bool
	Value       any
	LastUpdated string
}

// Service is Semantic Memory: the validated, governed, journaled,
// capture-aware value store. One Service is bound to one Store (Live or
// Sandbox) and one determinism.Context for the lifetime of a single job —
// swapping stores between jobs (e.g. for replay) means constructing a new
// Service, never mutating this one's Store field.
type Service struct {
	store     Store
	det       *determinism.Context
	policy    governance.PolicyGate
	journal   *Journal
	telemetry telemetry.Counters

	mu      sync.Mutex
	capture *Capture
}

// NewService binds store, det and policy together. journal may be nil if
// store is never Live (e.g. a pure-sandbox service used only for replay).
func NewService(store Store, det *determinism.Context, policy governance.PolicyGate, journal *Journal) *Service {
	return &Service{store: store, det: det, policy: policy, journal: journal}
}

// WithTelemetry attaches counters to an already-constructed Service,
// returning it for chaining. Telemetry is purely observational: recording
// a counter never influences a PutSem/GetSem outcome.
func (s *Service) WithTelemetry(c telemetry.Counters) *Service {
	s.telemetry = c
	return s
}

// StartCapture installs a fresh read/write capture buffer, returning it so
// the caller (the executor) can drain it after the agent invocation
// completes. Only one capture may be installed at a time.
func (s *Service) StartCapture() *Capture {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capture = newCapture()
	return s.capture
}

// StopCapture uninstalls and returns the current capture buffer, or nil if
// none was installed.
func (s *Service) StopCapture() *Capture {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.capture
	s.capture = nil
	return c
}

func (s *Service) activeCapture() *Capture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture
}

// PutSem validates, governs, scans, persists and journals a write to key,
// in that exact short-circuiting order.
func (s *Service) PutSem(ctx context.Context, key string, value any, source string) PutResult {
	result := s.putSem(ctx, key, value, source)
	if s.telemetry != nil {
		switch result.Error {
		case "":
			s.telemetry.SEMWritesTotal().Inc()
		case ErrInvalidKeyFormat, ErrPolicyBlocked, ErrPrivacyBlocked:
			s.telemetry.SEMWritesBlocked().Inc()
		}
	}
	return result
}

func (s *Service) putSem(ctx context.Context, key string, value any, source string) PutResult {
	// 1. Key validation.
	if !validKeyFormat(key) {
		return PutResult{Error: ErrInvalidKeyFormat}
	}

	// 2. Governance.
	if s.policy != nil && s.policy.BlockKey(key) {
		slog.Warn("sem write blocked by governance policy", "key", key, "source", source)
		return PutResult{Error: ErrPolicyBlocked}
	}

	// 3. Serialize & PII scan.
	blob, err := canonical.Serialize(value)
	if err != nil {
		return PutResult{Error: ErrDBWriteFailed}
	}
	if containsPII(blob) {
		slog.Warn("sem write blocked by privacy scan, redacting (fail-closed)", "key", key, "source", source)
		return PutResult{Error: ErrPrivacyBlocked}
	}

	// 4. Metadata.
	counter := s.det.Increment("sem_write")
	ts, err := s.det.DeriveTimestamp(&counter)
	if err != nil {
		return PutResult{Error: ErrDBWriteFailed}
	}
	sum := sha256.Sum256(blob)
	valueHash := hex.EncodeToString(sum[:])

	// 5. Persist.
	if err := s.store.Put(ctx, key, blob, ts); err != nil {
		slog.Error("sem write to store failed", "key", key, "error", err)
		return PutResult{Error: ErrDBWriteFailed}
	}

	// 6. Journal (Live only).
	if !s.store.IsSandbox() && s.journal != nil {
		seed, _ := s.det.Seed()
		writeID, err := s.det.DeriveID("sem_write", key, &counter)
		if err != nil {
			return PutResult{Error: ErrDBWriteFailed}
		}
		entry := JournalEntry{
			WriteID:       writeID,
			CanonicalKey:  key,
			ValueHash:     valueHash,
			Source:        source,
			LastUpdated:   ts,
			Seed:          seed,
			WriteCounter:  counter,
			Op:            "PUT",
			ValueSnapshot: value,
		}
		if err := s.journal.Append(entry); err != nil {
			return PutResult{Error: ErrDBWriteFailed}
		}
	}

	// 7. Capture.
	if c := s.activeCapture(); c != nil {
		c.recordWrite(key)
	}

	return PutResult{Success: true, LastUpdated: ts}
}

// GetSem reads key, recording the outcome in the active capture if one is
// installed. A decode failure on an existing row is treated as a miss.
func (s *Service) GetSem(ctx context.Context, key string) (GetResult, error) {
	blob, lastUpdated, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return GetResult{}, fmt.Errorf("sem: get %q: %w", key, err)
	}
	if !ok {
		s.recordMiss(key)
		return GetResult{Exists: false}, nil
	}

	value, err := canonical.Decode(blob)
	if err != nil {
		s.recordMiss(key)
		return GetResult{Exists: false}, nil
	}

	if c := s.activeCapture(); c != nil {
		c.recordRead(key, ReadRecord{Exists: true, Value: value})
	}
	return GetResult{Exists: true, Value: value, LastUpdated: lastUpdated}, nil
}

func (s *Service) recordMiss(key string) {
	if c := s.activeCapture(); c != nil {
		c.recordRead(key, ReadRecord{Exists: false})
	}
}
