package sem

import (
	"context"
	"sync"
)

// SandboxStore is an in-memory, read-your-writes store over a read-only
// snapshot supplied at construction (the evidence rehydrated from a
// reflective log by the replay engine). Puts made during a sandboxed
// execution are visible to subsequent Gets within the same sandbox but
// are never persisted, never journaled, and never observed by the Live
// store — replay is provably side-effect-free.
type SandboxStore struct {
	mu       sync.Mutex
	snapshot map[string][]byte
	writes   map[string][]byte
	ts       string
}

// NewSandboxStore builds a sandbox seeded from snapshot (key -> raw
// canonical value blob) and a fixed timestamp to report for every hit,
// since sandboxed reads have no durable last_updated of their own.
func NewSandboxStore(snapshot map[string][]byte, timestamp string) *SandboxStore {
	cp := make(map[string][]byte, len(snapshot))
	for k, v := range snapshot {
		cp[k] = v
	}
	return &SandboxStore{
		snapshot: cp,
		writes:   map[string][]byte{},
		ts:       timestamp,
	}
}

func (s *SandboxStore) IsSandbox() bool { return true }

func (s *SandboxStore) Get(_ context.Context, key string) ([]byte, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.writes[key]; ok {
		return v, s.ts, true, nil
	}
	if v, ok := s.snapshot[key]; ok {
		return v, s.ts, true, nil
	}
	return nil, "", false, nil
}

func (s *SandboxStore) Put(_ context.Context, key string, blob []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[key] = blob
	return nil
}
