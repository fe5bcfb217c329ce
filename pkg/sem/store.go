// Package sem implements Semantic Memory: the validated, four-segment
// canonical-keyed value store with governance gates, PII scanning, an
// append-only write journal, and read-capture for reflective-log
// evidence.
package sem

import "context"

// Store is the storage capability SEM is built on. Two implementations
// exist: Live (durable, journaled) and Sandbox (in-memory replay). Neither
// store holds the write journal; Service appends to it only when
// IsSandbox reports false. SandboxStore holds no database or journal
// handle, so it cannot reach durable state. The journal skip is a runtime
// check, not enforced by the type system.
type Store interface {
	// Get returns the stored blob and last-updated timestamp for key, or
	// ok=false on a miss.
	Get(ctx context.Context, key string) (blob []byte, lastUpdated string, ok bool, err error)
	// Put replaces the value stored at key unconditionally (last-write-wins).
	Put(ctx context.Context, key string, blob []byte, timestamp string) error
	// IsSandbox reports whether this store is a replay sandbox, i.e.
	// whether journal writes must be skipped.
	IsSandbox() bool
}
