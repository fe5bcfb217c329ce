// Package determinism holds the seeded identifier and timestamp primitives
// the rest of DERC is built on. This state is deliberately not a package
// global: it is a *Context value passed explicitly to the executor, SEM,
// and structure constructors, so concurrent jobs never share counters and
// replay never has to reach into another request's state.
package determinism

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Mode selects whether unseeded wall-clock fallbacks are permitted.
type Mode int

const (
	// Normal permits wall-clock fallbacks at explicit call sites.
	Normal Mode = iota
	// Deterministic fails any such fallback with ErrNoSeed.
	Deterministic
)

// defaultUnsafeSeed is used only in Normal mode when no seed has been set,
// a fixed development fallback value. It must never be reached in
// Deterministic mode.
const defaultUnsafeSeed = "default_unsafe_seed"

// baseEpoch is the origin timestamp derived timestamps are offset from.
var baseEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// timestampSpanSeconds caps the derived offset at roughly ten years.
const timestampSpanSeconds = 315_360_000

// ErrNoSeed is returned when a deterministic operation is attempted in
// Deterministic mode without a seed, or when a wall-clock fallback would
// be required in Deterministic mode.
var ErrNoSeed = errors.New("determinism: no seed initialized")

// Context is the process-local (or, per request, per-Context) mutable
// state: the active seed, a set of named monotonic counters, and the
// current mode. A Context is not safe for concurrent use from more than
// one logical job.
type Context struct {
	mu       sync.Mutex
	seed     string
	hasSeed  bool
	mode     Mode
	counters map[string]uint64
}

// NewContext returns a Context with no seed set and Normal mode, matching
// the default state before any InitSeed call.
func NewContext() *Context {
	return &Context{
		mode:     Normal,
		counters: map[string]uint64{},
	}
}

// InitSeed sets the active seed and resets every counter to empty, so
// Increment(any) returns 1 immediately after this call.
func (c *Context) InitSeed(seed string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seed = seed
	c.hasSeed = true
	c.counters = map[string]uint64{}
}

// SetMode toggles whether unseeded wall-clock fallbacks are permitted.
func (c *Context) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
}

// GetMode returns the current mode.
func (c *Context) GetMode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Seed returns the active seed and whether one has been set.
func (c *Context) Seed() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seed, c.hasSeed
}

// Increment advances the named counter and returns its new value. The
// first call for any name after InitSeed (or after NewContext) returns 1.
func (c *Context) Increment(name string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name]++
	return c.counters[name]
}

// DeriveID computes HMAC_SHA256(seed, "namespace:payload:counter") and
// returns its lowercase hex digest. If counter is nil, the shared "id"
// counter is incremented and used. If no seed is set: Deterministic mode
// fails with ErrNoSeed; Normal mode falls back to defaultUnsafeSeed.
func (c *Context) DeriveID(namespace, payload string, counter *uint64) (string, error) {
	seed, ctr, err := c.resolveSeedAndCounter(counter, "id")
	if err != nil {
		return "", err
	}

	message := fmt.Sprintf("%s:%s:%d", namespace, payload, ctr)
	mac := hmac.New(sha256.New, []byte(seed))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// resolveSeedAndCounter centralizes the seed-fallback and counter-default
// logic shared by DeriveID and DeriveTimestamp.
func (c *Context) resolveSeedAndCounter(counter *uint64, defaultCounterName string) (string, uint64, error) {
	c.mu.Lock()
	mode := c.mode
	seed, hasSeed := c.seed, c.hasSeed
	c.mu.Unlock()

	if !hasSeed {
		if mode == Deterministic {
			return "", 0, ErrNoSeed
		}
		seed = defaultUnsafeSeed
	}

	var ctr uint64
	if counter != nil {
		ctr = *counter
	} else {
		ctr = c.Increment(defaultCounterName)
	}
	return seed, ctr, nil
}

// DeriveTimestamp computes an RFC-3339 UTC timestamp offset from the base
// epoch by HMAC_SHA256(seed, str(counter)) mod ~10 years of seconds. When
// counter is nil: Normal mode returns the current wall-clock time;
// Deterministic mode fails with ErrNoSeed.
func (c *Context) DeriveTimestamp(counter *uint64) (string, error) {
	c.mu.Lock()
	mode := c.mode
	seed, hasSeed := c.seed, c.hasSeed
	c.mu.Unlock()

	if counter == nil {
		if mode == Deterministic {
			return "", fmt.Errorf("determinism: counter required in Deterministic mode: %w", ErrNoSeed)
		}
		return time.Now().UTC().Format(time.RFC3339), nil
	}

	if !hasSeed {
		if mode == Deterministic {
			return "", ErrNoSeed
		}
		seed = defaultUnsafeSeed
	}

	payload := fmt.Sprintf("%d", *counter)
	mac := hmac.New(sha256.New, []byte(seed))
	mac.Write([]byte(payload))
	digest := mac.Sum(nil)

	offset := binary.BigEndian.Uint32(digest[:4]) % timestampSpanSeconds
	derived := baseEpoch.Add(time.Duration(offset) * time.Second)
	return derived.Format(time.RFC3339), nil
}
