package sem

// ReadRecord is what a single capture-installed Get observed: either a
// hit with its parsed value, or a recorded miss.
type ReadRecord struct {
	Exists bool
	Value  any
}

// Capture is the read/write trace a Service installs for the duration of
// one agent invocation, drained by the executor to build reflective-log
// evidence and memory_reads/memory_writes.
type Capture struct {
	// Reads preserves insertion order via Order; Values holds the record
	// per key (last write to a key within the capture wins).
	Order  []string
	Values map[string]ReadRecord
	Writes []string
}

// newCapture returns an empty capture buffer.
func newCapture() *Capture {
	return &Capture{Values: map[string]ReadRecord{}}
}

// recordRead appends key to the insertion order exactly once and stores
// its read record.
func (c *Capture) recordRead(key string, rec ReadRecord) {
	if _, seen := c.Values[key]; !seen {
		c.Order = append(c.Order, key)
	}
	c.Values[key] = rec
}

// recordWrite appends key to the write-order trace.
func (c *Capture) recordWrite(key string) {
	c.Writes = append(c.Writes, key)
}

// Keys returns the read keys in first-observed insertion order, matching
// the memory_reads contract the executor's log construction expects.
func (c *Capture) Keys() []string {
	out := make([]string, len(c.Order))
	copy(out, c.Order)
	return out
}
