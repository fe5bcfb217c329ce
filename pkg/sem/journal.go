package sem

import (
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// JournalEntry is one append-only record of a live SEM write. Sandbox
// writes never produce one.
type JournalEntry struct {
	WriteID       string `json:"write_id"`
	CanonicalKey  string `json:"canonical_key"`
	ValueHash     string `json:"value_hash"`
	Source        string `json:"source"`
	LastUpdated   string `json:"last_updated"`
	Seed          string `json:"seed"`
	WriteCounter  uint64 `json:"write_counter"`
	Op            string `json:"op"`
	ValueSnapshot any    `json:"value_snapshot"`
}

// Journal appends newline-delimited JSON journal entries to a rolling log
// file on disk. The rolling writer is the same kind the rest of the
// ecosystem reaches for to bound a long-lived append-only file's size on
// disk.
type Journal struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
}

// NewJournal opens (creating if necessary) a rolling journal file at path.
func NewJournal(path string) *Journal {
	return &Journal{
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    64, // megabytes
			MaxBackups: 10,
			Compress:   false,
		},
	}
}

// Append writes one journal entry as a single JSON line.
func (j *Journal) Append(entry JournalEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("sem: marshal journal entry: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.writer.Write(line); err != nil {
		return fmt.Errorf("sem: append journal entry: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying rolling file.
func (j *Journal) Close() error {
	return j.writer.Close()
}
