// Package artifact implements the content-addressed flat blob store
// referenced by redacted evidence objects, keyed as
// artifacts://{sha256}.bin. Concurrent writes of identical content are
// idempotent by construction: the key IS the hash.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Get when no blob exists for the given URL.
var ErrNotFound = errors.New("artifact: not found")

// Store is a content-addressed blob store rooted at a directory on disk.
type Store struct {
	root string
}

// NewStore returns a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create store root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Save writes blob under its sha256 digest and returns the artifacts://
// URL it can be retrieved from. Writing the same bytes twice is a no-op
// the second time.
func (s *Store) Save(blob []byte) (string, error) {
	sum := sha256.Sum256(blob)
	digest := hex.EncodeToString(sum[:])
	url := fmt.Sprintf("artifacts://%s.bin", digest)

	path, err := s.pathFor(url)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return url, nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", url, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("artifact: finalize %s: %w", url, err)
	}
	return url, nil
}

// Get retrieves the blob stored at url.
func (s *Store) Get(url string) ([]byte, error) {
	path, err := s.pathFor(url)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("artifact: read %s: %w", url, err)
	}
	return blob, nil
}

// pathFor validates url and resolves it to an on-disk path, guarding
// against path traversal via the digest component (ported from the
// original artifact_store's path-sanitization check).
func (s *Store) pathFor(url string) (string, error) {
	const prefix = "artifacts://"
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("artifact: malformed url %q", url)
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", fmt.Errorf("artifact: unsafe artifact name %q", name)
	}
	if filepath.Base(name) != name {
		return "", fmt.Errorf("artifact: unsafe artifact name %q", name)
	}
	return filepath.Join(s.root, name), nil
}
