// Package reflectivelog signs and durably persists completed reflective
// log entries, and reads them back for the replay engine and for
// signature-integrity auditing.
package reflectivelog

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/levelsub-zero/mace/pkg/canonical"
	"github.com/levelsub-zero/mace/pkg/structures"
)

// ErrNotFound is returned by Get when no row exists for the given log id.
var ErrNotFound = errors.New("reflectivelog: not found")

// KeyResolver resolves a signature_key_id to its HMAC secret. Implemented
// by config.KeyRegistry; declared here so this package does not import
// config.
type KeyResolver interface {
	Resolve(keyID string) (string, error)
}

// Writer signs and persists reflective log entries into the durable
// reflective_logs table. No UPDATE or DELETE path exists here by
// construction — only Append ever touches the table, so storage stays
// append-only.
type Writer struct {
	db    *sql.DB
	keys  KeyResolver
	keyID string
}

// NewWriter binds db (the durable pool) and keys (the signing secret
// resolver) together. keyID selects which signing key new entries use.
func NewWriter(db *sql.DB, keys KeyResolver, keyID string) *Writer {
	return &Writer{db: db, keys: keys, keyID: keyID}
}

// Sign computes the entry's immutable_subpayload and signature, stamping
// both (plus signature_key_id) onto entry, without persisting it.
func (w *Writer) Sign(entry *structures.ReflectiveLogEntry) error {
	entry.ImmutableSubpayload = structures.ImmutableSubpayload{
		LogID:            entry.LogID,
		PerceptText:      entry.Percept.Text,
		FinalOutputText:  entry.FinalOutput.Text,
		RouterDecisionID: entry.RouterDecision.DecisionID,
	}

	secret, err := w.keys.Resolve(w.keyID)
	if err != nil {
		return fmt.Errorf("reflectivelog: resolve signing key: %w", err)
	}

	payload, err := canonical.Serialize(entry.ImmutableSubpayload)
	if err != nil {
		return fmt.Errorf("reflectivelog: serialize subpayload: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	entry.Signature = hex.EncodeToString(mac.Sum(nil))
	entry.SignatureKeyID = w.keyID
	return nil
}

// Append signs and appends entry to the durable reflective_logs table.
// Callers that only want the signed entry without persisting it should
// call Sign directly.
func (w *Writer) Append(ctx context.Context, entry *structures.ReflectiveLogEntry) error {
	if err := w.Sign(entry); err != nil {
		return err
	}

	logJSON, err := canonical.Serialize(entry)
	if err != nil {
		return fmt.Errorf("reflectivelog: serialize entry: %w", err)
	}
	subpayloadJSON, err := canonical.Serialize(entry.ImmutableSubpayload)
	if err != nil {
		return fmt.Errorf("reflectivelog: serialize subpayload: %w", err)
	}

	_, err = w.db.ExecContext(ctx, `
		INSERT INTO reflective_logs (log_id, log_json, immutable_subpayload, signature, signature_key_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.LogID, string(logJSON), string(subpayloadJSON), entry.Signature, entry.SignatureKeyID, entry.Timestamp)
	if err != nil {
		slog.Error("failed to append reflective log entry", "log_id", entry.LogID, "error", err)
		return fmt.Errorf("reflectivelog: insert %q: %w", entry.LogID, err)
	}
	return nil
}

// Reader retrieves persisted log rows and verifies their signatures.
type Reader struct {
	db   *sql.DB
	keys KeyResolver
}

// NewReader binds db and keys together for read-path verification.
func NewReader(db *sql.DB, keys KeyResolver) *Reader {
	return &Reader{db: db, keys: keys}
}

// Get retrieves the raw canonical log_json for logID.
func (r *Reader) Get(ctx context.Context, logID string) ([]byte, error) {
	row := r.db.QueryRowContext(ctx, `SELECT log_json FROM reflective_logs WHERE log_id = $1`, logID)
	var logJSON string
	if err := row.Scan(&logJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reflectivelog: get %q: %w", logID, err)
	}
	return []byte(logJSON), nil
}

// Verify recomputes the signature over the stored immutable_subpayload and
// reports whether it matches the stored signature.
func (r *Reader) Verify(ctx context.Context, logID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT immutable_subpayload, signature, signature_key_id FROM reflective_logs WHERE log_id = $1
	`, logID)
	var subpayload, signature, keyID string
	if err := row.Scan(&subpayload, &signature, &keyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("reflectivelog: verify %q: %w", logID, err)
	}

	secret, err := r.keys.Resolve(keyID)
	if err != nil {
		return false, fmt.Errorf("reflectivelog: resolve signing key %q: %w", keyID, err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(subpayload))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature)), nil
}
