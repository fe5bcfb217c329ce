// Package config loads the environment- and file-based settings the rest
// of DERC treats as external collaborators: the reflective log's signing
// key registry and the governance policy blocklist.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// keysFile is the on-disk shape of an optional keys.yaml signing-key file.
type keysFile struct {
	Keys map[string]string `yaml:"keys"`
}

// KeyRegistry resolves a signature_key_id to its HMAC secret, checking an
// environment variable, then a loaded keys.yaml map, then (if enabled) a
// fixed development fallback, in that order.
type KeyRegistry struct {
	devMode  bool
	fileKeys map[string]string
}

// NewKeyRegistry returns a registry with no keys.yaml loaded. devMode
// mirrors DERC_DEV_MODE: when true, a key id resolved by neither the
// environment nor a loaded file falls back to the fixed development
// secret "test_secret_for_{key_id}" instead of failing.
func NewKeyRegistry(devMode bool) *KeyRegistry {
	return &KeyRegistry{devMode: devMode}
}

// NewKeyRegistryFromEnv builds a KeyRegistry, reading DERC_DEV_MODE from
// the environment ("1", "true", "yes" all enable it).
func NewKeyRegistryFromEnv() *KeyRegistry {
	v := os.Getenv("DERC_DEV_MODE")
	return NewKeyRegistry(v == "1" || v == "true" || v == "yes")
}

// LoadKeyRegistryFromFile builds a KeyRegistry backed by a keys.yaml file
// mapping key id to secret, in addition to the environment-variable and
// dev-mode fallback paths. A non-existent path yields a registry with no
// file-backed keys rather than an error, since keys.yaml is an optional
// operator override (matching LoadBlocklistPolicy's convention for
// policy.yaml).
func LoadKeyRegistryFromFile(path string, devMode bool) (*KeyRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewKeyRegistry(devMode), nil
		}
		return nil, fmt.Errorf("config: read keys file %q: %w", path, err)
	}

	var kf keysFile
	if err := yaml.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("config: parse keys file %q: %w", path, err)
	}
	return &KeyRegistry{devMode: devMode, fileKeys: kf.Keys}, nil
}

// Resolve returns the secret for keyID, checking the MACE_KEY_{key_id}
// environment variable first, then any keys.yaml entry, then (if
// devMode) the fixed development fallback. It errors only when none of
// those three sources resolves keyID.
func (r *KeyRegistry) Resolve(keyID string) (string, error) {
	envName := "MACE_KEY_" + sanitizeEnvName(keyID)
	if secret := os.Getenv(envName); secret != "" {
		return secret, nil
	}
	if secret, ok := r.fileKeys[keyID]; ok && secret != "" {
		return secret, nil
	}
	if r.devMode {
		return fmt.Sprintf("test_secret_for_%s", keyID), nil
	}
	return "", fmt.Errorf("config: no signing secret configured for key id %q (set %s or add it to keys.yaml)", keyID, envName)
}

func sanitizeEnvName(keyID string) string {
	return nonAlphanumeric.ReplaceAllString(keyID, "_")
}
