package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/levelsub-zero/mace/pkg/governance"
)

// policyFile is the on-disk shape of the governance blocklist config.
type policyFile struct {
	BlockedKeyPrefixes []string `yaml:"blocked_key_prefixes"`
}

// LoadBlocklistPolicy reads a YAML file of blocked_key_prefixes and
// returns a governance.PolicyGate built from it. A non-existent path
// yields an empty (block-nothing) policy rather than an error, since the
// blocklist is an optional operator override.
func LoadBlocklistPolicy(path string) (*governance.BlocklistPolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return governance.NewBlocklistPolicy(nil), nil
		}
		return nil, fmt.Errorf("config: read policy file %q: %w", path, err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("config: parse policy file %q: %w", path, err)
	}
	return governance.NewBlocklistPolicy(pf.BlockedKeyPrefixes), nil
}
