package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/codehawk/codehawk/internal/core"
)

// RepoConfigFileName is the per-repository settings file read from the
// repository root.
const RepoConfigFileName = ".codehawk.yml"

// ErrRepoConfigParsing reports a malformed .codehawk.yml.
var ErrRepoConfigParsing = errors.New("repo config parsing failed")

// ParseRepoConfig parses .codehawk.yml content fetched from a repository.
// Empty content yields the defaults.
func ParseRepoConfig(data []byte) (*core.RepoConfig, error) {
	cfg := core.DefaultRepoConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepoConfigParsing, err)
	}
	return cfg, nil
}
