package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/ci-warden/internal/util"
)

// RepoConfigFile is the per-repository configuration file name.
const RepoConfigFile = ".ci-warden.yml"

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParsing  = errors.New("config parsing failed")
)

// RepoConfig holds the per-repository overrides read from .ci-warden.yml.
type RepoConfig struct {
	// Command replaces the runner's test command.
	Command string
	// Timeout replaces the runner's timeout when positive.
	Timeout time.Duration
	// Branches limits which pushed branches are tested. Empty means all.
	Branches []string
	// Env is added to the test process environment.
	Env map[string]string
}

// rawRepoConfig mirrors the file layout. branches may be a single name or a list.
type rawRepoConfig struct {
	Command  string            `yaml:"command"`
	Timeout  string            `yaml:"timeout"`
	Branches any               `yaml:"branches"`
	Env      map[string]string `yaml:"env"`
}

// DefaultRepoConfig returns a config with no overrides.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		Branches: []string{},
		Env:      map[string]string{},
	}
}

// LoadRepoConfig loads and parses the .ci-warden.yml file from a repository path.
// A missing file yields the default config together with ErrConfigNotFound.
func LoadRepoConfig(repoPath string) (*RepoConfig, error) {
	data, err := os.ReadFile(filepath.Join(repoPath, RepoConfigFile))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRepoConfig(), ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", RepoConfigFile, err)
	}
	return ParseRepoConfig(data)
}

// ParseRepoConfig decodes the contents of a .ci-warden.yml file.
func ParseRepoConfig(data []byte) (*RepoConfig, error) {
	var raw rawRepoConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}

	cfg := DefaultRepoConfig()
	cfg.Command = raw.Command
	if raw.Env != nil {
		cfg.Env = raw.Env
	}

	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: invalid timeout %q", ErrConfigParsing, raw.Timeout)
		}
		cfg.Timeout = d
	}

	if raw.Branches != nil {
		// yaml decodes lists into []any, so normalize element-wise.
		for _, b := range util.EnsureSlice[any](raw.Branches) {
			name, ok := b.(string)
			if !ok || name == "" {
				return nil, fmt.Errorf("%w: branches must be names, got %v", ErrConfigParsing, b)
			}
			cfg.Branches = append(cfg.Branches, name)
		}
	}
	return cfg, nil
}

// TestsBranch reports whether pushes to branch should be tested.
func (c *RepoConfig) TestsBranch(branch string) bool {
	return len(c.Branches) == 0 || branch == "" || slices.Contains(c.Branches, branch)
}
