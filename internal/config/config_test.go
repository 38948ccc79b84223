package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DBConfig{Driver: "memory"},
		Runner:   RunnerConfig{Command: "go test ./...", Timeout: time.Minute},
		Queue:    QueueConfig{Capacity: 10},
		Badge:    BadgeConfig{CoverageThreshold: 50},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "Valid config", mutate: func(_ *Config) {}},
		{name: "Missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: true},
		{name: "Unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "Blank command", mutate: func(c *Config) { c.Runner.Command = "  " }, wantErr: true},
		{name: "Zero timeout", mutate: func(c *Config) { c.Runner.Timeout = 0 }, wantErr: true},
		{name: "Zero capacity", mutate: func(c *Config) { c.Queue.Capacity = 0 }, wantErr: true},
		{name: "Threshold above 100", mutate: func(c *Config) { c.Badge.CoverageThreshold = 101 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CIW_DATABASE_DRIVER", "memory")
	t.Setenv("CIW_RUNNER_TIMEOUT", "90s")
	t.Setenv("CIW_BADGE_COVERAGE_THRESHOLD", "75")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 90*time.Second, cfg.Runner.Timeout)
	assert.InDelta(t, 75.0, cfg.Badge.CoverageThreshold, 0.001)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestGitHubConfig_Enabled(t *testing.T) {
	assert.False(t, GitHubConfig{}.Enabled())
	assert.True(t, GitHubConfig{Token: "t"}.Enabled())
	assert.False(t, GitHubConfig{AppID: 1}.Enabled())
	assert.True(t, GitHubConfig{AppID: 1, InstallationID: 2}.Enabled())
}

func TestParseRepoConfig(t *testing.T) {
	tests := []struct {
		name         string
		yaml         string
		wantErr      bool
		wantBranches []string
		wantTimeout  time.Duration
	}{
		{
			name:         "Single branch",
			yaml:         "command: make test\nbranches: main\n",
			wantBranches: []string{"main"},
		},
		{
			name:         "Branch list and timeout",
			yaml:         "branches: [main, dev]\ntimeout: 2m\n",
			wantBranches: []string{"main", "dev"},
			wantTimeout:  2 * time.Minute,
		},
		{
			name:    "Bad timeout",
			yaml:    "timeout: soon\n",
			wantErr: true,
		},
		{
			name:    "Non-string branch",
			yaml:    "branches: [1, {a: b}]\n",
			wantErr: true,
		},
		{
			name:    "Malformed yaml",
			yaml:    "command: [unterminated\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseRepoConfig([]byte(tt.yaml))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConfigParsing))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBranches, cfg.Branches)
			assert.Equal(t, tt.wantTimeout, cfg.Timeout)
		})
	}
}

func TestLoadRepoConfig_Missing(t *testing.T) {
	cfg, err := LoadRepoConfig(t.TempDir())
	assert.ErrorIs(t, err, ErrConfigNotFound)
	require.NotNil(t, cfg)
	assert.True(t, cfg.TestsBranch("anything"))
}

func TestLoadRepoConfig_File(t *testing.T) {
	dir := t.TempDir()
	content := "command: go test -race ./...\nbranches: main\nenv:\n  GOFLAGS: -mod=mod\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, RepoConfigFile), []byte(content), 0600))

	cfg, err := LoadRepoConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "go test -race ./...", cfg.Command)
	assert.Equal(t, "-mod=mod", cfg.Env["GOFLAGS"])
	assert.True(t, cfg.TestsBranch("main"))
	assert.False(t, cfg.TestsBranch("feature"))
}
