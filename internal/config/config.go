package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/ci-warden/internal/logger"
)

// Config holds the application's configuration values.
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	GitHub   GitHubConfig  `mapstructure:"github"`
	Database DBConfig      `mapstructure:"database"`
	Logging  logger.Config `mapstructure:"logging"`
	Runner   RunnerConfig  `mapstructure:"runner"`
	Queue    QueueConfig   `mapstructure:"queue"`
	Badge    BadgeConfig   `mapstructure:"badge"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	// BaseURL is the externally reachable address, used for status target URLs.
	BaseURL string `mapstructure:"base_url"`
}

// GitHubConfig configures webhook verification and the status API client.
// Either an App (AppID, InstallationID, PrivateKeyPath) or a Token may be set;
// with neither, commit statuses are not posted.
type GitHubConfig struct {
	AppID          int64  `mapstructure:"app_id"`
	InstallationID int64  `mapstructure:"installation_id"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	Token          string `mapstructure:"token"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	StatusContext  string `mapstructure:"status_context"`
}

// Enabled reports whether enough credentials are configured to call the API.
func (c GitHubConfig) Enabled() bool {
	return c.Token != "" || (c.AppID != 0 && c.InstallationID != 0)
}

// DBConfig configures the record store.
type DBConfig struct {
	// Driver is "postgres" or "memory".
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RunnerConfig configures how test runs are executed.
type RunnerConfig struct {
	// RepoPath is the local clone the runner checks commits out into.
	RepoPath string `mapstructure:"repo_path"`
	// Command is the test command line, split with shell quoting rules.
	Command string `mapstructure:"command"`
	// Timeout bounds every test run; the process is killed once it elapses.
	Timeout time.Duration `mapstructure:"timeout"`
	// LogDir receives one <sha>.log file per run. Empty disables log capture.
	LogDir string `mapstructure:"log_dir"`
	// Env is added to the environment of the test process.
	Env map[string]string `mapstructure:"env"`
}

// QueueConfig configures the job queue.
type QueueConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// BadgeConfig configures badge synthesis.
type BadgeConfig struct {
	// CoverageThreshold is the coverage percentage from which the coverage
	// badge turns brightgreen; below it the badge is red.
	CoverageThreshold float64 `mapstructure:"coverage_threshold"`
}

// LoadConfig reads configuration from an optional config.yaml and CIW_ prefixed
// environment variables (CIW_RUNNER_TIMEOUT for runner.timeout), sets sensible
// defaults, and validates the result. It uses the Viper library to handle
// configuration loading and precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/ci-warden")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", "error", err)
		}
	}

	v.SetEnvPrefix("CIW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("github.status_context", "continuous-integration/ci-warden")
	v.SetDefault("github.private_key_path", "keys/ci-warden.private-key.pem")
	v.SetDefault("github.app_id", 0)
	v.SetDefault("github.installation_id", 0)
	v.SetDefault("github.token", "")
	v.SetDefault("github.webhook_secret", "")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "ci-warden")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "ci-warden")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("runner.repo_path", "./workspace")
	v.SetDefault("runner.command", "go test -cover ./...")
	v.SetDefault("runner.timeout", 8*time.Minute)
	v.SetDefault("runner.log_dir", "./logs")
	v.SetDefault("queue.capacity", 100)
	v.SetDefault("badge.coverage_threshold", 50.0)
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must be set")
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Runner.Command) == "" {
		return fmt.Errorf("runner.command must be set")
	}
	if c.Runner.Timeout <= 0 {
		return fmt.Errorf("runner.timeout must be positive, got %s", c.Runner.Timeout)
	}
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("queue.capacity must be positive, got %d", c.Queue.Capacity)
	}
	if c.Badge.CoverageThreshold < 0 || c.Badge.CoverageThreshold > 100 {
		return fmt.Errorf("badge.coverage_threshold must be within [0, 100], got %v", c.Badge.CoverageThreshold)
	}
	return nil
}
