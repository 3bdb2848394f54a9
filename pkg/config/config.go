// Package config provides file- and environment-based configuration for mission control.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML config file.
const ConfigFileEnv = "MISSION_CONTROL_CONFIG"

// Config holds all configuration for the dashboard.
type Config struct {
	// Server configuration
	APIHost string `yaml:"api_host"`
	APIPort int    `yaml:"api_port"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Paths   PathsConfig   `yaml:"paths"`
	Logs    LogsConfig    `yaml:"logs"`
	Search  SearchConfig  `yaml:"search"`
	Actions ActionsConfig `yaml:"actions"`

	// Agents is the roster shown on the agent and memory panels.
	Agents []AgentConfig `yaml:"agents"`
}

// PathsConfig holds the locations of every file the dashboard reads.
type PathsConfig struct {
	// OpenClawDir is the root of the agent runtime state (~/.openclaw).
	OpenClawDir string `yaml:"openclaw_dir"`
	// WorkspaceDir is the agent workspace searched by the search panel.
	WorkspaceDir string `yaml:"workspace_dir"`
	// LogDir holds the per-day structured log files.
	LogDir string `yaml:"log_dir"`

	AttestationLog  string `yaml:"attestation_log"`
	ExperimentsFile string `yaml:"experiments_file"`
	PriceLog        string `yaml:"price_log"`
	CronJobsFile    string `yaml:"cron_jobs_file"`
	GatewayConfig   string `yaml:"gateway_config"`
	MemoryDir       string `yaml:"memory_dir"`
	AgentsDir       string `yaml:"agents_dir"`
}

// LogsConfig holds structured log panel limits.
type LogsConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// SearchConfig holds workspace search limits.
type SearchConfig struct {
	DefaultLimit int   `yaml:"default_limit"`
	MaxFileSize  int64 `yaml:"max_file_size"`
}

// ActionsConfig holds the operator action whitelist.
type ActionsConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// Commands maps an action name to the argv it runs.
	Commands map[string][]string `yaml:"commands"`
}

// AgentConfig describes one agent in the roster.
type AgentConfig struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
}

// Load builds the configuration from defaults, the optional YAML file named by
// MISSION_CONTROL_CONFIG, and environment overrides, in that order.
func Load() (*Config, error) {
	cfg := LoadWithDefaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithDefaults returns the built-in defaults rooted at the user's home directory.
// It does not read any file or validate, useful for testing.
func LoadWithDefaults() *Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Defaults(home)
}

// Defaults returns the default configuration for the given home directory.
func Defaults(home string) *Config {
	openclaw := filepath.Join(home, ".openclaw")
	workspace := filepath.Join(openclaw, "workspace")

	return &Config{
		APIHost:         "127.0.0.1",
		APIPort:         3000,
		ShutdownTimeout: 30 * time.Second,
		LogLevel:        "info",
		Paths:           derivePaths(openclaw, workspace, filepath.Join(os.TempDir(), "openclaw")),
		Logs: LogsConfig{
			DefaultLimit: 100,
			MaxLimit:     1000,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			MaxFileSize:  1024 * 1024,
		},
		Actions: ActionsConfig{
			Timeout: 120 * time.Second,
			Commands: map[string][]string{
				"gap-alert":      {"bash", filepath.Join(workspace, "trading", "backtest", "gap_alert_silent.sh")},
				"attest":         {"bash", filepath.Join(workspace, "skills", "clawdsure", "scripts", "attest.sh")},
				"gateway-status": {"openclaw", "gateway", "status"},
			},
		},
		Agents: []AgentConfig{
			{ID: "main", Name: "Clawdine", Model: "Opus"},
			{ID: "clawdsure", Name: "ClawdSure", Model: "Sonnet"},
		},
	}
}

func derivePaths(openclaw, workspace, logDir string) PathsConfig {
	return PathsConfig{
		OpenClawDir:     openclaw,
		WorkspaceDir:    workspace,
		LogDir:          logDir,
		AttestationLog:  filepath.Join(workspace, ".clawdsure", "attestation.log"),
		ExperimentsFile: filepath.Join(workspace, "trading", "experiments.md"),
		PriceLog:        filepath.Join(workspace, "trading", "backtest", "price_log.jsonl"),
		CronJobsFile:    filepath.Join(openclaw, "cron", "jobs.json"),
		GatewayConfig:   filepath.Join(openclaw, "openclaw.json"),
		MemoryDir:       filepath.Join(openclaw, "memory"),
		AgentsDir:       filepath.Join(openclaw, "agents"),
	}
}

// MergeFile overlays the YAML document at path onto c. Keys absent from the
// file keep their current values.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnv applies environment overrides. Changing the root directories
// re-derives the paths below them.
func (c *Config) applyEnv() {
	c.APIHost = getEnv("MC_API_HOST", c.APIHost)
	c.APIPort = getIntEnv("MC_API_PORT", c.APIPort)
	c.LogLevel = getEnv("MC_LOG_LEVEL", c.LogLevel)
	c.ShutdownTimeout = getDurationEnv("MC_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.Actions.Timeout = getDurationEnv("MC_ACTION_TIMEOUT", c.Actions.Timeout)

	openclaw := getEnv("MC_OPENCLAW_DIR", "")
	workspace := getEnv("MC_WORKSPACE_DIR", "")
	if openclaw != "" || workspace != "" {
		if openclaw == "" {
			openclaw = c.Paths.OpenClawDir
		}
		if workspace == "" {
			workspace = filepath.Join(openclaw, "workspace")
		}
		c.Paths = derivePaths(openclaw, workspace, c.Paths.LogDir)
	}
	c.Paths.LogDir = getEnv("MC_LOG_DIR", c.Paths.LogDir)
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("api_port must be between 1 and 65535, got %d", c.APIPort)
	}
	required := map[string]string{
		"paths.attestation_log":  c.Paths.AttestationLog,
		"paths.log_dir":          c.Paths.LogDir,
		"paths.experiments_file": c.Paths.ExperimentsFile,
		"paths.workspace_dir":    c.Paths.WorkspaceDir,
		"paths.memory_dir":       c.Paths.MemoryDir,
	}
	for key, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	if c.Actions.Timeout <= 0 {
		return fmt.Errorf("actions.timeout must be positive")
	}
	if c.Logs.DefaultLimit <= 0 || c.Logs.MaxLimit < c.Logs.DefaultLimit {
		return fmt.Errorf("logs limits invalid: default=%d max=%d", c.Logs.DefaultLimit, c.Logs.MaxLimit)
	}
	for name, argv := range c.Actions.Commands {
		if len(argv) == 0 {
			return fmt.Errorf("action %q has an empty command", name)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
