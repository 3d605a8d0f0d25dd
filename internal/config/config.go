package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/plakatpatruljen/fieldops/pkg/core/election"
)

// ElectionConfig pins the session and calendar to one election
type ElectionConfig struct {
	Type election.Type `yaml:"type" envconfig:"ELECTION_TYPE" validate:"required"`
	Date string        `yaml:"date" envconfig:"ELECTION_DATE" validate:"required"`
}

// Config represents the application configuration
type Config struct {
	WorkerID   string `yaml:"workerID" envconfig:"WORKER_ID" validate:"required"`
	CampaignID string `yaml:"campaignID" envconfig:"CAMPAIGN_ID" validate:"required"`

	Election ElectionConfig `yaml:"election"`

	// Commit endpoint for the record_poster_log RPC. Empty selects the
	// direct-database committer and requires DatabaseURL.
	CommitBaseURL string `yaml:"commitBaseURL,omitempty" envconfig:"COMMIT_BASE_URL" validate:"omitempty,url"`
	CommitAPIKey  string `yaml:"commitAPIKey,omitempty" envconfig:"COMMIT_API_KEY"`
	DatabaseURL   string `yaml:"databaseURL,omitempty" envconfig:"DATABASE_URL"`

	// QueueDir holds the durable offline queue; empty keeps it in memory
	QueueDir      string        `yaml:"queueDir,omitempty" envconfig:"QUEUE_DIR"`
	FlushInterval time.Duration `yaml:"flushInterval,omitempty" envconfig:"FLUSH_INTERVAL"`

	// ConnectivityURL overrides the internet reachability check endpoint
	ConnectivityURL string `yaml:"connectivityURL,omitempty" envconfig:"CONNECTIVITY_URL" validate:"omitempty,url"`

	// StrictCompliance makes sessions refuse to start without location
	// permission instead of degrading.
	StrictCompliance bool `yaml:"strictCompliance,omitempty" envconfig:"STRICT_COMPLIANCE"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from fieldops_config.yaml,
// then applies FIELDOPS_* environment overrides.
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := envconfig.Process("FIELDOPS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and its election settings
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if !cfg.Election.Type.IsValid() {
		return fmt.Errorf("invalid election type %q", cfg.Election.Type)
	}
	if _, err := cfg.ElectionDate(); err != nil {
		return err
	}

	if cfg.CommitBaseURL == "" && cfg.DatabaseURL == "" {
		return fmt.Errorf("config validation failed: either commitBaseURL or databaseURL must be set")
	}

	return nil
}

// ElectionDate parses the configured election date
func (c *Config) ElectionDate() (time.Time, error) {
	date, err := time.Parse("2006-01-02", c.Election.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid election date %q: %w", c.Election.Date, err)
	}
	return date, nil
}

// findConfigFile searches for fieldops_config.yaml in current directory and home directory
func findConfigFile() (string, error) {
	configFileName := "fieldops_config.yaml"

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
