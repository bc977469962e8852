package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// DefaultWeights holds the priority weights seeded into an empty store.
type DefaultWeights struct {
	Impact    float64 `yaml:"impact" validate:"min=0,max=1"`
	Frequency float64 `yaml:"frequency" validate:"min=0,max=1"`
	Urgency   float64 `yaml:"urgency" validate:"min=0,max=1"`
}

// SprintCadence describes how generated sprints recur
type SprintCadence struct {
	RRule          string `yaml:"rrule" validate:"required"`
	CapacityPoints int    `yaml:"capacityPoints" validate:"min=0"`
	LengthDays     int    `yaml:"lengthDays" validate:"min=1"`
	NamePrefix     string `yaml:"namePrefix,omitempty"`
}

// Config represents the application configuration
type Config struct {
	HTTPAddr       string         `yaml:"httpAddr,omitempty"`
	DefaultWeights DefaultWeights `yaml:"defaultWeights"`
	SprintCadence  *SprintCadence `yaml:"sprintCadence,omitempty"`
	JiraDomain     string         `yaml:"jiraDomain,omitempty"`
	JiraProjectKey string         `yaml:"jiraProjectKey,omitempty"`
	JiraIssueType  string         `yaml:"jiraIssueType,omitempty"`

	// DatabaseURL comes from the environment, never from the yaml file.
	// When empty the application falls back to the in-memory store.
	DatabaseURL string `yaml:"-"`
	// JiraEmail and JiraAPIToken come from the environment as well.
	JiraEmail    string `yaml:"-"`
	JiraAPIToken string `yaml:"-"`
}

const (
	defaultHTTPAddr      = ":8080"
	defaultJiraIssueType = "Task"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from sgpd_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
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

	applyDefaults(&cfg)
	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks the cadence rrule syntax
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	sum := cfg.DefaultWeights.Impact + cfg.DefaultWeights.Frequency + cfg.DefaultWeights.Urgency
	if math.Abs(sum-1) > db.WeightSumEpsilon {
		return fmt.Errorf("defaultWeights must sum to 1, got %.6f", sum)
	}

	if cfg.SprintCadence != nil {
		if _, err := rrule.StrToRRule(cfg.SprintCadence.RRule); err != nil {
			return fmt.Errorf("invalid rrule in sprintCadence: %w", err)
		}
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.JiraIssueType == "" {
		cfg.JiraIssueType = defaultJiraIssueType
	}
	zero := DefaultWeights{}
	if cfg.DefaultWeights == zero {
		cfg.DefaultWeights = DefaultWeights{Impact: 0.4, Frequency: 0.3, Urgency: 0.3}
	}
}

func applyEnv(cfg *Config) {
	cfg.DatabaseURL = os.Getenv("SGPD_DATABASE_URL")
	cfg.JiraEmail = os.Getenv("SGPD_JIRA_EMAIL")
	cfg.JiraAPIToken = os.Getenv("SGPD_JIRA_API_TOKEN")
}

// findConfigFile searches for sgpd_config.yaml in current directory and home directory
func findConfigFile() (string, error) {
	configFileName := "sgpd_config.yaml"

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
