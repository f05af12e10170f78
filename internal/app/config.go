package app

import (
	"errors"
	"fmt"
	"time"
)

// Command selects what Run does.
type Command string

const (
	// CommandServe loads the model and exposes it over socket.io.
	CommandServe Command = "serve"
	// CommandDump loads the model and prints its rows.
	CommandDump Command = "dump"
	// CommandWatch follows a model served elsewhere.
	CommandWatch Command = "watch"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command    Command
	SchemaPath string // hcl files
	SeedPath   string // yaml or json records

	Addr            string
	HealthcheckPort int
	DumpFormat      string

	URL     string
	Timeout time.Duration

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Command == "" {
		cfg.Command = CommandServe
	}
	switch cfg.Command {
	case CommandServe, CommandDump:
		if cfg.SchemaPath == "" {
			return nil, errors.New("SchemaPath is a required configuration field and cannot be empty")
		}
	case CommandWatch:
		if cfg.URL == "" {
			return nil, errors.New("URL is a required configuration field for watch and cannot be empty")
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.HealthcheckPort < 0 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	switch cfg.DumpFormat {
	case "":
		cfg.DumpFormat = "json"
	case "json", "yaml":
	default:
		return nil, fmt.Errorf("invalid dump format %q: must be 'json' or 'yaml'", cfg.DumpFormat)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &cfg, nil
}
