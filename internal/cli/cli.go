package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vk/listmodel/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usage = `
listmodel - A role-based list model served to remote UIs.

Usage:
  listmodel [serve] [options] [SCHEMA_PATH]
  listmodel dump [options] [SCHEMA_PATH]
  listmodel watch --url URL [options]

Commands:
  serve   Load the schema and seed, then serve the model over socket.io (default).
  dump    Load the schema and seed, then print every row.
  watch   Connect to a served model and print its snapshot and events.

Arguments:
  SCHEMA_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	command := app.CommandServe
	if len(args) > 0 {
		switch c := app.Command(args[0]); c {
		case app.CommandServe, app.CommandDump, app.CommandWatch:
			command = c
			args = args[1:]
		}
	}

	flagSet := flag.NewFlagSet("listmodel", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usage)
		flagSet.PrintDefaults()
	}

	schemaFlag := flagSet.String("schema", "", "Path to the schema file or directory.")
	sFlag := flagSet.String("s", "", "Path to the schema file or directory (shorthand).")
	seedFlag := flagSet.String("seed", "", "Path to a YAML or JSON file of initial records.")
	addrFlag := flagSet.String("addr", ":8080", "Address the model server listens on.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for a separate HTTP health check server. 0 is disabled.")
	formatFlag := flagSet.String("format", "json", "Output format for dump. Options: 'json' or 'yaml'.")
	urlFlag := flagSet.String("url", "", "URL of the served model to watch.")
	timeoutFlag := flagSet.Duration("timeout", 15*time.Second, "Connection timeout for watch.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.", "command", command)

	path := ""
	if *schemaFlag != "" {
		path = *schemaFlag
	} else if *sFlag != "" {
		path = *sFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Schema path determined.", "path", path)

	if path == "" && command != app.CommandWatch {
		slog.Debug("No schema path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:         command,
		SchemaPath:      path,
		SeedPath:        *seedFlag,
		Addr:            *addrFlag,
		HealthcheckPort: *healthPortFlag,
		DumpFormat:      strings.ToLower(*formatFlag),
		URL:             *urlFlag,
		Timeout:         *timeoutFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
