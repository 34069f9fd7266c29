package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Kaijun101/mavros/param"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	NATSURL     string
	Namespace   string
	Timeout     time.Duration
	Format      string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool

	// Command and its positional arguments, e.g. "get RTL_ALT"
	Command string
	Args    []string
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("MAVPARAM_CONFIG", ""),
		"Path to configuration file, optional (env: MAVPARAM_CONFIG)")

	flag.StringVar(&cfg.NATSURL, "url",
		getEnv("MAVPARAM_NATS_URL", "nats://localhost:4222"),
		"NATS server URL (env: MAVPARAM_NATS_URL)")

	flag.StringVar(&cfg.Namespace, "namespace",
		getEnv("MAVPARAM_NAMESPACE", "mavros"),
		"Subject namespace of the parameter services (env: MAVPARAM_NAMESPACE)")

	flag.DurationVar(&cfg.Timeout, "timeout",
		getEnvDuration("MAVPARAM_TIMEOUT", 5*time.Second),
		"Per-call timeout (env: MAVPARAM_TIMEOUT)")

	flag.StringVar(&cfg.Format, "format",
		getEnv("MAVPARAM_FORMAT", param.FormatQGroundControl),
		"File format for dump/load: mavproxy, missionplanner, qgc (env: MAVPARAM_FORMAT)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("MAVPARAM_LOG_LEVEL", "warn"),
		"Log level: debug, info, warn, error (env: MAVPARAM_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("MAVPARAM_LOG_FORMAT", "text"),
		"Log format: json, text (env: MAVPARAM_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	flag.Usage = printDetailedHelp
	flag.Parse()

	if flag.NArg() > 0 {
		cfg.Command = flag.Arg(0)
		cfg.Args = flag.Args()[1:]
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	fileFormats := []string{param.FormatMavProxy, param.FormatMissionPlanner, param.FormatQGroundControl}
	if !contains(fileFormats, cfg.Format) {
		return fmt.Errorf("invalid file format: %s", cfg.Format)
	}

	switch cfg.Command {
	case "":
		return fmt.Errorf("no command given, expected one of: pull, list, get, set, dump, load")
	case "pull", "list":
		if len(cfg.Args) != 0 {
			return fmt.Errorf("%s takes no arguments", cfg.Command)
		}
	case "get":
		if len(cfg.Args) != 1 {
			return fmt.Errorf("usage: get NAME")
		}
	case "set":
		if len(cfg.Args) != 2 {
			return fmt.Errorf("usage: set NAME VALUE")
		}
	case "dump", "load":
		if len(cfg.Args) != 1 {
			return fmt.Errorf("usage: %s FILE", cfg.Command)
		}
	default:
		return fmt.Errorf("unknown command: %s", cfg.Command)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - vehicle parameter tool

Usage: %s [options] COMMAND [args]

Commands:
  pull             Resynchronize the remote parameter table and show the count
  list             Print all parameter names and values
  get NAME         Print one parameter value
  set NAME VALUE   Write one parameter
  dump FILE        Save all parameters to FILE in the selected format
  load FILE        Read FILE and write every parameter it contains

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Print one parameter
  %s get RTL_ALT

  # Save everything in QGroundControl format
  %s --format=qgc dump vehicle.params

  # Write parameters from a MavProxy file
  %s --format=mavproxy load vehicle.parm

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], Version)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
