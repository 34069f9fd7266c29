// Package main implements mavparam, a command-line tool for inspecting and
// editing a vehicle's parameters over the mavros parameter services.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/Kaijun101/mavros"
	"github.com/Kaijun101/mavros/config"
	"github.com/Kaijun101/mavros/param"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "mavparam"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := buildConfig(cliCfg)
	if err != nil {
		return err
	}

	client, err := mavros.New(cfg, mavros.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = client.Close(ctx) }()

	store, err := client.Param(ctx)
	if err != nil {
		return err
	}

	return execute(ctx, cliCfg, store)
}

// buildConfig merges the optional config file with command-line overrides
func buildConfig(cliCfg *CLIConfig) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cliCfg.ConfigPath != "" {
		loaded, err := config.LoadFromFile(cliCfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if cliCfg.NATSURL != "" {
		cfg.NATS.URL = cliCfg.NATSURL
	}
	if cliCfg.Namespace != "" {
		cfg.Param.Namespace = cliCfg.Namespace
	}
	if cliCfg.Timeout > 0 {
		cfg.Param.CallTimeout = cliCfg.Timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func execute(ctx context.Context, cliCfg *CLIConfig, store *param.Store) error {
	switch cliCfg.Command {
	case "pull":
		n, err := store.Pull(ctx, true)
		if err != nil {
			return err
		}
		fmt.Printf("pulled %d parameters\n", n)
		return nil

	case "list":
		for _, p := range store.Snapshot() {
			fmt.Printf("%s\t%s\n", p.Name, p.Value.Text())
		}
		return nil

	case "get":
		v, err := store.Get(cliCfg.Args[0])
		if err != nil {
			return err
		}
		fmt.Println(v.Text())
		return nil

	case "set":
		value, err := param.Infer(cliCfg.Args[1])
		if err != nil {
			return err
		}
		result, err := store.Set(ctx, cliCfg.Args[0], value)
		if err != nil {
			return err
		}
		if !result.Successful {
			return fmt.Errorf("set %s rejected: %s", cliCfg.Args[0], result.Reason)
		}
		fmt.Printf("%s = %s\n", cliCfg.Args[0], value.Text())
		return nil

	case "dump":
		return dumpFile(cliCfg, store)

	case "load":
		return loadFile(ctx, cliCfg, store)

	default:
		return fmt.Errorf("unknown command: %s", cliCfg.Command)
	}
}

func dumpFile(cliCfg *CLIConfig, store *param.Store) error {
	file, err := param.NewFile(cliCfg.Format)
	if err != nil {
		return err
	}
	file.SetParameters(store.Snapshot())
	if qgc, ok := file.(*param.QGroundControlFile); ok {
		qgc.TargetSystem, qgc.TargetComponent = store.Target()
	}

	out, err := os.Create(cliCfg.Args[0])
	if err != nil {
		return fmt.Errorf("create %s: %w", cliCfg.Args[0], err)
	}
	defer func() { _ = out.Close() }()

	if err := file.Save(out); err != nil {
		return err
	}
	fmt.Printf("saved %d parameters to %s\n", store.Len(), cliCfg.Args[0])
	return nil
}

func loadFile(ctx context.Context, cliCfg *CLIConfig, store *param.Store) error {
	file, err := param.NewFile(cliCfg.Format)
	if err != nil {
		return err
	}

	in, err := os.Open(cliCfg.Args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", cliCfg.Args[0], err)
	}
	defer func() { _ = in.Close() }()

	if err := file.Load(in); err != nil {
		return err
	}

	var failed int
	for _, p := range file.Parameters() {
		result, err := store.Set(ctx, p.Name, p.Value)
		if err != nil {
			return fmt.Errorf("set %s: %w", p.Name, err)
		}
		if !result.Successful {
			slog.Warn("parameter rejected", "name", p.Name, "reason", result.Reason)
			failed++
		}
	}

	written := len(file.Parameters()) - failed
	fmt.Printf("wrote %d parameters from %s", written, cliCfg.Args[0])
	if failed > 0 {
		fmt.Printf(" (%d rejected)", failed)
	}
	fmt.Println()
	return nil
}
