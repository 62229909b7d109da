// Command avtsim runs a YAML scenario of control point actions against an
// AVTransport instance and optionally serves its metrics and diagnostics.
//
// Configuration is read from AVT_* environment variables, see Config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/enetx/upnpfsm/avtransport"
)

func main() {
	envFile := flag.String("env", "", "load environment from this file instead of ./.env")
	flag.Parse()

	// Catch Ctrl+C and handle it gracefully by shutting down the context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}

	if err := run(ctx, files...); err != nil {
		slog.Error("avtsim failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, envFiles ...string) error {
	cfg, err := loadConfig(envFiles...)
	if err != nil {
		return err
	}

	logger, err := cfg.logger()
	if err != nil {
		return err
	}

	slog.SetDefault(logger)

	f, err := os.Open(cfg.Scenario)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}

	scenario, err := LoadScenario(f)
	_ = f.Close()

	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Scenario, err)
	}

	avt, err := avtransport.New(cfg.InstanceID, cfg.transportOptions(logger)...)
	if err != nil {
		return err
	}

	if err := scenario.Run(ctx, avt, logger); err != nil {
		return err
	}

	for instance, vars := range avt.LastChange().Flush() {
		for name, value := range vars {
			logger.DebugContext(ctx, "LastChange", "instance", instance, "variable", name, "value", value)
		}
	}

	logger.InfoContext(ctx, "Scenario completed",
		"scenario", scenario.Name, "state", avt.CurrentState(), "transport", avt.TransportInfo().State)

	if cfg.DOT {
		fmt.Print(avt.Machine().ToDOT())
	}

	if cfg.MetricsAddr == "" {
		return nil
	}

	return serve(ctx, cfg.MetricsAddr, router(avt), logger)
}
