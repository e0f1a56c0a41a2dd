package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	reporter "github.com/rcbops/zigzag-reporter"
	"github.com/rcbops/zigzag-reporter/flags"
	"github.com/rcbops/zigzag-reporter/service"
)

var (
	Version   = "v0.11.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "zigzag-reporter"
	app.Usage = "JUnit report enricher and qTest publisher"
	app.Description = "zigzag-reporter augments 'go test' reports with CI metadata and optionally publishes them with ZigZag"
	app.ArgsUsage = "[packages]"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if reporter.IsRuntimeError(err) {
				// For runtime errors, use exit code 2
				cli.HandleExitCoder(cli.Exit(err.Error(), 2))
			} else if reporter.IsTestFailureError(err) {
				// For test failures, use exit code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			}
		}
	}

	// Start telemetry
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer otelShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server
	svc := service.New()
	svc.Start(ctx)
	defer svc.Shutdown()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	logger, err := setupLogging(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return reporter.NewRuntimeError(err)
	}

	cfg, err := reporter.NewConfig(ctx, logger)
	if err != nil {
		if reporter.IsRuntimeError(err) {
			return err
		}
		return reporter.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	session, err := reporter.NewSession(cfg)
	if err != nil {
		return reporter.NewRuntimeError(err)
	}
	logger.Debug("Session created",
		"run_id", session.RunID(),
		"ci_environment", cfg.CIEnvironment,
		"zigzag", cfg.ZigZag,
		"junit_output", cfg.JUnitOutput)

	result, err := session.Run(ctx.Context)
	if err != nil {
		if reporter.IsRuntimeError(err) {
			return err
		}
		return reporter.NewRuntimeError(err)
	}

	reporter.PrintSummaryTable(result)

	if result.Stats.Failed > 0 {
		return reporter.NewTestFailureError(fmt.Sprintf("%d of %d tests failed", result.Stats.Failed, result.Stats.Total))
	}
	return nil
}

// setupLogging installs the process-wide logger at the requested level.
func setupLogging(level string) (log.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "trace", "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	logger := log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, false))
	log.SetDefault(logger)
	return logger, nil
}
