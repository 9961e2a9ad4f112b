package main

import (
	"context"
	"os"
	"time"

	"protofuzz/config"
	"protofuzz/internal/analysis"
	"protofuzz/pkg/logger"
	"protofuzz/pkg/telemetry"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	opts, err := analysis.ParseArgs(os.Args, os.Stderr)
	if err != nil {
		os.Exit(1)
	}

	app := fx.New(
		fx.Provide(
			config.LoadConfig,          // inject config
			logger.NewLogger,           // inject logger
			telemetry.NewTelemetry,     // inject telemetry
			telemetry.NewTracerFactory, // inject telemetry tracer factory
		),
		analysis.Module(opts, os.Stdout),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			zlogger := fxevent.ZapLogger{Logger: log}
			zlogger.UseLogLevel(zap.DebugLevel)
			return &zlogger
		}),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		os.Exit(1)
	}

	sig := <-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		os.Exit(1)
	}
	os.Exit(sig.ExitCode)
}
