package analysis

import (
	"context"
	"io"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"protofuzz/config"
	"protofuzz/internal/crash"
	"protofuzz/internal/findings"
	"protofuzz/internal/publish"
	"protofuzz/internal/report"
	"protofuzz/pkg/database"
	"protofuzz/pkg/mq"
	"protofuzz/pkg/telemetry"
	"protofuzz/pkg/watchdog"
)

// Output is where summaries are rendered.
type Output struct {
	io.Writer
}

// Module wires the analyzer for opts. Backends are only provided when an
// option needs them, so a plain run never dials out.
func Module(opts *Options, stdout io.Writer) fx.Option {
	provides := []any{
		newCrashManager,
		newCLI,
		watchdog.NewWatchDogFactory,
	}
	if opts.Publish || opts.Archive != "" {
		provides = append(provides, database.NewDBConnection)
	}
	if opts.Publish {
		provides = append(provides,
			database.NewRedisClient,
			mq.NewRabbitMQ,
			publish.NewPublishers,
		)
	}
	return fx.Module("analysis",
		fx.Supply(opts, Output{stdout}),
		fx.Provide(provides...),
		fx.Invoke(registerRun),
	)
}

type crashManagerParams struct {
	fx.In

	Options   *Options
	DB        *gorm.DB `optional:"true"`
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

// newCrashManager returns nil unless --archive is given.
func newCrashManager(p crashManagerParams) (*crash.CrashManager, error) {
	if p.Options.Archive == "" {
		return nil, nil
	}
	c, err := crash.NewCrashManager(p.Options.Archive, p.DB, p.Logger.Named("crash"))
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			c.Stop()
			archived, duplicates := c.Counts()
			p.Logger.Info("crash archive updated",
				zap.String("folder", c.Folder()),
				zap.Int("archived", archived),
				zap.Int("duplicates", duplicates),
			)
			return nil
		},
	})
	return c, nil
}

type cliParams struct {
	fx.In

	Options       *Options
	Output        Output
	Logger        *zap.Logger
	TracerFactory *telemetry.TracerFactory
	Archive       *crash.CrashManager  `optional:"true"`
	Publishers    []publish.Publisher `optional:"true"`
}

func newCLI(p cliParams) *CLI {
	scanner := findings.NewScanner(p.Logger.Named("scanner"), p.Options.ScannerOptions()...)
	opts := []CLIOption{
		WithTracerFactory(p.TracerFactory),
		WithInstances(p.Options.Instances),
		WithPublishers(p.Publishers),
	}
	if p.Archive != nil {
		opts = append(opts, WithArchive(p.Archive))
	}
	return NewCLI(scanner, report.NewFormatter(p.Options.ReportFormat()), p.Output, p.Logger, opts...)
}

type runParams struct {
	fx.In

	Options         *Options
	Config          *config.AppConfig
	CLI             *CLI
	WatchDogFactory *watchdog.WatchDogFactory
	Logger          *zap.Logger
	Lifecycle       fx.Lifecycle
	Shutdowner      fx.Shutdowner
}

// registerRun analyzes the campaigns once the app has started, then keeps
// watching them when asked to, and finally shuts the app down with the
// analysis exit code.
func registerRun(p runParams) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				campaigns := p.Options.CampaignList()
				code := p.CLI.Run(runCtx, campaigns)
				if code == 0 && p.Options.Watch {
					watcher := NewWatcher(p.CLI, p.WatchDogFactory, p.Config.AnalysisConfig.WatchDebounce, p.Logger.Named("watch"))
					if err := watcher.Watch(runCtx, campaigns); err != nil {
						p.Logger.Error("watch stopped", zap.Error(err))
						code = 1
					}
				}
				if runCtx.Err() != nil {
					// already stopping
					return
				}
				if err := p.Shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					p.Logger.Error("failed to shut down", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})
}
