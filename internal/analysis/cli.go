package analysis

import (
	"context"
	"io"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"protofuzz/internal/crash"
	"protofuzz/internal/findings"
	"protofuzz/internal/publish"
	"protofuzz/internal/report"
	"protofuzz/internal/types"
	"protofuzz/pkg/telemetry"
)

// Scanner is the part of findings.Scanner the CLI drives.
type Scanner interface {
	ScanWith(findingsDir string, visit func(findings.CrashEntry)) findings.FuzzStats
	ScanInstances(root string, visit func(findings.CrashEntry)) findings.FuzzStats
}

// CLI analyzes campaigns and renders one summary per campaign.
type CLI struct {
	scanner       Scanner
	formatter     *report.Formatter
	stdout        io.Writer
	logger        *zap.Logger
	tracerFactory *telemetry.TracerFactory
	archive       *crash.CrashManager
	publishers    []publish.Publisher
	instances     bool
	runID         uuid.UUID
}

type CLIOption func(*CLI)

// WithArchive submits every crash file to archive.
func WithArchive(archive *crash.CrashManager) CLIOption {
	return func(c *CLI) { c.archive = archive }
}

func WithPublishers(publishers []publish.Publisher) CLIOption {
	return func(c *CLI) { c.publishers = publishers }
}

func WithTracerFactory(factory *telemetry.TracerFactory) CLIOption {
	return func(c *CLI) { c.tracerFactory = factory }
}

// WithInstances makes every findings dir an AFL++ output dir holding instances.
func WithInstances(instances bool) CLIOption {
	return func(c *CLI) { c.instances = instances }
}

func NewCLI(scanner Scanner, formatter *report.Formatter, stdout io.Writer, logger *zap.Logger, opts ...CLIOption) *CLI {
	c := &CLI{
		scanner:   scanner,
		formatter: formatter,
		stdout:    stdout,
		logger:    logger,
		runID:     uuid.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CLI) RunID() uuid.UUID { return c.runID }

// Run analyzes every campaign in order and returns the process exit code.
// Unreadable findings never fail the run; only a broken stdout does.
func (c *CLI) Run(ctx context.Context, campaigns []types.Campaign) int {
	c.logger.Info("analyzing campaigns",
		zap.String("run_id", c.runID.String()),
		zap.Int("campaigns", len(campaigns)),
	)
	for _, campaign := range campaigns {
		if err := c.Analyze(ctx, campaign); err != nil {
			c.logger.Error("failed to write summary", zap.String("campaign", campaign.Name), zap.Error(err))
			return 1
		}
	}
	return 0
}

// Analyze scans, renders and optionally archives and publishes one campaign.
func (c *CLI) Analyze(ctx context.Context, campaign types.Campaign) error {
	tracer := c.tracerFactory.NewTracer(ctx, "analyze campaign")
	tracer.WithAttributes(telemetry.EmptySpanAttributes().
		WithCampaign(campaign.Name, campaign.FindingsDir).
		WithExtraAttribute("protofuzz.run_id", c.runID.String()))
	tracer.Start()
	defer tracer.End()

	stats := c.scan(campaign)
	tracer.WithAttributes(telemetry.EmptySpanAttributes().WithExtraAttributes(map[string]any{
		"fuzz.total_files": stats.TotalFiles,
		"fuzz.crashes":     stats.Crashes,
		"fuzz.timeouts":    stats.Timeouts,
		"fuzz.coverage":    stats.Coverage,
	}))

	if err := c.formatter.Render(c.stdout, campaign.Name, stats); err != nil {
		tracer.SetStatus(codes.Error, err.Error())
		return err
	}

	if len(c.publishers) > 0 {
		summary := publish.NewSummary(c.runID, campaign, stats)
		if failed := publish.PublishAll(ctx, c.publishers, summary, c.logger); failed > 0 {
			tracer.AddEvent("publish failed", telemetry.NewEventAttributes(map[string]string{
				"campaign": campaign.Name,
			}))
		}
	}
	tracer.SetStatus(codes.Ok, "campaign analyzed")
	return nil
}

func (c *CLI) scan(campaign types.Campaign) findings.FuzzStats {
	var visit func(findings.CrashEntry)
	if c.archive != nil {
		visit = func(entry findings.CrashEntry) {
			if entry.IsDir {
				return
			}
			c.archive.Submit(types.CrashMessage{
				RunID:     c.runID,
				Campaign:  campaign.Name,
				CrashFile: entry.Path,
				Code:      entry.Code,
			})
		}
	}
	if c.instances {
		return c.scanner.ScanInstances(campaign.FindingsDir, visit)
	}
	return c.scanner.ScanWith(campaign.FindingsDir, visit)
}
