package publish

import (
	"context"
	"time"

	"protofuzz/internal/findings"
	"protofuzz/internal/types"
	"protofuzz/pkg/mq"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Summary is the outcome of analyzing one campaign.
type Summary struct {
	RunID      uuid.UUID
	Campaign   types.Campaign
	Stats      findings.FuzzStats
	AnalyzedAt time.Time
}

func NewSummary(runID uuid.UUID, campaign types.Campaign, stats findings.FuzzStats) Summary {
	return Summary{
		RunID:      runID,
		Campaign:   campaign,
		Stats:      stats,
		AnalyzedAt: time.Now().UTC(),
	}
}

func (s Summary) Message() types.SummaryMessage {
	return types.SummaryMessage{
		RunID:       s.RunID,
		Campaign:    s.Campaign.Name,
		FindingsDir: s.Campaign.FindingsDir,
		TotalFiles:  s.Stats.TotalFiles,
		Crashes:     s.Stats.Crashes,
		Timeouts:    s.Stats.Timeouts,
		Coverage:    s.Stats.Coverage,
		ResultCodes: s.Stats.ResultCodes,
		EngineStats: s.Stats.EngineStats,
		AnalyzedAt:  s.AnalyzedAt,
	}
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, summary Summary) error
}

type PublishersParams struct {
	fx.In

	DB       *gorm.DB      `optional:"true"`
	Redis    *redis.Client `optional:"true"`
	RabbitMQ mq.RabbitMQ   `optional:"true"`
	Logger   *zap.Logger
}

// NewPublishers returns one publisher per configured backend.
func NewPublishers(p PublishersParams) []Publisher {
	var publishers []Publisher
	if p.DB != nil {
		publishers = append(publishers, NewDBPublisher(p.DB))
	}
	if p.Redis != nil {
		publishers = append(publishers, NewRedisPublisher(p.Redis))
	}
	if p.RabbitMQ != nil {
		publishers = append(publishers, NewMQPublisher(p.RabbitMQ))
	}
	names := make([]string, 0, len(publishers))
	for _, pub := range publishers {
		names = append(names, pub.Name())
	}
	p.Logger.Debug("summary publishers configured", zap.Strings("publishers", names))
	return publishers
}

// PublishAll hands summary to every publisher; failures are logged and do not
// stop the others. It returns the number of failed publishers.
func PublishAll(ctx context.Context, publishers []Publisher, summary Summary, logger *zap.Logger) int {
	failed := 0
	for _, pub := range publishers {
		if err := pub.Publish(ctx, summary); err != nil {
			failed++
			logger.Error("failed to publish summary",
				zap.String("publisher", pub.Name()),
				zap.String("campaign", summary.Campaign.Name),
				zap.Error(err),
			)
			continue
		}
		logger.Debug("summary published",
			zap.String("publisher", pub.Name()),
			zap.String("campaign", summary.Campaign.Name),
		)
	}
	return failed
}
