package publish

import (
	"context"

	"protofuzz/pkg/database"

	"gorm.io/gorm"
)

// DBPublisher appends one campaign_summaries row per analysis.
type DBPublisher struct {
	db *gorm.DB
}

func NewDBPublisher(db *gorm.DB) *DBPublisher {
	return &DBPublisher{db: db}
}

func (d *DBPublisher) Name() string { return "postgres" }

func (d *DBPublisher) Publish(ctx context.Context, summary Summary) error {
	return database.AddCampaignSummary(ctx, d.db, newCampaignSummary(summary))
}

func newCampaignSummary(summary Summary) *database.CampaignSummary {
	engine := database.Metric{}
	for k, v := range summary.Stats.EngineStats {
		engine[k] = v
	}
	return &database.CampaignSummary{
		RunID:       summary.RunID,
		Campaign:    summary.Campaign.Name,
		FindingsDir: summary.Campaign.FindingsDir,
		CreatedAt:   summary.AnalyzedAt,
		TotalFiles:  summary.Stats.TotalFiles,
		Crashes:     summary.Stats.Crashes,
		Timeouts:    summary.Stats.Timeouts,
		Coverage:    summary.Stats.Coverage,
		ResultCodes: database.ResultCodes(summary.Stats.ResultCodes),
		EngineStats: engine,
	}
}
