package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const CampaignKeyPrefix = "analysis:campaign:"

// RedisPublisher keeps the latest summary of each campaign in a hash.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (r *RedisPublisher) Name() string { return "redis" }

func CampaignKey(campaign string) string {
	return CampaignKeyPrefix + campaign
}

func (r *RedisPublisher) Publish(ctx context.Context, summary Summary) error {
	codes, err := json.Marshal(summary.Stats.ResultCodes)
	if err != nil {
		return fmt.Errorf("failed to marshal result codes: %w", err)
	}
	err = r.client.HSet(ctx, CampaignKey(summary.Campaign.Name), map[string]any{
		"run_id":       summary.RunID.String(),
		"findings_dir": summary.Campaign.FindingsDir,
		"total_files":  summary.Stats.TotalFiles,
		"crashes":      summary.Stats.Crashes,
		"timeouts":     summary.Stats.Timeouts,
		"coverage":     summary.Stats.Coverage,
		"codes":        string(codes),
		"updated_at":   summary.AnalyzedAt.Format(time.RFC3339),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to store summary of %s: %w", summary.Campaign.Name, err)
	}
	return nil
}
