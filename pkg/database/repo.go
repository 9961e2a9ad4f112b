package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// inserts multiple bug records into the database
func AddBugs(ctx context.Context, db *gorm.DB, bugs []*Bug) error {
	if len(bugs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(bugs).Error
}

// NewBug creates a new Bug object for an archived crash input
func NewBug(
	runID uuid.UUID,
	campaign string,
	poc string,
	digest string,
	resultCode *int,
) *Bug {
	return &Bug{
		RunID:      runID,
		CreatedAt:  time.Now(),
		Campaign:   campaign,
		POC:        poc,
		Digest:     digest,
		ResultCode: resultCode,
	}
}

// inserts a single campaign summary record into the database
func AddCampaignSummary(ctx context.Context, db *gorm.DB, summary *CampaignSummary) error {
	if summary == nil {
		return nil
	}
	return db.WithContext(ctx).Create(summary).Error
}
