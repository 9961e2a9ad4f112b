package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// CampaignSummary represents a record in the public.campaign_summaries table
type CampaignSummary struct {
	ID          int         `gorm:"primaryKey;column:id"`
	RunID       uuid.UUID   `gorm:"column:run_id;type:uuid;not null"`
	Campaign    string      `gorm:"column:campaign;not null"`
	FindingsDir string      `gorm:"column:findings_dir;not null"`
	CreatedAt   time.Time   `gorm:"column:created_at;default:now()"`
	TotalFiles  uint64      `gorm:"column:total_files"`
	Crashes     uint64      `gorm:"column:crashes"`
	Timeouts    uint64      `gorm:"column:timeouts"`
	Coverage    uint64      `gorm:"column:coverage"`
	ResultCodes ResultCodes `gorm:"column:result_codes;type:jsonb"`
	EngineStats Metric      `gorm:"column:engine_stats;type:jsonb"`
}

// Bug represents a record in the public.bugs table
type Bug struct {
	ID         int       `gorm:"primaryKey;column:id"`
	RunID      uuid.UUID `gorm:"column:run_id;type:uuid;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;default:now()"`
	Campaign   string    `gorm:"column:campaign;not null"`
	POC        string    `gorm:"column:poc;not null"`
	Digest     string    `gorm:"column:digest;not null"`
	ResultCode *int      `gorm:"column:result_code"`
}

// ResultCodes is the result code histogram stored as jsonb
type ResultCodes map[int]uint64

func (r ResultCodes) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func (r *ResultCodes) Scan(value any) error {
	if value == nil {
		*r = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, r)
}

// Metric represents a free-form jsonb field
type Metric map[string]any

// Value implements the driver.Valuer interface for the Metric type
func (m Metric) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for the Metric type
func (m *Metric) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, m)
}
