package types

import (
	"time"

	"github.com/google/uuid"
)

// SummaryMessage is published to the summary queue after a campaign is analyzed
type SummaryMessage struct {
	RunID       uuid.UUID         `json:"run_id"`
	Campaign    string            `json:"campaign"`
	FindingsDir string            `json:"findings_dir"`
	TotalFiles  uint64            `json:"total_files"`
	Crashes     uint64            `json:"crashes"`
	Timeouts    uint64            `json:"timeouts"`
	Coverage    uint64            `json:"coverage"`
	ResultCodes map[int]uint64    `json:"result_codes"`
	EngineStats map[string]string `json:"engine_stats,omitempty"`
	AnalyzedAt  time.Time         `json:"analyzed_at"`
}

// CrashMessage is one crash input handed to the crash archive
type CrashMessage struct {
	RunID     uuid.UUID
	Campaign  string
	CrashFile string // path to the crash file on local filesystem
	Code      *int   // first result code recorded in the file
}
