package models

import "time"

// Run states for TransferRun.Status.
const (
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
	RunStatusAborted = "aborted"
)

// TransferRun is the persisted record of one migration run. The full
// step-by-step report is stored as a JSON blob; the scalar columns exist so
// history listings do not need to decode it.
type TransferRun struct {
	// ID is the unique identifier for the run.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the account that started the run.
	UserID uint64 `gorm:"index"`
	// GuildID is the source guild that was migrated.
	GuildID string `gorm:"size:32"`
	// ServerName is the name of the target server at run time.
	ServerName string `gorm:"size:255"`
	// ServerID is the target server the run built into.
	ServerID string `gorm:"size:32"`
	// Mode is how the target server was obtained (new, merge, replace).
	Mode string `gorm:"size:16"`
	// Status is the run outcome.
	Status string `gorm:"size:16;index"`
	// Error holds the fatal error message for failed runs.
	Error string
	// Report is the JSON encoded step report.
	Report []byte `gorm:"type:blob"`
	// StartedAt is when the run began.
	StartedAt time.Time
	// FinishedAt is when the run ended, nil while still in flight.
	FinishedAt *time.Time
	// CreatedAt is managed by GORM.
	CreatedAt time.Time
	// UpdatedAt is managed by GORM.
	UpdatedAt time.Time
}
