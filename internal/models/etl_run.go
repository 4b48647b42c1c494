package models

import "time"

const (
	RunStatusStarted   = "started"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// EtlRun is the audit record of one pipeline invocation.
type EtlRun struct {
	RunID            string     `gorm:"column:run_id;primaryKey;type:varchar(36)" json:"run_id"`
	StartedAt        time.Time  `gorm:"not null;default:now()" json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	RecordsExtracted int        `gorm:"not null;default:0" json:"records_extracted"`
	RecordsLoaded    int        `gorm:"not null;default:0" json:"records_loaded"`
	Status           string     `gorm:"type:varchar(16);not null;default:'started'" json:"status"`
	ErrorMessage     *string    `gorm:"type:text" json:"error_message,omitempty"`
}

func (EtlRun) TableName() string { return "etl_runs" }
