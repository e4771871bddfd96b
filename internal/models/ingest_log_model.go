package models

import (
	"time"

	"gorm.io/datatypes"
)

// IngestLogsTableName is the name of the table for ingestion run logs
var IngestLogsTableName = "ingest_logs"

// IngestLogModel records the outcome of one ingestion run
type IngestLogModel struct {
	ID         uint           `gorm:"primaryKey" json:"-"`
	RunID      string         `gorm:"index" json:"run_id"`
	StartedAt  time.Time      `gorm:"index" json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Added      int            `json:"added"`
	Removed    int            `json:"removed"`
	Message    string         `json:"message"`
	Detail     datatypes.JSON `gorm:"type:jsonb" json:"detail,omitempty"`
}

// TableName specifies the table name for the IngestLogModel
func (IngestLogModel) TableName() string {
	return IngestLogsTableName
}
