package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState tracks one ingest scope ("full", "recent"). Cursor holds the
// feed's lastUpdated value of the last successful run.
type SyncState struct {
	Scope         string  `gorm:"primaryKey;type:text"`
	Cursor        *string `gorm:"type:text"`
	WatermarkTS   *time.Time
	LastSuccessAt *time.Time
	LastAttemptAt *time.Time
	LastError     *string `gorm:"type:text"`
	LastRunID     *string `gorm:"type:text"`
	StatsJSON     datatypes.JSON
}

func (SyncState) TableName() string {
	return "sync_state"
}
