package models

import (
	"time"
)

type ListingAnomaly struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	RunID     string    `gorm:"type:text;index;not null"`
	ListingID string    `gorm:"type:text;index;not null"`
	Kind      string    `gorm:"type:text;index;not null"`
	Field     *string   `gorm:"type:text"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (ListingAnomaly) TableName() string {
	return "listing_anomalies"
}
