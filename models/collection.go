package models

import "time"

// CollectionRow stores one whole collection as a JSON document.
// Table name: record_collections
type CollectionRow struct {
	Name      string    `gorm:"primaryKey;type:varchar(64)" json:"name"`
	Version   int64     `gorm:"not null" json:"version"`
	Payload   string    `gorm:"type:jsonb;not null" json:"payload"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CollectionRow) TableName() string {
	return "record_collections"
}
