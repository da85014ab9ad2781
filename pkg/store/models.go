package store

import "time"

// EntryModel is one persisted key of a client profile.
type EntryModel struct {
	Profile   string    `gorm:"primaryKey;size:128"`
	Key       string    `gorm:"primaryKey;size:128"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName keeps the table name stable regardless of naming strategy.
func (EntryModel) TableName() string {
	return "client_state_entries"
}
