package models

import "time"

// Counter is a named integer persisted in the store.
// Table: counters
// Unique by name; value is unbounded and may be negative
// Name length limited to 100 characters
type Counter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:uk_counters_name" json:"name"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	CreatedAt time.Time `gorm:"index:idx_counters_created_at" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Counter) TableName() string { return "counters" }

// CounterFilter represents filter criteria for counter queries
type CounterFilter struct {
	ID            *uint
	Name          *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
