package models

import "time"

// CounterView is the display state of one rendered counter page.
// Displayed mirrors the stored value and is the operand for the next click.
// CounterID is zero when the page never obtained a store identity.
type CounterView struct {
	ID          string    `json:"id"`
	CounterID   uint      `json:"counter_id"`
	CounterName string    `json:"counter_name"`
	Displayed   int64     `json:"displayed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasIdentity reports whether the view is bound to a stored counter.
func (v *CounterView) HasIdentity() bool {
	return v != nil && v.CounterID != 0
}
