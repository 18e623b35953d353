package models

import "time"

// OrderSequence is the per-day counter backing order number allocation. One
// row per date key; the allocator advances Value with an atomic
// upsert-increment, never by scanning existing orders.
type OrderSequence struct {
	DateKey   string    `gorm:"column:date_key;primaryKey"`
	Value     int64     `gorm:"column:value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
