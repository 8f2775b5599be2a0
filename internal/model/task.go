package model

import "time"

// Task represents a single item in the user's list.
type Task struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index"`
	Title       string `gorm:"not null"`
	Notes       string
	Category    Category `gorm:"index;not null"`
	Completed   bool     `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}
