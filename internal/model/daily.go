package model

import (
	"strconv"
	"strings"
	"time"
)

// DayLayout is the storage format of a calendar day.
const DayLayout = "2006-01-02"

// MaxRerolls caps re-rolls per user per calendar day.
const MaxRerolls = 3

// Day returns the calendar day of t in loc.
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}

// DailySpin is the per-day spin record. Picks holds the comma separated
// identities of the tasks currently shown.
type DailySpin struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"uniqueIndex:idx_spin_user_date"`
	Date        string `gorm:"uniqueIndex:idx_spin_user_date;size:10"`
	RerollCount int    `gorm:"not null;default:0"`
	Picks       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RerollsLeft never goes below zero.
func (s DailySpin) RerollsLeft() int {
	if s.RerollCount >= MaxRerolls {
		return 0
	}
	return MaxRerolls - s.RerollCount
}

// PickIDs decodes Picks, skipping anything malformed.
func (s DailySpin) PickIDs() []uint {
	if strings.TrimSpace(s.Picks) == "" {
		return nil
	}
	var ids []uint
	for _, raw := range strings.Split(s.Picks, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(v))
	}
	return ids
}

// EncodePicks is the inverse of PickIDs.
func EncodePicks(tasks []Task) string {
	parts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		parts = append(parts, strconv.FormatUint(uint64(t.ID), 10))
	}
	return strings.Join(parts, ",")
}

// DailyCheckIn holds the morning ratings for a day.
type DailyCheckIn struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"uniqueIndex:idx_checkin_user_date"`
	Date         string `gorm:"uniqueIndex:idx_checkin_user_date;size:10"`
	SleepQuality int    `gorm:"not null"`
	EnergyLevel  int    `gorm:"not null"`
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FocusSession is an append-only record of a finished timer run.
type FocusSession struct {
	ID              string `gorm:"primaryKey;size:36"`
	UserID          uint   `gorm:"index"`
	TaskID          uint   `gorm:"index"`
	DurationMinutes int
	HowItWent       string
	StartedAt       time.Time
	CompletedAt     time.Time `gorm:"index"`
}
