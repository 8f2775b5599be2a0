package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"task-tamer/internal/model"
)

// CheckInRepository stores daily check-ins.
type CheckInRepository struct {
	db *gorm.DB
}

func NewCheckInRepository(db *gorm.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

func (r *CheckInRepository) Find(ctx context.Context, userID uint, date string) (*model.DailyCheckIn, error) {
	var checkIn model.DailyCheckIn
	if err := r.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&checkIn).Error; err != nil {
		return nil, err
	}
	return &checkIn, nil
}

// Upsert creates the day's check-in or overwrites the ratings and notes of the existing one.
func (r *CheckInRepository) Upsert(ctx context.Context, in *model.DailyCheckIn) error {
	db := r.db.WithContext(ctx)
	existing, err := r.Find(ctx, in.UserID, in.Date)
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"sleep_quality": in.SleepQuality,
			"energy_level":  in.EnergyLevel,
			"notes":         in.Notes,
		}
		if err := db.Model(existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("update check-in: %w", err)
		}
		in.ID = existing.ID
		in.CreatedAt = existing.CreatedAt
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(in).Error; err != nil {
			return fmt.Errorf("create check-in: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("find check-in: %w", err)
	}
}
