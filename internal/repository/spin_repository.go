package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"task-tamer/internal/model"
)

// ErrRerollLimit is returned when the conditional re-roll update matches no row.
var ErrRerollLimit = errors.New("daily re-roll limit reached")

// SpinRepository persists one DailySpin per user and day.
type SpinRepository struct {
	db *gorm.DB
}

func NewSpinRepository(db *gorm.DB) *SpinRepository {
	return &SpinRepository{db: db}
}

// Find returns the spin of the given day or gorm.ErrRecordNotFound.
func (r *SpinRepository) Find(ctx context.Context, userID uint, date string) (*model.DailySpin, error) {
	var spin model.DailySpin
	if err := r.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&spin).Error; err != nil {
		return nil, err
	}
	return &spin, nil
}

// GetOrCreate returns the day's spin, creating it with a zero counter on first visit.
func (r *SpinRepository) GetOrCreate(ctx context.Context, userID uint, date string) (*model.DailySpin, bool, error) {
	spin, err := r.Find(ctx, userID, date)
	switch {
	case err == nil:
		return spin, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		spin = &model.DailySpin{UserID: userID, Date: date}
		if err := r.db.WithContext(ctx).Create(spin).Error; err != nil {
			// Lost a race against the unique index; the other insert wins.
			if existing, findErr := r.Find(ctx, userID, date); findErr == nil {
				return existing, false, nil
			}
			return nil, false, fmt.Errorf("create daily spin: %w", err)
		}
		return spin, true, nil
	default:
		return nil, false, fmt.Errorf("find daily spin: %w", err)
	}
}

// SavePicks stores the shown picks without touching the counter.
func (r *SpinRepository) SavePicks(ctx context.Context, spin *model.DailySpin, picks string) error {
	if err := r.db.WithContext(ctx).Model(&model.DailySpin{}).Where("id = ?", spin.ID).
		Update("picks", picks).Error; err != nil {
		return fmt.Errorf("save picks: %w", err)
	}
	spin.Picks = picks
	return nil
}

// Reroll increments the counter and replaces the picks in one statement,
// only while the counter is below max.
func (r *SpinRepository) Reroll(ctx context.Context, spin *model.DailySpin, picks string, max int) error {
	res := r.db.WithContext(ctx).Model(&model.DailySpin{}).
		Where("id = ? AND reroll_count < ?", spin.ID, max).
		Updates(map[string]interface{}{
			"reroll_count": gorm.Expr("reroll_count + 1"),
			"picks":        picks,
		})
	if res.Error != nil {
		return fmt.Errorf("reroll: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRerollLimit
	}
	spin.RerollCount++
	spin.Picks = picks
	return nil
}
