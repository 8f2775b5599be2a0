package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-tamer/internal/model"
)

// FocusRepository appends finished focus sessions.
type FocusRepository struct {
	db *gorm.DB
}

func NewFocusRepository(db *gorm.DB) *FocusRepository {
	return &FocusRepository{db: db}
}

func (r *FocusRepository) Create(ctx context.Context, session *model.FocusSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create focus session: %w", err)
	}
	return nil
}

// ListBetween returns sessions completed in [from, to), oldest first.
func (r *FocusRepository) ListBetween(ctx context.Context, userID uint, from, to time.Time) ([]model.FocusSession, error) {
	var sessions []model.FocusSession
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed_at >= ? AND completed_at < ?", userID, from, to).
		Order("completed_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}
	return sessions, nil
}
