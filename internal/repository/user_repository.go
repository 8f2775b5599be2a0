package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"task-tamer/internal/model"
)

// UserRepository stores the Telegram accounts that have signed in.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram returns the user behind telegramID. The first sign-in
// creates the record; every later one refreshes the profile names.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	profile := map[string]interface{}{
		"first_name": strings.TrimSpace(firstName),
		"last_name":  strings.TrimSpace(lastName),
		"username":   strings.TrimPrefix(strings.TrimSpace(username), "@"),
	}

	var user model.User
	if err := r.db.WithContext(ctx).
		Where(model.User{TelegramID: telegramID}).
		Assign(profile).
		FirstOrCreate(&user).Error; err != nil {
		return nil, fmt.Errorf("sign in telegram user %d: %w", telegramID, err)
	}
	return &user, nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
