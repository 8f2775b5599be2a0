package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"task-tamer/internal/model"
	"task-tamer/internal/repository"
)

// CheckInInput is the morning questionnaire.
type CheckInInput struct {
	SleepQuality int
	EnergyLevel  int
	Notes        string
}

// CheckInService upserts one check-in per user and day.
type CheckInService struct {
	repo *repository.CheckInRepository
	loc  *time.Location
}

func NewCheckInService(repo *repository.CheckInRepository, loc *time.Location) *CheckInService {
	if loc == nil {
		loc = time.Local
	}
	return &CheckInService{repo: repo, loc: loc}
}

// ValidRating reports whether v is on the 1–5 scale.
func ValidRating(v int) bool {
	return v >= 1 && v <= 5
}

func (s *CheckInService) Save(ctx context.Context, user *model.User, input CheckInInput, now time.Time) (*model.DailyCheckIn, error) {
	if !ValidRating(input.SleepQuality) || !ValidRating(input.EnergyLevel) {
		return nil, ErrInvalidRating
	}
	checkIn := &model.DailyCheckIn{
		UserID:       user.ID,
		Date:         model.Day(now, s.loc),
		SleepQuality: input.SleepQuality,
		EnergyLevel:  input.EnergyLevel,
		Notes:        strings.TrimSpace(input.Notes),
	}
	if err := s.repo.Upsert(ctx, checkIn); err != nil {
		return nil, err
	}
	return checkIn, nil
}

// Today returns today's check-in, or nil when the user has not checked in yet.
func (s *CheckInService) Today(ctx context.Context, user *model.User, now time.Time) (*model.DailyCheckIn, error) {
	checkIn, err := s.repo.Find(ctx, user.ID, model.Day(now, s.loc))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return checkIn, nil
}
