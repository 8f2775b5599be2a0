package service

import (
	"errors"

	"gorm.io/gorm"

	"task-tamer/internal/repository"
)

var (
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidCategory = errors.New("category must be one of urgent, important, soon, someday")
	ErrInvalidRating   = errors.New("ratings must be between 1 and 5")
	ErrTaskCompleted   = errors.New("task is already completed")
	ErrNoActiveFocus   = errors.New("no focus session in progress")
	ErrFocusRunning    = errors.New("a focus session is already in progress")

	// ErrRerollLimit means today's re-rolls are used up.
	ErrRerollLimit = repository.ErrRerollLimit
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
