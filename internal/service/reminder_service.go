package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"task-tamer/internal/model"
)

// ReminderService builds the human-readable daily summary.
type ReminderService struct {
	checkIns *CheckInService
	spins    *SpinService
	focus    *FocusService
	loc      *time.Location
}

func NewReminderService(checkIns *CheckInService, spins *SpinService, focus *FocusService, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{checkIns: checkIns, spins: spins, focus: focus, loc: loc}
}

// DailySummary renders check-in status, today's picks and the open tasks per category.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, tasks []model.Task, now time.Time) (string, error) {
	checkIn, err := s.checkIns.Today(ctx, &user, now)
	if err != nil {
		return "", err
	}
	spin, err := s.spins.Peek(ctx, &user, tasks, now)
	if err != nil {
		return "", err
	}
	focusMinutes, err := s.focus.MinutesOn(ctx, &user, now, s.loc)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily summary</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.In(s.loc).Format("Monday, January 2")))

	if checkIn == nil {
		builder.WriteString("🌅 No check-in yet. Try /checkin.\n")
	} else {
		builder.WriteString(fmt.Sprintf("🌅 Sleep %d/5 · Energy %d/5\n", checkIn.SleepQuality, checkIn.EnergyLevel))
		if checkIn.Notes != "" {
			builder.WriteString(fmt.Sprintf("   📝 %s\n", html.EscapeString(checkIn.Notes)))
		}
	}

	builder.WriteString("\n🎲 <b>Today's picks</b>\n")
	if spin == nil || len(spin.Picks) == 0 {
		builder.WriteString("— not spun yet, try /spin\n")
	} else {
		for _, t := range spin.Picks {
			mark := "▫️"
			if t.Completed {
				mark = "✅"
			}
			builder.WriteString(fmt.Sprintf("%s #%d %s <i>(%s)</i>\n", mark, t.ID, html.EscapeString(t.Title), t.Category.Label()))
		}
	}

	open := make(map[model.Category]int)
	total := 0
	for _, t := range tasks {
		if !t.Completed {
			open[t.Category]++
			total++
		}
	}
	builder.WriteString("\n🔥 <b>Open tasks</b>\n")
	if total == 0 {
		builder.WriteString("— nothing open\n")
	} else {
		for _, c := range model.Categories {
			if open[c] > 0 {
				builder.WriteString(fmt.Sprintf("• %s: %d\n", c.Label(), open[c]))
			}
		}
	}

	builder.WriteString(fmt.Sprintf("\n✅ Completed today: %d", CompletedToday(tasks, now, s.loc)))
	if focusMinutes > 0 {
		builder.WriteString(fmt.Sprintf("\n⏱ Focused today: %d min", focusMinutes))
	}

	return strings.TrimSpace(builder.String()), nil
}
