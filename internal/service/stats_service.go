package service

import (
	"sort"
	"time"

	"task-tamer/internal/model"
)

// UnknownDay groups completed tasks without a completion timestamp.
const UnknownDay = "Unknown"

// DayGroup is the completed tasks of one calendar day, latest first.
type DayGroup struct {
	Day   string
	Label string
	Tasks []model.Task
}

// CompletedSummary feeds the completed-tasks screen.
type CompletedSummary struct {
	Today     int
	Total     int
	Urgent    int
	Important int
	Groups    []DayGroup
}

// SummarizeCompleted counts and groups the completed tasks by completion day in loc.
func SummarizeCompleted(tasks []model.Task, now time.Time, loc *time.Location) CompletedSummary {
	if loc == nil {
		loc = time.Local
	}
	today := model.Day(now, loc)
	yesterday := model.Day(now.In(loc).AddDate(0, 0, -1), loc)

	var summary CompletedSummary
	groups := make(map[string][]model.Task)
	for _, t := range tasks {
		if !t.Completed {
			continue
		}
		summary.Total++
		switch t.Category {
		case model.CategoryUrgent:
			summary.Urgent++
		case model.CategoryImportant:
			summary.Important++
		}

		day := UnknownDay
		if t.CompletedAt != nil {
			day = model.Day(*t.CompletedAt, loc)
		}
		if day == today {
			summary.Today++
		}
		groups[day] = append(groups[day], t)
	}

	days := make([]string, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		if days[i] == UnknownDay {
			return false
		}
		if days[j] == UnknownDay {
			return true
		}
		return days[i] > days[j]
	})

	for _, day := range days {
		list := groups[day]
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i].CompletedAt, list[j].CompletedAt
			if a == nil || b == nil {
				return a != nil
			}
			return a.After(*b)
		})
		summary.Groups = append(summary.Groups, DayGroup{
			Day:   day,
			Label: dayLabel(day, today, yesterday, loc),
			Tasks: list,
		})
	}
	return summary
}

// CompletedToday counts tasks completed on the day of now.
func CompletedToday(tasks []model.Task, now time.Time, loc *time.Location) int {
	today := model.Day(now, loc)
	n := 0
	for _, t := range tasks {
		if t.Completed && t.CompletedAt != nil && model.Day(*t.CompletedAt, loc) == today {
			n++
		}
	}
	return n
}

func dayLabel(day, today, yesterday string, loc *time.Location) string {
	switch day {
	case UnknownDay:
		return UnknownDay
	case today:
		return "Today"
	case yesterday:
		return "Yesterday"
	}
	parsed, err := time.ParseInLocation(model.DayLayout, day, loc)
	if err != nil {
		return day
	}
	return parsed.Format("Monday, Jan 2")
}
