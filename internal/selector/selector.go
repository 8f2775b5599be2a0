// Package selector picks today's tasks for the daily spin.
package selector

import (
	"math/rand/v2"

	"task-tamer/internal/model"
)

// MaxPicks bounds the size of a selection.
const MaxPicks = 3

// Source is the random source a Selector draws from. IntN returns a value in [0, n).
type Source interface {
	IntN(n int) int
}

// Selector produces category-weighted random selections.
type Selector struct {
	rnd Source
}

// New returns a Selector drawing from src. A nil src uses the global math/rand/v2 generator.
func New(src Source) *Selector {
	if src == nil {
		src = globalSource{}
	}
	return &Selector{rnd: src}
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Pick returns up to MaxPicks distinct incomplete tasks: one urgent, one
// important, one from soon or someday, then random fill from whatever is left.
func (s *Selector) Pick(tasks []model.Task) []model.Task {
	incomplete := make([]model.Task, 0, len(tasks))
	seen := make(map[uint]struct{}, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		incomplete = append(incomplete, t)
	}

	var urgent, important, later []model.Task
	for _, t := range incomplete {
		switch t.Category {
		case model.CategoryUrgent:
			urgent = append(urgent, t)
		case model.CategoryImportant:
			important = append(important, t)
		case model.CategorySoon, model.CategorySomeday:
			later = append(later, t)
		}
	}

	selected := make([]model.Task, 0, MaxPicks)
	chosen := make(map[uint]struct{}, MaxPicks)
	add := func(t model.Task) {
		selected = append(selected, t)
		chosen[t.ID] = struct{}{}
	}

	for _, bucket := range [][]model.Task{urgent, important, later} {
		if len(bucket) > 0 {
			add(bucket[s.rnd.IntN(len(bucket))])
		}
	}

	for len(selected) < MaxPicks {
		remaining := make([]model.Task, 0, len(incomplete))
		for _, t := range incomplete {
			if _, ok := chosen[t.ID]; !ok {
				remaining = append(remaining, t)
			}
		}
		if len(remaining) == 0 {
			break
		}
		add(remaining[s.rnd.IntN(len(remaining))])
	}

	return selected
}
