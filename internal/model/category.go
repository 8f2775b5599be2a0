package model

import "strings"

// Category is one of four fixed priority labels assigned to a task.
type Category string

const (
	CategoryUrgent    Category = "urgent"
	CategoryImportant Category = "important"
	CategorySoon      Category = "soon"
	CategorySomeday   Category = "someday"
)

// Categories lists the labels in display (and priority) order.
var Categories = []Category{CategoryUrgent, CategoryImportant, CategorySoon, CategorySomeday}

// ParseCategory accepts a label case-insensitively.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	return c, c.Valid()
}

func (c Category) Valid() bool {
	switch c {
	case CategoryUrgent, CategoryImportant, CategorySoon, CategorySomeday:
		return true
	}
	return false
}

// Label is the capitalized display name.
func (c Category) Label() string {
	if c == "" {
		return ""
	}
	s := string(c)
	return strings.ToUpper(s[:1]) + s[1:]
}
