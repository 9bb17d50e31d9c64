package model

import "time"

// BudgetGoal is a per-user monthly spending limit for one category.
type BudgetGoal struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UserID       string
	CategoryName string
	ID           int64
	CategoryID   int
	Limit        float64
}
