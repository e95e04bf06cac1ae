// Package goals defines the goal/category collaborator interface the bot
// talks to. Archived goals and deleted categories are excluded by the
// implementation, not by callers.
package goals

import (
	"context"
	"time"
)

// Status enumerates goal workflow states.
type Status int

const (
	StatusToDo Status = iota + 1
	StatusInProgress
	StatusDone
	StatusArchived
)

// Priority enumerates goal priorities.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// Category groups goals owned by an account.
type Category struct {
	ID        int64  `db:"id"`
	AccountID int64  `db:"account_id"`
	Title     string `db:"title"`
	IsDeleted bool   `db:"is_deleted"`
}

// Goal is a single tracked goal.
type Goal struct {
	ID         int64     `db:"id"`
	AccountID  int64     `db:"account_id"`
	CategoryID int64     `db:"category_id"`
	Title      string    `db:"title"`
	Status     Status    `db:"status"`
	Priority   Priority  `db:"priority"`
	Created    time.Time `db:"created"`
}

// Store provides access to goals and categories of a linked account.
type Store interface {
	// ListActiveGoals returns the account's goals excluding archived ones.
	ListActiveGoals(ctx context.Context, accountID int64) ([]Goal, error)
	// ListActiveCategories returns the account's categories excluding deleted ones.
	ListActiveCategories(ctx context.Context, accountID int64) ([]Category, error)
	// CreateGoal records a new goal under the category on behalf of the account.
	CreateGoal(ctx context.Context, accountID, categoryID int64, title string) (Goal, error)
}
