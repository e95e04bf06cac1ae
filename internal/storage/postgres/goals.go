package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"goalbot/internal/goals"
)

// GoalStore reads and writes goals and categories in Postgres.
type GoalStore struct {
	db *sqlx.DB
}

// NewGoalStore creates a GoalStore.
func NewGoalStore(db *sqlx.DB) *GoalStore {
	return &GoalStore{db: db}
}

func (s *GoalStore) ListActiveGoals(ctx context.Context, accountID int64) ([]goals.Goal, error) {
	const query = `
		SELECT id, account_id, category_id, title, status, priority, created
		FROM goals
		WHERE account_id = $1 AND status <> $2
		ORDER BY created
	`
	var list []goals.Goal
	if err := s.db.SelectContext(ctx, &list, query, accountID, goals.StatusArchived); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return list, nil
}

func (s *GoalStore) ListActiveCategories(ctx context.Context, accountID int64) ([]goals.Category, error) {
	const query = `
		SELECT id, account_id, title, is_deleted
		FROM goal_categories
		WHERE account_id = $1 AND NOT is_deleted
		ORDER BY title
	`
	var list []goals.Category
	if err := s.db.SelectContext(ctx, &list, query, accountID); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return list, nil
}

func (s *GoalStore) CreateGoal(ctx context.Context, accountID, categoryID int64, title string) (goals.Goal, error) {
	const insert = `
		INSERT INTO goals (account_id, category_id, title, status, priority)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, account_id, category_id, title, status, priority, created
	`
	var goal goals.Goal
	err := s.db.GetContext(ctx, &goal, insert,
		accountID, categoryID, title, goals.StatusToDo, goals.PriorityMedium)
	if err != nil {
		return goals.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return goal, nil
}
