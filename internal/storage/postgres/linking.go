// Package postgres provides sqlx-backed implementations of the link and
// goal stores.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"goalbot/internal/linking"
)

const uniqueViolation = pq.ErrorCode("23505")

// LinkStore persists chat links in Postgres.
type LinkStore struct {
	db *sqlx.DB
}

// NewLinkStore creates a LinkStore.
func NewLinkStore(db *sqlx.DB) *LinkStore {
	return &LinkStore{db: db}
}

type linkRow struct {
	ChatID    int64         `db:"chat_id"`
	UserID    int64         `db:"tg_user_id"`
	Username  string        `db:"tg_username"`
	AccountID sql.NullInt64 `db:"account_id"`
	Code      string        `db:"verification_code"`
}

func (r linkRow) toLink() linking.ChatLink {
	link := linking.ChatLink{
		ChatID:   r.ChatID,
		UserID:   r.UserID,
		Username: r.Username,
		Code:     r.Code,
	}
	if r.AccountID.Valid {
		link.AccountID = r.AccountID.Int64
	}
	return link
}

const selectLink = `
	SELECT chat_id, tg_user_id, tg_username, account_id, verification_code
	FROM chat_links
`

func (s *LinkStore) GetOrCreate(ctx context.Context, chatID, userID int64, username, code string) (linking.ChatLink, bool, error) {
	var row linkRow
	err := s.db.GetContext(ctx, &row, selectLink+`WHERE chat_id = $1`, chatID)
	if err == nil {
		return row.toLink(), false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return linking.ChatLink{}, false, fmt.Errorf("get chat link: %w", err)
	}

	const insert = `
		INSERT INTO chat_links (chat_id, tg_user_id, tg_username, verification_code)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, insert, chatID, userID, username, code)
	if err != nil {
		if isUniqueViolation(err, "chat_links_verification_code_key") {
			return linking.ChatLink{}, false, linking.ErrCodeConflict
		}
		return linking.ChatLink{}, false, fmt.Errorf("create chat link: %w", err)
	}
	inserted, _ := res.RowsAffected()
	if inserted == 0 {
		// Lost the race to a concurrent insert for the same chat.
		if err := s.db.GetContext(ctx, &row, selectLink+`WHERE chat_id = $1`, chatID); err != nil {
			return linking.ChatLink{}, false, fmt.Errorf("get chat link: %w", err)
		}
		return row.toLink(), false, nil
	}

	return linking.ChatLink{
		ChatID:   chatID,
		UserID:   userID,
		Username: username,
		Code:     code,
	}, true, nil
}

func (s *LinkStore) FindByCode(ctx context.Context, code string) (linking.ChatLink, error) {
	var row linkRow
	err := s.db.GetContext(ctx, &row, selectLink+`WHERE verification_code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return linking.ChatLink{}, linking.ErrCodeNotFound
	}
	if err != nil {
		return linking.ChatLink{}, fmt.Errorf("find link by code: %w", err)
	}
	return row.toLink(), nil
}

// AttachAccount binds the account inside a row-locked transaction so a
// concurrent code regeneration cannot lose the update.
func (s *LinkStore) AttachAccount(ctx context.Context, chatID, accountID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("attach account: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row linkRow
	err = tx.GetContext(ctx, &row, selectLink+`WHERE chat_id = $1 FOR UPDATE`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return linking.ErrLinkNotFound
	}
	if err != nil {
		return fmt.Errorf("attach account: %w", err)
	}

	const update = `
		UPDATE chat_links
		SET account_id = $1, verified_at = now()
		WHERE chat_id = $2
	`
	if _, err := tx.ExecContext(ctx, update, accountID, chatID); err != nil {
		return fmt.Errorf("attach account: %w", err)
	}
	return tx.Commit()
}

func (s *LinkStore) SetCode(ctx context.Context, chatID int64, code string) error {
	const update = `
		UPDATE chat_links
		SET verification_code = $1
		WHERE chat_id = $2 AND account_id IS NULL
	`
	res, err := s.db.ExecContext(ctx, update, code, chatID)
	if err != nil {
		if isUniqueViolation(err, "chat_links_verification_code_key") {
			return linking.ErrCodeConflict
		}
		return fmt.Errorf("set verification code: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return linking.ErrLinkNotFound
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
