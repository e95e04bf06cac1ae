package linking

import (
	"context"
	"errors"
	"sync"
)

// ChatLink binds a Telegram chat identity to a web account. AccountID stays
// zero until the verification code is redeemed through the web tier.
type ChatLink struct {
	ChatID    int64  `db:"chat_id"`
	UserID    int64  `db:"tg_user_id"`
	Username  string `db:"tg_username"`
	AccountID int64  `db:"account_id"`
	Code      string `db:"verification_code"`
}

// Linked reports whether the chat has been bound to a web account.
func (l ChatLink) Linked() bool { return l.AccountID != 0 }

var (
	// ErrLinkNotFound reports an unknown chat identity.
	ErrLinkNotFound = errors.New("linking: chat link not found")
	// ErrCodeNotFound reports an unknown or already replaced verification code.
	ErrCodeNotFound = errors.New("linking: verification code not found")
	// ErrCodeConflict reports a verification code collision on write.
	ErrCodeConflict = errors.New("linking: verification code already taken")
	// ErrAlreadyLinked reports an attempt to re-issue a code for a linked chat.
	ErrAlreadyLinked = errors.New("linking: chat already linked")
)

// Store persists chat links.
type Store interface {
	// GetOrCreate returns the link for a chat identity, creating it with the
	// provided verification code when absent. ErrCodeConflict is returned when
	// the code is already taken by another link.
	GetOrCreate(ctx context.Context, chatID, userID int64, username, code string) (ChatLink, bool, error)
	// FindByCode resolves a link by its verification code.
	FindByCode(ctx context.Context, code string) (ChatLink, error)
	// AttachAccount binds the account to the chat. Idempotent for the same
	// account; a different account overwrites (last-write-wins).
	AttachAccount(ctx context.Context, chatID, accountID int64) error
	// SetCode replaces the verification code of an unlinked chat.
	SetCode(ctx context.Context, chatID int64, code string) error
}

// MemoryStore keeps chat links in process memory, for tests and development.
type MemoryStore struct {
	mu    sync.RWMutex
	chats map[int64]ChatLink
	codes map[string]int64
}

// NewMemoryStore builds an empty in-memory Store implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats: make(map[int64]ChatLink),
		codes: make(map[string]int64),
	}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, chatID, userID int64, username, code string) (ChatLink, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if link, ok := s.chats[chatID]; ok {
		return link, false, nil
	}
	if _, taken := s.codes[code]; taken {
		return ChatLink{}, false, ErrCodeConflict
	}

	link := ChatLink{
		ChatID:   chatID,
		UserID:   userID,
		Username: username,
		Code:     code,
	}
	s.chats[chatID] = link
	s.codes[code] = chatID
	return link, true, nil
}

func (s *MemoryStore) FindByCode(_ context.Context, code string) (ChatLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chatID, ok := s.codes[code]
	if !ok {
		return ChatLink{}, ErrCodeNotFound
	}
	return s.chats[chatID], nil
}

func (s *MemoryStore) AttachAccount(_ context.Context, chatID, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.chats[chatID]
	if !ok {
		return ErrLinkNotFound
	}
	link.AccountID = accountID
	s.chats[chatID] = link
	return nil
}

func (s *MemoryStore) SetCode(_ context.Context, chatID int64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.chats[chatID]
	if !ok {
		return ErrLinkNotFound
	}
	if link.Linked() {
		return ErrAlreadyLinked
	}
	if owner, taken := s.codes[code]; taken && owner != chatID {
		return ErrCodeConflict
	}
	delete(s.codes, link.Code)
	link.Code = code
	s.chats[chatID] = link
	s.codes[code] = chatID
	return nil
}
