package linking

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"goalbot/internal/logger"
)

const (
	codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 10

	// maxCodeAttempts bounds collision regeneration so a broken store
	// cannot spin the caller forever.
	maxCodeAttempts = 5
)

// NewCode returns a random alphanumeric verification code.
func NewCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("linking: code generation: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// Service is the rendezvous point between the bot conversation, which shows
// verification codes, and the authenticated web session, which submits them.
type Service struct {
	links Store
}

// NewService builds a Service on top of a link store.
func NewService(links Store) *Service {
	return &Service{links: links}
}

// GetOrCreateLink returns the link for a chat identity, creating it with a
// fresh unique verification code when the chat is seen for the first time.
// A code collision regenerates the code and retries.
func (s *Service) GetOrCreateLink(ctx context.Context, chatID, userID int64, username string) (ChatLink, bool, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := NewCode()
		if err != nil {
			return ChatLink{}, false, err
		}
		link, created, err := s.links.GetOrCreate(ctx, chatID, userID, username, code)
		if errors.Is(err, ErrCodeConflict) {
			continue
		}
		if err != nil {
			return ChatLink{}, false, err
		}
		if created {
			logger.LINK.Info("chat link created",
				slog.String("event", "link.create"),
				slog.Int64("chat_id", chatID),
				slog.Int64("tg_user_id", userID),
			)
		}
		return link, created, nil
	}
	return ChatLink{}, false, fmt.Errorf("linking: could not allocate a unique code after %d attempts", maxCodeAttempts)
}

// IssueCode replaces the verification code of an unlinked chat and returns
// the new code for display to the user. Linked chats never re-issue codes
// through this path.
func (s *Service) IssueCode(ctx context.Context, link ChatLink) (string, error) {
	if link.Linked() {
		return "", ErrAlreadyLinked
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := NewCode()
		if err != nil {
			return "", err
		}
		err = s.links.SetCode(ctx, link.ChatID, code)
		if errors.Is(err, ErrCodeConflict) {
			continue
		}
		if err != nil {
			return "", err
		}
		logger.LINK.Info("verification code issued",
			slog.String("event", "link.issue_code"),
			slog.Int64("chat_id", link.ChatID),
		)
		return code, nil
	}
	return "", fmt.Errorf("linking: could not allocate a unique code after %d attempts", maxCodeAttempts)
}

// RedeemCode resolves a verification code submitted through the web tier and
// binds the account to the chat. ErrCodeNotFound is returned for unknown
// codes and must surface to the caller as a client error, never a silent
// success.
func (s *Service) RedeemCode(ctx context.Context, code string, accountID int64) (ChatLink, error) {
	if code == "" {
		return ChatLink{}, ErrCodeNotFound
	}
	link, err := s.links.FindByCode(ctx, code)
	if err != nil {
		return ChatLink{}, err
	}
	if err := s.links.AttachAccount(ctx, link.ChatID, accountID); err != nil {
		return ChatLink{}, err
	}
	link.AccountID = accountID
	logger.LINK.Info("account linked",
		slog.String("event", "link.redeem"),
		slog.Int64("chat_id", link.ChatID),
		slog.Int64("account_id", accountID),
	)
	return link, nil
}
