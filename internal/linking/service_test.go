package linking

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGetOrCreateLinkIdempotent(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	first, created, err := svc.GetOrCreateLink(ctx, 42, 7, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected link creation on first call")
	}
	if first.Code == "" {
		t.Fatal("expected a verification code")
	}

	second, created, err := svc.GetOrCreateLink(ctx, 42, 7, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("expected no creation on second call")
	}
	if second.Code != first.Code {
		t.Fatalf("code regenerated while unlinked: %q vs %q", second.Code, first.Code)
	}
}

// conflictingStore forces code collisions for the first n create attempts.
type conflictingStore struct {
	Store
	remaining int
}

func (s *conflictingStore) GetOrCreate(ctx context.Context, chatID, userID int64, username, code string) (ChatLink, bool, error) {
	if s.remaining > 0 {
		s.remaining--
		return ChatLink{}, false, ErrCodeConflict
	}
	return s.Store.GetOrCreate(ctx, chatID, userID, username, code)
}

func TestCodeCollisionRegenerates(t *testing.T) {
	svc := NewService(&conflictingStore{Store: NewMemoryStore(), remaining: 2})

	link, created, err := svc.GetOrCreateLink(context.Background(), 42, 7, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created || link.Code == "" {
		t.Fatalf("expected creation with a code after retries, got %+v", link)
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	svc := NewService(NewMemoryStore())
	if _, err := svc.RedeemCode(context.Background(), "nope", 1); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
}

func TestRedeemAttachesAccount(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	link, _, err := svc.GetOrCreateLink(ctx, 42, 7, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	redeemed, err := svc.RedeemCode(ctx, link.Code, 1)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redeemed.AccountID != 1 || redeemed.ChatID != 42 {
		t.Fatalf("unexpected link: %+v", redeemed)
	}

	// Redeem is last-write-wins: a later redemption replaces the account.
	again, err := svc.RedeemCode(ctx, link.Code, 2)
	if err != nil {
		t.Fatalf("second redeem: %v", err)
	}
	if again.AccountID != 2 {
		t.Fatalf("expected account overwritten, got %+v", again)
	}
}

func TestIssueCodeRefusedForLinkedChat(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	link, _, err := svc.GetOrCreateLink(ctx, 42, 7, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	linked, err := svc.RedeemCode(ctx, link.Code, 1)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	if _, err := svc.IssueCode(ctx, linked); !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("expected ErrAlreadyLinked, got %v", err)
	}
}

func TestIssueCodeReplacesOldCode(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	link, _, err := svc.GetOrCreateLink(ctx, 42, 7, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	code, err := svc.IssueCode(ctx, link)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if code == link.Code {
		t.Fatal("expected a fresh code")
	}
	if _, err := store.FindByCode(ctx, link.Code); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("old code should be gone, got %v", err)
	}
	if found, err := store.FindByCode(ctx, code); err != nil || found.ChatID != 42 {
		t.Fatalf("new code not resolvable: %+v %v", found, err)
	}
}

func TestNewCodeShape(t *testing.T) {
	code, err := NewCode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != codeLength {
		t.Fatalf("expected %d characters, got %d", codeLength, len(code))
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("unexpected character %q in code %q", r, code)
		}
	}
}
