package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"goalbot/internal/conversation"
	"goalbot/internal/goals"
	"goalbot/internal/linking"
)

type fakeSource struct {
	batches [][]tele.Update
	offsets []int64
	cancel  context.CancelFunc
}

func (f *fakeSource) GetUpdates(ctx context.Context, offset int64, _ time.Duration) ([]tele.Update, error) {
	f.offsets = append(f.offsets, offset)
	if len(f.batches) == 0 {
		f.cancel()
		return nil, ctx.Err()
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

type fakeSender struct {
	sent    []string
	chatIDs []int64
	failFor map[int64]error
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	if err := f.failFor[chatID]; err != nil {
		return err
	}
	f.chatIDs = append(f.chatIDs, chatID)
	f.sent = append(f.sent, text)
	return nil
}

type emptyGoalStore struct{}

func (emptyGoalStore) ListActiveGoals(context.Context, int64) ([]goals.Goal, error) {
	return nil, nil
}
func (emptyGoalStore) ListActiveCategories(context.Context, int64) ([]goals.Category, error) {
	return nil, nil
}
func (emptyGoalStore) CreateGoal(context.Context, int64, int64, string) (goals.Goal, error) {
	return goals.Goal{}, errors.New("not implemented")
}

func textUpdate(id int, chatID int64, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			Chat:   &tele.Chat{ID: chatID},
			Sender: &tele.User{ID: chatID + 100, Username: "user"},
			Text:   text,
		},
	}
}

func newTestPoller(source UpdateSource, sender *fakeSender) (*Poller, *linking.Service, conversation.Manager) {
	links := linking.NewService(linking.NewMemoryStore())
	states := conversation.NewMemoryManager()
	engine := conversation.NewEngine(links, emptyGoalStore{}, "https://goals.example.com")
	p := NewPoller(source, sender, links, states, engine, Options{
		PollTimeout: time.Second,
		RetryDelay:  time.Millisecond,
	})
	return p, links, states
}

func TestOffsetAdvancesPastBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		cancel: cancel,
		batches: [][]tele.Update{{
			textUpdate(5, 1, "hello"),
			textUpdate(6, 2, "hello"),
			textUpdate(7, 3, "hello"),
		}},
	}
	// Sends for chat 2 fail; the watermark must advance regardless.
	sender := &fakeSender{failFor: map[int64]error{2: errors.New("send down")}}
	p, _, _ := newTestPoller(source, sender)

	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(source.offsets) != 2 || source.offsets[0] != 0 || source.offsets[1] != 8 {
		t.Fatalf("expected offsets [0 8], got %v", source.offsets)
	}
}

func TestNonMessageUpdatesSkippedButAcked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		cancel:  cancel,
		batches: [][]tele.Update{{{ID: 11}, textUpdate(12, 1, "hello")}},
	}
	sender := &fakeSender{}
	p, _, _ := newTestPoller(source, sender)

	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if source.offsets[len(source.offsets)-1] != 13 {
		t.Fatalf("expected final offset 13, got %v", source.offsets)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one reply, got %v", sender.sent)
	}
}

func TestFirstContactCreatesLinkAndPrompts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{
		cancel:  cancel,
		batches: [][]tele.Update{{textUpdate(1, 42, "hello")}},
	}
	sender := &fakeSender{}
	p, links, states := newTestPoller(source, sender)

	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	link, created, err := links.GetOrCreateLink(context.Background(), 42, 142, "user")
	if err != nil {
		t.Fatalf("link lookup: %v", err)
	}
	if created {
		t.Fatal("link should already exist after the first contact")
	}
	if len(sender.sent) != 1 || sender.chatIDs[0] != 42 {
		t.Fatalf("expected one reply to chat 42, got %v %v", sender.chatIDs, sender.sent)
	}
	if link.Code == "" || !strings.Contains(sender.sent[0], link.Code) {
		t.Fatalf("expected verification prompt with code %q, got %q", link.Code, sender.sent[0])
	}
	if st := states.Get(42); st.Phase != conversation.PhaseAwaitingVerification {
		t.Fatalf("expected awaiting_verification, got %s", st.Phase)
	}
}

func TestFetchFailureRetriesNextIteration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &failingThenEmptySource{cancel: cancel}
	sender := &fakeSender{}
	p, _, _ := newTestPoller(source, sender)

	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if source.calls < 2 {
		t.Fatalf("expected a retry after the failed fetch, got %d calls", source.calls)
	}
}

type failingThenEmptySource struct {
	calls  int
	cancel context.CancelFunc
}

func (f *failingThenEmptySource) GetUpdates(ctx context.Context, _ int64, _ time.Duration) ([]tele.Update, error) {
	f.calls++
	if f.calls == 1 {
		return nil, errors.New("network down")
	}
	f.cancel()
	return nil, ctx.Err()
}
