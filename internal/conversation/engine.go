package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"goalbot/internal/goals"
	"goalbot/internal/linking"
	"goalbot/internal/logger"
)

// Inbound is one message taken from a platform update.
type Inbound struct {
	UpdateID int64
	ChatID   int64
	SenderID int64
	Text     string
}

// Outbound is a reply to be delivered to a chat. Delivery is best-effort and
// not transactional with the state transition that produced it.
type Outbound struct {
	ChatID int64
	Text   string
}

// Engine interprets one inbound message against the chat's current state and
// produces the next state plus zero or more outbound messages. It holds no
// mutable state of its own; everything it needs is passed in or fetched fresh
// from collaborators on each step.
type Engine struct {
	links       *linking.Service
	goals       goals.Store
	siteBaseURL string
}

// NewEngine wires the state machine with its collaborators.
func NewEngine(links *linking.Service, store goals.Store, siteBaseURL string) *Engine {
	return &Engine{
		links:       links,
		goals:       store,
		siteBaseURL: strings.TrimRight(siteBaseURL, "/"),
	}
}

// Step advances the conversation by one inbound message. The returned error
// reports collaborator failures for logging; the returned state and messages
// are always valid and must still be applied by the caller.
func (e *Engine) Step(ctx context.Context, st State, link linking.ChatLink, msg Inbound) (State, []Outbound, error) {
	// Web redemption happens out-of-band: a freshly linked chat moves to
	// idle before the triggering message is interpreted.
	if link.Linked() && st.Phase == PhaseAwaitingVerification {
		st = State{Phase: PhaseIdle}
	}

	logger.FromContext(ctx).Debug("conversation step",
		slog.String("event", "step"),
		slog.Int64("chat_id", msg.ChatID),
		slog.String("phase", string(st.Phase)),
		slog.String("text", logger.SanitizeLimit(msg.Text, 64)),
	)

	switch st.Phase {
	case PhaseAwaitingVerification:
		return e.stepVerification(ctx, st, link, msg)
	case PhaseIdle:
		return e.stepIdle(ctx, st, link, msg)
	case PhaseAwaitingCategory:
		return e.stepCategory(ctx, st, link, msg)
	case PhaseAwaitingGoalTitle:
		return e.stepGoalTitle(ctx, st, link, msg)
	default:
		return State{Phase: PhaseIdle}, reply(msg, msgUnknownCommand), nil
	}
}

// stepVerification re-prompts with the link's current code. The code is not
// regenerated on every message, only allocated when the link carries none,
// so a code the user is mid-typing stays valid.
func (e *Engine) stepVerification(ctx context.Context, st State, link linking.ChatLink, msg Inbound) (State, []Outbound, error) {
	code := link.Code
	if code == "" {
		issued, err := e.links.IssueCode(ctx, link)
		if err != nil {
			return st, reply(msg, msgTryAgain), fmt.Errorf("issue code: %w", err)
		}
		code = issued
	}
	return st, reply(msg, fmt.Sprintf(msgVerifyCode, code)), nil
}

func (e *Engine) stepIdle(ctx context.Context, st State, link linking.ChatLink, msg Inbound) (State, []Outbound, error) {
	switch msg.Text {
	case cmdGoals:
		list, err := e.goals.ListActiveGoals(ctx, link.AccountID)
		if err != nil {
			return st, reply(msg, msgTryAgain), fmt.Errorf("list goals: %w", err)
		}
		if len(list) == 0 {
			return st, reply(msg, msgNoGoals), nil
		}
		titles := make([]string, 0, len(list))
		for _, g := range list {
			titles = append(titles, g.Title)
		}
		return st, reply(msg, bulletList(msgGoalsHeader, titles)), nil

	case cmdCreate:
		cats, err := e.goals.ListActiveCategories(ctx, link.AccountID)
		if err != nil {
			return st, reply(msg, msgTryAgain), fmt.Errorf("list categories: %w", err)
		}
		if len(cats) == 0 {
			return st, reply(msg, msgNoCategories), nil
		}
		titles := make([]string, 0, len(cats))
		for _, c := range cats {
			titles = append(titles, c.Title)
		}
		return State{Phase: PhaseAwaitingCategory}, reply(msg, bulletList(msgChooseCategory, titles)), nil

	default:
		return st, reply(msg, msgUnknownCommand), nil
	}
}

// stepCategory matches the message against the account's visible categories.
// The list is fetched fresh on each step so a concurrently deleted category
// stops matching immediately.
func (e *Engine) stepCategory(ctx context.Context, st State, link linking.ChatLink, msg Inbound) (State, []Outbound, error) {
	if msg.Text == cmdCancel {
		return State{Phase: PhaseIdle}, reply(msg, msgCanceled), nil
	}

	cats, err := e.goals.ListActiveCategories(ctx, link.AccountID)
	if err != nil {
		return st, reply(msg, msgTryAgain), fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		if c.Title == msg.Text {
			next := State{
				Phase:         PhaseAwaitingGoalTitle,
				CategoryID:    c.ID,
				CategoryTitle: c.Title,
			}
			return next, reply(msg, msgEnterGoalTitle), nil
		}
	}
	return st, reply(msg, msgUnknownCategory), nil
}

func (e *Engine) stepGoalTitle(ctx context.Context, st State, link linking.ChatLink, msg Inbound) (State, []Outbound, error) {
	if msg.Text == cmdCancel {
		return State{Phase: PhaseIdle}, reply(msg, msgCanceled), nil
	}

	goal, err := e.goals.CreateGoal(ctx, link.AccountID, st.CategoryID, msg.Text)
	if err != nil {
		// No silent state advance on a failed creation.
		return st, reply(msg, msgTryAgain), fmt.Errorf("create goal: %w", err)
	}

	logger.FromContext(ctx).Info("goal created",
		slog.String("event", "goal.create"),
		slog.Int64("chat_id", msg.ChatID),
		slog.Int64("goal_id", goal.ID),
		slog.Int64("category_id", st.CategoryID),
	)
	return State{Phase: PhaseIdle}, reply(msg, fmt.Sprintf(msgGoalCreated, e.siteBaseURL, goal.ID)), nil
}

func reply(msg Inbound, text string) []Outbound {
	return []Outbound{{ChatID: msg.ChatID, Text: text}}
}

func bulletList(header string, titles []string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, t := range titles {
		b.WriteString("\n- ")
		b.WriteString(t)
	}
	return b.String()
}
