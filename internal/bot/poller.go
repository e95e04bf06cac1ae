// Package bot drives the poll-dispatch-send cycle: it owns the update offset
// watermark and feeds each message through the conversation engine.
package bot

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"goalbot/internal/conversation"
	"goalbot/internal/linking"
	"goalbot/internal/logger"
)

// UpdateSource fetches ordered batches of updates from the platform.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]tele.Update, error)
}

// Sender delivers outbound messages to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Options controls Poller behaviour. Zero values select sane defaults.
type Options struct {
	// PollTimeout is the server-side long-poll hold time.
	PollTimeout time.Duration
	// RetryDelay is the pause after a failed fetch before the next attempt.
	RetryDelay time.Duration
}

// Poller runs the single-worker update loop. Processing one update fully
// completes, including outbound sends, before the next one starts, so no
// per-chat locking is needed inside the loop.
type Poller struct {
	source UpdateSource
	sender Sender
	links  *linking.Service
	states conversation.Manager
	engine *conversation.Engine

	pollTimeout time.Duration
	retryDelay  time.Duration

	// offset is the next expected update_id.
	offset int64
}

// NewPoller assembles the dispatcher.
func NewPoller(source UpdateSource, sender Sender, links *linking.Service, states conversation.Manager, engine *conversation.Engine, opts Options) *Poller {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 60 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 3 * time.Second
	}
	return &Poller{
		source:      source,
		sender:      sender,
		links:       links,
		states:      states,
		engine:      engine,
		pollTimeout: opts.PollTimeout,
		retryDelay:  opts.RetryDelay,
	}
}

// Run drives the poll cycle until ctx is canceled. A fetch failure is not
// retried within the iteration; the loop simply sleeps briefly and polls
// again.
func (p *Poller) Run(ctx context.Context) error {
	logger.BOT.Info("poller started",
		slog.String("event", "poll.start"),
		slog.Duration("timeout", p.pollTimeout),
	)

	for {
		if err := ctx.Err(); err != nil {
			logger.BOT.Info("poller stopped", slog.String("event", "poll.stop"))
			return err
		}

		updates, err := p.source.GetUpdates(ctx, p.offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				logger.BOT.Info("poller stopped", slog.String("event", "poll.stop"))
				return ctx.Err()
			}
			logger.BOT.Warn("fetch failed",
				slog.String("event", "poll.fetch"),
				slog.Int64("offset", p.offset),
				slog.String("err", err.Error()),
			)
			p.sleep(ctx)
			continue
		}

		for _, upd := range updates {
			// The watermark advances unconditionally, even when handling
			// the update fails, so it is never redelivered.
			p.offset = int64(upd.ID) + 1

			msg := upd.Message
			if msg == nil || msg.Chat == nil || msg.Sender == nil {
				continue
			}
			p.handleMessage(ctx, int64(upd.ID), msg)
		}
	}
}

func (p *Poller) handleMessage(ctx context.Context, updateID int64, m *tele.Message) {
	start := time.Now()
	chatID := m.Chat.ID
	senderID := m.Sender.ID

	ctx = logger.WithRID(ctx, logger.BuildRID(updateID, chatID, senderID))
	ctx = logger.WithUpdateMeta(ctx, updateID, senderID, chatID)
	ctx = logger.WithLogger(ctx, logger.BOT.With("rid", logger.RIDFrom(ctx)))

	link, _, err := p.links.GetOrCreateLink(ctx, chatID, senderID, m.Sender.Username)
	if err != nil {
		logger.BOT.Error("link lookup failed",
			slog.String("event", "dispatch"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return
	}

	st := p.states.Get(chatID)
	next, outbound, stepErr := p.engine.Step(ctx, st, link, conversation.Inbound{
		UpdateID: updateID,
		ChatID:   chatID,
		SenderID: senderID,
		Text:     m.Text,
	})

	// The transition is applied even when the step reported an error or a
	// send fails below: delivery is best-effort, not transactional.
	p.states.Set(chatID, next)

	for _, out := range outbound {
		if err := p.sender.SendMessage(ctx, out.ChatID, out.Text); err != nil {
			logger.BOT.Error("send failed",
				slog.String("event", "send"),
				slog.Int64("chat_id", out.ChatID),
				slog.String("err", err.Error()),
			)
		}
	}

	logger.BOT.Debug("update dispatched",
		slog.String("event", "dispatch"),
		slog.Int64("update_id", updateID),
		slog.Int64("chat_id", chatID),
		slog.String("phase", string(next.Phase)),
		slog.String("status", logger.Status(stepErr)),
		slog.Duration("duration", logger.Took(start)),
	)
	if stepErr != nil {
		logger.BOT.Warn("step failed",
			slog.String("event", "dispatch"),
			slog.Int64("update_id", updateID),
			slog.Int64("chat_id", chatID),
			slog.String("err", stepErr.Error()),
		)
	}
}

func (p *Poller) sleep(ctx context.Context) {
	timer := time.NewTimer(p.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
