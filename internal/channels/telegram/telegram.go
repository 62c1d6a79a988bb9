// Package telegram connects the coordinator to Telegram via the Bot
// API. One bot, long polling, an allowlist of user IDs, and chunked
// replies. Messages from anyone not on the allowlist are dropped.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// maxMessageLen is Telegram's hard limit per message.
const maxMessageLen = 4096

// Handler turns one inbound chat message into a reply. platform is
// always "telegram" here; userID is the numeric Telegram user ID as a
// string.
type Handler func(ctx context.Context, platform, userID, text string) (string, error)

// Channel is a running Telegram bot bound to a handler.
type Channel struct {
	bot     *telego.Bot
	allowed map[int64]bool
	handler Handler

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates the bot. An empty allowedUsers list means nobody may talk
// to it, which is the safe default for a bot token leaked into config.
func New(token string, allowedUsers []int64, handler Handler) (*Channel, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	allowed := make(map[int64]bool, len(allowedUsers))
	for _, id := range allowedUsers {
		allowed[id] = true
	}
	return &Channel{bot: bot, allowed: allowed, handler: handler}, nil
}

// Start begins long polling. It returns once polling is established;
// updates are handled on a background goroutine until Stop.
func (c *Channel) Start(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}
	slog.Info("telegram.connected", "username", c.bot.Username())

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil {
					c.handleMessage(pollCtx, update.Message)
				}
			}
		}
	}()
	return nil
}

// Stop cancels long polling and waits for the update loop to exit so
// Telegram releases the getUpdates lock before a restart.
func (c *Channel) Stop(_ context.Context) error {
	if c.pollCancel != nil {
		c.pollCancel()
	}
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
		case <-time.After(10 * time.Second):
			slog.Warn("telegram.poll_loop_stuck")
		}
	}
	return nil
}

func (c *Channel) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil || msg.Text == "" {
		return
	}
	userID := msg.From.ID
	if !c.allowed[userID] {
		slog.Warn("telegram.unauthorized", "user_id", userID)
		return
	}

	chatID := tu.ID(msg.Chat.ID)
	_ = c.bot.SendChatAction(ctx, tu.ChatAction(chatID, telego.ChatActionTyping))

	reply, err := c.handler(ctx, "telegram", strconv.FormatInt(userID, 10), msg.Text)
	if err != nil {
		slog.Error("telegram.handler_failed", "user_id", userID, "error", err)
		reply = "Something went wrong handling that. Check the logs."
	}
	if reply == "" {
		return
	}
	for _, chunk := range splitMessage(reply, maxMessageLen) {
		if _, err := c.bot.SendMessage(ctx, tu.Message(chatID, chunk)); err != nil {
			slog.Error("telegram.send_failed", "user_id", userID, "error", err)
			return
		}
	}
}

// splitMessage breaks text into chunks of at most limit bytes,
// preferring to cut at a newline in the back half of the window.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for len(text) > 0 {
		chunk := text
		if len(chunk) > limit {
			cutAt := limit
			if idx := strings.LastIndex(text[:limit], "\n"); idx > limit/2 {
				cutAt = idx
			}
			chunk = text[:cutAt]
		}
		chunks = append(chunks, chunk)
		text = strings.TrimPrefix(text[len(chunk):], "\n")
	}
	return chunks
}
