// Package telegram implements the provider contract on the Telegram Bot API
// using long polling. A tenant credential is the bot token of the account
// the tenant connected.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/adpilot/adpilot/internal/provider"
)

// Connector dials Telegram connections from stored bot tokens.
type Connector struct{}

func NewConnector() *Connector {
	return &Connector{}
}

// Connect validates the credential against the Bot API and starts long
// polling. Inbound messages are fanned out to handler until Close.
func (c *Connector) Connect(ctx context.Context, credential string, handler provider.EventHandler) (provider.Conn, error) {
	bot, err := telego.NewBot(credential)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	updates, err := bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start long polling: %w", err)
	}

	conn := &Conn{
		bot:        bot,
		pollCancel: cancel,
		pollDone:   make(chan struct{}),
	}

	go func() {
		defer close(conn.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Debug("telegram updates channel closed", "bot", bot.Username())
					return
				}
				if ev, ok := conn.toEvent(update); ok {
					handler(ev)
				}
			}
		}
	}()

	return conn, nil
}

// Conn is one live Telegram bot connection.
type Conn struct {
	bot        *telego.Bot
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

func (c *Conn) AccountID() int64 {
	return c.bot.ID()
}

// Username returns the connected bot's username, for log events.
func (c *Conn) Username() string {
	return c.bot.Username()
}

func (c *Conn) toEvent(update telego.Update) (provider.Event, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return provider.Event{}, false
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	return provider.Event{
		ChatID:         msg.Chat.ID,
		SenderID:       msg.From.ID,
		SenderUsername: msg.From.Username,
		IsSelf:         msg.From.ID == c.bot.ID(),
		Text:           text,
	}, true
}

func (c *Conn) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return mapError(err)
}

func (c *Conn) SendPhoto(ctx context.Context, chatID int64, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open photo %s: %w", path, err)
	}
	defer f.Close()

	params := tu.Photo(tu.ID(chatID), tu.File(f))
	if caption != "" {
		params = params.WithCaption(caption)
	}
	_, err = c.bot.SendPhoto(ctx, params)
	return mapError(err)
}

func (c *Conn) SelfRole(ctx context.Context, chatID int64) (provider.Role, error) {
	member, err := c.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: c.bot.ID(),
	})
	if err != nil {
		return "", mapError(err)
	}
	return provider.Role(member.MemberStatus()), nil
}

// Close stops long polling and waits for the poll goroutine to exit so the
// Bot API releases the getUpdates lock before any reconnect.
func (c *Conn) Close(_ context.Context) error {
	c.pollCancel()
	select {
	case <-c.pollDone:
	case <-time.After(10 * time.Second):
		slog.Warn("telegram polling goroutine did not exit within timeout", "bot", c.bot.Username())
	}
	return nil
}

// mapError converts Bot API failures to the provider error shapes the
// dispatcher reacts to.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode {
		case http.StatusTooManyRequests:
			wait := time.Duration(0)
			if apiErr.Parameters != nil {
				wait = time.Duration(apiErr.Parameters.RetryAfter) * time.Second
			}
			return &provider.RateLimitedError{RetryAfter: wait}
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", provider.ErrWriteForbidden, apiErr.Description)
		}
	}
	return err
}
