// Package provider defines the contract between the automation core and a
// messaging provider. The core never touches a provider SDK directly; it
// sees connections, inbound events, and the two error shapes it must react
// to (rate limiting and write-forbidden chats).
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrWriteForbidden is returned by a send when the connected account is not
// allowed to write into the chat.
var ErrWriteForbidden = errors.New("provider: write forbidden")

// RateLimitedError carries the wait the provider demands before the next
// write. The dispatcher sleeps it out and counts the attempt as failed.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("provider: rate limited, retry after %s", e.RetryAfter)
}

// AsRateLimited unwraps err into the required wait, if it is a rate limit.
func AsRateLimited(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// Role is the connected account's standing in a chat.
type Role string

const (
	RoleOwner  Role = "creator"
	RoleAdmin  Role = "administrator"
	RoleMember Role = "member"
)

// Admin reports whether the role carries administrative rights.
func (r Role) Admin() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Event is one inbound chat message observed by a tenant connection.
type Event struct {
	ChatID         int64
	SenderID       int64
	SenderUsername string
	IsSelf         bool
	Text           string
}

// EventHandler receives inbound events. Handlers must not block; the
// activity monitor only arms timers.
type EventHandler func(Event)

// Conn is one live authenticated link to the provider for one tenant.
type Conn interface {
	// AccountID identifies the connected account.
	AccountID() int64
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, path, caption string) error
	// SelfRole looks up the connected account's role in a chat.
	SelfRole(ctx context.Context, chatID int64) (Role, error)
	// Close tears the connection down. Safe to call more than once.
	Close(ctx context.Context) error
}

// Connector establishes connections from stored credentials.
type Connector interface {
	Connect(ctx context.Context, credential string, handler EventHandler) (Conn, error)
}
