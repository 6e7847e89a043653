// Package registry persists the two pieces of cross-invocation state the bot
// has: the set of subscribed chats and the expiring notification markers that
// keep reminders idempotent.
package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"alphabot/pkg/logx"
)

var ErrDisabled = errors.New("registry disabled")

// Store is the persistence API consumed by the command handlers and the
// reminder sweep. All operations are idempotent.
type Store interface {
	// Members returns all subscribed chat ids.
	Members(ctx context.Context) ([]int64, error)
	Add(ctx context.Context, chatID int64) error
	Remove(ctx context.Context, chatID int64) error

	// MarkerExists reports whether a notification marker is present (and not
	// expired). Its absence is the precondition for sending.
	MarkerExists(ctx context.Context, key string) (bool, error)
	// SetMarker records a delivered notification. The marker expires after ttl.
	SetMarker(ctx context.Context, key string, ttl time.Duration) error

	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures a driver.
//
// Driver values:
//   - "redis":  external Redis
//   - "sqlite": local SQLite database file
//   - "memory": in-process, volatile; useful for tests and dry runs
//
// If Driver is empty or "none", the registry is disabled: the bot still
// serves digests, but opt-in and reminders report unavailability.
type Config struct {
	Driver string
	Addr   string // redis address, host:port
	DB     int    // redis database number
	Path   string // sqlite file path

	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
// It returns (nil, nil) if the registry is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "redis":
		return openRedis(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown registry driver: " + driver)
	}
}
