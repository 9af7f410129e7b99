// Package store keeps assistant replies and per-session generation history.
package store

import (
	"context"
	"time"
)

// ============================================================================
// STORE - Reply cache + generation history
// ============================================================================
// Both parts are optional. Without a store the assistant calls the model on
// every request and the history endpoint returns an empty list.
// ============================================================================

// HistoryEntry is one generation as remembered for a session.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Input     string    `json:"input"`
	Markdown  string    `json:"markdown"`
	Events    int       `json:"events"`
	Cached    bool      `json:"cached"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence behind the assistant.
type Store interface {
	// GetReply returns a cached reply; ok is false on a miss.
	GetReply(ctx context.Context, key string) (reply string, ok bool, err error)
	// PutReply caches a reply for ttl. A ttl <= 0 disables caching.
	PutReply(ctx context.Context, key, reply string, ttl time.Duration) error
	// AppendHistory records an entry, keeping at most max entries per session.
	AppendHistory(ctx context.Context, session string, entry HistoryEntry, max int) error
	// History returns up to limit entries, newest first. limit <= 0 means all.
	History(ctx context.Context, session string, limit int) ([]HistoryEntry, error)
}

const (
	replyPrefix   = "reply:"   // String: reply:{hash} -> generated markdown
	historyPrefix = "history:" // List: history:{session} -> JSON entries, newest first
)

func replyKey(key string) string {
	return replyPrefix + key
}

func historyKey(session string) string {
	return historyPrefix + session
}
