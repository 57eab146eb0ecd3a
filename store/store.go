package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"quantum-ratchet/common"
)

var (
	ErrNotFound = errors.New("message not found")
)

// HistoryStore persists relayed messages. Conversation returns the messages
// exchanged between two identities in the order they were appended,
// whichever side sent them.
type HistoryStore interface {
	Append(ctx context.Context, msg common.Message) error
	Conversation(ctx context.Context, a, b string) ([]common.Message, error)
	FindByBeacon(ctx context.Context, beacon string) (common.Message, error)
	Close() error
}

// conversationKey orders and case-folds a pair of identities so both sides
// of a conversation address the same history.
func conversationKey(a, b string) (string, string) {
	ids := []string{strings.ToLower(a), strings.ToLower(b)}
	sort.Strings(ids)
	return ids[0], ids[1]
}
