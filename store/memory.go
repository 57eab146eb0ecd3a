package store

import (
	"context"
	"sync"

	"quantum-ratchet/common"
)

type MemoryStore struct {
	mu      sync.RWMutex
	history map[[2]string][]common.Message
	beacons map[string]common.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		history: make(map[[2]string][]common.Message),
		beacons: make(map[string]common.Message),
	}
}

func (s *MemoryStore) Append(_ context.Context, msg common.Message) error {
	first, second := conversationKey(msg.Sender, msg.Recipient)

	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{first, second}
	s.history[key] = append(s.history[key], msg)
	if msg.Beacon != "" {
		s.beacons[msg.Beacon] = msg
	}
	return nil
}

func (s *MemoryStore) Conversation(_ context.Context, a, b string) ([]common.Message, error) {
	first, second := conversationKey(a, b)

	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.history[[2]string{first, second}]
	return append([]common.Message{}, msgs...), nil
}

func (s *MemoryStore) FindByBeacon(_ context.Context, beacon string) (common.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.beacons[beacon]
	if !ok {
		return common.Message{}, ErrNotFound
	}
	return msg, nil
}

func (s *MemoryStore) Close() error { return nil }
