package queue

import (
	"context"
	"sync"
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/config"
	"e2e_relay/internal/model"
)

type (
	mailbox struct {
		high   []*model.MessageEnvelope
		normal []*model.MessageEnvelope
	}

	// MemoryStore is the in-process Store used by tests and single-node dev
	// runs. One mutex guards everything; mailbox operations are short.
	MemoryStore struct {
		mu        sync.Mutex
		mailboxes map[string]*mailbox
		devices   map[string]map[string]struct{}
		maxDepth  int
		policy    string
	}
)

func NewMemoryStore(maxDepth int, policy string) *MemoryStore {
	return &MemoryStore{
		mailboxes: make(map[string]*mailbox),
		devices:   make(map[string]map[string]struct{}),
		maxDepth:  maxDepth,
		policy:    policy,
	}
}

func (s *MemoryStore) box(userID, deviceID string) *mailbox {
	key := userID + "\x00" + deviceID
	b, ok := s.mailboxes[key]
	if !ok {
		b = &mailbox{}
		s.mailboxes[key] = b
	}
	return b
}

func (s *MemoryStore) Push(ctx context.Context, userID, deviceID string, env *model.MessageEnvelope) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.box(userID, deviceID)
	if len(b.high)+len(b.normal) >= s.maxDepth {
		if s.policy == config.EvictRejectNew {
			return 0, common.ErrQueueFull
		}
		if len(b.normal) > 0 {
			b.normal = b.normal[1:]
		} else {
			b.high = b.high[1:]
		}
	}

	if env.Priority == model.PriorityHigh {
		b.high = append(b.high, env)
		return len(b.high), nil
	}
	b.normal = append(b.normal, env)
	return len(b.high) + len(b.normal), nil
}

func (s *MemoryStore) Pop(ctx context.Context, userID, deviceID string, limit int) ([]*model.MessageEnvelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.box(userID, deviceID)
	out := make([]*model.MessageEnvelope, 0, limit)

	n := min(limit, len(b.high))
	out = append(out, b.high[:n]...)
	b.high = b.high[n:]

	n = min(limit-len(out), len(b.normal))
	out = append(out, b.normal[:n]...)
	b.normal = b.normal[n:]

	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context, userID string) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &Stats{}
	var oldest time.Time
	for deviceID := range s.devices[userID] {
		b := s.box(userID, deviceID)
		stats.Depth += int64(len(b.high) + len(b.normal))
		for _, head := range [][]*model.MessageEnvelope{b.high, b.normal} {
			if len(head) == 0 {
				continue
			}
			if oldest.IsZero() || head[0].Timestamp.Before(oldest) {
				oldest = head[0].Timestamp
			}
		}
	}
	if !oldest.IsZero() {
		stats.OldestAgeMs = time.Since(oldest).Milliseconds()
	}
	return stats, nil
}

func (s *MemoryStore) RegisterDevice(ctx context.Context, userID, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.devices[userID] == nil {
		s.devices[userID] = make(map[string]struct{})
	}
	s.devices[userID][deviceID] = struct{}{}
	return nil
}

func (s *MemoryStore) Devices(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices := make([]string, 0, len(s.devices[userID]))
	for deviceID := range s.devices[userID] {
		devices = append(devices, deviceID)
	}
	return devices, nil
}
