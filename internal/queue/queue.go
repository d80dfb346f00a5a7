// Package queue implements per-(user, device) ordered mailboxes of envelopes
// awaiting pickup. Storage is injected so the queue itself owns no process-wide
// state; Redis backs it in production, memory in tests.
package queue

import (
	"context"
	"sync"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"

	"golang.org/x/sync/errgroup"
)

type (
	// Stats is queue depth telemetry for one user across all device mailboxes.
	Stats struct {
		Depth       int64 `json:"depth"`
		OldestAgeMs int64 `json:"oldestAgeMs"`
	}

	// Store is the mailbox storage contract. Push returns the 1-based position
	// the envelope occupies at insertion time. Pop removes and returns up to
	// limit envelopes exactly once under concurrent callers: high priority
	// first, FIFO within each priority band. An unknown mailbox pops empty.
	Store interface {
		Push(ctx context.Context, userID, deviceID string, env *model.MessageEnvelope) (int, error)
		Pop(ctx context.Context, userID, deviceID string, limit int) ([]*model.MessageEnvelope, error)
		Stats(ctx context.Context, userID string) (*Stats, error)
		RegisterDevice(ctx context.Context, userID, deviceID string) error
		Devices(ctx context.Context, userID string) ([]string, error)
	}

	Queue struct {
		store Store
	}
)

func New(store Store) *Queue {
	return &Queue{store: store}
}

// Push enqueues env in the addressed device's mailbox, or fans out to every
// registered device of the recipient when no device is addressed. The returned
// position is informational; for a fan-out it is the deepest mailbox position.
func (q *Queue) Push(ctx context.Context, env *model.MessageEnvelope) (int, error) {
	if env.ToDeviceID != "" {
		if err := q.store.RegisterDevice(ctx, env.ToUserID, env.ToDeviceID); err != nil {
			return 0, err
		}
		return q.store.Push(ctx, env.ToUserID, env.ToDeviceID, env)
	}

	devices, err := q.store.Devices(ctx, env.ToUserID)
	if err != nil {
		return 0, err
	}
	if len(devices) == 0 {
		return 0, common.ErrNoRegisteredDevices
	}

	var (
		mu  sync.Mutex
		max int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, deviceID := range devices {
		deviceID := deviceID
		g.Go(func() error {
			pos, err := q.store.Push(gctx, env.ToUserID, deviceID, env)
			if err != nil {
				return err
			}
			mu.Lock()
			if pos > max {
				max = pos
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return max, nil
}

// Pop registers the polling device and drains up to limit envelopes from its
// mailbox. An empty or unknown mailbox is a normal empty result, not an error.
func (q *Queue) Pop(ctx context.Context, userID, deviceID string, limit int) ([]*model.MessageEnvelope, error) {
	if limit <= 0 {
		return nil, nil
	}
	if err := q.store.RegisterDevice(ctx, userID, deviceID); err != nil {
		return nil, err
	}
	return q.store.Pop(ctx, userID, deviceID, limit)
}

func (q *Queue) Stats(ctx context.Context, userID string) (*Stats, error) {
	return q.store.Stats(ctx, userID)
}

// Devices lists the registered device IDs of userID.
func (q *Queue) Devices(ctx context.Context, userID string) ([]string, error) {
	return q.store.Devices(ctx, userID)
}
