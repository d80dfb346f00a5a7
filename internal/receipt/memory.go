package receipt

import (
	"context"
	"sync"
	"time"

	"e2e_relay/internal/model"
)

type (
	receiptKey struct {
		envelopeID string
		deviceID   string
		event      model.ReceiptEvent
	}

	// MemoryStore is the in-process Store used by tests.
	MemoryStore struct {
		mu       sync.Mutex
		receipts map[receiptKey]model.Receipt
	}
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		receipts: make(map[receiptKey]model.Receipt),
	}
}

func (s *MemoryStore) Record(ctx context.Context, envelopeID, deviceID string, event model.ReceiptEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := receiptKey{envelopeID: envelopeID, deviceID: deviceID, event: event}
	if _, ok := s.receipts[key]; ok {
		return nil
	}
	s.receipts[key] = model.Receipt{
		EnvelopeID: envelopeID,
		DeviceID:   deviceID,
		Event:      event,
		Timestamp:  time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, envelopeID string) ([]model.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var receipts []model.Receipt
	for _, r := range s.receipts {
		if r.EnvelopeID == envelopeID {
			receipts = append(receipts, r)
		}
	}
	return receipts, nil
}
