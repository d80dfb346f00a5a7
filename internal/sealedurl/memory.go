package sealedurl

import (
	"context"
	"sync"
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"
)

type (
	// MemoryStore is the in-process Store used by tests. The mutex makes
	// Redeem's check-and-decrement atomic.
	MemoryStore struct {
		mu     sync.Mutex
		tokens map[string]*model.SealedURLToken
	}
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]*model.SealedURLToken),
	}
}

func (s *MemoryStore) Save(ctx context.Context, tok *model.SealedURLToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tok
	s.tokens[tok.Token] = &cp
	return nil
}

func (s *MemoryStore) Redeem(ctx context.Context, token string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[token]
	if !ok {
		return "", common.ErrTokenNotFound
	}
	if !now.Before(tok.ExpiresAt) {
		return "", common.ErrTokenExpired
	}
	if tok.UsesRemaining <= 0 {
		return "", common.ErrTokenAlreadyUsed
	}
	tok.UsesRemaining--
	return tok.FileID, nil
}

func (s *MemoryStore) Peek(ctx context.Context, token string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[token]
	if !ok {
		return "", common.ErrTokenNotFound
	}
	if !now.Before(tok.ExpiresAt) {
		return "", common.ErrTokenExpired
	}
	if tok.UsesRemaining <= 0 {
		return "", common.ErrTokenAlreadyUsed
	}
	return tok.FileID, nil
}
