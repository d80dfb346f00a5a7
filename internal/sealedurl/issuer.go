// Package sealedurl mints and redeems single-use, time-boxed download
// capabilities for encrypted file blobs. Redemption is an atomic
// check-and-decrement: a maxUses=1 token redeemed concurrently yields exactly
// one success.
package sealedurl

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"
)

const tokenBytes = 32

type (
	// Store persists tokens. Redeem performs the expiry/uses check and the
	// decrement as one indivisible operation and returns the bound file ID.
	// Peek runs the same checks without consuming a use. Failures are the
	// sentinel token errors in internal/common.
	Store interface {
		Save(ctx context.Context, tok *model.SealedURLToken) error
		Redeem(ctx context.Context, token string, now time.Time) (string, error)
		Peek(ctx context.Context, token string, now time.Time) (string, error)
	}

	Issuer struct {
		store Store
	}
)

func NewIssuer(store Store) *Issuer {
	return &Issuer{store: store}
}

// Issue binds a fresh unguessable token to fileID with the given redemption
// budget and lifetime.
func (i *Issuer) Issue(ctx context.Context, fileID string, maxUses int, ttl time.Duration) (*model.SealedURLToken, error) {
	if fileID == "" {
		return nil, common.NewValidationError("fileId", "required")
	}
	if maxUses <= 0 {
		return nil, common.NewValidationError("maxUses", "must be positive")
	}

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	tok := &model.SealedURLToken{
		FileID:        fileID,
		Token:         base64.RawURLEncoding.EncodeToString(buf),
		MaxUses:       maxUses,
		UsesRemaining: maxUses,
		ExpiresAt:     time.Now().UTC().Add(ttl),
	}
	if err := i.store.Save(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Redeem consumes one use of token and returns the file ID it unlocks.
// ErrTokenNotFound, ErrTokenExpired and ErrTokenAlreadyUsed are terminal.
func (i *Issuer) Redeem(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.ErrTokenNotFound
	}
	return i.store.Redeem(ctx, token, time.Now().UTC())
}

// Peek resolves token to its file ID without consuming a use, so callers can
// check preconditions before committing the redemption.
func (i *Issuer) Peek(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.ErrTokenNotFound
	}
	return i.store.Peek(ctx, token, time.Now().UTC())
}
