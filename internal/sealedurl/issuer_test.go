package sealedurl

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"e2e_relay/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssue_TokenShape(t *testing.T) {
	ctx := context.Background()
	issuer := NewIssuer(NewMemoryStore())

	tok, err := issuer.Issue(ctx, "file-1", 3, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "file-1", tok.FileID)
	assert.Equal(t, 3, tok.MaxUses)
	assert.Equal(t, 3, tok.UsesRemaining)
	assert.GreaterOrEqual(t, len(tok.Token), 40)

	other, err := issuer.Issue(ctx, "file-1", 3, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, tok.Token, other.Token)
}

func TestRedeem_DecrementsUntilExhausted(t *testing.T) {
	ctx := context.Background()
	issuer := NewIssuer(NewMemoryStore())

	tok, err := issuer.Issue(ctx, "file-1", 2, time.Hour)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		fileID, err := issuer.Redeem(ctx, tok.Token)
		require.NoError(t, err)
		assert.Equal(t, "file-1", fileID)
	}

	_, err = issuer.Redeem(ctx, tok.Token)
	assert.ErrorIs(t, err, common.ErrTokenAlreadyUsed)
}

// 5 concurrent redemptions of a maxUses=1 token must yield exactly one
// success and four TokenAlreadyUsed failures.
func TestRedeem_SingleUseUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	issuer := NewIssuer(NewMemoryStore())

	tok, err := issuer.Issue(ctx, "file-1", 1, time.Hour)
	require.NoError(t, err)

	var (
		wg          sync.WaitGroup
		successes   atomic.Int32
		alreadyUsed atomic.Int32
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := issuer.Redeem(ctx, tok.Token)
			switch {
			case err == nil:
				successes.Add(1)
			case err == common.ErrTokenAlreadyUsed:
				alreadyUsed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(4), alreadyUsed.Load())
}

func TestPeek_DoesNotConsumeUse(t *testing.T) {
	ctx := context.Background()
	issuer := NewIssuer(NewMemoryStore())

	tok, err := issuer.Issue(ctx, "file-1", 1, time.Hour)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		fileID, err := issuer.Peek(ctx, tok.Token)
		require.NoError(t, err)
		assert.Equal(t, "file-1", fileID)
	}

	fileID, err := issuer.Redeem(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "file-1", fileID)

	_, err = issuer.Peek(ctx, tok.Token)
	assert.ErrorIs(t, err, common.ErrTokenAlreadyUsed)
}

func TestRedeem_Expired(t *testing.T) {
	ctx := context.Background()
	issuer := NewIssuer(NewMemoryStore())

	tok, err := issuer.Issue(ctx, "file-1", 1, 0)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	_, err = issuer.Redeem(ctx, tok.Token)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestRedeem_Unknown(t *testing.T) {
	issuer := NewIssuer(NewMemoryStore())
	_, err := issuer.Redeem(context.Background(), "never-issued")
	assert.ErrorIs(t, err, common.ErrTokenNotFound)

	_, err = issuer.Redeem(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrTokenNotFound)
}
