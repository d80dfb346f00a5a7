package sealedurl

import (
	"context"
	"fmt"
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"
	redisSvc "e2e_relay/internal/service/redis"

	"github.com/redis/go-redis/v9"
)

// Expired token hashes are retained past expiry so redemption can report
// "expired" instead of "not found"; after the retention window the key is gone
// and the outcome degrades to not-found.
const expiredRetention = 24 * time.Hour

// saveScript writes the token hash and its TTL as one step, so a crash
// between the two cannot leave a hash that never expires.
var saveScript = redis.NewScript(`
redis.call('HSET', KEYS[1], 'fileId', ARGV[1], 'uses', ARGV[2], 'expiresAt', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

// redeemScript checks expiry and remaining uses and decrements in one step.
// ARGV[1] is the caller's clock in unix milliseconds. Returns {-1} not found,
// {-2} expired, {-3} exhausted, or {1, fileId}.
var redeemScript = redis.NewScript(`
local vals = redis.call('HMGET', KEYS[1], 'fileId', 'uses', 'expiresAt')
if not vals[1] then
  return {-1, ''}
end
if tonumber(ARGV[1]) >= tonumber(vals[3]) then
  return {-2, ''}
end
if tonumber(vals[2]) <= 0 then
  return {-3, ''}
end
redis.call('HINCRBY', KEYS[1], 'uses', -1)
return {1, vals[1]}
`)

// peekScript is redeemScript without the decrement.
var peekScript = redis.NewScript(`
local vals = redis.call('HMGET', KEYS[1], 'fileId', 'uses', 'expiresAt')
if not vals[1] then
  return {-1, ''}
end
if tonumber(ARGV[1]) >= tonumber(vals[3]) then
  return {-2, ''}
end
if tonumber(vals[2]) <= 0 then
  return {-3, ''}
end
return {1, vals[1]}
`)

type (
	RedisStore struct {
		redis *redisSvc.RedisService
	}
)

func NewRedisStore(redis *redisSvc.RedisService) *RedisStore {
	return &RedisStore{redis: redis}
}

func tokenKey(token string) string {
	return fmt.Sprintf("seal:%s", token)
}

func (s *RedisStore) Save(ctx context.Context, tok *model.SealedURLToken) error {
	ttl := time.Until(tok.ExpiresAt) + expiredRetention
	_, err := s.redis.Run(ctx, saveScript, []string{tokenKey(tok.Token)},
		tok.FileID,
		tok.UsesRemaining,
		tok.ExpiresAt.UnixMilli(),
		ttl.Milliseconds(),
	)
	if err != nil {
		return common.NewStorageError("token save", err)
	}
	return nil
}

func (s *RedisStore) Redeem(ctx context.Context, token string, now time.Time) (string, error) {
	res, err := s.redis.Run(ctx, redeemScript, []string{tokenKey(token)}, now.UnixMilli())
	if err != nil {
		return "", common.NewStorageError("token redeem", err)
	}
	return parseTokenReply(res, "token redeem")
}

func (s *RedisStore) Peek(ctx context.Context, token string, now time.Time) (string, error) {
	res, err := s.redis.Run(ctx, peekScript, []string{tokenKey(token)}, now.UnixMilli())
	if err != nil {
		return "", common.NewStorageError("token peek", err)
	}
	return parseTokenReply(res, "token peek")
}

func parseTokenReply(res any, op string) (string, error) {
	reply, ok := res.([]any)
	if !ok || len(reply) < 1 {
		return "", common.NewStorageError(op, fmt.Errorf("unexpected script reply %T", res))
	}
	code, _ := reply[0].(int64)
	switch code {
	case 1:
		fileID, _ := reply[1].(string)
		return fileID, nil
	case -2:
		return "", common.ErrTokenExpired
	case -3:
		return "", common.ErrTokenAlreadyUsed
	default:
		return "", common.ErrTokenNotFound
	}
}
