package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"
	redisSvc "e2e_relay/internal/service/redis"
	"e2e_relay/internal/utils/log"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// pushScript bounds the mailbox and appends in one atomic step. KEYS[1] is the
// high-priority list, KEYS[2] the normal list. ARGV: payload, priority,
// max depth, eviction policy. Returns -1 when the push is rejected, otherwise
// the 1-based mailbox position of the new entry (high entries sit ahead of all
// normal entries).
var pushScript = redis.NewScript(`
local high = KEYS[1]
local normal = KEYS[2]
local depth = redis.call('LLEN', high) + redis.call('LLEN', normal)
if depth >= tonumber(ARGV[3]) then
  if ARGV[4] == 'reject-new' then
    return -1
  end
  if redis.call('LLEN', normal) > 0 then
    redis.call('LPOP', normal)
  else
    redis.call('LPOP', high)
  end
end
if ARGV[2] == 'high' then
  redis.call('RPUSH', high, ARGV[1])
  return redis.call('LLEN', high)
end
redis.call('RPUSH', normal, ARGV[1])
return redis.call('LLEN', high) + redis.call('LLEN', normal)
`)

type (
	// RedisStore keeps one Redis list per (mailbox, priority band) plus a set
	// of registered devices per user. LPOP/RPUSH give exactly-once dequeue and
	// FIFO order without client-side locking.
	RedisStore struct {
		redis    *redisSvc.RedisService
		maxDepth int
		policy   string
	}
)

func NewRedisStore(redis *redisSvc.RedisService, maxDepth int, policy string) *RedisStore {
	return &RedisStore{
		redis:    redis,
		maxDepth: maxDepth,
		policy:   policy,
	}
}

func mailboxKey(userID, deviceID string, p model.Priority) string {
	return fmt.Sprintf("mailbox:%s:%s:%s", userID, deviceID, p)
}

func devicesKey(userID string) string {
	return fmt.Sprintf("devices:%s", userID)
}

func (s *RedisStore) Push(ctx context.Context, userID, deviceID string, env *model.MessageEnvelope) (int, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return 0, err
	}

	keys := []string{
		mailboxKey(userID, deviceID, model.PriorityHigh),
		mailboxKey(userID, deviceID, model.PriorityNormal),
	}
	res, err := s.redis.Run(ctx, pushScript, keys, payload, string(env.Priority), s.maxDepth, s.policy)
	if err != nil {
		return 0, common.NewStorageError("queue push", err)
	}

	pos, ok := res.(int64)
	if !ok {
		return 0, common.NewStorageError("queue push", fmt.Errorf("unexpected script reply %T", res))
	}
	if pos < 0 {
		return 0, common.ErrQueueFull
	}
	return int(pos), nil
}

func (s *RedisStore) Pop(ctx context.Context, userID, deviceID string, limit int) ([]*model.MessageEnvelope, error) {
	raw, err := s.redis.LPopCount(ctx, mailboxKey(userID, deviceID, model.PriorityHigh), limit)
	if err != nil {
		return nil, common.NewStorageError("queue pop", err)
	}
	if remaining := limit - len(raw); remaining > 0 {
		normal, err := s.redis.LPopCount(ctx, mailboxKey(userID, deviceID, model.PriorityNormal), remaining)
		if err != nil {
			return nil, common.NewStorageError("queue pop", err)
		}
		raw = append(raw, normal...)
	}

	envelopes := make([]*model.MessageEnvelope, 0, len(raw))
	for _, v := range raw {
		var env model.MessageEnvelope
		if err := json.Unmarshal([]byte(v), &env); err != nil {
			log.Error("dropping undecodable queue entry",
				zap.String("userId", userID), zap.String("deviceId", deviceID), zap.Error(err))
			continue
		}
		envelopes = append(envelopes, &env)
	}
	return envelopes, nil
}

func (s *RedisStore) Stats(ctx context.Context, userID string) (*Stats, error) {
	devices, err := s.Devices(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	var oldest time.Time
	for _, deviceID := range devices {
		for _, p := range []model.Priority{model.PriorityHigh, model.PriorityNormal} {
			key := mailboxKey(userID, deviceID, p)
			n, err := s.redis.LLen(ctx, key)
			if err != nil {
				return nil, common.NewStorageError("queue stats", err)
			}
			stats.Depth += n

			head, ok, err := s.redis.LIndex(ctx, key, 0)
			if err != nil {
				return nil, common.NewStorageError("queue stats", err)
			}
			if !ok {
				continue
			}
			var env model.MessageEnvelope
			if err := json.Unmarshal([]byte(head), &env); err != nil {
				continue
			}
			if oldest.IsZero() || env.Timestamp.Before(oldest) {
				oldest = env.Timestamp
			}
		}
	}
	if !oldest.IsZero() {
		stats.OldestAgeMs = time.Since(oldest).Milliseconds()
	}
	return stats, nil
}

func (s *RedisStore) RegisterDevice(ctx context.Context, userID, deviceID string) error {
	if err := s.redis.SAdd(ctx, devicesKey(userID), deviceID); err != nil {
		return common.NewStorageError("register device", err)
	}
	return nil
}

func (s *RedisStore) Devices(ctx context.Context, userID string) ([]string, error) {
	devices, err := s.redis.SMembers(ctx, devicesKey(userID))
	if err != nil {
		return nil, common.NewStorageError("list devices", err)
	}
	return devices, nil
}
