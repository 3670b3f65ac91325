package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"clinic-scheduler/internal/model"
)

// expiryGrace keeps an expired key around long enough for Touch to report
// ErrExpired instead of ErrNotFound.
const expiryGrace = time.Hour

// touchScript returns {0} when absent, {1} when expired, otherwise
// {2, principal_id, role, display_name, created_at, expires_at, last_activity_at, client_ip, user_agent}.
var touchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {0}
end
local now = tonumber(ARGV[1])
local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at'))
if exp <= now then
  return {1}
end
local last = tonumber(redis.call('HGET', KEYS[1], 'last_activity_at'))
if now > last then
  redis.call('HSET', KEYS[1], 'last_activity_at', ARGV[1])
end
local f = redis.call('HMGET', KEYS[1], 'principal_id', 'role', 'display_name', 'created_at', 'expires_at', 'last_activity_at', 'client_ip', 'user_agent')
return {2, f[1], f[2], f[3], f[4], f[5], f[6], f[7] or '', f[8] or ''}
`)

// reapScript deletes every session whose score in the expiry index is <= now.
var reapScript = redis.NewScript(`
local hashes = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, h in ipairs(hashes) do
  redis.call('DEL', ARGV[2] .. h)
end
if #hashes > 0 then
  redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
end
return #hashes
`)

type RedisStore struct {
	client *redis.Client
	prefix string
	index  string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
		index:  "sessions:expiry",
	}
}

// NewRedisClient connects and pings with a short deadline.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisStore) key(tokenHash string) string {
	return r.prefix + tokenHash
}

func (r *RedisStore) Create(ctx context.Context, s *model.Session) error {
	if s.TokenHash == "" {
		return fmt.Errorf("session: missing token hash")
	}
	key := r.key(s.TokenHash)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"principal_id":     s.PrincipalID,
			"role":             int(s.Role),
			"display_name":     s.DisplayName,
			"client_ip":        s.ClientIP,
			"user_agent":       s.UserAgent,
			"created_at":       s.CreatedAt.UnixMilli(),
			"expires_at":       s.ExpiresAt.UnixMilli(),
			"last_activity_at": s.LastActivityAt.UnixMilli(),
		})
		pipe.PExpireAt(ctx, key, s.ExpiresAt.Add(expiryGrace))
		pipe.ZAdd(ctx, r.index, redis.Z{Score: float64(s.ExpiresAt.UnixMilli()), Member: s.TokenHash})
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	return nil
}

func (r *RedisStore) Touch(ctx context.Context, tokenHash string, now time.Time) (*model.Session, error) {
	res, err := touchScript.Run(ctx, r.client, []string{r.key(tokenHash)}, now.UnixMilli()).Slice()
	if err != nil {
		return nil, fmt.Errorf("session: touch: %w", err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("session: touch: empty reply")
	}
	code, _ := res[0].(int64)
	switch code {
	case 0:
		return nil, ErrNotFound
	case 1:
		return nil, ErrExpired
	}
	if code != 2 || len(res) != 9 {
		return nil, fmt.Errorf("session: touch: malformed reply of %d fields", len(res))
	}
	return decodeSession(tokenHash, res[1:])
}

func decodeSession(tokenHash string, f []any) (*model.Session, error) {
	str := make([]string, len(f))
	for i, v := range f {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("session: field %d has type %T", i, v)
		}
		str[i] = s
	}
	ints := make([]int64, 0, 5)
	for _, i := range []int{0, 1, 3, 4, 5} {
		n, err := strconv.ParseInt(str[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("session: field %d: %w", i, err)
		}
		ints = append(ints, n)
	}
	return &model.Session{
		TokenHash:      tokenHash,
		PrincipalID:    ints[0],
		Role:           model.Role(ints[1]),
		DisplayName:    str[2],
		ClientIP:       str[6],
		UserAgent:      str[7],
		CreatedAt:      time.UnixMilli(ints[2]).UTC(),
		ExpiresAt:      time.UnixMilli(ints[3]).UTC(),
		LastActivityAt: time.UnixMilli(ints[4]).UTC(),
	}, nil
}

func (r *RedisStore) Delete(ctx context.Context, tokenHash string) (bool, error) {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.key(tokenHash))
		pipe.ZRem(ctx, r.index, tokenHash)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("session: delete: %w", err)
	}
	return del.Val() > 0, nil
}

func (r *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := reapScript.Run(ctx, r.client, []string{r.index}, now.UnixMilli(), r.prefix).Int64()
	if err != nil {
		return 0, fmt.Errorf("session: reap: %w", err)
	}
	return n, nil
}
