package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient initializes a redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// RedisCache is a JSON read-through cache for DTOs. Each key has a
// companion "<key>:v" counter that Delete increments.
type RedisCache struct {
	Client redis.Cmdable
	TTL    time.Duration
}

func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: rdb, TTL: ttl}
}

func versionKey(key string) string { return key + ":v" }

// setIfVersion writes KEYS[1] only while KEYS[2] still holds ARGV[1].
var setIfVersion = redis.NewScript(`
local v = redis.call('GET', KEYS[2]) or '0'
if v ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	res, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(res, dest)
}

// Version returns 0 for keys that were never deleted.
func (c *RedisCache) Version(ctx context.Context, key string) (int64, error) {
	v, err := c.Client.Get(ctx, versionKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *RedisCache) SetIfVersion(ctx context.Context, key string, version int64, value any) (bool, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	n, err := setIfVersion.Run(ctx, c.Client, []string{key, versionKey(key)},
		strconv.FormatInt(version, 10), b, c.TTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete bumps the version before dropping the value. The counter outlives
// any value cached under the old version.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	pipe := c.Client.TxPipeline()
	pipe.Incr(ctx, versionKey(key))
	pipe.Expire(ctx, versionKey(key), c.TTL+time.Hour)
	pipe.Del(ctx, key)
	_, err := pipe.Exec(ctx)
	return err
}

// Session is the server side record of an issued token pair.
type Session struct {
	Subject   string
	ClientID  string
	Scopes    []string
	CreatedAt time.Time
}

func sessionKey(sid string) string { return "oauth:session:" + sid }

// RedisSessions stores sessions as hashes under oauth:session:<sid>.
type RedisSessions struct {
	Client redis.Cmdable
}

func NewRedisSessions(rdb redis.Cmdable) *RedisSessions {
	return &RedisSessions{Client: rdb}
}

func (s *RedisSessions) Create(ctx context.Context, sid string, sess Session, ttl time.Duration) error {
	key := sessionKey(sid)
	pipe := s.Client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"subject":    sess.Subject,
		"client_id":  sess.ClientID,
		"scope":      strings.Join(sess.Scopes, " "),
		"created_at": sess.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Get returns nil without error when the session does not exist.
func (s *RedisSessions) Get(ctx context.Context, sid string) (*Session, error) {
	data, err := s.Client.HGetAll(ctx, sessionKey(sid)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	created, _ := time.Parse(time.RFC3339Nano, data["created_at"])
	return &Session{
		Subject:   data["subject"],
		ClientID:  data["client_id"],
		Scopes:    strings.Fields(data["scope"]),
		CreatedAt: created,
	}, nil
}

func (s *RedisSessions) Delete(ctx context.Context, sid string) error {
	return s.Client.Del(ctx, sessionKey(sid)).Err()
}
