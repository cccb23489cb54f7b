package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/examtrace/vigil/internal/domain"
)

const (
	sessionKeyPrefix = "vigil:session:"
	frameKeyPrefix   = "vigil:frame:"
)

// Session hash fields
const (
	fieldCreatedAt     = "created_at"
	fieldLastUpload    = "last_upload"
	fieldLastHeartbeat = "last_heartbeat"
	fieldFrameCount    = "frame_count"
	fieldVerified      = "verified"
)

func sessionKey(id string) string { return sessionKeyPrefix + id }
func frameKey(id string) string   { return frameKeyPrefix + id }

// RedisConfig carries connection settings for the relay store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings before handing the client out, so a
// bad address fails at startup instead of on the first request.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return pingClient(ctx, client)
}

// NewRedisClientFromURL accepts a redis:// URL, the form deployments
// usually configure.
func NewRedisClientFromURL(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return pingClient(ctx, redis.NewClient(opts))
}

func pingClient(ctx context.Context, client *redis.Client) (*redis.Client, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps each session as a hash and its latest frame as a JSON
// blob, both under namespaced keys with an idle TTL that every write
// refreshes. Counter bumps go through HINCRBY inside a pipeline, so
// concurrent uploads never lose increments.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (s *RedisStore) CreateSession(ctx context.Context, id string) (Session, error) {
	sess := Session{ID: id, CreatedAt: s.now()}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id), frameKey(id))
	pipe.HSet(ctx, sessionKey(id), map[string]interface{}{
		fieldCreatedAt:     sess.CreatedAt.UnixMilli(),
		fieldLastUpload:    0,
		fieldLastHeartbeat: 0,
		fieldFrameCount:    0,
		fieldVerified:      0,
	})
	pipe.Expire(ctx, sessionKey(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) GetSession(ctx context.Context, id string) (Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return Session{}, domain.ErrSessionNotFound
	}
	return parseSession(id, fields), nil
}

func (s *RedisStore) RecordUpload(ctx context.Context, id string, at time.Time) (int, error) {
	if err := s.requireSession(ctx, id); err != nil {
		return 0, err
	}

	pipe := s.client.TxPipeline()
	count := pipe.HIncrBy(ctx, sessionKey(id), fieldFrameCount, 1)
	pipe.HSet(ctx, sessionKey(id), fieldLastUpload, at.UnixMilli())
	pipe.Expire(ctx, sessionKey(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record upload: %w", err)
	}
	return int(count.Val()), nil
}

func (s *RedisStore) RecordHeartbeat(ctx context.Context, id string, at time.Time) error {
	if err := s.requireSession(ctx, id); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(id), fieldLastHeartbeat, at.UnixMilli())
	pipe.Expire(ctx, sessionKey(id), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	return nil
}

func (s *RedisStore) SetVerified(ctx context.Context, id string) error {
	if err := s.requireSession(ctx, id); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, sessionKey(id), fieldVerified, 1).Err(); err != nil {
		return fmt.Errorf("set verified: %w", err)
	}
	return nil
}

func (s *RedisStore) PutFrame(ctx context.Context, id string, frame FrameRecord) error {
	if err := s.requireSession(ctx, id); err != nil {
		return err
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := s.client.Set(ctx, frameKey(id), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("put frame: %w", err)
	}
	return nil
}

func (s *RedisStore) GetFrame(ctx context.Context, id string) (FrameRecord, error) {
	payload, err := s.client.Get(ctx, frameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		if reqErr := s.requireSession(ctx, id); reqErr != nil {
			return FrameRecord{}, reqErr
		}
		return FrameRecord{}, domain.ErrNoFrameAvailable
	}
	if err != nil {
		return FrameRecord{}, fmt.Errorf("get frame: %w", err)
	}

	var frame FrameRecord
	if err := json.Unmarshal(payload, &frame); err != nil {
		return FrameRecord{}, fmt.Errorf("decode frame: %w", err)
	}
	return frame, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id), frameKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Sweep is a no-op here: every write refreshes the key TTL, so Redis
// evicts idle sessions on its own.
func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Ping verifies Redis connectivity, used by readiness checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unhealthy: %w", err)
	}
	return nil
}

func (s *RedisStore) requireSession(ctx context.Context, id string) error {
	n, err := s.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func parseSession(id string, fields map[string]string) Session {
	sess := Session{ID: id}
	sess.CreatedAt = parseMillis(fields[fieldCreatedAt])
	sess.LastUpload = parseMillis(fields[fieldLastUpload])
	sess.LastHeartbeat = parseMillis(fields[fieldLastHeartbeat])
	if n, err := strconv.Atoi(fields[fieldFrameCount]); err == nil {
		sess.FrameCount = n
	}
	sess.Verified = fields[fieldVerified] == "1"
	return sess
}

func parseMillis(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
