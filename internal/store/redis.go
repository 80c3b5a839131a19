package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/oneany574/eduflow-calendar-hub/internal/attendance"
)

// ErrMiss is returned when a cached value is absent.
var ErrMiss = errors.New("cache miss")

// Defaults shared by the api and the worker.
const (
	DefaultPrefix     = "eduflow"
	DefaultSummaryTTL = 24 * time.Hour
)

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

// SummaryCache keeps dashboard figures derived from session events.
type SummaryCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewSummaryCache stores keys under prefix. Summaries expire after ttl; zero keeps them.
func NewSummaryCache(client redis.Cmdable, prefix string, ttl time.Duration) *SummaryCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SummaryCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *SummaryCache) summaryKey(sessionID string) string {
	return c.prefix + ":attendance:" + sessionID
}

func (c *SummaryCache) eventsKey() string {
	return c.prefix + ":events"
}

// PutSummary caches the attendance summary of a session.
func (c *SummaryCache) PutSummary(ctx context.Context, sessionID string, sum attendance.Summary) error {
	b, err := json.Marshal(sum)
	if err != nil {
		return errors.Wrap(err, "encoding summary")
	}
	return errors.Wrapf(c.client.Set(ctx, c.summaryKey(sessionID), b, c.ttl).Err(), "caching summary of %s", sessionID)
}

// GetSummary returns the cached summary of a session or ErrMiss.
func (c *SummaryCache) GetSummary(ctx context.Context, sessionID string) (attendance.Summary, error) {
	b, err := c.client.Get(ctx, c.summaryKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return attendance.Summary{}, ErrMiss
	}
	if err != nil {
		return attendance.Summary{}, errors.Wrapf(err, "reading summary of %s", sessionID)
	}
	var sum attendance.Summary
	if err := json.Unmarshal(b, &sum); err != nil {
		return attendance.Summary{}, errors.Wrap(err, "decoding summary")
	}
	return sum, nil
}

// IncrEvent bumps the counter of an event type.
func (c *SummaryCache) IncrEvent(ctx context.Context, typ string) error {
	return errors.Wrap(c.client.HIncrBy(ctx, c.eventsKey(), typ, 1).Err(), "counting event")
}

// EventCounts returns every event counter.
func (c *SummaryCache) EventCounts(ctx context.Context) (map[string]int64, error) {
	raw, err := c.client.HGetAll(ctx, c.eventsKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading event counts")
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding count of %s", k)
		}
		out[k] = n
	}
	return out, nil
}
