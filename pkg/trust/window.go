// Package trust implements the Trust Scorer (five weighted factors over an
// agent's history) and the Anomaly Detector (six rule-based checks against
// new transactions).
package trust

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// FrequencyWindow counts an agent's transactions in a trailing window,
// backing the frequencySpike rule. Two implementations exist: an in-memory
// default for single-process deployments, and a Redis-backed one for
// deployments where one logical agent's actions are logged from more than
// one process.
type FrequencyWindow interface {
	// Record marks a transaction at `at` for agentID and returns the count
	// of transactions for that agent within the trailing `window` ending
	// at `at` (inclusive of the just-recorded one).
	Record(ctx context.Context, agentID string, at time.Time, window time.Duration) (int, error)
}

// InMemoryFrequencyWindow is the default FrequencyWindow: a sorted-slice
// timestamp log per agent, guarded by a mutex.
type InMemoryFrequencyWindow struct {
	mu   sync.Mutex
	logs map[string][]time.Time
}

// NewInMemoryFrequencyWindow constructs an empty in-memory window.
func NewInMemoryFrequencyWindow() *InMemoryFrequencyWindow {
	return &InMemoryFrequencyWindow{logs: make(map[string][]time.Time)}
}

// Record implements FrequencyWindow.
func (w *InMemoryFrequencyWindow) Record(_ context.Context, agentID string, at time.Time, window time.Duration) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	log := append(w.logs[agentID], at)
	sort.Slice(log, func(i, j int) bool { return log[i].Before(log[j]) })

	cutoff := at.Add(-window)
	pruned := log[:0]
	for _, ts := range log {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}
	w.logs[agentID] = pruned
	return len(pruned), nil
}

// rollingWindowScript atomically records the new timestamp, evicts entries
// older than the window, and returns the resulting count — grounded on the
// teacher's redisTokenBucketScript pattern of doing refill+consume
// atomically in one round trip via a Lua script, adapted here from a token
// bucket to a rolling count.
var rollingWindowScript = redis.NewScript(`
local key = KEYS[1]
local member = ARGV[1]
local now_ms = tonumber(ARGV[2])
local window_ms = tonumber(ARGV[3])

redis.call("ZADD", key, now_ms, member)
redis.call("ZREMRANGEBYSCORE", key, "-inf", now_ms - window_ms)
local count = redis.call("ZCARD", key)
redis.call("PEXPIRE", key, window_ms)

return count
`)

// RedisFrequencyWindow is the distributed FrequencyWindow implementation.
type RedisFrequencyWindow struct {
	client *redis.Client
}

// NewRedisFrequencyWindow constructs a FrequencyWindow backed by the given
// Redis client.
func NewRedisFrequencyWindow(client *redis.Client) *RedisFrequencyWindow {
	return &RedisFrequencyWindow{client: client}
}

// Record implements FrequencyWindow via ZADD+ZREMRANGEBYSCORE+ZCARD in a
// single atomic Lua script call.
func (w *RedisFrequencyWindow) Record(ctx context.Context, agentID string, at time.Time, window time.Duration) (int, error) {
	key := fmt.Sprintf("trust:freq:%s", agentID)
	member := fmt.Sprintf("%d-%d", at.UnixNano(), at.Nanosecond())
	nowMS := at.UnixMilli()
	windowMS := window.Milliseconds()

	res, err := rollingWindowScript.Run(ctx, w.client, []string{key}, member, nowMS, windowMS).Result()
	if err != nil {
		return 0, fmt.Errorf("trust: redis frequency window: %w", err)
	}
	count, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("trust: unexpected redis response type %T", res)
	}
	return int(count), nil
}
