package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/redis"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "score:"

// Store is the key-value backend of the result cache.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// ResultCache keeps scoring results in Redis. Keys include a fingerprint of
// the feature lines and weights, so decoders configured differently never
// read each other's entries.
type ResultCache struct {
	store       Store
	ttl         time.Duration
	fingerprint string
	group       singleflight.Group
	logger      *slog.Logger
	hits        atomic.Int64
	misses      atomic.Int64
}

func NewResultCache(store Store, ttl time.Duration, features []string, weights []float64) *ResultCache {
	return &ResultCache{
		store:       store,
		ttl:         ttl,
		fingerprint: Fingerprint(features, weights),
		logger:      slog.Default().With("component", "result-cache"),
	}
}

// Fingerprint hashes a model configuration.
func Fingerprint(features []string, weights []float64) string {
	d := xxhash.New()
	for _, f := range features {
		d.WriteString(f)
		d.WriteString("\n")
	}
	var buf [8]byte
	for _, w := range weights {
		bits := math.Float64bits(w)
		for i := range buf {
			buf[i] = byte(bits >> (8 * i))
		}
		d.Write(buf[:])
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

func (c *ResultCache) key(source string, limit int) string {
	return fmt.Sprintf("%s%s:%d:%016x", cacheKeyPrefix, c.fingerprint, limit, xxhash.Sum64String(source))
}

func (c *ResultCache) get(ctx context.Context, key string) (*Result, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var res Result
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &res, true
}

func (c *ResultCache) set(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for (source, limit) or computes
// and stores it. Concurrent misses for the same key compute once. The
// returned result is a private copy.
func (c *ResultCache) GetOrCompute(ctx context.Context, source string, limit int, compute func() (*Result, error)) (*Result, bool, error) {
	key := c.key(source, limit)
	if res, ok := c.get(ctx, key); ok {
		c.hits.Add(1)
		return res, true, nil
	}
	c.misses.Add(1)
	v, err, _ := c.group.Do(key, func() (any, error) {
		res, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, res)
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	shared := *v.(*Result)
	return &shared, false, nil
}

// Stats returns the hit and miss counts.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
