package scorer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	m.sets++
	return nil
}

func TestFingerprintTracksConfiguration(t *testing.T) {
	base := Fingerprint([]string{"WordPenalty"}, []float64{1})
	assert.Equal(t, base, Fingerprint([]string{"WordPenalty"}, []float64{1}))
	assert.NotEqual(t, base, Fingerprint([]string{"WordPenalty"}, []float64{0.5}))
	assert.NotEqual(t, base, Fingerprint([]string{"PhrasePenalty"}, []float64{1}))
}

func TestScorerUsesResultCache(t *testing.T) {
	sys := newSystem(t, true)
	store := &memStore{data: map[string]string{}}
	cache := NewResultCache(store, time.Minute, sys.Config.Decoder.Features, sys.Weights.Values())
	s := New(sys, WithCache(cache))

	first, err := s.Score(context.Background(), Request{ID: "a", Source: "das haus"})
	require.NoError(t, err)
	second, err := s.Score(context.Background(), Request{ID: "b", Source: "das haus"})
	require.NoError(t, err)

	assert.Equal(t, "a", first.ID)
	assert.Equal(t, "b", second.ID)
	assert.Equal(t, first.Candidates, second.Candidates)
	assert.Equal(t, 1, store.sets)
	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	// a different limit is a different entry
	_, err = s.Score(context.Background(), Request{Source: "das haus", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, store.sets)
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	cache := NewResultCache(store, time.Minute, nil, nil)
	boom := errors.New("lookup failed")
	_, _, err := cache.GetOrCompute(context.Background(), "haus", 5, func() (*Result, error) { return nil, boom })
	assert.Equal(t, boom, err)
	assert.Zero(t, store.sets)
}
