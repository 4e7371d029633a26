package phrasetable

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const defaultKeyPrefix = "pt:"

// importBatch is the number of source hashes written per pipeline.
const importBatch = 500

// Probing answers lookups from Redis. Every source phrase is one hash
// under key-prefix+source whose fields are target phrases and whose values
// are the space separated probabilities. Lookups go through a circuit
// breaker (breaker-threshold=, breaker-reset= in seconds).
type Probing struct {
	ff.Base
	ff.TableIndexed

	prefix  string
	client  *pkgredis.Client
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewProbing(startIndex int, line string) (ff.FeatureFunction, error) {
	b, err := ff.NewBase(startIndex, line, defaultNumScores)
	if err != nil {
		return nil, err
	}
	threshold, err := b.Args.Int("breaker-threshold", 5)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	reset, err := b.Args.Float("breaker-reset", 30)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return &Probing{
		Base:   b,
		prefix: b.Args.String("key-prefix", defaultKeyPrefix),
		breaker: resilience.NewCircuitBreaker(b.Name(), resilience.CircuitBreakerConfig{
			FailureThreshold: threshold,
			ResetTimeout:     time.Duration(reset * float64(time.Second)),
		}),
		logger: slog.Default().With("component", "phrasetable", "feature", b.Name()),
	}, nil
}

// Load binds the table to the shared Redis client and checks it responds.
func (p *Probing) Load(ctx context.Context, res *ff.Resources) error {
	if res == nil || res.Redis == nil {
		return fmt.Errorf("%s: redis is not configured", p.Name())
	}
	if err := res.Redis.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", p.Name(), err)
	}
	p.client = res.Redis
	p.logger.Info("probing phrase table ready", "prefix", p.prefix)
	return nil
}

func (p *Probing) EvaluateInIsolation(*scores.Weights, phrase.Phrase, *phrase.TargetPhrase, *scores.Scores, *scores.Scores) {
}

// Lookup fetches the hash for source. Concurrent lookups of the same source
// share one round trip.
func (p *Probing) Lookup(ctx context.Context, pool *mempool.Pool, w *scores.Weights, numScores int, source phrase.Phrase) ([]*phrase.TargetPhrase, error) {
	src := source.String()
	key := p.prefix + src
	v, err, _ := p.group.Do(key, func() (any, error) {
		var fields map[string]string
		err := p.breaker.Execute(func() (err error) {
			fields, err = p.client.HGetAll(ctx, key)
			return err
		})
		if err != nil {
			return nil, err
		}
		entries := make([]Entry, 0, len(fields))
		for tgt, raw := range fields {
			probs, err := ParseProbs(raw, p.NumScores())
			if err != nil {
				return nil, fmt.Errorf("%s: %q: %w", key, tgt, err)
			}
			entries = append(entries, Entry{Source: src, Target: tgt, Probs: probs})
		}
		sortByTarget(entries)
		return entries, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s lookup: %w", p.Name(), err)
	}
	entries := v.([]Entry)
	if len(entries) == 0 {
		return nil, nil
	}
	return materialize(pool, w, numScores, p.StartIndex(), source, entries), nil
}

// ImportRedis copies a Moses text phrase table into Redis in the layout
// Probing reads. It returns the number of entries written.
func ImportRedis(ctx context.Context, client *pkgredis.Client, prefix string, numScores int, r io.Reader) (int, error) {
	batch := make(map[string]map[string]string)
	n := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := client.HSetAll(ctx, batch); err != nil {
			return err
		}
		batch = make(map[string]map[string]string)
		return nil
	}
	err := ReadEntries(r, numScores, func(e Entry) error {
		key := prefix + e.Source
		if batch[key] == nil {
			if len(batch) >= importBatch {
				if err := flush(); err != nil {
					return err
				}
			}
			batch[key] = make(map[string]string)
		}
		batch[key][e.Target] = FormatProbs(e.Probs)
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	return n, flush()
}
