// Package scorer serves translation-option scoring on top of a loaded
// decoder system: it looks a source phrase up in every phrase table, scores
// the candidates in isolation and ranks them by future score.
package scorer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/system"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxCandidates = 20
	defaultWorkers       = 4
)

// Request asks for the scored translations of one source phrase.
type Request struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Limit  int    `json:"limit,omitempty"`
}

// Candidate is one scored translation.
type Candidate struct {
	Target      string    `json:"target"`
	Table       string    `json:"table"`
	Scores      []float64 `json:"scores"`
	Total       float64   `json:"total"`
	Estimated   float64   `json:"estimated"`
	FutureScore float64   `json:"future_score"`
}

// Result lists the best candidates, highest future score first.
type Result struct {
	ID         string      `json:"id"`
	Source     string      `json:"source"`
	Unknown    bool        `json:"unknown"`
	Candidates []Candidate `json:"candidates"`
	// Error is set on results published for requests that could not be scored.
	Error string `json:"error,omitempty"`
}

type Scorer struct {
	sys           *system.System
	pools         sync.Pool
	maxCandidates int
	workers       int
	cache         *ResultCache
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

type Option func(*Scorer)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scorer) { s.metrics = m }
}

// WithCache serves repeated requests from c.
func WithCache(c *ResultCache) Option {
	return func(s *Scorer) { s.cache = c }
}

// New builds a scorer over sys. Pool chunk size, worker count and the
// candidate cap come from the decoder configuration.
func New(sys *system.System, opts ...Option) *Scorer {
	dc := sys.Config.Decoder
	s := &Scorer{
		sys:           sys,
		maxCandidates: dc.MaxCandidates,
		workers:       dc.Workers,
		logger:        slog.Default().With("component", "scorer"),
	}
	if s.maxCandidates <= 0 {
		s.maxCandidates = defaultMaxCandidates
	}
	if s.workers <= 0 {
		s.workers = defaultWorkers
	}
	chunk := dc.PoolChunkSize
	s.pools.New = func() any { return mempool.New(chunk) }
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score translates req.Source into its scored candidates. Every call draws
// its own arena; nothing allocated from it outlives the call.
func (s *Scorer) Score(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	defer func() { s.observe(start, res, err) }()

	if !s.sys.Ready() {
		return nil, apperrors.New(apperrors.ErrNotReady, 503, "decoder is not set up")
	}
	source := phrase.Parse(req.Source)
	if source.Len() == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, 400, "source phrase is empty")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	limit := req.Limit
	if limit <= 0 || limit > s.maxCandidates {
		limit = s.maxCandidates
	}

	if s.cache == nil {
		res, err = s.score(ctx, source, limit)
	} else {
		res, _, err = s.cache.GetOrCompute(ctx, source.String(), limit, func() (*Result, error) {
			return s.score(ctx, source, limit)
		})
	}
	if err != nil {
		return nil, err
	}
	res.ID = req.ID
	logger.FromContext(ctx).Debug("scored source phrase",
		"id", req.ID,
		"source", res.Source,
		"candidates", len(res.Candidates),
		"unknown", res.Unknown,
	)
	return res, nil
}

// score runs the lookups and isolation scoring for one source phrase.
func (s *Scorer) score(ctx context.Context, source phrase.Phrase, limit int) (*Result, error) {
	pool := s.pools.Get().(*mempool.Pool)
	defer func() {
		if s.metrics != nil {
			s.metrics.PoolBytes.Observe(float64(8 * pool.Stats().Reserved))
		}
		pool.Reset()
		s.pools.Put(pool)
	}()

	reg := s.sys.Registry
	w := &s.sys.Weights
	numScores := reg.NumScores()

	type found struct {
		tp    *phrase.TargetPhrase
		table string
	}
	var cands []found
	lookup := func(pt ff.PhraseTable) error {
		t0 := time.Now()
		tps, err := pt.Lookup(ctx, pool, w, numScores, source)
		if s.metrics != nil {
			s.metrics.LookupDuration.WithLabelValues(pt.Name()).Observe(time.Since(t0).Seconds())
		}
		if err != nil {
			return fmt.Errorf("%s: %w", pt.Name(), err)
		}
		for _, tp := range tps {
			cands = append(cands, found{tp: tp, table: pt.Name()})
		}
		return nil
	}

	for _, pt := range reg.PhraseTablesExcludingUnknownWordPenalty() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
		}
		if err := lookup(pt); err != nil {
			return nil, err
		}
	}
	unknown := false
	if len(cands) == 0 && source.Len() == 1 {
		if h := reg.UnknownWordHandler(); h != nil {
			if err := lookup(h); err != nil {
				return nil, err
			}
			unknown = true
		}
	}

	for _, c := range cands {
		reg.EvaluateInIsolation(pool, w, source, c.tp)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].tp.FutureScore() > cands[j].tp.FutureScore()
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}

	res := &Result{
		Source:     source.String(),
		Unknown:    unknown,
		Candidates: make([]Candidate, len(cands)),
	}
	for i, c := range cands {
		res.Candidates[i] = Candidate{
			Target:      c.tp.String(),
			Table:       c.table,
			Scores:      slices.Clone(c.tp.Scores().Values()),
			Total:       c.tp.Scores().Total(),
			Estimated:   c.tp.EstimatedScore(),
			FutureScore: c.tp.FutureScore(),
		}
	}
	return res, nil
}

// ScoreBatch scores reqs concurrently, at most workers at a time. Results
// keep the order of reqs; the first error cancels the rest.
func (s *Scorer) ScoreBatch(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Score(ctx, req)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Scorer) observe(start time.Time, res *Result, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case res.Unknown:
		status = "unknown"
	}
	s.metrics.ScoreRequestsTotal.WithLabelValues(status).Inc()
	s.metrics.ScoreLatency.Observe(time.Since(start).Seconds())
	if res != nil {
		s.metrics.CandidatesPerRequest.Observe(float64(len(res.Candidates)))
	}
}
