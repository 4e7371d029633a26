// Package registry owns the feature functions of one decoder: it creates
// them from configuration lines, lays out their score ranges, loads them in
// two phases and scores candidates in isolation.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/vocab"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/tracing"
)

// Registry is the ordered, owning collection of feature functions plus its
// three derived views. It is built and loaded once and read-only after.
type Registry struct {
	factories map[string]ff.Constructor
	logger    *slog.Logger
	metrics   *metrics.Metrics

	all          []ff.FeatureFunction
	stateful     []ff.Stateful
	phraseTables []ff.PhraseTable
	vocabIndexed []ff.VocabIndexed
	numScores    int
}

type Option func(*Registry)

// WithFactories adds or overrides type tag constructors on top of the
// defaults.
func WithFactories(f map[string]ff.Constructor) Option {
	return func(r *Registry) { maps.Copy(r.factories, f) }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		factories: DefaultFactories(),
		logger:    slog.Default().With("component", "registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create builds one feature function from a configuration line and appends
// it to the registry. Its score range starts where the previous one ended.
func (r *Registry) Create(line string) (ff.FeatureFunction, error) {
	toks := ff.Tokenize(line)
	if len(toks) == 0 {
		return nil, apperrors.New(apperrors.ErrMalformedValue, 0, "empty feature line")
	}
	ctor, ok := r.factories[toks[0]]
	if !ok {
		r.logger.Warn("unrecognized feature function type, using stateless placeholder", "type", toks[0])
		ctor = fallback
	}
	f, err := ctor(r.numScores, line)
	if err != nil {
		return nil, fmt.Errorf("creating %q: %w", line, err)
	}
	if f.StartIndex() != r.numScores || f.NumScores() <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInternal, 0, "%q claims range [%d,%d), next free slot is %d",
			line, f.StartIndex(), f.StartIndex()+f.NumScores(), r.numScores)
	}
	r.numScores += f.NumScores()

	if vi, ok := f.(ff.VocabIndexed); ok && vi.HasVocabIndex() {
		vi.SetVocabIndex(len(r.vocabIndexed))
		r.vocabIndexed = append(r.vocabIndexed, vi)
	}
	r.all = append(r.all, f)
	if sf, ok := f.(ff.Stateful); ok {
		sf.SetStatefulIndex(len(r.stateful))
		r.stateful = append(r.stateful, sf)
	}
	if pt, ok := f.(ff.PhraseTable); ok {
		pt.SetPhraseTableIndex(len(r.phraseTables))
		r.phraseTables = append(r.phraseTables, pt)
	}

	if r.metrics != nil {
		r.metrics.FeatureFunctions.Set(float64(len(r.all)))
		r.metrics.ScoreSlots.Set(float64(r.numScores))
	}
	r.logger.Debug("created feature function", "feature", ff.Describe(f))
	return f, nil
}

// CreateAll creates one function per line, in order.
func (r *Registry) CreateAll(lines []string) error {
	if len(lines) == 0 {
		return apperrors.New(apperrors.ErrConfigurationMissing, 0, "must have [feature] section")
	}
	for _, line := range lines {
		if _, err := r.Create(line); err != nil {
			return err
		}
	}
	return nil
}

// Load loads every function that is not a phrase table, in creation order,
// then every phrase table in phrase-table order. The first failure aborts
// the sequence. A nil vocabulary index in res is replaced by one sized to
// the vocab-indexed view.
func (r *Registry) Load(ctx context.Context, res *ff.Resources) (err error) {
	if res == nil {
		res = &ff.Resources{}
	}
	if res.Vocab == nil {
		res.Vocab = vocab.NewIndex(len(r.vocabIndexed))
	}

	root := tracing.SpanFromContext(ctx) == nil
	ctx, span := tracing.StartChildSpan(ctx, "registry.load")
	defer func() {
		span.SetError(err)
		span.End()
		if root {
			span.Log(r.logger)
		}
	}()

	r.logger.Info("loading feature functions", "count", len(r.all), "phrase_tables", len(r.phraseTables))
	for _, f := range r.all {
		if _, ok := f.(ff.PhraseTable); ok {
			continue
		}
		if err := r.load(ctx, "features", f, res); err != nil {
			return err
		}
	}
	for _, pt := range r.phraseTables {
		if err := r.load(ctx, "phrase_tables", pt, res); err != nil {
			return err
		}
	}
	r.logger.Info("finished loading feature functions")
	return nil
}

func (r *Registry) load(ctx context.Context, phase string, f ff.FeatureFunction, res *ff.Resources) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", apperrors.ErrLoadFailure, f.Name(), err)
	}
	ctx, span := tracing.StartChildSpan(ctx, "load "+f.Name())
	span.SetAttr("phase", phase)
	defer span.End()

	r.logger.Info("loading", "feature", f.Name(), "phase", phase)
	start := time.Now()
	err := f.Load(ctx, res)
	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.FeatureLoadDuration.WithLabelValues(f.Name(), phase).Observe(elapsed.Seconds())
	}
	if err != nil {
		span.SetError(err)
		if r.metrics != nil {
			r.metrics.FeatureLoadFailures.WithLabelValues(f.Name()).Inc()
		}
		r.logger.Error("loading failed", "feature", f.Name(), "error", err)
		return fmt.Errorf("%w: %s: %w", apperrors.ErrLoadFailure, f.Name(), err)
	}
	r.logger.Info("finished loading", "feature", f.Name(), "duration_ms", elapsed.Milliseconds())
	return nil
}

// FindFeatureFunction returns the first function called name. Names are
// expected to be unique; with duplicates the earliest created wins.
func (r *Registry) FindFeatureFunction(name string) (ff.FeatureFunction, error) {
	for _, f := range r.all {
		if f.Name() == name {
			return f, nil
		}
	}
	return nil, apperrors.Newf(apperrors.ErrFunctionNotFound, 0, "feature function %s not found", name)
}

// ScoreRange reports the range of the function called name.
func (r *Registry) ScoreRange(name string) (start, num int, err error) {
	f, err := r.FindFeatureFunction(name)
	if err != nil {
		return 0, 0, err
	}
	return f.StartIndex(), f.NumScores(), nil
}

// NumScores is the total width of the score vector.
func (r *Registry) NumScores() int { return r.numScores }

func (r *Registry) FeatureFunctions() []ff.FeatureFunction { return slices.Clone(r.all) }

func (r *Registry) StatefulFeatureFunctions() []ff.Stateful { return slices.Clone(r.stateful) }

func (r *Registry) PhraseTables() []ff.PhraseTable { return slices.Clone(r.phraseTables) }

func (r *Registry) VocabIndexed() []ff.VocabIndexed { return slices.Clone(r.vocabIndexed) }

// PhraseTablesExcludingUnknownWordPenalty is the phrase-table view without
// the unknown-word handler.
func (r *Registry) PhraseTablesExcludingUnknownWordPenalty() []ff.PhraseTable {
	out := make([]ff.PhraseTable, 0, len(r.phraseTables))
	for _, pt := range r.phraseTables {
		if _, ok := pt.(ff.UnknownWordHandler); ok {
			continue
		}
		out = append(out, pt)
	}
	return out
}

// GetPhraseTablesExcludingUnknownWordPenalty returns the ptIndex-th phrase
// table once the unknown-word handler is skipped. The configuration must
// hold exactly one handler; ptIndex out of range panics.
func (r *Registry) GetPhraseTablesExcludingUnknownWordPenalty(ptIndex int) ff.PhraseTable {
	return r.PhraseTablesExcludingUnknownWordPenalty()[ptIndex]
}

// UnknownWordHandler returns the first unknown-word handler, or nil.
func (r *Registry) UnknownWordHandler() ff.UnknownWordHandler {
	for _, pt := range r.phraseTables {
		if h, ok := pt.(ff.UnknownWordHandler); ok {
			return h
		}
	}
	return nil
}

// EvaluateInIsolation runs every function over target in creation order and
// sets its estimated score from a fresh estimate container drawn from pool.
func (r *Registry) EvaluateInIsolation(pool *mempool.Pool, w *scores.Weights, source phrase.Phrase, target *phrase.TargetPhrase) {
	estimated := scores.New(pool, r.numScores)
	for _, f := range r.all {
		f.EvaluateInIsolation(w, source, target, target.Scores(), estimated)
	}
	target.SetEstimatedScore(estimated.Total())
}

// Close releases every function that holds resources and empties the
// registry.
func (r *Registry) Close() error {
	var errs []error
	for _, f := range r.all {
		if c, ok := f.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", f.Name(), err))
			}
		}
	}
	r.all, r.stateful, r.phraseTables, r.vocabIndexed = nil, nil, nil, nil
	r.numScores = 0
	return errors.Join(errs...)
}
