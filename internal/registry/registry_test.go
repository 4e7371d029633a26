package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff/skeleton"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trace records Load calls in order.
type trace struct {
	loads  []string
	closes []string
	fail   map[string]error
}

type fakeFeature struct {
	ff.Base
	t *trace
}

func (f *fakeFeature) Load(context.Context, *ff.Resources) error {
	f.t.loads = append(f.t.loads, f.Name())
	return f.t.fail[f.Name()]
}

func (f *fakeFeature) Close() error {
	f.t.closes = append(f.t.closes, f.Name())
	return nil
}

// EvaluateInIsolation writes 1 into the score range and 0.5 into the
// estimate.
func (f *fakeFeature) EvaluateInIsolation(w *scores.Weights, _ phrase.Phrase, _ *phrase.TargetPhrase, sc, est *scores.Scores) {
	sc.PlusEqualsAt(w, f.StartIndex(), 1)
	est.PlusEqualsAt(w, f.StartIndex(), 0.5)
}

type fakeStateful struct {
	fakeFeature
	ff.StatefulIndexed
}

func (f *fakeStateful) EmptyState(phrase.Phrase) ff.State { return nil }
func (f *fakeStateful) EvaluateWhenApplied(_ *scores.Weights, prev ff.State, _ ff.Application, _ *scores.Scores) ff.State {
	return prev
}

type fakeTable struct {
	fakeFeature
	ff.TableIndexed
}

func (f *fakeTable) Lookup(context.Context, *mempool.Pool, *scores.Weights, int, phrase.Phrase) ([]*phrase.TargetPhrase, error) {
	return nil, nil
}

type fakeUnknown struct{ fakeTable }

func (f *fakeUnknown) HandlesUnknownWords() {}

type fakeVocab struct {
	fakeFeature
	ff.VocabSlot
}

func fakeFactories(t *trace) map[string]ff.Constructor {
	base := func(start int, line string, n int) (fakeFeature, error) {
		b, err := ff.NewBase(start, line, n)
		return fakeFeature{Base: b, t: t}, err
	}
	return map[string]ff.Constructor{
		"Plain": func(start int, line string) (ff.FeatureFunction, error) {
			f, err := base(start, line, 1)
			return &f, err
		},
		"State": func(start int, line string) (ff.FeatureFunction, error) {
			f, err := base(start, line, 2)
			return &fakeStateful{fakeFeature: f}, err
		},
		"Table": func(start int, line string) (ff.FeatureFunction, error) {
			f, err := base(start, line, 4)
			return &fakeTable{fakeFeature: f}, err
		},
		"Unknown": func(start int, line string) (ff.FeatureFunction, error) {
			f, err := base(start, line, 1)
			return &fakeUnknown{fakeTable{fakeFeature: f}}, err
		},
		"Vocab": func(start int, line string) (ff.FeatureFunction, error) {
			f, err := base(start, line, 1)
			return &fakeVocab{fakeFeature: f}, err
		},
	}
}

func newFake(t *testing.T, lines ...string) (*Registry, *trace) {
	t.Helper()
	tr := &trace{fail: map[string]error{}}
	r := New(WithFactories(fakeFactories(tr)))
	require.NoError(t, r.CreateAll(lines))
	return r, tr
}

func TestScoreRangesTileInCreationOrder(t *testing.T) {
	r, _ := newFake(t,
		"Table name=TM0",
		"Plain name=P0",
		"State name=S0",
		"Vocab name=V0",
		"Table name=TM1 num-features=3",
		"Mystery name=X",
	)
	next := 0
	for _, f := range r.FeatureFunctions() {
		assert.Equal(t, next, f.StartIndex(), f.Name())
		next += f.NumScores()
	}
	assert.Equal(t, next, r.NumScores())
	assert.Equal(t, 4+1+2+1+3+1, r.NumScores())
}

func TestDerivedViewsHaveDenseIndices(t *testing.T) {
	r, _ := newFake(t,
		"Plain name=A",
		"Table name=TM0",
		"State name=S0",
		"Vocab name=V0",
		"Table name=TM1",
		"State name=S1",
		"Vocab name=V1",
	)
	for i, pt := range r.PhraseTables() {
		assert.Equal(t, i, pt.PhraseTableIndex())
	}
	for i, sf := range r.StatefulFeatureFunctions() {
		assert.Equal(t, i, sf.StatefulIndex())
	}
	for i, vi := range r.VocabIndexed() {
		assert.Equal(t, i, vi.VocabIndex())
	}
	assert.Len(t, r.PhraseTables(), 2)
	assert.Len(t, r.StatefulFeatureFunctions(), 2)
	assert.Len(t, r.VocabIndexed(), 2)
	assert.Equal(t, "TM1", r.PhraseTables()[1].Name())

	views := r.FeatureFunctions()
	views[0] = nil
	assert.NotNil(t, r.FeatureFunctions()[0], "views are copies")
}

func TestUnknownTagFallsBackToPlaceholder(t *testing.T) {
	r := New()
	f, err := r.Create("NoSuchFeature name=Mystery")
	require.NoError(t, err)
	assert.IsType(t, &skeleton.Stateless{}, f)
	assert.Equal(t, "Mystery", f.Name())
	assert.Equal(t, 1, r.NumScores())
}

func TestCreateErrors(t *testing.T) {
	r := New()
	_, err := r.Create("   ")
	assert.True(t, errors.Is(err, apperrors.ErrMalformedValue))

	_, err = r.Create("PhraseDictionaryMemory name=TM0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PhraseDictionaryMemory name=TM0")
	assert.Zero(t, r.NumScores(), "failed create does not advance the cursor")

	err = r.CreateAll(nil)
	assert.True(t, errors.Is(err, apperrors.ErrConfigurationMissing))
}

func TestBadConstructorRangeIsRejected(t *testing.T) {
	r := New(WithFactories(map[string]ff.Constructor{
		"Liar": func(_ int, line string) (ff.FeatureFunction, error) {
			return skeleton.NewStateless(7, line)
		},
	}))
	_, err := r.Create("Liar")
	assert.True(t, errors.Is(err, apperrors.ErrInternal))
}

func TestLoadRunsPhraseTablesLast(t *testing.T) {
	r, tr := newFake(t,
		"Table name=TM0",
		"Plain name=A",
		"Unknown name=UWP",
		"State name=S0",
		"Table name=TM1",
		"Vocab name=V0",
	)
	require.NoError(t, r.Load(context.Background(), nil))
	assert.Equal(t, []string{"A", "S0", "V0", "TM0", "UWP", "TM1"}, tr.loads)
}

func TestLoadStopsAtFirstFailure(t *testing.T) {
	r, tr := newFake(t, "Plain name=A", "Plain name=B", "Table name=TM0", "Plain name=C")
	cause := errors.New("model file corrupt")
	tr.fail["B"] = cause

	err := r.Load(context.Background(), &ff.Resources{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrLoadFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "B")
	assert.Equal(t, []string{"A", "B"}, tr.loads)
}

func TestLoadFailureInPhraseTablePhase(t *testing.T) {
	r, tr := newFake(t, "Table name=TM0", "Plain name=A", "Table name=TM1")
	tr.fail["TM0"] = errors.New("missing")
	err := r.Load(context.Background(), &ff.Resources{})
	assert.True(t, errors.Is(err, apperrors.ErrLoadFailure))
	assert.Equal(t, []string{"A", "TM0"}, tr.loads)
}

func TestLoadHonoursCancellation(t *testing.T) {
	r, tr := newFake(t, "Plain name=A")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Load(ctx, nil)
	assert.True(t, errors.Is(err, apperrors.ErrLoadFailure))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, tr.loads)
}

func TestLoadCreatesVocabIndex(t *testing.T) {
	r, _ := newFake(t, "Vocab name=V0", "Plain", "Vocab name=V1")
	res := &ff.Resources{}
	require.NoError(t, r.Load(context.Background(), res))
	require.NotNil(t, res.Vocab)
	assert.Equal(t, 2, res.Vocab.Len())
}

func TestLoadRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	tr := &trace{fail: map[string]error{"B": errors.New("x")}}
	r := New(WithFactories(fakeFactories(tr)), WithMetrics(metrics.New(reg)))
	require.NoError(t, r.CreateAll([]string{"Plain name=A", "Plain name=B"}))
	require.Error(t, r.Load(context.Background(), nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	assert.True(t, found["decoder_feature_load_seconds"])
	assert.True(t, found["decoder_feature_load_failures_total"])
	assert.True(t, found["decoder_feature_functions"])
}

func TestFindFeatureFunction(t *testing.T) {
	r, _ := newFake(t, "Plain name=A", "Table name=TM0", "Plain name=A")
	f, err := r.FindFeatureFunction("A")
	require.NoError(t, err)
	assert.Equal(t, 0, f.StartIndex(), "first registered wins")

	_, err = r.FindFeatureFunction("LM0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrFunctionNotFound))
	assert.Contains(t, err.Error(), "LM0")

	start, num, err := r.ScoreRange("TM0")
	require.NoError(t, err)
	assert.Equal(t, 1, start)
	assert.Equal(t, 4, num)
}

func TestExcludingUnknownWordPenalty(t *testing.T) {
	r, _ := newFake(t, "Table name=TM0", "Unknown name=UWP", "Table name=TM1", "Table name=TM2")
	filtered := r.PhraseTablesExcludingUnknownWordPenalty()
	require.Len(t, filtered, len(r.PhraseTables())-1)
	for _, pt := range filtered {
		_, handler := pt.(ff.UnknownWordHandler)
		assert.False(t, handler)
	}
	assert.Equal(t, "TM0", r.GetPhraseTablesExcludingUnknownWordPenalty(0).Name())
	assert.Equal(t, "TM1", r.GetPhraseTablesExcludingUnknownWordPenalty(1).Name())
	assert.Equal(t, "TM2", r.GetPhraseTablesExcludingUnknownWordPenalty(2).Name())
	assert.Panics(t, func() { r.GetPhraseTablesExcludingUnknownWordPenalty(3) })
	assert.Equal(t, "UWP", r.UnknownWordHandler().Name())
}

func TestEvaluateInIsolationSetsEstimate(t *testing.T) {
	r, _ := newFake(t, "Plain name=A", "Table name=TM0", "State name=S0")
	var w scores.Weights
	w.Init(r)
	require.NoError(t, w.CreateFromString(r, "A= 2"))

	pool := mempool.New(0)
	src := phrase.Parse("das haus")
	tp := phrase.NewTargetPhrase(pool, src, phrase.Parse("the house"), r.NumScores())
	r.EvaluateInIsolation(pool, &w, src, tp)

	// A writes at slot 0 (weight 2); TM0 at 1; S0 at 5.
	assert.Equal(t, []float64{1, 1, 0, 0, 0, 1, 0}, tp.Scores().Values())
	assert.InDelta(t, 2+1+1, tp.Scores().Total(), 1e-9)
	assert.InDelta(t, 0.5*2+0.5+0.5, tp.EstimatedScore(), 1e-9)
	assert.InDelta(t, 4+2, tp.FutureScore(), 1e-9)
}

func TestCloseReleasesOwnedFunctions(t *testing.T) {
	r, tr := newFake(t, "Plain name=A", "Table name=TM0")
	require.NoError(t, r.Close())
	assert.Equal(t, []string{"A", "TM0"}, tr.closes)
	assert.Empty(t, r.FeatureFunctions())
	assert.Zero(t, r.NumScores())
}

func TestDefaultConfigurationScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("haus ||| house ||| 0.5 0.5 0.5 0.5\n"), 0o644))

	r := New()
	require.NoError(t, r.CreateAll([]string{"WordPenalty", "Distortion", "PhraseDictionaryMemory path=a"}))

	all := r.FeatureFunctions()
	require.Len(t, all, 3)
	assert.Equal(t, 0, all[0].StartIndex())
	assert.Equal(t, 1, all[1].StartIndex())
	assert.Equal(t, 2, all[2].StartIndex())
	assert.Equal(t, 6, r.NumScores())

	pts := r.PhraseTables()
	require.Len(t, pts, 1)
	assert.Equal(t, 0, pts[0].PhraseTableIndex())
	assert.Equal(t, "PhraseDictionaryMemory", pts[0].Name())
	require.Len(t, r.StatefulFeatureFunctions(), 1)

	require.NoError(t, r.Load(context.Background(), &ff.Resources{DataDir: dir}))

	var w scores.Weights
	w.Init(r)
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, w.Values())
	require.NoError(t, w.CreateFromString(r, "WordPenalty= 0.5"))
	assert.Equal(t, []float64{0.5, 1, 1, 1, 1, 1}, w.Values())

	err := w.CreateFromString(r, "Distortion= 0.1 0.2")
	assert.True(t, errors.Is(err, apperrors.ErrScoreCountMismatch))
	assert.Equal(t, []float64{0.5, 1, 1, 1, 1, 1}, w.Values())
}

func TestDefaultFactoriesIsACopy(t *testing.T) {
	f := DefaultFactories()
	delete(f, "WordPenalty")
	_, ok := DefaultFactories()["WordPenalty"]
	assert.True(t, ok)
}
