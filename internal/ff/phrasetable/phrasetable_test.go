package phrasetable

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mosesTable = `das haus ||| the house ||| 0.5 0.25 1 0 ||| 0-0 1-1
das haus ||| a house ||| 0.1 0.1 0.1 0.1
haus ||| house ||| 0.8 0.8 0.8 0.8
`

// slots is a flat layout of n unnamed scores.
type slots int

func (s slots) NumScores() int                      { return int(s) }
func (s slots) ScoreRange(string) (int, int, error) { return 0, int(s), nil }

func unitWeights(n int) *scores.Weights {
	var w scores.Weights
	w.Init(slots(n))
	return &w
}

func TestParseEntry(t *testing.T) {
	e, err := ParseEntry("das  haus |||  the house ||| 0.5 0.25 1 0 ||| 0-0", 4)
	require.NoError(t, err)
	assert.Equal(t, "das haus", e.Source)
	assert.Equal(t, "the house", e.Target)
	assert.Equal(t, []float64{0.5, 0.25, 1, 0}, e.Probs)

	_, err = ParseEntry("das haus ||| the house", 4)
	assert.True(t, errors.Is(err, apperrors.ErrMalformedValue))

	_, err = ParseEntry("das haus ||| the house ||| 0.5", 4)
	assert.True(t, errors.Is(err, apperrors.ErrScoreCountMismatch))

	_, err = ParseEntry(" ||| the house ||| 1 1 1 1", 4)
	assert.True(t, errors.Is(err, apperrors.ErrMalformedValue))
}

func TestTransformScoreIsFloored(t *testing.T) {
	assert.Equal(t, ScoreFloor, transformScore(0))
	assert.Equal(t, ScoreFloor, transformScore(1e-300))
	assert.Zero(t, transformScore(1))
	assert.InDelta(t, math.Log(0.5), transformScore(0.5), 1e-12)
}

func TestFormatProbsRoundTrips(t *testing.T) {
	probs := []float64{0.5, 1e-7, 1}
	got, err := ParseProbs(FormatProbs(probs), 3)
	require.NoError(t, err)
	assert.Equal(t, probs, got)
}

func loadMemory(t *testing.T, name string, data []byte) *Memory {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	f, err := NewMemory(2, "PhraseDictionaryMemory name=TM0 path="+name)
	require.NoError(t, err)
	require.NoError(t, f.Load(context.Background(), &ff.Resources{DataDir: dir}))
	return f.(*Memory)
}

func TestMemoryLookup(t *testing.T) {
	m := loadMemory(t, "pt.txt", []byte(mosesTable))
	assert.Equal(t, 2, m.StartIndex())
	assert.Equal(t, 4, m.NumScores())

	w := unitWeights(6)
	pool := mempool.New(0)
	got, err := m.Lookup(context.Background(), pool, w, 6, phrase.Parse("das haus"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// sorted by target
	assert.Equal(t, "a house", got[0].String())
	assert.Equal(t, "the house", got[1].String())
	assert.Equal(t, "das haus", got[1].Source.String())

	vals := got[1].Scores().Values()
	assert.Equal(t, 0.0, vals[0])
	assert.Equal(t, 0.0, vals[1])
	assert.InDelta(t, math.Log(0.5), vals[2], 1e-12)
	assert.InDelta(t, math.Log(0.25), vals[3], 1e-12)
	assert.Equal(t, 0.0, vals[4])
	assert.Equal(t, ScoreFloor, vals[5])
	assert.InDelta(t, math.Log(0.5)+math.Log(0.25)+ScoreFloor, got[1].Scores().Total(), 1e-9)

	none, err := m.Lookup(context.Background(), pool, w, 6, phrase.Parse("katze"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryLoadsGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(mosesTable))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	m := loadMemory(t, "pt.txt.gz", buf.Bytes())
	got, err := m.Lookup(context.Background(), mempool.New(0), unitWeights(6), 6, phrase.Parse("haus"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "house", got[0].String())
}

func TestMemoryLoadErrors(t *testing.T) {
	_, err := NewMemory(0, "PhraseDictionaryMemory")
	assert.True(t, errors.Is(err, apperrors.ErrMalformedValue))

	f, err := NewMemory(0, "PhraseDictionaryMemory path=missing.txt")
	require.NoError(t, err)
	assert.Error(t, f.Load(context.Background(), &ff.Resources{DataDir: t.TempDir()}))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("a ||| b ||| 1 2\n"), 0o644))
	f, err = NewMemory(0, "PhraseDictionaryMemory path=bad.txt")
	require.NoError(t, err)
	err = f.Load(context.Background(), &ff.Resources{DataDir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestMemoryHonoursNumFeatures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pt.txt"), []byte("a ||| b ||| 0.5 0.5\n"), 0o644))
	f, err := NewMemory(0, "PhraseDictionaryMemory num-features=2 path=pt.txt")
	require.NoError(t, err)
	require.NoError(t, f.Load(context.Background(), &ff.Resources{DataDir: dir}))
	assert.Equal(t, 2, f.NumScores())
}

func TestUnknownWordPenalty(t *testing.T) {
	f, err := NewUnknownWordPenalty(0, "UnknownWordPenalty")
	require.NoError(t, err)
	_, handler := f.(ff.UnknownWordHandler)
	require.True(t, handler)
	u := f.(*UnknownWordPenalty)

	w := unitWeights(1)
	pool := mempool.New(0)
	src := phrase.Parse("katze")
	got, err := u.Lookup(context.Background(), pool, w, 1, src)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "katze", got[0].String())
	assert.Equal(t, UnknownWordScore, got[0].Scores().Values()[0])

	got[0].Phrase[0].Text = "changed"
	assert.Equal(t, "katze", src.String(), "candidate does not alias the source")

	multi, err := u.Lookup(context.Background(), pool, w, 1, phrase.Parse("die katze"))
	require.NoError(t, err)
	assert.Empty(t, multi)
}

func TestOtherTablesAreNotUnknownWordHandlers(t *testing.T) {
	for _, ctor := range []ff.Constructor{NewMemory, NewProbing, NewSQL} {
		f, err := ctor(0, "PT path=x table=t")
		require.NoError(t, err)
		_, pt := f.(ff.PhraseTable)
		_, handler := f.(ff.UnknownWordHandler)
		assert.True(t, pt)
		assert.False(t, handler)
	}
}

func TestSQLRejectsBadTableName(t *testing.T) {
	_, err := NewSQL(0, "PhraseDictionarySQL table=pt;drop")
	assert.True(t, errors.Is(err, apperrors.ErrMalformedValue))
}

func TestStoreBackedTablesNeedClients(t *testing.T) {
	p, err := NewProbing(0, "ProbingPT")
	require.NoError(t, err)
	assert.Error(t, p.Load(context.Background(), &ff.Resources{}))

	s, err := NewSQL(0, "PhraseDictionarySQL")
	require.NoError(t, err)
	assert.Error(t, s.Load(context.Background(), &ff.Resources{}))
}

func TestReadEntriesSkipsBlankLines(t *testing.T) {
	var sources []string
	err := ReadEntries(strings.NewReader("\n"+mosesTable+"\n\n"), 4, func(e Entry) error {
		sources = append(sources, e.Source)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"das haus", "das haus", "haus"}, sources)
}
