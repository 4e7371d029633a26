package distortion

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type oneSlot struct{}

func (oneSlot) NumScores() int                      { return 1 }
func (oneSlot) ScoreRange(string) (int, int, error) { return 0, 1, nil }

func TestDistortionIsStateful(t *testing.T) {
	f, err := New(0, "Distortion")
	require.NoError(t, err)
	sf, ok := f.(ff.Stateful)
	require.True(t, ok)

	sf.SetStatefulIndex(2)
	assert.Equal(t, 2, sf.StatefulIndex())
}

func TestDistortionJumps(t *testing.T) {
	f, err := New(0, "Distortion")
	require.NoError(t, err)
	d := f.(*Distortion)

	var w scores.Weights
	w.Init(oneSlot{})
	pool := mempool.New(0)
	source := phrase.Parse("a b c d e")
	sc := scores.New(pool, 1)

	state := d.EmptyState(source)
	// monotone start: no cost
	state = d.EvaluateWhenApplied(&w, state, ff.Application{SourceStart: 0, SourceEnd: 1}, sc)
	assert.Zero(t, sc.Values()[0])

	// skip "c": jump of 1
	state = d.EvaluateWhenApplied(&w, state, ff.Application{SourceStart: 3, SourceEnd: 4}, sc)
	assert.Equal(t, -1.0, sc.Values()[0])

	// back to "c": from end 4 to start 2 is a jump of 3
	state = d.EvaluateWhenApplied(&w, state, ff.Application{SourceStart: 2, SourceEnd: 2, Final: true}, sc)
	assert.Equal(t, -4.0, sc.Values()[0])
	assert.True(t, state.Equal(State{End: 2}))
	assert.False(t, state.Equal(State{End: 3}))
	assert.NotEqual(t, State{End: 2}.Hash(), State{End: 3}.Hash())
}

func TestDistortionIsolationIsNoop(t *testing.T) {
	f, err := New(0, "Distortion")
	require.NoError(t, err)
	var w scores.Weights
	w.Init(oneSlot{})
	pool := mempool.New(0)
	tp := phrase.NewTargetPhrase(pool, phrase.Parse("a"), phrase.Parse("b"), 1)
	est := scores.New(pool, 1)
	f.EvaluateInIsolation(&w, tp.Source, tp, tp.Scores(), est)
	assert.Zero(t, tp.Scores().Total())
	assert.Zero(t, est.Total())
}
