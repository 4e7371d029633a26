// Package distortion implements the linear reordering penalty.
package distortion

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
)

// Distortion charges the distance between the end of the previously
// translated source span and the start of the next one.
type Distortion struct {
	ff.Base
	ff.StatefulIndexed
}

func New(startIndex int, line string) (ff.FeatureFunction, error) {
	b, err := ff.NewBase(startIndex, line, 1)
	if err != nil {
		return nil, err
	}
	return &Distortion{Base: b}, nil
}

// State is the last covered source position.
type State struct {
	End int
}

func (s State) Hash() uint64 { return uint64(s.End + 1) }

func (s State) Equal(other ff.State) bool {
	o, ok := other.(State)
	return ok && o.End == s.End
}

func (d *Distortion) Load(context.Context, *ff.Resources) error { return nil }

// EvaluateInIsolation is a no-op: the penalty depends on the hypothesis.
func (d *Distortion) EvaluateInIsolation(*scores.Weights, phrase.Phrase, *phrase.TargetPhrase, *scores.Scores, *scores.Scores) {
}

func (d *Distortion) EmptyState(phrase.Phrase) ff.State {
	return State{End: -1}
}

func (d *Distortion) EvaluateWhenApplied(w *scores.Weights, prev ff.State, app ff.Application, sc *scores.Scores) ff.State {
	last := -1
	if p, ok := prev.(State); ok {
		last = p.End
	}
	jump := app.SourceStart - (last + 1)
	if jump < 0 {
		jump = -jump
	}
	if jump != 0 {
		sc.PlusEqualsAt(w, d.StartIndex(), -float64(jump))
	}
	return State{End: app.SourceEnd}
}
