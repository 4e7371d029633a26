// Package penalty implements the stateless length penalties.
package penalty

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
)

// WordPenalty scores -1 per target word.
type WordPenalty struct {
	ff.Base
}

func NewWordPenalty(startIndex int, line string) (ff.FeatureFunction, error) {
	b, err := ff.NewBase(startIndex, line, 1)
	if err != nil {
		return nil, err
	}
	return &WordPenalty{Base: b}, nil
}

func (p *WordPenalty) Load(context.Context, *ff.Resources) error { return nil }

func (p *WordPenalty) EvaluateInIsolation(w *scores.Weights, _ phrase.Phrase, target *phrase.TargetPhrase, sc, _ *scores.Scores) {
	sc.PlusEqualsAt(w, p.StartIndex(), -float64(target.Len()))
}

// PhrasePenalty scores 1 per target phrase, letting tuning trade off
// longer against shorter segmentations.
type PhrasePenalty struct {
	ff.Base
}

func NewPhrasePenalty(startIndex int, line string) (ff.FeatureFunction, error) {
	b, err := ff.NewBase(startIndex, line, 1)
	if err != nil {
		return nil, err
	}
	return &PhrasePenalty{Base: b}, nil
}

func (p *PhrasePenalty) Load(context.Context, *ff.Resources) error { return nil }

func (p *PhrasePenalty) EvaluateInIsolation(w *scores.Weights, _ phrase.Phrase, _ *phrase.TargetPhrase, sc, _ *scores.Scores) {
	sc.PlusEqualsAt(w, p.StartIndex(), 1)
}
