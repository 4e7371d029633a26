package phrasetable

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
)

// UnknownWordScore is charged for passing a source word through untranslated.
const UnknownWordScore = -100.0

// UnknownWordPenalty translates a single unknown source word as itself.
type UnknownWordPenalty struct {
	ff.Base
	ff.TableIndexed
}

func NewUnknownWordPenalty(startIndex int, line string) (ff.FeatureFunction, error) {
	b, err := ff.NewBase(startIndex, line, 1)
	if err != nil {
		return nil, err
	}
	return &UnknownWordPenalty{Base: b}, nil
}

func (u *UnknownWordPenalty) HandlesUnknownWords() {}

func (u *UnknownWordPenalty) Load(context.Context, *ff.Resources) error { return nil }

func (u *UnknownWordPenalty) EvaluateInIsolation(*scores.Weights, phrase.Phrase, *phrase.TargetPhrase, *scores.Scores, *scores.Scores) {
}

// Lookup returns the copy candidate for one-word sources and nothing for
// longer phrases.
func (u *UnknownWordPenalty) Lookup(_ context.Context, pool *mempool.Pool, w *scores.Weights, numScores int, source phrase.Phrase) ([]*phrase.TargetPhrase, error) {
	if source.Len() != 1 {
		return nil, nil
	}
	target := append(phrase.Phrase(nil), source...)
	tp := phrase.NewTargetPhrase(pool, source, target, numScores)
	tp.Scores().PlusEqualsAt(w, u.StartIndex(), UnknownWordScore)
	return []*phrase.TargetPhrase{tp}, nil
}
