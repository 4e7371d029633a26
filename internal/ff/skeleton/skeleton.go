// Package skeleton holds the placeholder used for feature lines whose type
// tag the registry does not know.
package skeleton

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
)

// Stateless reserves its score range and never writes to it.
type Stateless struct {
	ff.Base
}

func NewStateless(startIndex int, line string) (ff.FeatureFunction, error) {
	b, err := ff.NewBase(startIndex, line, 1)
	if err != nil {
		return nil, err
	}
	return &Stateless{Base: b}, nil
}

func (s *Stateless) Load(context.Context, *ff.Resources) error { return nil }

func (s *Stateless) EvaluateInIsolation(*scores.Weights, phrase.Phrase, *phrase.TargetPhrase, *scores.Scores, *scores.Scores) {
}
