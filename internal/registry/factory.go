package registry

import (
	"maps"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff/distortion"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff/lm"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff/penalty"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff/phrasetable"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff/skeleton"
)

var defaultFactories = map[string]ff.Constructor{
	"WordPenalty":            penalty.NewWordPenalty,
	"PhrasePenalty":          penalty.NewPhrasePenalty,
	"Distortion":             distortion.New,
	"LanguageModel":          lm.New,
	"KENLM":                  lm.New,
	"PhraseDictionaryMemory": phrasetable.NewMemory,
	"ProbingPT":              phrasetable.NewProbing,
	"PhraseDictionarySQL":    phrasetable.NewSQL,
	"UnknownWordPenalty":     phrasetable.NewUnknownWordPenalty,
}

// DefaultFactories returns a copy of the built-in type tag table.
func DefaultFactories() map[string]ff.Constructor {
	return maps.Clone(defaultFactories)
}

// fallback builds functions for unrecognized tags.
var fallback ff.Constructor = skeleton.NewStateless
