// Package ff defines the feature-function capability model of the decoder.
//
// Every feature function owns a contiguous range of the global score
// vector and scores translation candidates in isolation. On top of that
// base contract a function may expose optional capabilities, discovered by
// interface assertion and never by name:
//
//   - Stateful: carries decoding state across hypothesis expansions.
//   - PhraseTable: is loaded after every other function and answers lookups.
//   - UnknownWordHandler: the phrase table that translates unknown words.
//   - VocabIndexed: needs its own table in the shared vocabulary index.
package ff

import (
	"context"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/vocab"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/redis"
)

// FeatureFunction is the contract every configured scoring component meets.
type FeatureFunction interface {
	// Name identifies the function in weight lines and lookups.
	Name() string
	// Line is the configuration line the function was created from.
	Line() string
	// StartIndex is the first slot of the function's score range.
	StartIndex() int
	// NumScores is the width of the score range. It never changes.
	NumScores() int
	// Load acquires models and other resources. It runs once, before
	// any scoring.
	Load(ctx context.Context, res *Resources) error
	// EvaluateInIsolation scores target as a translation of source without
	// any decoding context. Implementations write only into their own
	// range of sc and estimated.
	EvaluateInIsolation(w *scores.Weights, source phrase.Phrase, target *phrase.TargetPhrase, sc, estimated *scores.Scores)
}

// State is the decoding state a stateful function threads through
// hypothesis expansion. Hypotheses with equal states can be recombined.
type State interface {
	Hash() uint64
	Equal(other State) bool
}

// Application describes a target phrase being appended to a hypothesis.
type Application struct {
	// SourceStart and SourceEnd delimit the covered source words, inclusive.
	SourceStart int
	SourceEnd   int
	Target      *phrase.TargetPhrase
	// Final is set when the application completes the sentence.
	Final bool
}

// Stateful functions take part in cross-hypothesis decoding state.
type Stateful interface {
	FeatureFunction
	SetStatefulIndex(i int)
	StatefulIndex() int
	EmptyState(source phrase.Phrase) State
	EvaluateWhenApplied(w *scores.Weights, prev State, app Application, sc *scores.Scores) State
}

// PhraseTable functions are loaded in the second load phase and produce
// translation candidates for source phrases.
type PhraseTable interface {
	FeatureFunction
	SetPhraseTableIndex(i int)
	PhraseTableIndex() int
	// Lookup returns the candidates for source with this table's range
	// already scored. Candidates are allocated from pool.
	Lookup(ctx context.Context, pool *mempool.Pool, w *scores.Weights, numScores int, source phrase.Phrase) ([]*phrase.TargetPhrase, error)
}

// UnknownWordHandler marks the phrase table that passes unknown words
// through. A configuration is expected to contain exactly one.
type UnknownWordHandler interface {
	PhraseTable
	HandlesUnknownWords()
}

// VocabIndexed functions own a table in the shared vocabulary index when
// HasVocabIndex reports true.
type VocabIndexed interface {
	FeatureFunction
	HasVocabIndex() bool
	SetVocabIndex(i int)
	VocabIndex() int
}

// Constructor builds a feature function whose range starts at startIndex
// from its configuration line.
type Constructor func(startIndex int, line string) (FeatureFunction, error)

// Resources is what feature functions may draw on while loading. Postgres
// and Redis are nil unless configured.
type Resources struct {
	DataDir  string
	Vocab    *vocab.Index
	Postgres *postgres.Client
	Redis    *pkgredis.Client
}

// Tokenize splits a configuration line on whitespace.
func Tokenize(line string) []string {
	return strings.Fields(line)
}
