// Package lm implements an n-gram language model feature read from ARPA
// files. It is stateful (the last order-1 words carry across phrases) and
// owns a table in the shared vocabulary index.
package lm

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/vocab"
	"github.com/cespare/xxhash/v2"
)

const (
	unknownLogProb = -100.0
	// scoreFloor bounds every natural-log score.
	scoreFloor   = -100.0
	defaultOrder = 3
)

// LanguageModel scores target words with an ARPA back-off model.
type LanguageModel struct {
	ff.Base
	ff.StatefulIndexed
	ff.VocabSlot

	path   string
	order  int
	model  *model
	table  *vocab.Table
	logger *slog.Logger
}

// New is registered for both the LanguageModel and KENLM tags.
func New(startIndex int, line string) (ff.FeatureFunction, error) {
	b, err := ff.NewBase(startIndex, line, 1)
	if err != nil {
		return nil, err
	}
	path, err := b.Args.Required("path")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	order, err := b.Args.Int("order", defaultOrder)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if order < 1 {
		return nil, fmt.Errorf("%s: order must be at least 1, got %d", b.Name(), order)
	}
	return &LanguageModel{
		Base:   b,
		path:   path,
		order:  order,
		logger: slog.Default().With("component", "lm", "feature", b.Name()),
	}, nil
}

func (l *LanguageModel) Load(_ context.Context, res *ff.Resources) error {
	if res == nil || res.Vocab == nil || l.VocabIndex() >= res.Vocab.Len() {
		return fmt.Errorf("%s: no vocabulary table for index %d", l.Name(), l.VocabIndex())
	}
	table := res.Vocab.Table(l.VocabIndex())
	rc, err := ff.OpenModel(res.ResolvePath(l.path))
	if err != nil {
		return err
	}
	defer rc.Close()

	m, err := readARPA(rc, table)
	if err != nil {
		return fmt.Errorf("%s: %w", l.path, err)
	}
	if m.order > l.order {
		m.order = l.order
	}
	l.model = m
	l.table = table
	l.logger.Info("language model loaded",
		"path", l.path,
		"order", m.order,
		"ngrams", len(m.ngrams),
		"vocab", table.Size(),
	)
	return nil
}

// Close drops the model.
func (l *LanguageModel) Close() error {
	l.model = nil
	return nil
}

// Order is the effective n-gram order after loading.
func (l *LanguageModel) Order() int {
	if l.model != nil {
		return l.model.order
	}
	return l.order
}

func (l *LanguageModel) ids(p phrase.Phrase) []uint32 {
	out := make([]uint32, len(p))
	for i, w := range p {
		out[i] = l.table.ID(w.Text)
	}
	return out
}

func transform(log10 float64) float64 {
	return math.Max(log10*math.Ln10, scoreFloor)
}

// EvaluateInIsolation scores every target word whose full context lies
// inside the phrase; words missing left context go into the estimate.
func (l *LanguageModel) EvaluateInIsolation(w *scores.Weights, _ phrase.Phrase, target *phrase.TargetPhrase, sc, estimated *scores.Scores) {
	if l.model == nil {
		return
	}
	ids := l.ids(target.Phrase)
	var full, partial float64
	for i, id := range ids {
		start := max(0, i-(l.model.order-1))
		p := transform(l.model.logProb(ids[start:i], id))
		if i < l.model.order-1 {
			partial += p
		} else {
			full += p
		}
	}
	sc.PlusEqualsAt(w, l.StartIndex(), full)
	estimated.PlusEqualsAt(w, l.StartIndex(), partial)
}

// State is the trailing context of a hypothesis.
type State struct {
	context []uint32
}

func (s State) Hash() uint64 {
	return xxhash.Sum64String(key(s.context))
}

func (s State) Equal(other ff.State) bool {
	o, ok := other.(State)
	if !ok || len(o.context) != len(s.context) {
		return false
	}
	for i := range s.context {
		if s.context[i] != o.context[i] {
			return false
		}
	}
	return true
}

func (l *LanguageModel) EmptyState(phrase.Phrase) ff.State {
	if l.model == nil {
		return State{}
	}
	return State{context: []uint32{l.model.bos}}
}

// EvaluateWhenApplied scores the applied target words in the context of
// the previous state, adding the end-of-sentence probability on the final
// application.
func (l *LanguageModel) EvaluateWhenApplied(w *scores.Weights, prev ff.State, app ff.Application, sc *scores.Scores) ff.State {
	if l.model == nil {
		return prev
	}
	var history []uint32
	if p, ok := prev.(State); ok {
		history = append(history, p.context...)
	}
	words := l.ids(app.Target.Phrase)
	if app.Final {
		words = append(words, l.model.eos)
	}
	total := 0.0
	for _, id := range words {
		total += transform(l.model.logProb(history, id))
		history = append(history, id)
		if len(history) > l.model.order-1 {
			history = history[len(history)-(l.model.order-1):]
		}
	}
	sc.PlusEqualsAt(w, l.StartIndex(), total)
	return State{context: append([]uint32(nil), history...)}
}
