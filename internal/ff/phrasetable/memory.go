package phrasetable

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
)

// Memory holds a whole Moses text phrase table in memory.
type Memory struct {
	ff.Base
	ff.TableIndexed

	path    string
	entries translations
	logger  *slog.Logger
}

func NewMemory(startIndex int, line string) (ff.FeatureFunction, error) {
	b, err := ff.NewBase(startIndex, line, defaultNumScores)
	if err != nil {
		return nil, err
	}
	path, err := b.Args.Required("path")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return &Memory{
		Base:   b,
		path:   path,
		logger: slog.Default().With("component", "phrasetable", "feature", b.Name()),
	}, nil
}

func (m *Memory) Load(_ context.Context, res *ff.Resources) error {
	rc, err := ff.OpenModel(res.ResolvePath(m.path))
	if err != nil {
		return err
	}
	defer rc.Close()

	entries := make(translations)
	n := 0
	err = ReadEntries(rc, m.NumScores(), func(e Entry) error {
		entries.add(e)
		n++
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", m.path, err)
	}
	entries.sort()
	m.entries = entries
	m.logger.Info("phrase table loaded", "path", m.path, "sources", len(entries), "entries", n)
	return nil
}

func (m *Memory) Close() error {
	m.entries = nil
	return nil
}

func (m *Memory) EvaluateInIsolation(*scores.Weights, phrase.Phrase, *phrase.TargetPhrase, *scores.Scores, *scores.Scores) {
}

func (m *Memory) Lookup(_ context.Context, pool *mempool.Pool, w *scores.Weights, numScores int, source phrase.Phrase) ([]*phrase.TargetPhrase, error) {
	entries := m.entries[source.String()]
	if len(entries) == 0 {
		return nil, nil
	}
	return materialize(pool, w, numScores, m.StartIndex(), source, entries), nil
}
