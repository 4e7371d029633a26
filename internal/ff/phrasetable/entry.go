// Package phrasetable implements the phrase-table feature functions: an
// in-memory table read from a Moses text file, Redis and Postgres backed
// tables, and the unknown-word pass-through.
package phrasetable

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/errors"
)

const (
	// ScoreFloor bounds every log probability a table produces.
	ScoreFloor = -100.0

	defaultNumScores = 4
	fieldSep         = "|||"
)

// Entry is one translation of a source phrase with its raw probabilities.
type Entry struct {
	Source string
	Target string
	Probs  []float64
}

// transformScore converts a probability into a floored natural log.
func transformScore(p float64) float64 {
	if p <= 0 {
		return ScoreFloor
	}
	return math.Max(math.Log(p), ScoreFloor)
}

// ParseEntry reads a "src ||| tgt ||| p1 .. pk" line. Trailing fields
// (alignments, counts) are ignored.
func ParseEntry(line string, numScores int) (Entry, error) {
	parts := strings.Split(line, fieldSep)
	if len(parts) < 3 {
		return Entry{}, apperrors.Newf(apperrors.ErrMalformedValue, 0, "phrase table line needs 3 fields: %q", line)
	}
	src := strings.Join(strings.Fields(parts[0]), " ")
	tgt := strings.Join(strings.Fields(parts[1]), " ")
	if src == "" || tgt == "" {
		return Entry{}, apperrors.Newf(apperrors.ErrMalformedValue, 0, "empty phrase in %q", line)
	}
	probs, err := ParseProbs(parts[2], numScores)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Source: src, Target: tgt, Probs: probs}, nil
}

// ParseProbs parses exactly numScores whitespace separated probabilities.
func ParseProbs(s string, numScores int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != numScores {
		return nil, &apperrors.CountMismatch{Name: "phrase table", Expected: numScores, Actual: len(fields)}
	}
	probs := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrMalformedValue, 0, "bad probability %q", f)
		}
		probs[i] = v
	}
	return probs, nil
}

// FormatProbs is the inverse of ParseProbs.
func FormatProbs(probs []float64) string {
	fields := make([]string, len(probs))
	for i, p := range probs {
		fields[i] = strconv.FormatFloat(p, 'g', -1, 64)
	}
	return strings.Join(fields, " ")
}

// ReadEntries streams a Moses text phrase table, calling fn once per entry.
func ReadEntries(r io.Reader, numScores int, fn func(Entry) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e, err := ParseEntry(line, numScores)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// translations is a set of target entries grouped by source phrase.
type translations map[string][]Entry

func (t translations) add(e Entry) {
	t[e.Source] = append(t[e.Source], e)
}

func (t translations) sort() {
	for _, list := range t {
		sortByTarget(list)
	}
}

func sortByTarget(list []Entry) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Target < list[j].Target })
}

// materialize builds scored candidates for source from entries. Each
// candidate gets a numScores-wide container with this table's range set.
func materialize(pool *mempool.Pool, w *scores.Weights, numScores, start int, source phrase.Phrase, entries []Entry) []*phrase.TargetPhrase {
	out := make([]*phrase.TargetPhrase, 0, len(entries))
	vals := make([]float64, 0, defaultNumScores)
	for _, e := range entries {
		tp := phrase.NewTargetPhrase(pool, source, phrase.Parse(e.Target), numScores)
		vals = vals[:0]
		for _, p := range e.Probs {
			vals = append(vals, transformScore(p))
		}
		tp.Scores().PlusEquals(w, start, vals)
		out = append(out, tp)
	}
	return out
}
