// Package scores holds the two dense vectors of the linear model: the
// per-candidate score container and the process-wide weight vector. Both
// are indexed by the contiguous ranges the feature-function registry
// assigns at creation time.
package scores

import (
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
)

// Scores is the score container of one translation candidate. Its values
// live in a request arena; total is the weighted sum of every value added
// through PlusEquals.
type Scores struct {
	values []float64
	total  float64
}

// New allocates a container of numScores zeroed slots from pool.
func New(pool *mempool.Pool, numScores int) *Scores {
	return &Scores{values: pool.Alloc(numScores)}
}

func (s *Scores) Len() int { return len(s.values) }

func (s *Scores) Values() []float64 { return s.values }

// Total is the weighted score accumulated so far.
func (s *Scores) Total() float64 { return s.total }

// PlusEquals adds vals into the slots starting at start and folds their
// weighted sum into the total.
func (s *Scores) PlusEquals(w *Weights, start int, vals []float64) {
	for i, v := range vals {
		s.values[start+i] += v
		s.total += v * w.weights[start+i]
	}
}

// PlusEqualsAt adds a single value at index.
func (s *Scores) PlusEqualsAt(w *Weights, index int, val float64) {
	s.values[index] += val
	s.total += val * w.weights[index]
}

// Assign overwrites the slots starting at start, keeping the total
// consistent with the new values.
func (s *Scores) Assign(w *Weights, start int, vals []float64) {
	for i, v := range vals {
		j := start + i
		s.total += (v - s.values[j]) * w.weights[j]
		s.values[j] = v
	}
}

// Reset zeroes every slot and the total.
func (s *Scores) Reset() {
	clear(s.values)
	s.total = 0
}

// Debug writes the values separated by spaces.
func (s *Scores) Debug(out io.Writer) {
	for _, v := range s.values {
		fmt.Fprintf(out, "%g ", v)
	}
}
