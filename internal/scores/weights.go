package scores

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/errors"
)

// DefaultWeight is the value every slot holds before configuration.
const DefaultWeight = 1.0

// Ranges resolves feature-function names to their slice of the global
// score index space. The feature-function registry implements it.
type Ranges interface {
	NumScores() int
	ScoreRange(name string) (start, num int, err error)
}

// Weights is the weight vector, parallel to every Scores container. It is
// written during setup and read-only afterwards, so concurrent readers need
// no locking.
type Weights struct {
	weights []float64
}

// Init sizes the vector to the registry's total score count and fills it
// with DefaultWeight.
func (w *Weights) Init(ffs Ranges) {
	n := ffs.NumScores()
	w.weights = make([]float64, n)
	for i := range w.weights {
		w.weights[i] = DefaultWeight
	}
}

// CreateFromString applies a weight line of the form "<Name>= w1 ... wk",
// overwriting the named function's whole range. The vector is left
// untouched when the line is rejected.
func (w *Weights) CreateFromString(ffs Ranges, line string) error {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return apperrors.New(apperrors.ErrMalformedValue, 0, "empty weight line")
	}
	name, ok := strings.CutSuffix(toks[0], "=")
	if !ok || name == "" {
		return apperrors.Newf(apperrors.ErrMalformedValue, 0, "weight line %q: expected \"<Name>=\" as first token", line)
	}

	start, num, err := ffs.ScoreRange(name)
	if err != nil {
		return fmt.Errorf("weight line %q: %w", line, err)
	}
	if len(toks)-1 != num {
		return &apperrors.CountMismatch{Name: name, Expected: num, Actual: len(toks) - 1}
	}
	if start+num > len(w.weights) {
		return apperrors.Newf(apperrors.ErrInternal, 0, "weight vector has %d slots, %s needs [%d,%d)", len(w.weights), name, start, start+num)
	}

	vals := make([]float64, num)
	for i, tok := range toks[1:] {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return apperrors.Newf(apperrors.ErrMalformedValue, 0, "weight %d of %s: %q is not a number", i, name, tok)
		}
		vals[i] = v
	}
	copy(w.weights[start:start+num], vals)
	return nil
}

func (w *Weights) Len() int { return len(w.weights) }

func (w *Weights) Get(i int) float64 { return w.weights[i] }

// Values returns the backing slice. Callers must not modify it.
func (w *Weights) Values() []float64 { return w.weights }

// Slice returns the weights of the range [start, start+num).
func (w *Weights) Slice(start, num int) []float64 {
	return w.weights[start : start+num]
}

// Debug writes every weight separated by spaces.
func (w *Weights) Debug(out io.Writer) {
	for _, v := range w.weights {
		fmt.Fprintf(out, "%g ", v)
	}
}
