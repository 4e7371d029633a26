package ff

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/errors"
)

// Base carries the identity and score range every feature function shares.
// Concrete kinds embed it and pass their default score count to NewBase;
// a num-features=N parameter overrides that default.
type Base struct {
	name       string
	line       string
	startIndex int
	numScores  int
	Args       Args
}

// NewBase parses line. The first token is the type tag and also the
// default name; name=X renames the function.
func NewBase(startIndex int, line string, defaultNumScores int) (Base, error) {
	toks := Tokenize(line)
	if len(toks) == 0 {
		return Base{}, apperrors.New(apperrors.ErrMalformedValue, 0, "empty feature line")
	}
	b := Base{
		name:       toks[0],
		line:       line,
		startIndex: startIndex,
		numScores:  defaultNumScores,
		Args:       make(Args, len(toks)-1),
	}
	for _, tok := range toks[1:] {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" {
			return Base{}, apperrors.Newf(apperrors.ErrMalformedValue, 0, "%s: parameter %q is not key=value", toks[0], tok)
		}
		b.Args[key] = value
	}
	if v, ok := b.Args["name"]; ok {
		if v == "" {
			return Base{}, apperrors.Newf(apperrors.ErrMalformedValue, 0, "%s: empty name", toks[0])
		}
		b.name = v
	}
	n, err := b.Args.Int("num-features", defaultNumScores)
	if err != nil {
		return Base{}, err
	}
	if n <= 0 {
		return Base{}, apperrors.Newf(apperrors.ErrMalformedValue, 0, "%s: num-features must be positive, got %d", b.name, n)
	}
	b.numScores = n
	return b, nil
}

func (b *Base) Name() string    { return b.name }
func (b *Base) Line() string    { return b.line }
func (b *Base) StartIndex() int { return b.startIndex }
func (b *Base) NumScores() int  { return b.numScores }

// Args are the key=value parameters of a feature line.
type Args map[string]string

func (a Args) String(key, def string) string {
	if v, ok := a[key]; ok {
		return v
	}
	return def
}

// Required returns the value of key or ErrMalformedValue when absent.
func (a Args) Required(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return "", apperrors.Newf(apperrors.ErrMalformedValue, 0, "missing required parameter %s=", key)
	}
	return v, nil
}

func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ErrMalformedValue, 0, "parameter %s=%q is not an integer", key, v)
	}
	return n, nil
}

func (a Args) Float(key string, def float64) (float64, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ErrMalformedValue, 0, "parameter %s=%q is not a number", key, v)
	}
	return f, nil
}

// ResolvePath joins relative model paths onto the data directory.
func (r *Resources) ResolvePath(path string) string {
	if r == nil || r.DataDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.DataDir, path)
}

// StatefulIndexed is embedded by stateful kinds to hold their dense index.
type StatefulIndexed struct {
	statefulIndex int
}

func (s *StatefulIndexed) SetStatefulIndex(i int) { s.statefulIndex = i }
func (s *StatefulIndexed) StatefulIndex() int     { return s.statefulIndex }

// TableIndexed is embedded by phrase tables to hold their dense index.
type TableIndexed struct {
	ptIndex int
}

func (t *TableIndexed) SetPhraseTableIndex(i int) { t.ptIndex = i }
func (t *TableIndexed) PhraseTableIndex() int     { return t.ptIndex }

// VocabSlot is embedded by vocab-indexed kinds to hold their dense index.
type VocabSlot struct {
	vocabIndex int
}

func (v *VocabSlot) HasVocabIndex() bool { return true }
func (v *VocabSlot) SetVocabIndex(i int) { v.vocabIndex = i }
func (v *VocabSlot) VocabIndex() int     { return v.vocabIndex }

// Describe formats a function's identity for logs and errors.
func Describe(f FeatureFunction) string {
	return fmt.Sprintf("%s[%d,%d)", f.Name(), f.StartIndex(), f.StartIndex()+f.NumScores())
}
