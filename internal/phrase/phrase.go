// Package phrase defines source phrases and scored target phrases.
package phrase

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
)

// Word is a single surface token.
type Word struct {
	Text string
}

// Phrase is a sequence of words.
type Phrase []Word

// Parse splits text on whitespace.
func Parse(text string) Phrase {
	fields := strings.Fields(text)
	p := make(Phrase, len(fields))
	for i, f := range fields {
		p[i] = Word{Text: f}
	}
	return p
}

func (p Phrase) Len() int { return len(p) }

func (p Phrase) String() string {
	var b strings.Builder
	for i, w := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w.Text)
	}
	return b.String()
}

// Equal reports whether both phrases hold the same words.
func (p Phrase) Equal(other Phrase) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// TargetPhrase is a translation candidate for a source phrase. Its score
// container comes from the request arena that created it.
type TargetPhrase struct {
	Phrase
	Source    Phrase
	scores    *scores.Scores
	estimated float64
}

// NewTargetPhrase allocates a candidate with a numScores-wide container.
func NewTargetPhrase(pool *mempool.Pool, source, target Phrase, numScores int) *TargetPhrase {
	return &TargetPhrase{
		Phrase: target,
		Source: source,
		scores: scores.New(pool, numScores),
	}
}

func (tp *TargetPhrase) Scores() *scores.Scores { return tp.scores }

// EstimatedScore is the weighted look-ahead estimate set by isolation
// scoring.
func (tp *TargetPhrase) EstimatedScore() float64 { return tp.estimated }

func (tp *TargetPhrase) SetEstimatedScore(v float64) { tp.estimated = v }

// FutureScore is the weighted total plus the estimate; candidates are
// ranked by it.
func (tp *TargetPhrase) FutureScore() float64 {
	return tp.scores.Total() + tp.estimated
}
