package skeleton

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatelessPlaceholder(t *testing.T) {
	f, err := NewStateless(5, "SomethingNew num-features=3 foo=bar")
	require.NoError(t, err)
	assert.Equal(t, "SomethingNew", f.Name())
	assert.Equal(t, 3, f.NumScores())
	assert.Equal(t, 5, f.StartIndex())
	assert.NoError(t, f.Load(context.Background(), nil))

	_, stateful := f.(ff.Stateful)
	_, pt := f.(ff.PhraseTable)
	_, vi := f.(ff.VocabIndexed)
	assert.False(t, stateful || pt || vi)
}
