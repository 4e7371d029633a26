package tracing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "load", "")
	require.NotEmpty(t, root.TraceID)

	_, a := StartChildSpan(ctx, "phase1")
	a.SetAttr("feature", "WordPenalty")
	a.End()
	_, b := StartChildSpan(ctx, "phase2")
	b.SetError(errors.New("boom"))
	b.End()
	root.End()

	assert.Equal(t, root, SpanFromContext(ctx))
	var names []string
	var depths []int
	root.Walk(func(s *Span, depth int) {
		names = append(names, s.Name)
		depths = append(depths, depth)
		assert.Equal(t, root.TraceID, s.TraceID)
	})
	assert.Equal(t, []string{"load", "phase1", "phase2"}, names)
	assert.Equal(t, []int{0, 1, 1}, depths)

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, nil)))
	assert.Contains(t, buf.String(), "feature=WordPenalty")
	assert.Contains(t, buf.String(), "error=boom")
}

func TestChildWithoutParentStartsRoot(t *testing.T) {
	ctx, s := StartChildSpan(context.Background(), "orphan")
	assert.NotEmpty(t, s.TraceID)
	assert.Equal(t, s, SpanFromContext(ctx))
	assert.Nil(t, SpanFromContext(context.Background()))
}
