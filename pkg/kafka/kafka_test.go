package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCarriesRequestID(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-1")
	msg, err := Message(ctx, Event{Key: "k", Value: map[string]int{"n": 1}})
	require.NoError(t, err)
	assert.Equal(t, "k", string(msg.Key))
	assert.JSONEq(t, `{"n":1}`, string(msg.Value))
	assert.Equal(t, "req-1", headerValue(msg.Headers, requestIDHeader))

	plain, err := Message(context.Background(), Event{Key: "k", Value: 1})
	require.NoError(t, err)
	assert.Empty(t, plain.Headers)
}

func TestMessageRejectsUnencodableValue(t *testing.T) {
	_, err := Message(context.Background(), Event{Value: make(chan int)})
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	type req struct {
		Source string `json:"source"`
	}
	got, err := DecodeJSON[req]([]byte(`{"source":"das haus"}`))
	require.NoError(t, err)
	assert.Equal(t, "das haus", got.Source)

	_, err = DecodeJSON[req]([]byte(`{`))
	assert.Error(t, err)
}

func TestHeaderValue(t *testing.T) {
	hs := []kafka.Header{{Key: "a", Value: []byte("1")}, {Key: requestIDHeader, Value: []byte("x")}}
	assert.Equal(t, "x", headerValue(hs, requestIDHeader))
	assert.Empty(t, headerValue(nil, requestIDHeader))
}

type fakeReader struct {
	msgs      []kafka.Message
	errs      []error
	committed []int64
	fetches   int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.fetches++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return kafka.Message{}, err
		}
	}
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumerSkipsFailedMessagesAndStopsOnEOF(t *testing.T) {
	r := &fakeReader{
		errs: []error{errors.New("broker unavailable"), nil, nil, nil},
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte("ok")},
			{Offset: 2, Value: []byte("bad")},
			{Offset: 3, Value: []byte("ok"), Headers: []kafka.Header{{Key: requestIDHeader, Value: []byte("req-3")}}},
		},
	}
	var ids []string
	c := &Consumer{
		reader:  r,
		logger:  slog.Default(),
		backoff: time.Millisecond,
		handler: func(ctx context.Context, _, value []byte) error {
			ids = append(ids, logger.RequestID(ctx))
			if string(value) == "bad" {
				return errors.New("handler failed")
			}
			return nil
		},
	}

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []int64{1, 3}, r.committed)
	assert.Equal(t, []string{"", "", "req-3"}, ids)
	assert.Equal(t, 5, r.fetches)
}

func TestConsumerStopsOnCancelDuringBackoff(t *testing.T) {
	r := &fakeReader{errs: []error{errors.New("broker unavailable")}}
	c := &Consumer{reader: r, logger: slog.Default(), backoff: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Equal(t, 1, r.fetches)
}
