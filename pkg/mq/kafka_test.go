package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestSendCopiesKeyValueAndHeaders(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w)

	err := p.Send(context.Background(), Message{
		Topic:   "pricing-events",
		Key:     "AAPL",
		Value:   []byte(`{"price":4.47}`),
		Headers: map[string]string{"event_type": "option.priced"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "pricing-events", w.msgs[0].Topic)
	assert.Equal(t, []byte("AAPL"), w.msgs[0].Key)
	require.Len(t, w.msgs[0].Headers, 1)
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)
}

func TestSendPropagatesWriterError(t *testing.T) {
	p := NewProducerWithWriter(&recordingWriter{err: errors.New("broker down")})
	assert.Error(t, p.SendMessage(context.Background(), "t", "k", map[string]int{"a": 1}))
	assert.NoError(t, p.Send(context.Background()))
}

func TestDeadLetterQueueWrapsOriginal(t *testing.T) {
	w := &recordingWriter{}
	dlq := NewDeadLetterQueue(NewProducerWithWriter(w), "pricing-events.dlq")

	require.NoError(t, dlq.Send(context.Background(),
		Message{Topic: "pricing-events", Key: "AAPL", Value: []byte(`{"x":1}`)}, errors.New("timeout")))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "pricing-events.dlq", w.msgs[0].Topic)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, "pricing-events", body["original_topic"])
	assert.Equal(t, "timeout", body["failure_error"])
	assert.Equal(t, map[string]any{"x": float64(1)}, body["original_value"])
}
