package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/platform/kafka/producer"
	dErrors "saldo/pkg/domain-errors"
	audit "saldo/pkg/platform/audit"
)

type recordingProducer struct {
	msgs []*producer.Message
	err  error
}

func (p *recordingProducer) Produce(_ context.Context, msg *producer.Message) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestStore_AppendPublishesJSON(t *testing.T) {
	p := &recordingProducer{}
	store := New(p, "saldo.audit")

	err := store.Append(context.Background(), audit.Event{
		Action:    audit.ActionQueryServed,
		Login:     "ana",
		Benefit:   "1234567890",
		RequestID: "req-1",
	})
	require.NoError(t, err)
	require.Len(t, p.msgs, 1)

	msg := p.msgs[0]
	assert.Equal(t, "saldo.audit", msg.Topic)
	assert.Equal(t, []byte("ana"), msg.Key)
	assert.Equal(t, "query_served", msg.Headers["action"])

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "1234567890", decoded.Benefit)
}

func TestStore_AppendWrapsProducerError(t *testing.T) {
	boom := errors.New("broker down")
	store := New(&recordingProducer{err: boom}, "saldo.audit")

	err := store.Append(context.Background(), audit.Event{Login: "ana"})

	assert.ErrorIs(t, err, boom)
}

func TestStore_ListRecentUnsupported(t *testing.T) {
	store := New(&recordingProducer{}, "saldo.audit")
	_, err := store.ListRecent(context.Background(), 10)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
