package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-storefront-api/internal/model"
)

type fakeAcknowledger struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error { a.acked++; return nil }

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

type fakeProcessedStore struct {
	keys      map[string]bool
	existsErr error
}

func (s *fakeProcessedStore) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if s.existsErr != nil {
		return redis.NewIntResult(0, s.existsErr)
	}
	var n int64
	for _, k := range keys {
		if s.keys[k] {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (s *fakeProcessedStore) Set(_ context.Context, key string, _ any, _ time.Duration) *redis.StatusCmd {
	s.keys[key] = true
	return redis.NewStatusResult("OK", nil)
}

type fakeInvalidator struct {
	invalidated []int
}

func (f *fakeInvalidator) InvalidateCache(_ context.Context, ids ...int) {
	f.invalidated = append(f.invalidated, ids...)
}

func newTestWorker() (*OrderWorker, *fakeProcessedStore, *fakeInvalidator) {
	store := &fakeProcessedStore{keys: make(map[string]bool)}
	cache := &fakeInvalidator{}
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewOrderWorker(nil, cache, store, log), store, cache
}

func delivery(t *testing.T, ack amqp.Acknowledger, msg any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestOrderWorker_InvalidatesProductCache(t *testing.T) {
	w, store, cache := newTestWorker()
	ack := &fakeAcknowledger{}

	w.processMessage(context.Background(), delivery(t, ack, model.OrderMessage{OrderID: 7, UserID: 1, ProductIDs: []int{17, 18}}))

	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, []int{17, 18}, cache.invalidated)
	assert.True(t, store.keys["order_processed:7"])
}

func TestOrderWorker_SkipsDuplicates(t *testing.T) {
	w, store, cache := newTestWorker()
	store.keys["order_processed:7"] = true
	ack := &fakeAcknowledger{}

	w.processMessage(context.Background(), delivery(t, ack, model.OrderMessage{OrderID: 7, ProductIDs: []int{17}}))

	assert.Equal(t, 1, ack.acked)
	assert.Empty(t, cache.invalidated)
}

func TestOrderWorker_MalformedMessageIsDeadLettered(t *testing.T) {
	w, _, cache := newTestWorker()
	ack := &fakeAcknowledger{}

	w.processMessage(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{not json")})

	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
	assert.Empty(t, cache.invalidated)
}

func TestOrderWorker_StoreFailureRequeuesOnce(t *testing.T) {
	w, store, _ := newTestWorker()
	store.existsErr = errors.New("redis down")
	msg := model.OrderMessage{OrderID: 7}

	first := &fakeAcknowledger{}
	w.processMessage(context.Background(), delivery(t, first, msg))
	assert.True(t, first.requeue)

	second := &fakeAcknowledger{}
	redelivered := delivery(t, second, msg)
	redelivered.Redelivered = true
	w.processMessage(context.Background(), redelivered)
	assert.Equal(t, 1, second.nacked)
	assert.False(t, second.requeue, "a redelivered message goes to the dead-letter queue")
}
