package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// memStore is a minimal in-memory NonVolatileStore used by this
// package's own tests; mac and scheduler tests keep their own fakes.
type memStore struct {
	page  []byte
	empty bool
}

func newMemStore() *memStore { return &memStore{empty: true} }

func (s *memStore) Save(page []byte) error {
	s.page = append([]byte{}, page...)
	s.empty = false
	return nil
}

func (s *memStore) Load() ([]byte, error) {
	if s.empty {
		return nil, nil
	}
	return s.page, nil
}

func TestMemStoreRoundTrip(t *testing.T) {
	var store NonVolatileStore = newMemStore()

	err := store.Save([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	got, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got)
}

// memQueue is a minimal channel-backed PacketQueue.
type memQueue struct {
	ch chan Packet
}

func newMemQueue(capacity int) *memQueue {
	return &memQueue{ch: make(chan Packet, capacity)}
}

func (q *memQueue) Push(ctx context.Context, p Packet) error {
	select {
	case q.ch <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *memQueue) Next(ctx context.Context) (Packet, error) {
	select {
	case p := <-q.ch:
		return p, nil
	case <-ctx.Done():
		return Packet{}, ctx.Err()
	}
}

func (q *memQueue) Available() bool { return len(q.ch) > 0 }

func TestMemQueuePushNext(t *testing.T) {
	var q PacketQueue = newMemQueue(1)
	ctx := context.Background()

	require.False(t, q.Available())
	require.NoError(t, q.Push(ctx, Packet{Payload: []byte("hello"), FPort: 10}))
	require.True(t, q.Available())

	p, err := q.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), p.Payload)
	require.Equal(t, uint8(10), p.FPort)
}
