// Package bus is an in-process, datagram-based publish/consume mechanism
// keyed by a named exchange. It generalizes the teacher's single-port
// SerialMux subscriber-channel pattern (subscribe returns an id + channel,
// unsubscribe closes it) to multiple named exchanges with many consumers
// per exchange.
package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Quit is the sentinel message that terminates a Consume loop cleanly when
// delivered to a consumer.
var Quit = []byte("QUIT")

// Bus is a process-wide registry of named exchanges. The zero value is not
// usable; construct with New.
type Bus struct {
	mu          sync.Mutex
	subscribers map[string]map[string]chan []byte
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string]map[string]chan []byte),
	}
}

// Publish delivers payload to every consumer currently registered on
// exchange. Delivery is best-effort: if an exchange has no consumers,
// Publish is a no-op, not an error. Ordering is preserved per-consumer
// because each consumer has its own buffered channel and Publish sends to
// all of them under the same lock, in map iteration order relative to a
// single call, but two different calls to Publish from different
// goroutines will be strictly ordered by whichever holds the lock first.
func (b *Bus) Publish(exchange string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers[exchange] {
		select {
		case ch <- payload:
		default:
			// Consumer isn't keeping up; best-effort delivery drops rather
			// than blocking the publisher or other consumers.
		}
	}
}

// subscribe registers a new consumer channel on exchange and returns its id
// for later Unsubscribe. The channel is buffered so a slow consumer doesn't
// stall Publish.
func (b *Bus) subscribe(exchange string) (string, chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[exchange] == nil {
		b.subscribers[exchange] = make(map[string]chan []byte)
	}
	id := uuid.NewString()
	ch := make(chan []byte, 64)
	b.subscribers[exchange][id] = ch
	return id, ch
}

// unsubscribe removes and closes a consumer channel.
func (b *Bus) unsubscribe(exchange, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subscribers[exchange]; ok {
		if ch, ok := subs[id]; ok {
			delete(subs, id)
			close(ch)
		}
	}
}

// Consume blocks, invoking callback once per message received on exchange,
// until the Quit sentinel is received or ctx is done. It is meant to be run
// on its own goroutine.
func (b *Bus) Consume(ctx context.Context, exchange string, callback func([]byte)) {
	id, ch := b.subscribe(exchange)
	defer b.unsubscribe(exchange, id)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if string(msg) == string(Quit) {
				return
			}
			callback(msg)
		}
	}
}
