package kvstore

import (
	"context"
	"sync"
)

// MemoryHub is an in-memory store shared by any number of clients. Every
// client sees every other client's writes through Watch, which makes a hub
// behave like the shared session store for processes simulated in one binary.
type MemoryHub struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes []Write
	putErr error
	fan    *fanout
}

// Write records one acknowledged Put, for assertions on who wrote what.
type Write struct {
	ClientID string
	Key      string
	Value    []byte
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{data: make(map[string][]byte), fan: newFanout()}
}

// Client returns a backend that writes as clientID.
func (h *MemoryHub) Client(clientID string) Backend {
	return &memoryClient{hub: h, clientID: clientID}
}

// Writes returns the acknowledged writes in order.
func (h *MemoryHub) Writes() []Write {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Write(nil), h.writes...)
}

// WritesTo returns the acknowledged writes to key.
func (h *MemoryHub) WritesTo(key string) []Write {
	var out []Write
	for _, w := range h.Writes() {
		if w.Key == key {
			out = append(out, w)
		}
	}
	return out
}

// FailPuts makes every following Put return err until called with nil.
func (h *MemoryHub) FailPuts(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.putErr = err
}

// Close stops every watcher of every client.
func (h *MemoryHub) Close() {
	h.fan.close()
}

type memoryClient struct {
	hub      *MemoryHub
	clientID string
}

func (c *memoryClient) Name() string { return "memory" }

func (c *memoryClient) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	v, ok := c.hub.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (c *memoryClient) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return ErrPutFailed.Wrap(err).WithContext("key", key)
	}
	c.hub.mu.Lock()
	if c.hub.putErr != nil {
		err := c.hub.putErr
		c.hub.mu.Unlock()
		return ErrPutFailed.Wrap(err).WithContext("key", key)
	}
	stored := append([]byte(nil), value...)
	c.hub.data[key] = stored
	c.hub.writes = append(c.hub.writes, Write{ClientID: c.clientID, Key: key, Value: stored})
	c.hub.mu.Unlock()

	c.hub.fan.publish(Change{Key: key, Value: stored})
	return nil
}

func (c *memoryClient) Watch(ctx context.Context) (<-chan Change, error) {
	return c.hub.fan.watch(ctx)
}

// Close is a no-op; the hub outlives its clients.
func (c *memoryClient) Close() error { return nil }
