package kvstore

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
)

// NATSBackend stores values in a JetStream key-value bucket shared by every
// connected process. Watch reports writes from all of them.
type NATSBackend struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	kv     jetstream.KeyValue
	bucket string

	mu      sync.Mutex
	cancels []context.CancelFunc
	closed  bool
}

// NewNATSBackend connects to url and opens bucket, creating it if missing.
func NewNATSBackend(url, bucket string) (*NATSBackend, error) {
	conn, err := nats.Connect(url, nats.Name("simple-weather"))
	if err != nil {
		return nil, ErrOpenFailed.Wrap(err).WithContext("url", url)
	}
	b, err := NewNATSBackendWithConn(conn, bucket)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

// NewNATSBackendWithConn opens bucket over an existing connection.
// The backend takes ownership of conn.
func NewNATSBackendWithConn(conn *nats.Conn, bucket string) (*NATSBackend, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, ErrOpenFailed.Wrap(err).WithContext("bucket", bucket)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Simple Weather settings",
			History:     1,
		})
		if err != nil {
			return nil, ErrOpenFailed.Wrap(err).WithContext("bucket", bucket)
		}
		slog.Info("Created settings bucket", logfields.Bucket(bucket))
	}

	return &NATSBackend{conn: conn, js: js, kv: kv, bucket: bucket}, nil
}

func (b *NATSBackend) Name() string { return "nats" }

func (b *NATSBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := b.kv.Get(ctx, key)
	if stderrors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ErrGetFailed.Wrap(err).WithContext("key", key)
	}
	return entry.Value(), true, nil
}

func (b *NATSBackend) Put(ctx context.Context, key string, value []byte) error {
	if _, err := b.kv.Put(ctx, key, value); err != nil {
		return ErrPutFailed.Wrap(err).WithContext("key", key)
	}
	return nil
}

// Watch streams puts made after the call by any process sharing the bucket.
func (b *NATSBackend) Watch(ctx context.Context) (<-chan Change, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	wctx, cancel := context.WithCancel(ctx)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	watcher, err := b.kv.WatchAll(wctx, jetstream.UpdatesOnly())
	if err != nil {
		cancel()
		return nil, ErrWatchFailed.Wrap(err).WithContext("bucket", b.bucket)
	}

	out := make(chan Change, 16)
	go func() {
		defer close(out)
		defer func() { _ = watcher.Stop() }()
		for {
			select {
			case <-wctx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				if entry == nil || entry.Operation() != jetstream.KeyValuePut {
					continue
				}
				select {
				case out <- Change{Key: entry.Key(), Value: entry.Value()}:
				case <-wctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *NATSBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, cancel := range b.cancels {
		cancel()
	}
	b.conn.Close()
	return nil
}
