package kvstore

import (
	"context"
	"sync"
)

// fanout delivers changes to any number of watchers. Each watcher has its own
// unbounded queue drained by a goroutine, so a slow reader never blocks a
// writer and never loses a change.
type fanout struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
	closed   bool
}

type watcher struct {
	mu     sync.Mutex
	queue  []Change
	signal chan struct{}
	out    chan Change
}

func newFanout() *fanout {
	return &fanout{watchers: make(map[*watcher]struct{})}
}

func (f *fanout) watch(ctx context.Context) (<-chan Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	w := &watcher{signal: make(chan struct{}, 1), out: make(chan Change)}
	f.watchers[w] = struct{}{}
	go f.pump(ctx, w)
	return w.out, nil
}

func (f *fanout) pump(ctx context.Context, w *watcher) {
	defer func() {
		f.mu.Lock()
		delete(f.watchers, w)
		f.mu.Unlock()
		close(w.out)
	}()
	for {
		w.mu.Lock()
		var next *Change
		if len(w.queue) > 0 {
			c := w.queue[0]
			w.queue = w.queue[1:]
			next = &c
		}
		w.mu.Unlock()

		if next == nil {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-w.signal:
				if !ok {
					return
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case w.out <- *next:
		}
	}
}

func (f *fanout) publish(c Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for w := range f.watchers {
		w.mu.Lock()
		w.queue = append(w.queue, Change{Key: c.Key, Value: append([]byte(nil), c.Value...)})
		w.mu.Unlock()
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

func (f *fanout) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for w := range f.watchers {
		close(w.signal)
	}
}
