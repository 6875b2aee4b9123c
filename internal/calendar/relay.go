package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nats-io/nats.go"

	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
)

// Relay mirrors one process's clock onto the others over a NATS subject.
// The leading process publishes each advanced timestamp; followers apply it
// to their own clock, which then emits the date-changed signal locally.
type Relay struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
}

func NewRelay(conn *nats.Conn, subject string) *Relay {
	return &Relay{conn: conn, subject: subject}
}

// Lead publishes every local advance of clock.
func (r *Relay) Lead(clock *Clock) {
	clock.OnAdvance(func(ts int64) {
		if err := r.conn.Publish(r.subject, []byte(strconv.FormatInt(ts, 10))); err != nil {
			slog.Warn("Failed to relay calendar timestamp", "subject", r.subject, logfields.Error(err))
		}
	})
}

// Follow applies timestamps published by the leader to clock.
func (r *Relay) Follow(ctx context.Context, clock *Clock) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		ts, err := strconv.ParseInt(string(msg.Data), 10, 64)
		if err != nil {
			slog.Warn("Ignoring malformed calendar timestamp", "payload", string(msg.Data))
			return
		}
		if err := clock.SetTimestamp(ctx, ts); err != nil {
			slog.Warn("Failed to apply relayed timestamp", logfields.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.subject, err)
	}
	r.sub = sub
	return nil
}

func (r *Relay) Close() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Unsubscribe()
}
