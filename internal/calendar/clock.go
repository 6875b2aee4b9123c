package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
)

// Sink receives the calendar's outbound signals.
type Sink interface {
	CalendarReady(ctx context.Context) error
	DateChanged(ctx context.Context, date DateData) error
}

// ClockOptions configures a Clock.
type ClockOptions struct {
	// Start is the in-world time the clock begins at.
	Start time.Time
	// Interval is the real-time period between ticks. Zero disables ticking;
	// the clock then only moves through Advance or SetTimestamp.
	Interval time.Duration
	// Step is the in-world time added per tick.
	Step time.Duration
}

// Clock is a local calendar: it keeps an in-world timestamp, advances it on a
// gocron duration job and reports readiness and date changes to a Sink.
type Clock struct {
	mu        sync.Mutex
	ts        int64
	opts      ClockOptions
	sink      Sink
	scheduler gocron.Scheduler
	listeners []func(ts int64)
	started   bool
}

// NewClock creates a clock that has not started ticking yet.
func NewClock(opts ClockOptions, sink Sink) (*Clock, error) {
	if sink == nil {
		return nil, fmt.Errorf("calendar sink is required")
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	}
	if opts.Step <= 0 {
		opts.Step = time.Hour
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Clock{
		ts:        opts.Start.Unix(),
		opts:      opts,
		sink:      sink,
		scheduler: s,
	}, nil
}

// Start schedules the tick job (when an interval is configured), starts the
// scheduler and signals readiness.
func (c *Clock) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	if c.opts.Interval > 0 {
		_, err := c.scheduler.NewJob(
			gocron.DurationJob(c.opts.Interval),
			gocron.NewTask(c.tick, ctx),
			gocron.WithName("calendar-tick"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule calendar tick: %w", err)
		}
	}
	c.scheduler.Start()
	slog.Info("Calendar clock started",
		"start", c.TimestampToDate(c.Timestamp()).String(),
		"interval", c.opts.Interval,
		"step", c.opts.Step)

	return c.sink.CalendarReady(ctx)
}

// Stop shuts the scheduler down.
func (c *Clock) Stop() error {
	return c.scheduler.Shutdown()
}

func (c *Clock) tick(ctx context.Context) {
	if err := c.Advance(ctx, c.opts.Step); err != nil {
		slog.Warn("Calendar tick not delivered", logfields.Error(err))
	}
}

// OnAdvance registers fn to be called with the new timestamp after every
// local advance. SetTimestamp does not call it.
func (c *Clock) OnAdvance(fn func(ts int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Advance moves the clock forward by d and emits a date-changed signal.
func (c *Clock) Advance(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.ts += int64(d / time.Second)
	ts := c.ts
	listeners := append([]func(int64){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ts)
	}
	return c.sink.DateChanged(ctx, c.TimestampToDate(ts))
}

// SetTimestamp jumps to ts, as done when following another process's clock.
// Equal timestamps are ignored.
func (c *Clock) SetTimestamp(ctx context.Context, ts int64) error {
	c.mu.Lock()
	if c.ts == ts {
		c.mu.Unlock()
		return nil
	}
	c.ts = ts
	c.mu.Unlock()
	return c.sink.DateChanged(ctx, c.TimestampToDate(ts))
}

func (c *Clock) Timestamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ts
}

func (c *Clock) TimestampToDate(ts int64) DateData {
	return FromTime(time.Unix(ts, 0))
}
