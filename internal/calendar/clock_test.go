package calendar

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	ready int
	dates []DateData
}

func (s *recordingSink) CalendarReady(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready++
	return nil
}

func (s *recordingSink) DateChanged(_ context.Context, d DateData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates = append(s.dates, d)
	return nil
}

func (s *recordingSink) snapshot() (int, []DateData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready, append([]DateData(nil), s.dates...)
}

func TestClock_AdvanceEmitsDateChanged(t *testing.T) {
	sink := &recordingSink{}
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	clock, err := NewClock(ClockOptions{Start: start, Step: 24 * time.Hour}, sink)
	require.NoError(t, err)
	defer func() { _ = clock.Stop() }()

	ctx := context.Background()
	require.NoError(t, clock.Start(ctx))
	require.NoError(t, clock.Start(ctx), "second start is a no-op")

	var advanced []int64
	clock.OnAdvance(func(ts int64) { advanced = append(advanced, ts) })

	require.NoError(t, clock.Advance(ctx, 24*time.Hour))

	ready, dates := sink.snapshot()
	require.Equal(t, 1, ready)
	require.Len(t, dates, 1)
	require.Equal(t, 5, *dates[0].Day)
	require.Equal(t, []int64{start.Add(24 * time.Hour).Unix()}, advanced)
}

func TestClock_SetTimestampIgnoresSameValue(t *testing.T) {
	sink := &recordingSink{}
	clock, err := NewClock(ClockOptions{}, sink)
	require.NoError(t, err)
	defer func() { _ = clock.Stop() }()

	ctx := context.Background()
	ts := clock.Timestamp()
	require.NoError(t, clock.SetTimestamp(ctx, ts))
	require.NoError(t, clock.SetTimestamp(ctx, ts+3600))

	_, dates := sink.snapshot()
	require.Len(t, dates, 1)
	require.Equal(t, ts+3600, clock.Timestamp())
}

func TestClock_TicksOnSchedule(t *testing.T) {
	sink := &recordingSink{}
	clock, err := NewClock(ClockOptions{Interval: 20 * time.Millisecond, Step: time.Hour}, sink)
	require.NoError(t, err)
	defer func() { _ = clock.Stop() }()

	require.NoError(t, clock.Start(context.Background()))

	require.Eventually(t, func() bool {
		_, dates := sink.snapshot()
		return len(dates) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}
