package display

import (
	"bytes"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
)

func TestLogDisplay(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	d := NewLogDisplay(fixedSource{w: sample()}, nil, logger)

	var rendered atomic.Int32
	d.OnRenderComplete(func() { rendered.Add(1) })

	ctx := t.Context()
	require.NoError(t, d.PushDate(ctx, calendar.NewDate(1492, 3, 5, 8, 0, 0)))
	require.NoError(t, d.ReloadWeather(ctx))

	assert.Contains(t, buf.String(), "Weather window date")
	assert.Contains(t, buf.String(), "68°F")
	require.Eventually(t, func() bool { return rendered.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMulti_RenderCallbackRunsOnce(t *testing.T) {
	a := NewLogDisplay(nil, nil, slog.New(slog.DiscardHandler))
	b := NewLogDisplay(nil, nil, slog.New(slog.DiscardHandler))
	m := Multi{a, b}

	var calls atomic.Int32
	m.OnRenderComplete(func() { calls.Add(1) })

	ctx := t.Context()
	require.NoError(t, m.PushWeather(ctx, nil))
	require.NoError(t, m.PushDate(ctx, calendar.NewDate(1, 1, 1, 0, 0, 0)))
	require.NoError(t, m.ReloadWeather(ctx))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
