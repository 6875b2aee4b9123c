package daemon

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdy-forks/foundry-simple-weather/internal/config"
	"github.com/xdy-forks/foundry-simple-weather/internal/display"
	"github.com/xdy-forks/foundry-simple-weather/internal/daemon/events"
	"github.com/xdy-forks/foundry-simple-weather/internal/kvstore"
	"github.com/xdy-forks/foundry-simple-weather/internal/settings"
	"github.com/xdy-forks/foundry-simple-weather/internal/synchronizer"
	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type recordingChat struct {
	mu   sync.Mutex
	msgs []display.ChatMessage
}

func (c *recordingChat) Post(_ context.Context, msg display.ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingChat) Messages() []display.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]display.ChatMessage(nil), c.msgs...)
}

type countingGenerator struct {
	calls atomic.Int32
	inner weather.Generator
}

func (g *countingGenerator) Generate(ctx context.Context, in weather.Input) (*weather.Data, error) {
	g.calls.Add(1)
	return g.inner.Generate(ctx, in)
}

func testConfig(t *testing.T, role, calendarVersion string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Session:  config.SessionConfig{Role: role},
		Calendar: config.CalendarConfig{Start: "1492-03-01T08:00:00Z"},
	}
	if calendarVersion != "" {
		cfg.Dependencies = map[string]string{config.DefaultCalendarDependency: calendarVersion}
	}
	require.NoError(t, config.NewDefaultApplier().ApplyDefaults(cfg))
	cfg.Display.Listen = ""
	return cfg
}

type harness struct {
	daemon   *Daemon
	notifier *recordingNotifier
	chat     *recordingChat
	gen      *countingGenerator
}

func startDaemon(t *testing.T, cfg *config.Config, world kvstore.Backend) *harness {
	t.Helper()
	h := &harness{
		notifier: &recordingNotifier{},
		chat:     &recordingChat{},
		gen:      &countingGenerator{inner: weather.NewStubGenerator(3)},
	}
	d, err := NewDaemon(cfg, Options{
		World:     world,
		Generator: h.gen,
		Notifier:  h.notifier,
		Chat:      h.chat,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	h.daemon = d

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), waitFor)
		defer stopCancel()
		assert.NoError(t, d.Stop(stopCtx))
		cancel()
		assert.NoError(t, <-done)
	})
	return h
}

func (h *harness) waitReady(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.daemon.Synchronizer().State() == synchronizer.Ready
	}, waitFor, tick)
}

func TestDaemon_GMColdStartAndDayChange(t *testing.T) {
	hub := kvstore.NewMemoryHub()
	gm := startDaemon(t, testConfig(t, "gm", "2.4.18"), hub.Client("gm"))
	observer := startDaemon(t, testConfig(t, "observer", "2.4.18"), hub.Client("observer"))
	gm.waitReady(t)
	observer.waitReady(t)

	weatherKey := gm.daemon.Settings().FullyQualified(settings.KeyLastWeatherData)
	assert.Empty(t, hub.WritesTo(weatherKey), "cold start must not write")

	require.NoError(t, gm.daemon.Clock().Advance(t.Context(), 4*24*time.Hour))

	require.Eventually(t, func() bool {
		return observer.daemon.Synchronizer().Current() != nil
	}, waitFor, tick)

	writes := hub.WritesTo(weatherKey)
	require.Len(t, writes, 1)
	assert.Equal(t, "gm", writes[0].ClientID)
	assert.EqualValues(t, 1, gm.gen.calls.Load())
	assert.EqualValues(t, 0, observer.gen.calls.Load())

	current := gm.daemon.Synchronizer().Current()
	require.NotNil(t, current)
	assert.Equal(t, 5, *current.Date().Day)
	assert.Equal(t, current.Record(), observer.daemon.Synchronizer().Current().Record())
}

func TestDaemon_SameDayAdvanceDoesNotRegenerate(t *testing.T) {
	hub := kvstore.NewMemoryHub()
	gm := startDaemon(t, testConfig(t, "gm", "2.4.0"), hub.Client("gm"))
	gm.waitReady(t)

	require.NoError(t, gm.daemon.Clock().Advance(t.Context(), 24*time.Hour))
	require.Eventually(t, func() bool { return gm.gen.calls.Load() == 1 }, waitFor, tick)

	require.NoError(t, gm.daemon.Clock().Advance(t.Context(), time.Hour))
	require.Eventually(t, func() bool {
		d := gm.daemon.Synchronizer().LastDate()
		return d != nil && *d.Day == 2
	}, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, gm.gen.calls.Load())
}

func TestDaemon_VersionGateFailureDisablesModule(t *testing.T) {
	hub := kvstore.NewMemoryHub()
	h := startDaemon(t, testConfig(t, "gm", "1.9.0"), hub.Client("gm"))

	require.Eventually(t, func() bool {
		return h.daemon.GetStatus() == StatusDisabled
	}, waitFor, tick)

	msgs := h.notifier.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "2.4.0")
	assert.Contains(t, msgs[1], "1.9.0")

	for _, def := range settings.Definitions() {
		assert.False(t, h.daemon.Settings().Registered(def.Key), def.Key)
	}
	assert.Zero(t, h.daemon.Hooks().Total())
	assert.False(t, h.daemon.Gate().Passed)
	assert.Equal(t, synchronizer.Uninitialized, h.daemon.Synchronizer().State())
	assert.Empty(t, hub.Writes())
}

func TestDaemon_MissingCalendarDisablesModule(t *testing.T) {
	h := startDaemon(t, testConfig(t, "gm", ""), kvstore.NewMemoryHub().Client("gm"))

	require.Eventually(t, func() bool {
		return len(h.notifier.Messages()) == 2
	}, waitFor, tick)
	assert.Contains(t, h.notifier.Messages()[1], "none")
}

func TestDaemon_WindowPositionMoveAndReset(t *testing.T) {
	h := startDaemon(t, testConfig(t, "gm", "2.4.18"), kvstore.NewMemoryHub().Client("gm"))
	h.waitReady(t)
	store := h.daemon.Settings()

	width := 320.0
	h.daemon.publishMove(settings.WindowPosition{Top: 10, Left: 20, Width: &width})
	require.Eventually(t, func() bool {
		pos, err := store.WindowPosition(t.Context())
		return err == nil && pos != nil && pos.Left == 20
	}, waitFor, tick)

	require.NoError(t, h.daemon.Bus().Publish(t.Context(), events.ResetPosition{}))
	require.Eventually(t, func() bool {
		pos, err := store.WindowPosition(t.Context())
		return err == nil && pos == nil
	}, waitFor, tick)
}

func TestDaemon_ReloadConfigChangesRole(t *testing.T) {
	cfg := testConfig(t, "observer", "2.4.18")
	h := startDaemon(t, cfg, kvstore.NewMemoryHub().Client("p1"))
	h.waitReady(t)
	require.False(t, h.daemon.Session().IsAuthoritative())

	next := *cfg
	next.Session.Role = "gm"
	require.NoError(t, h.daemon.ReloadConfig(t.Context(), &next))

	require.Eventually(t, func() bool {
		return h.daemon.Session().IsAuthoritative()
	}, waitFor, tick)
}

func TestHTTPServer_StatusAndReset(t *testing.T) {
	cfg := testConfig(t, "gm", "2.4.18")
	cfg.Metrics.Enabled = true
	h := startDaemon(t, cfg, kvstore.NewMemoryHub().Client("gm"))
	h.waitReady(t)

	srv := httptest.NewServer(NewHTTPServer(cfg, h.daemon).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "gm", status.Role)
	assert.Equal(t, "ready", status.State)
	assert.True(t, status.GatePassed)

	get, err := http.Get(srv.URL + "/reset-position")
	require.NoError(t, err)
	get.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, get.StatusCode)

	post, err := http.Post(srv.URL+"/reset-position", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusAccepted, post.StatusCode)

	m, err := http.Get(srv.URL + cfg.Metrics.Path)
	require.NoError(t, err)
	m.Body.Close()
	assert.Equal(t, http.StatusOK, m.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	assert.Nil(t, originChecker(nil))

	check := originChecker([]string{"https://vtt.example.com/"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://vtt.example.com")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}

func dialHub(t *testing.T, hub *display.Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?role=gm", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// chatFrames collects the chat texts a viewer receives within d.
func chatFrames(t *testing.T, conn *websocket.Conn, d time.Duration) []string {
	t.Helper()
	var texts []string
	deadline := time.Now().Add(d)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var m display.Message
		if err := conn.ReadJSON(&m); err != nil {
			return texts
		}
		if m.Type == display.MsgChat && m.Chat != nil {
			texts = append(texts, m.Chat.Text)
		}
	}
}

func TestDaemon_PublicWeatherReportReachesEveryProcess(t *testing.T) {
	hub := kvstore.NewMemoryHub()
	gm := startDaemon(t, testConfig(t, "gm", "2.4.18"), hub.Client("gm"))
	observer := startDaemon(t, testConfig(t, "observer", "2.4.18"), hub.Client("observer"))
	gm.waitReady(t)
	observer.waitReady(t)

	require.NoError(t, gm.daemon.Clock().Advance(t.Context(), 24*time.Hour))

	require.Eventually(t, func() bool {
		return len(observer.chat.Messages()) == 1 && len(gm.chat.Messages()) == 1
	}, waitFor, tick)
	gmMsgs := gm.chat.Messages()
	require.Len(t, gmMsgs, 1)
	assert.False(t, gmMsgs[0].Whisper)
	assert.Equal(t, gmMsgs[0].Text, observer.chat.Messages()[0].Text)
	assert.EqualValues(t, 0, observer.gen.calls.Load())
}

func TestDaemon_WhisperedReportStaysWithGM(t *testing.T) {
	hub := kvstore.NewMemoryHub()
	gm := startDaemon(t, testConfig(t, "gm", "2.4.18"), hub.Client("gm"))
	observer := startDaemon(t, testConfig(t, "observer", "2.4.18"), hub.Client("observer"))
	gm.waitReady(t)
	observer.waitReady(t)
	require.NoError(t, gm.daemon.Settings().Set(t.Context(), settings.KeyPublicChat, false))

	gmViewer := dialHub(t, gm.daemon.Hub())
	observerViewer := dialHub(t, observer.daemon.Hub())
	require.Eventually(t, func() bool {
		return gm.daemon.Hub().Viewers() == 1 && observer.daemon.Hub().Viewers() == 1
	}, waitFor, tick)

	require.NoError(t, gm.daemon.Clock().Advance(t.Context(), 24*time.Hour))
	require.Eventually(t, func() bool {
		return observer.daemon.Synchronizer().Current() != nil && len(gm.chat.Messages()) == 1
	}, waitFor, tick)

	gmMsgs := gm.chat.Messages()
	require.Len(t, gmMsgs, 1)
	assert.True(t, gmMsgs[0].Whisper)
	assert.Empty(t, observer.chat.Messages())

	assert.Equal(t, []string{gmMsgs[0].Text}, chatFrames(t, gmViewer, 300*time.Millisecond))
	assert.Empty(t, chatFrames(t, observerViewer, 300*time.Millisecond))
}
