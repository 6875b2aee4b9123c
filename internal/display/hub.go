package display

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xdy-forks/foundry-simple-weather/internal/authority"
	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
	"github.com/xdy-forks/foundry-simple-weather/internal/metrics"
	"github.com/xdy-forks/foundry-simple-weather/internal/settings"
	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	maxNotices     = 16
)

// Message types exchanged with viewers.
const (
	MsgDate          = "date"
	MsgWeather       = "weather"
	MsgNotify        = "notify"
	MsgChat          = "chat"
	MsgPosition      = "position"
	MsgResetPosition = "reset-position"

	MsgRendered = "rendered"
	MsgMoved    = "moved"
)

// Message is the JSON frame sent to viewers.
type Message struct {
	Type     string                   `json:"type"`
	Date     *calendar.DateData       `json:"date,omitempty"`
	Weather  *weather.Record          `json:"weather,omitempty"`
	Summary  string                   `json:"summary,omitempty"`
	Notice   string                   `json:"notice,omitempty"`
	Chat     *ChatMessage             `json:"chat,omitempty"`
	Position *settings.WindowPosition `json:"position,omitempty"`
}

// ViewerMessage is the JSON frame received from viewers.
type ViewerMessage struct {
	Type     string                   `json:"type"`
	Position *settings.WindowPosition `json:"position,omitempty"`
}

// PositionSource supplies the saved window position replayed to new viewers.
type PositionSource interface {
	WindowPosition(ctx context.Context) (*settings.WindowPosition, error)
}

// HubOptions configures a Hub. Every field is optional.
type HubOptions struct {
	Source    WeatherSource
	Positions PositionSource
	Celsius   func(ctx context.Context) bool
	// Authority decides whether this process belongs to the GM. Viewers of
	// a GM process receive whispers; nil means none do.
	Authority authority.Resolver
	// OnMoved receives window moves reported by viewers. It is called from
	// the viewer's read goroutine.
	OnMoved     func(pos settings.WindowPosition)
	CheckOrigin func(r *http.Request) bool
	Recorder    metrics.Recorder
	Logger      *slog.Logger
}

// Hub is a Display served to browser viewers over websockets. New viewers
// get the saved window position, pending notices and the last date and
// weather. It also carries notifications and chat messages.
type Hub struct {
	opts     HubOptions
	upgrader websocket.Upgrader
	recorder metrics.Recorder
	logger   *slog.Logger

	mu          sync.Mutex
	viewers     map[*viewer]struct{}
	lastDate    *calendar.DateData
	lastWeather *Message
	notices     []string
	rendered    bool
	onRender    []func()
	closed      bool
}

type viewer struct {
	conn *websocket.Conn
	mu   sync.Mutex
	done chan struct{}
}

// write sends a frame guarded by the viewer's mutex and write deadline.
func (v *viewer) write(data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return v.conn.WriteMessage(websocket.TextMessage, data)
}

func (v *viewer) ping() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func NewHub(opts HubOptions) *Hub {
	h := &Hub{
		opts:     opts,
		recorder: metrics.Or(opts.Recorder),
		logger:   opts.Logger,
		viewers:  make(map[*viewer]struct{}),
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     opts.CheckOrigin,
	}
	return h
}

// ServeHTTP upgrades the request and serves one viewer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "display hub closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Display upgrade failed", logfields.RemoteAddr(r.RemoteAddr), logfields.Error(err))
		return
	}
	v := &viewer{conn: conn, done: make(chan struct{})}

	var pos *settings.WindowPosition
	if h.opts.Positions != nil {
		if pos, err = h.opts.Positions.WindowPosition(r.Context()); err != nil {
			h.logger.Warn("Window position unavailable", logfields.Error(err))
		}
	}

	if err := h.attach(v, pos); err != nil {
		h.logger.Debug("Display replay failed", logfields.RemoteAddr(r.RemoteAddr), logfields.Error(err))
		h.detach(v)
		return
	}
	h.logger.Info("Display viewer connected", logfields.RemoteAddr(r.RemoteAddr))

	go h.pinger(v)
	h.readLoop(v)
	h.detach(v)
	h.logger.Info("Display viewer disconnected", logfields.RemoteAddr(r.RemoteAddr))
}

// attach registers v and replays the current state while holding the hub
// lock, so no broadcast can slip in between replay and registration.
func (h *Hub) attach(v *viewer, pos *settings.WindowPosition) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.viewers[v] = struct{}{}
	h.recorder.SetDisplayClients(len(h.viewers))

	var replay []Message
	if pos != nil {
		replay = append(replay, Message{Type: MsgPosition, Position: pos})
	}
	for _, n := range h.notices {
		replay = append(replay, Message{Type: MsgNotify, Notice: n})
	}
	if h.lastDate != nil {
		replay = append(replay, Message{Type: MsgDate, Date: h.lastDate})
	}
	if h.lastWeather != nil {
		replay = append(replay, *h.lastWeather)
	}
	for _, m := range replay {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		if err := v.write(data); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) detach(v *viewer) {
	h.mu.Lock()
	_, ok := h.viewers[v]
	delete(h.viewers, v)
	h.recorder.SetDisplayClients(len(h.viewers))
	h.mu.Unlock()
	if ok {
		close(v.done)
	}
	_ = v.conn.Close()
}

func (h *Hub) readLoop(v *viewer) {
	v.conn.SetReadLimit(maxMessageSize)
	_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			return
		}
		var in ViewerMessage
		if err := json.Unmarshal(data, &in); err != nil {
			h.logger.Debug("Ignoring malformed viewer message", logfields.Error(err))
			continue
		}
		switch in.Type {
		case MsgRendered:
			h.markRendered()
		case MsgMoved:
			if in.Position != nil && h.opts.OnMoved != nil {
				h.opts.OnMoved(*in.Position)
			}
		default:
			h.logger.Debug("Ignoring viewer message", slog.String("type", in.Type))
		}
	}
}

func (h *Hub) pinger(v *viewer) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-v.done:
			return
		case <-ticker.C:
			if err := v.ping(); err != nil {
				_ = v.conn.Close()
				return
			}
		}
	}
}

func (h *Hub) markRendered() {
	h.mu.Lock()
	if h.rendered {
		h.mu.Unlock()
		return
	}
	h.rendered = true
	fns := h.onRender
	h.onRender = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// broadcast sends m to every viewer. A gmOnly message is dropped unless this
// process is the GM's. Viewers that fail to receive are dropped.
func (h *Hub) broadcast(m Message, gmOnly bool) {
	if gmOnly && !h.isGM() {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		h.logger.Error("Encode display message", slog.String("type", m.Type), logfields.Error(err))
		return
	}
	h.mu.Lock()
	targets := make([]*viewer, 0, len(h.viewers))
	for v := range h.viewers {
		targets = append(targets, v)
	}
	h.mu.Unlock()

	for _, v := range targets {
		if err := v.write(data); err != nil {
			h.logger.Debug("Dropping display viewer", logfields.Error(err))
			_ = v.conn.Close()
		}
	}
	h.recorder.IncDisplayPush(m.Type)
}

func (h *Hub) isGM() bool {
	return h.opts.Authority != nil && h.opts.Authority.IsAuthoritative()
}

func (h *Hub) PushDate(_ context.Context, date calendar.DateData) error {
	d := date
	h.mu.Lock()
	h.lastDate = &d
	h.mu.Unlock()
	h.broadcast(Message{Type: MsgDate, Date: &d}, false)
	return nil
}

func (h *Hub) PushWeather(ctx context.Context, w *weather.Data) error {
	m := Message{Type: MsgWeather}
	if w != nil {
		rec := w.Record()
		m.Weather = &rec
		m.Summary = w.Summary(h.opts.Celsius != nil && h.opts.Celsius(ctx))
	}
	h.mu.Lock()
	h.lastWeather = &m
	h.mu.Unlock()
	h.broadcast(m, false)
	return nil
}

func (h *Hub) ReloadWeather(ctx context.Context) error {
	if h.opts.Source == nil {
		return nil
	}
	w, err := h.opts.Source.LastWeatherData(ctx)
	if err != nil {
		return err
	}
	return h.PushWeather(ctx, w)
}

func (h *Hub) OnRenderComplete(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rendered {
		go fn()
		return
	}
	h.onRender = append(h.onRender, fn)
}

// Error shows a user-visible error notification. Notices are kept and
// replayed to viewers that connect later.
func (h *Hub) Error(msg string) {
	h.logger.Error(msg)
	h.mu.Lock()
	h.notices = append(h.notices, msg)
	if len(h.notices) > maxNotices {
		h.notices = h.notices[len(h.notices)-maxNotices:]
	}
	h.mu.Unlock()
	h.broadcast(Message{Type: MsgNotify, Notice: msg}, false)
}

// Post sends a chat message. Whispers reach viewers only when this process
// is the GM's.
func (h *Hub) Post(_ context.Context, msg ChatMessage) error {
	m := msg
	h.broadcast(Message{Type: MsgChat, Chat: &m}, msg.Whisper)
	return nil
}

// ResetPosition tells viewers to return the window to its default place.
func (h *Hub) ResetPosition() {
	h.broadcast(Message{Type: MsgResetPosition}, false)
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// Close disconnects every viewer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	viewers := make([]*viewer, 0, len(h.viewers))
	for v := range h.viewers {
		viewers = append(viewers, v)
	}
	h.mu.Unlock()
	for _, v := range viewers {
		_ = v.conn.Close()
	}
}
