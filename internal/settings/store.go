package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/xdy-forks/foundry-simple-weather/internal/daemon/events"
	"github.com/xdy-forks/foundry-simple-weather/internal/kvstore"
	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
	"github.com/xdy-forks/foundry-simple-weather/internal/metrics"
	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

// Store reads and writes typed settings under one module namespace.
//
// World-scoped keys go to the world backend, which every process of a
// session shares; client-scoped keys go to the client backend. Once started,
// the store turns every observed write into an events.SettingChanged on the
// bus, the writer's own writes included.
type Store struct {
	moduleID string
	world    kvstore.Backend
	client   kvstore.Backend
	bus      *events.Bus
	recorder metrics.Recorder
	logger   *slog.Logger

	mu      sync.RWMutex
	defs    map[Key]Definition
	order   []Key
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithBus sets the bus that receives SettingChanged events.
func WithBus(bus *events.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

// WithClientBackend sets the backend for client-scoped keys. Without it the
// store keeps them in a private in-memory hub.
func WithClientBackend(b kvstore.Backend) Option {
	return func(s *Store) { s.client = b }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Store) { s.recorder = metrics.Or(r) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore returns a store for moduleID backed by world.
func NewStore(moduleID string, world kvstore.Backend, opts ...Option) *Store {
	s := &Store{
		moduleID: moduleID,
		world:    world,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		defs:     make(map[Key]Definition),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = kvstore.NewMemoryHub().Client(moduleID)
	}
	return s
}

// ModuleID returns the namespace of the store.
func (s *Store) ModuleID() string { return s.moduleID }

// FullyQualified returns the persisted key for key, "<moduleID>.<key>".
func (s *Store) FullyQualified(key Key) string {
	return s.moduleID + "." + string(key)
}

// Register declares a setting. Registering a key again replaces its
// definition.
func (s *Store) Register(def Definition) error {
	if def.Key == "" {
		return ErrInvalidDefinition.WithContext("reason", "empty key")
	}
	if def.Type < TypeBoolean || def.Type > TypeWindowPosition {
		return ErrInvalidDefinition.WithContext("key", string(def.Key)).WithContext("type", int(def.Type))
	}
	if _, err := encodeValue(def, def.Default); err != nil {
		return ErrInvalidDefinition.Wrap(err).WithContext("key", string(def.Key)).WithContext("reason", "default has the wrong type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.defs[def.Key]; exists {
		s.logger.Debug("Setting re-registered", logfields.SettingKey(string(def.Key)))
	} else {
		s.order = append(s.order, def.Key)
	}
	s.defs[def.Key] = def
	return nil
}

// RegisterAll registers every definition, stopping at the first error.
func (s *Store) RegisterAll(defs []Definition) error {
	for _, def := range defs {
		if err := s.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Registered reports whether key has been registered.
func (s *Store) Registered(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.defs[key]
	return ok
}

// Definitions returns the registered definitions in registration order.
func (s *Store) Definitions() []Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Definition, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.defs[k])
	}
	return out
}

// Definition returns the registered definition of key.
func (s *Store) Definition(key Key) (Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[key]
	if !ok {
		return Definition{}, ErrUnregisteredKey.WithContext("key", string(key))
	}
	return def, nil
}

func (s *Store) backend(def Definition) kvstore.Backend {
	if def.Scope == ScopeClient {
		return s.client
	}
	return s.world
}

// Get returns the value of key decoded into its declared type: bool, string,
// float64, *weather.Data or *WindowPosition. Keys never written return their
// default.
func (s *Store) Get(ctx context.Context, key Key) (any, error) {
	def, err := s.Definition(key)
	if err != nil {
		return nil, err
	}
	raw, ok, err := s.backend(def).Get(ctx, s.FullyQualified(key))
	if err != nil {
		return nil, err
	}
	if !ok {
		return defaultValue(def), nil
	}
	return decodeValue(def, raw)
}

// Set validates value against the declared type of key and persists it. It
// returns once the backend acknowledged the write.
func (s *Store) Set(ctx context.Context, key Key, value any) error {
	def, err := s.Definition(key)
	if err != nil {
		return err
	}
	encoded, err := encodeValue(def, value)
	if err != nil {
		return err
	}

	fq := s.FullyQualified(key)
	if err := s.backend(def).Put(ctx, fq, encoded); err != nil {
		s.recorder.IncSettingWrite(string(key), metrics.ResultFailed)
		s.logger.Warn("Setting write failed",
			logfields.SettingKey(fq),
			logfields.Scope(def.Scope.String()),
			logfields.Error(err))
		return err
	}
	s.recorder.IncSettingWrite(string(key), metrics.ResultSuccess)
	s.logger.Debug("Setting written", logfields.SettingKey(fq), logfields.Scope(def.Scope.String()))
	return nil
}

// Bool returns a boolean setting.
func (s *Store) Bool(ctx context.Context, key Key) (bool, error) {
	v, err := s.typed(ctx, key, TypeBoolean)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// String returns a string setting.
func (s *Store) String(ctx context.Context, key Key) (string, error) {
	v, err := s.typed(ctx, key, TypeString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Number returns a numeric setting.
func (s *Store) Number(ctx context.Context, key Key) (float64, error) {
	v, err := s.typed(ctx, key, TypeNumber)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// LastWeatherData returns the last generated weather, or nil when nothing
// has been generated yet.
func (s *Store) LastWeatherData(ctx context.Context) (*weather.Data, error) {
	v, err := s.typed(ctx, KeyLastWeatherData, TypeWeatherData)
	if err != nil {
		return nil, err
	}
	return v.(*weather.Data), nil
}

// SetLastWeatherData persists d; nil stores the empty sentinel.
func (s *Store) SetLastWeatherData(ctx context.Context, d *weather.Data) error {
	return s.Set(ctx, KeyLastWeatherData, d)
}

// WindowPosition returns this process's saved window position, or nil.
func (s *Store) WindowPosition(ctx context.Context) (*WindowPosition, error) {
	v, err := s.typed(ctx, KeyWindowPosition, TypeWindowPosition)
	if err != nil {
		return nil, err
	}
	return v.(*WindowPosition), nil
}

// SetWindowPosition persists pos; nil clears it.
func (s *Store) SetWindowPosition(ctx context.Context, pos *WindowPosition) error {
	return s.Set(ctx, KeyWindowPosition, pos)
}

func (s *Store) typed(ctx context.Context, key Key, want ValueType) (any, error) {
	def, err := s.Definition(key)
	if err != nil {
		return nil, err
	}
	if def.Type != want {
		return nil, ErrInvalidValue.
			WithContext("key", string(key)).
			WithContext("type", def.Type.String()).
			WithContext("requested", want.String())
	}
	return s.Get(ctx, key)
}

// Start begins watching the backends and publishing SettingChanged events.
// It is a no-op without a bus or when already started.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.bus == nil {
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	backends := []kvstore.Backend{s.world}
	if s.client != s.world {
		backends = append(backends, s.client)
	}
	for _, b := range backends {
		changes, err := b.Watch(watchCtx)
		if err != nil {
			cancel()
			return err
		}
		s.wg.Add(1)
		go s.forward(watchCtx, b.Name(), changes)
	}
	s.started = true
	s.cancel = cancel
	return nil
}

func (s *Store) forward(ctx context.Context, backend string, changes <-chan kvstore.Change) {
	defer s.wg.Done()
	prefix := s.moduleID + "."
	for change := range changes {
		if !strings.HasPrefix(change.Key, prefix) {
			continue
		}
		s.recorder.IncSettingChanged(change.Key)
		evt := events.SettingChanged{Key: change.Key, Value: json.RawMessage(change.Value)}
		if err := s.bus.Publish(ctx, evt); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("Dropped setting change",
				logfields.SettingKey(change.Key),
				logfields.Backend(backend),
				logfields.Error(err))
		}
	}
}

// Stop ends the watchers started by Start and waits for them.
func (s *Store) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.started = false
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func defaultValue(def Definition) any {
	switch def.Type {
	case TypeWeatherData:
		return (*weather.Data)(nil)
	case TypeWindowPosition:
		return (*WindowPosition)(nil)
	case TypeNumber:
		f, _ := toFloat(def.Default)
		return f
	default:
		return def.Default
	}
}

func decodeValue(def Definition, raw []byte) (any, error) {
	fail := func(err error) (any, error) {
		return nil, ErrDecode.Wrap(err).WithContext("key", string(def.Key)).WithContext("type", def.Type.String())
	}
	switch def.Type {
	case TypeBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return fail(err)
		}
		return b, nil
	case TypeString:
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return fail(err)
		}
		return str, nil
	case TypeNumber:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return fail(err)
		}
		return f, nil
	case TypeWeatherData:
		if IsEmpty(json.RawMessage(raw)) {
			return (*weather.Data)(nil), nil
		}
		var rec weather.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fail(err)
		}
		return weather.FromRecord(&rec), nil
	case TypeWindowPosition:
		if IsEmpty(json.RawMessage(raw)) {
			return (*WindowPosition)(nil), nil
		}
		var pos WindowPosition
		if err := json.Unmarshal(raw, &pos); err != nil {
			return fail(err)
		}
		return &pos, nil
	default:
		return fail(fmt.Errorf("unknown value type %d", def.Type))
	}
}

func encodeValue(def Definition, value any) ([]byte, error) {
	normalized, ok := normalize(def.Type, value)
	if !ok {
		return nil, ErrInvalidValue.
			WithContext("key", string(def.Key)).
			WithContext("type", def.Type.String()).
			WithContext("value_type", fmt.Sprintf("%T", value))
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, ErrInvalidValue.Wrap(err).WithContext("key", string(def.Key))
	}
	return encoded, nil
}

// normalize maps the Go values accepted for a value type onto the form that
// is persisted.
func normalize(t ValueType, value any) (any, bool) {
	switch t {
	case TypeBoolean:
		b, ok := value.(bool)
		return b, ok
	case TypeString:
		str, ok := value.(string)
		return str, ok
	case TypeNumber:
		return toFloat(value)
	case TypeWeatherData:
		switch v := value.(type) {
		case nil:
			return nil, true
		case *weather.Data:
			if v == nil {
				return nil, true
			}
			return v.Record(), true
		case weather.Record:
			return v, true
		case *weather.Record:
			if v == nil {
				return nil, true
			}
			return *v, true
		}
	case TypeWindowPosition:
		switch v := value.(type) {
		case nil:
			return nil, true
		case WindowPosition:
			return v, true
		case *WindowPosition:
			if v == nil {
				return nil, true
			}
			return *v, true
		}
	}
	return nil, false
}

func toFloat(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
