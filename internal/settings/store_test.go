package settings

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
	"github.com/xdy-forks/foundry-simple-weather/internal/daemon/events"
	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
	"github.com/xdy-forks/foundry-simple-weather/internal/kvstore"
	"github.com/xdy-forks/foundry-simple-weather/internal/weather"
)

const testModule = "simple-weather"

func newRegisteredStore(t *testing.T, backend kvstore.Backend, opts ...Option) *Store {
	t.Helper()
	s := NewStore(testModule, backend, opts...)
	require.NoError(t, s.RegisterAll(Definitions()))
	return s
}

func sampleWeather() *weather.Data {
	return weather.New(calendar.NewDate(1492, 3, 5, 8, 0, 0), weather.Summer, weather.Modest, weather.Temperate, 11, 71.5)
}

func TestStore_RoundTripPerKey(t *testing.T) {
	ctx := t.Context()
	s := newRegisteredStore(t, kvstore.NewMemoryHub().Client("gm"))

	width := 320.0
	cases := []struct {
		key   Key
		value any
		want  any
	}{
		{KeyDialogDisplay, false, false},
		{KeyOutputWeatherToChat, false, false},
		{KeyPublicChat, false, false},
		{KeyUseCelsius, true, true},
		{KeySeason, "summer", "summer"},
		{KeyBiome, "tundra", "tundra"},
		{KeyClimate, weather.Hot, 2.0},
		{KeyHumidity, 1, 1.0},
		{KeyWindowPosition, WindowPosition{Top: 10, Left: 20, Width: &width}, &WindowPosition{Top: 10, Left: 20, Width: &width}},
	}
	for _, tc := range cases {
		t.Run(string(tc.key), func(t *testing.T) {
			require.NoError(t, s.Set(ctx, tc.key, tc.value))
			got, err := s.Get(ctx, tc.key)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run(string(KeyLastWeatherData), func(t *testing.T) {
		want := sampleWeather()
		require.NoError(t, s.SetLastWeatherData(ctx, want))
		got, err := s.LastWeatherData(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.Record(), got.Record())
		assert.NotSame(t, want, got)
	})
}

func TestStore_Defaults(t *testing.T) {
	ctx := t.Context()
	s := newRegisteredStore(t, kvstore.NewMemoryHub().Client("gm"))

	dialog, err := s.Bool(ctx, KeyDialogDisplay)
	require.NoError(t, err)
	assert.True(t, dialog)

	celsius, err := s.Bool(ctx, KeyUseCelsius)
	require.NoError(t, err)
	assert.False(t, celsius)

	season, err := s.String(ctx, KeySeason)
	require.NoError(t, err)
	assert.Empty(t, season)

	climate, err := s.Number(ctx, KeyClimate)
	require.NoError(t, err)
	assert.Zero(t, climate)

	last, err := s.LastWeatherData(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	pos, err := s.WindowPosition(ctx)
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestStore_LastWeatherDataEmptyRecords(t *testing.T) {
	ctx := t.Context()
	hub := kvstore.NewMemoryHub()
	s := newRegisteredStore(t, hub.Client("gm"))
	raw := hub.Client("raw")

	for _, stored := range []string{`null`, `{}`, ` `} {
		require.NoError(t, raw.Put(ctx, s.FullyQualified(KeyLastWeatherData), []byte(stored)))
		got, err := s.LastWeatherData(ctx)
		require.NoError(t, err, stored)
		assert.Nil(t, got, stored)
	}

	require.NoError(t, raw.Put(ctx, s.FullyQualified(KeyLastWeatherData), []byte(`{"temperature":50}`)))
	got, err := s.LastWeatherData(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 50, got.Temperature(), 0)
}

func TestStore_SetNilClearsWeather(t *testing.T) {
	ctx := t.Context()
	s := newRegisteredStore(t, kvstore.NewMemoryHub().Client("gm"))

	require.NoError(t, s.SetLastWeatherData(ctx, sampleWeather()))
	require.NoError(t, s.SetLastWeatherData(ctx, nil))

	got, err := s.LastWeatherData(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_UnregisteredKeyIsFatal(t *testing.T) {
	ctx := t.Context()
	s := NewStore(testModule, kvstore.NewMemoryHub().Client("gm"))

	_, err := s.Get(ctx, KeyDialogDisplay)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnregisteredKey)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.True(t, ce.IsFatal())
	assert.Equal(t, errors.CategorySettings, ce.Category())

	err = s.Set(ctx, KeyDialogDisplay, true)
	assert.ErrorIs(t, err, ErrUnregisteredKey)
}

func TestStore_SetRejectsWrongType(t *testing.T) {
	ctx := t.Context()
	hub := kvstore.NewMemoryHub()
	s := newRegisteredStore(t, hub.Client("gm"))

	cases := []struct {
		key   Key
		value any
	}{
		{KeyDialogDisplay, "yes"},
		{KeySeason, 3},
		{KeyClimate, "hot"},
		{KeyLastWeatherData, "sunny"},
		{KeyWindowPosition, 42},
	}
	for _, tc := range cases {
		err := s.Set(ctx, tc.key, tc.value)
		require.Error(t, err, tc.key)
		assert.ErrorIs(t, err, ErrInvalidValue)
		assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	}
	assert.Empty(t, hub.Writes())
}

func TestStore_GetSurfacesDecodeErrors(t *testing.T) {
	ctx := t.Context()
	hub := kvstore.NewMemoryHub()
	s := newRegisteredStore(t, hub.Client("gm"))

	require.NoError(t, hub.Client("raw").Put(ctx, s.FullyQualified(KeyUseCelsius), []byte(`"maybe"`)))
	_, err := s.Bool(ctx, KeyUseCelsius)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestStore_AccessorTypeMismatch(t *testing.T) {
	s := newRegisteredStore(t, kvstore.NewMemoryHub().Client("gm"))
	_, err := s.Bool(t.Context(), KeySeason)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestStore_ReRegisterIsIdempotent(t *testing.T) {
	s := newRegisteredStore(t, kvstore.NewMemoryHub().Client("gm"))
	require.NoError(t, s.RegisterAll(Definitions()))
	assert.Len(t, s.Definitions(), len(Definitions()))
}

func TestStore_RegisterRejectsBadDefault(t *testing.T) {
	s := NewStore(testModule, kvstore.NewMemoryHub().Client("gm"))
	err := s.Register(Definition{Key: "broken", Type: TypeBoolean, Default: "true"})
	assert.ErrorIs(t, err, ErrInvalidDefinition)
	assert.False(t, s.Registered("broken"))
}

func TestStore_FailedWriteKeepsLastValue(t *testing.T) {
	ctx := t.Context()
	hub := kvstore.NewMemoryHub()
	s := newRegisteredStore(t, hub.Client("gm"))

	first := sampleWeather()
	require.NoError(t, s.SetLastWeatherData(ctx, first))

	hub.FailPuts(stderrors.New("unavailable"))
	err := s.SetLastWeatherData(ctx, weather.New(calendar.NewDate(1492, 3, 6, 0, 0, 0), weather.Summer, weather.Modest, weather.Hot, 3, 90))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryStore))
	hub.FailPuts(nil)

	got, err := s.LastWeatherData(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Record(), got.Record())
}

func TestStore_ClientScopeStaysLocal(t *testing.T) {
	ctx := t.Context()
	hub := kvstore.NewMemoryHub()
	gm := newRegisteredStore(t, hub.Client("gm"))
	player := newRegisteredStore(t, hub.Client("player"))

	require.NoError(t, gm.SetWindowPosition(ctx, &WindowPosition{Top: 1, Left: 2}))
	require.NoError(t, gm.Set(ctx, KeyUseCelsius, true))

	pos, err := player.WindowPosition(ctx)
	require.NoError(t, err)
	assert.Nil(t, pos)

	celsius, err := player.Bool(ctx, KeyUseCelsius)
	require.NoError(t, err)
	assert.True(t, celsius)
}

func nextSettingChanged(t *testing.T, ch <-chan events.SettingChanged) events.SettingChanged {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("no SettingChanged received")
		return events.SettingChanged{}
	}
}

func TestStore_StartPublishesChangesToEveryProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	hub := kvstore.NewMemoryHub()

	gmBus, playerBus := events.NewBus(), events.NewBus()
	defer gmBus.Close()
	defer playerBus.Close()
	gmCh, gmUnsub := events.Subscribe[events.SettingChanged](gmBus, 8)
	defer gmUnsub()
	playerCh, playerUnsub := events.Subscribe[events.SettingChanged](playerBus, 8)
	defer playerUnsub()

	gm := newRegisteredStore(t, hub.Client("gm"), WithBus(gmBus))
	player := newRegisteredStore(t, hub.Client("player"), WithBus(playerBus))
	require.NoError(t, gm.Start(ctx))
	require.NoError(t, player.Start(ctx))
	defer gm.Stop()
	defer player.Stop()

	require.NoError(t, gm.SetLastWeatherData(ctx, sampleWeather()))

	for _, ch := range []<-chan events.SettingChanged{gmCh, playerCh} {
		evt := nextSettingChanged(t, ch)
		assert.Equal(t, "simple-weather.lastWeatherData", evt.Key)
		var rec weather.Record
		require.NoError(t, json.Unmarshal(evt.Value, &rec))
		assert.Equal(t, sampleWeather().Record(), rec)
	}
}

func TestStore_StartIgnoresForeignNamespaces(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	hub := kvstore.NewMemoryHub()
	bus := events.NewBus()
	defer bus.Close()
	ch, unsub := events.Subscribe[events.SettingChanged](bus, 8)
	defer unsub()

	s := newRegisteredStore(t, hub.Client("gm"), WithBus(bus))
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	require.NoError(t, hub.Client("other").Put(ctx, "other-module.lastWeatherData", []byte(`{}`)))
	require.NoError(t, s.Set(ctx, KeyBiome, "desert"))

	evt := nextSettingChanged(t, ch)
	assert.Equal(t, "simple-weather.biome", evt.Key)
}

type upperLocalizer map[string]string

func (l upperLocalizer) Localize(key string) string {
	if v, ok := l[key]; ok {
		return v
	}
	return key
}

func TestStore_Describe(t *testing.T) {
	s := newRegisteredStore(t, kvstore.NewMemoryHub().Client("gm"))
	loc := upperLocalizer{
		"sweath.settings.DialogDisplay":     "Show dialog to players",
		"sweath.settings.DialogDisplayHelp": "Players can see the weather window",
	}

	rows, err := s.Describe(t.Context(), loc)
	require.NoError(t, err)
	require.Len(t, rows, len(Definitions()))

	byKey := map[Key]Description{}
	for _, r := range rows {
		byKey[r.Key] = r
	}
	dialog := byKey[KeyDialogDisplay]
	assert.Equal(t, "Show dialog to players", dialog.Label)
	assert.Equal(t, "Players can see the weather window", dialog.Help)
	assert.Equal(t, "simple-weather.dialogDisplay", dialog.FullKey)
	assert.Equal(t, true, dialog.Value)

	assert.Equal(t, "Last weather data", byKey[KeyLastWeatherData].Label)
}
