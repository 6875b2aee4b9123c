package versiongate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdy-forks/foundry-simple-weather/internal/i18n"
)

type recordingNotifier struct{ msgs []string }

func (n *recordingNotifier) Error(msg string) { n.msgs = append(n.msgs, msg) }

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2.4.0", "2.4.0", 0},
		{"2.4", "2.4.0", 0},
		{"2.4.1", "2.4.0", 1},
		{"2.10.0", "2.9.9", 1},
		{"2.3.9", "2.4.0", -1},
		{"1.9.0", "2.4.0", -1},
		{"v2.4.0", "2.4.0", 0},
		{"2.4.0-beta.1", "2.4.0", 0},
		{"3", "2.99.99", 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Compare(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
	}
}

func TestCheck(t *testing.T) {
	assert.True(t, Check("2.4.0", "2.4.0", true).Passed)
	assert.True(t, Check("2.4.0", "2.4.1", true).Passed)
	assert.False(t, Check("2.4.0", "2.3.9", true).Passed)
	assert.False(t, Check("2.4.0", "", false).Passed)
}

func TestGate_PassSendsNothing(t *testing.T) {
	n := &recordingNotifier{}
	g := &Gate{Registry: StaticRegistry{DefaultDependency: "2.4.1"}, Notifier: n}

	res := g.Run()
	assert.True(t, res.Passed)
	assert.Empty(t, n.msgs)
}

func TestGate_OldVersionSendsTwoNotifications(t *testing.T) {
	n := &recordingNotifier{}
	g := &Gate{Registry: StaticRegistry{DefaultDependency: "1.9.0"}, Notifier: n}

	res := g.Run()
	assert.False(t, res.Passed)
	require.Len(t, n.msgs, 2)
	assert.Contains(t, n.msgs[0], "requires Simple Calendar v2.4.0")
	assert.Equal(t, "Version found: 1.9.0", n.msgs[1])
}

func TestGate_MissingDependency(t *testing.T) {
	n := &recordingNotifier{}
	g := &Gate{Registry: StaticRegistry{}, Notifier: n}

	res := g.Run()
	assert.False(t, res.Passed)
	assert.False(t, res.Found)
	require.Len(t, n.msgs, 2)
	assert.Equal(t, "Version found: none", n.msgs[1])
}

func TestGate_LocalizedMessages(t *testing.T) {
	b, err := i18n.LoadEmbedded()
	require.NoError(t, err)
	n := &recordingNotifier{}
	g := &Gate{
		Registry:  RegistryFunc(func(string) (string, bool) { return "", false }),
		Notifier:  n,
		Localizer: b.Catalog("de"),
	}

	g.Run()
	require.Len(t, n.msgs, 2)
	assert.Contains(t, n.msgs[0], "v2.4.0")
	assert.Equal(t, "Gefundene Version: keine", n.msgs[1])
}
