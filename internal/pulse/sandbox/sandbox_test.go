package sandbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakePolicyClient struct {
	connected map[string]bool
}

func (f fakePolicyClient) IsPlugConnected(snapName, plugName string) (bool, error) {
	return f.connected[snapName+"/"+plugName], nil
}

func TestResolveNotASandbox(t *testing.T) {
	cap, err := Resolve("", "", nil)
	require.NoError(t, err)
	require.Equal(t, NotASandbox, cap)

	cap, err = Resolve("/usr/bin/firefox", "", nil)
	require.NoError(t, err)
	require.Equal(t, NotASandbox, cap)
}

func TestResolveUnconfinedAndComplain(t *testing.T) {
	cap, err := Resolve("unconfined", "", nil)
	require.NoError(t, err)
	require.Equal(t, NotASandbox, cap)

	cap, err = Resolve("snap.foo.bar (complain)", "", nil)
	require.NoError(t, err)
	require.Equal(t, NotASandbox, cap)
}

func TestResolveSameSnapShortcut(t *testing.T) {
	cap, err := Resolve("snap.pulsed.daemon", "pulsed", nil)
	require.NoError(t, err)
	require.Equal(t, All, cap)
}

func TestResolvePlugCombinations(t *testing.T) {
	client := fakePolicyClient{connected: map[string]bool{
		"playback-app/audio-playback": true,
		"record-app/audio-record":     true,
		"full-app/pulseaudio":         true,
		"both-app/audio-playback":     true,
		"both-app/audio-record":       true,
	}}

	cap, err := Resolve("snap.playback-app.x", "", client)
	require.NoError(t, err)
	require.Equal(t, Playback, cap)

	cap, err = Resolve("snap.record-app.x", "", client)
	require.NoError(t, err)
	require.Equal(t, Record, cap)

	cap, err = Resolve("snap.full-app.x", "", client)
	require.NoError(t, err)
	require.Equal(t, All, cap)

	cap, err = Resolve("snap.both-app.x", "", client)
	require.NoError(t, err)
	require.Equal(t, All, cap)

	cap, err = Resolve("snap.nothing-app.x", "", client)
	require.NoError(t, err)
	require.Equal(t, None, cap)
}

func TestResolveNilClientWithSnapLabel(t *testing.T) {
	cap, err := Resolve("snap.some-app.x", "", nil)
	require.NoError(t, err)
	require.Equal(t, None, cap)
}

func TestCapabilityAllowsHelpers(t *testing.T) {
	require.True(t, NotASandbox.AllowsPlayback())
	require.True(t, NotASandbox.AllowsRecord())
	require.True(t, Playback.AllowsPlayback())
	require.False(t, Playback.AllowsRecord())
	require.True(t, Record.AllowsRecord())
	require.False(t, Record.AllowsPlayback())
	require.False(t, None.AllowsPlayback())
	require.False(t, None.AllowsRecord())
	require.True(t, All.AllowsPlayback())
	require.True(t, All.AllowsRecord())
}
