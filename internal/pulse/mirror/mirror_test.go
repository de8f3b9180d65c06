package mirror

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsenative/pulsed/internal/pulse/engine"
)

func TestRemapOutboundTranslatesKeysAndRole(t *testing.T) {
	props := map[string]string{
		"node.description": "Built-in Audio Analog Stereo",
		"media.role":       "animation",
		"unrecognized.key": "passthrough",
	}
	out := RemapOutbound(props)
	require.Equal(t, "Built-in Audio Analog Stereo", out["device.description"])
	require.Equal(t, "Movie", out["media.role"])
	require.Equal(t, "passthrough", out["unrecognized.key"])
}

func TestRemapInboundIsInverse(t *testing.T) {
	props := map[string]string{
		"device.description": "Built-in Audio Analog Stereo",
		"media.role":          "Movie",
	}
	out := RemapInbound(props)
	require.Equal(t, "Built-in Audio Analog Stereo", out["node.description"])
	require.Equal(t, "video", out["media.role"])
}

func TestManagerMirrorsSinkCreationAndRemap(t *testing.T) {
	f := engine.NewFake()
	mgr := NewManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	_, events := mgr.Subscribe()

	idx := f.AddNode(engine.ClassSink, engine.Node{
		Name: "alsa_output.analog-stereo",
		Props: map[string]string{
			"node.description": "Built-in Audio",
		},
	})

	select {
	case ev := <-events:
		require.Equal(t, EventNew, ev.Kind)
		require.Equal(t, engine.ClassSink, ev.Class)
		require.Equal(t, idx, ev.Index)
	case <-time.After(time.Second):
		t.Fatal("expected NEW event from mirror")
	}

	sink, err := mgr.Sink(ctx, idx)
	require.NoError(t, err)
	require.Equal(t, "Built-in Audio", sink.Props["device.description"])
}

func TestManagerTracksStreamLinkAndMoveNotifiesBothEndpoints(t *testing.T) {
	f := engine.NewFake()
	mgr := NewManager(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	sinkA := f.AddNode(engine.ClassSink, engine.Node{Name: "sink-a"})
	sinkB := f.AddNode(engine.ClassSink, engine.Node{Name: "sink-b"})
	streamIdx := f.AddStream(engine.ClassSinkInput, engine.Stream{NodeIndex: sinkA})

	require.Eventually(t, func() bool {
		linked, ok := mgr.LinkedNode(streamIdx)
		return ok && linked == sinkA
	}, time.Second, time.Millisecond)

	_, events := mgr.Subscribe()
	require.NoError(t, f.MoveStream(ctx, engine.ClassSinkInput, streamIdx, sinkB))

	seenSinks := map[uint32]bool{}
	deadline := time.After(2 * time.Second)
	for len(seenSinks) < 2 {
		select {
		case ev := <-events:
			if ev.Class == engine.ClassSink && ev.Kind == EventChange {
				seenSinks[ev.Index] = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for both endpoint CHANGE events, saw %v", seenSinks)
		}
	}
	require.True(t, seenSinks[sinkA])
	require.True(t, seenSinks[sinkB])

	linked, ok := mgr.LinkedNode(streamIdx)
	require.True(t, ok)
	require.Equal(t, sinkB, linked)
}

func TestMetadataDefaultAndRoutes(t *testing.T) {
	f := engine.NewFake()
	mgr := NewManager(f)
	meta := mgr.Metadata()

	meta.SetDefaultSink("alsa_output.analog-stereo")
	meta.SetDefaultSource("alsa_input.analog-stereo")
	d := meta.Default()
	require.Equal(t, "alsa_output.analog-stereo", d.Sink)
	require.Equal(t, "alsa_input.analog-stereo", d.Source)

	entry := RouteEntry{ChannelMap: []uint8{1, 2}, Volume: []uint32{65536, 65536}, Muted: false, Target: "alsa_output.analog-stereo"}
	meta.SetRoute("firefox", entry)

	got, ok := meta.Route("firefox")
	require.True(t, ok)
	require.Equal(t, entry, got)

	raw, err := encodeRouteJSON(entry)
	require.NoError(t, err)
	decoded, err := decodeRouteJSON(raw)
	require.NoError(t, err)
	require.Equal(t, entry, decoded)

	meta.DeleteRoute("firefox")
	_, ok = meta.Route("firefox")
	require.False(t, ok)
}

func TestMetadataObjectNames(t *testing.T) {
	names := MetadataObjectNames()
	require.ElementsMatch(t, []string{"default", "routes"}, names)
}
