package introspect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/sample"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

func TestEmitSinkRoundTripsLeadingFields(t *testing.T) {
	n := engine.Node{
		Index: 3, Name: "sink.primary", Description: "Primary Sink",
		OwnerCard: -1, Channels: 2, Rate: 44100, Format: uint8(sample.S16LE),
		ChannelMap: []uint8{1, 2}, Volume: []uint32{65536, 65536},
		Props: map[string]string{"device.api": "fake"},
	}
	b := tag.NewBuffer()
	EmitSink(b, n, 9, "sink.primary.monitor")

	r := tag.NewReader(b.Bytes())
	idx, err := r.GetU32()
	require.NoError(t, err)
	require.EqualValues(t, 3, idx)
	name, isNull, err := r.GetString()
	require.NoError(t, err)
	require.False(t, isNull)
	require.Equal(t, "sink.primary", name)
	desc, _, err := r.GetString()
	require.NoError(t, err)
	require.Equal(t, "Primary Sink", desc)
	spec, err := r.GetSampleSpec()
	require.NoError(t, err)
	require.EqualValues(t, 44100, spec.Rate)
	cm, err := r.GetChannelMap()
	require.NoError(t, err)
	require.Len(t, cm.Positions, 2)
	ownerCard, err := r.GetU32()
	require.NoError(t, err)
	require.EqualValues(t, proto.InvalidIndex, ownerCard)
}

func TestEmitSinkInputRoundTrips(t *testing.T) {
	s := engine.Stream{
		Index: 5, ClientIdx: -1, NodeIndex: 3, Channels: 2, Rate: 44100,
		Format: uint8(sample.S16LE), ChannelMap: []uint8{1, 2}, Volume: []uint32{65536, 65536},
		Props: map[string]string{"media.name": "Music"},
	}
	b := tag.NewBuffer()
	EmitSinkInput(b, s)

	r := tag.NewReader(b.Bytes())
	idx, err := r.GetU32()
	require.NoError(t, err)
	require.EqualValues(t, 5, idx)
	name, _, err := r.GetString()
	require.NoError(t, err)
	require.Equal(t, "Music", name)
	ownerMod, err := r.GetU32()
	require.NoError(t, err)
	require.EqualValues(t, proto.InvalidIndex, ownerMod)
	client, err := r.GetU32()
	require.NoError(t, err)
	require.EqualValues(t, proto.InvalidIndex, client)
}

func TestEmitServerInfo(t *testing.T) {
	b := tag.NewBuffer()
	EmitServerInfo(b, ServerInfo{
		UserName: "svc", HostName: "host", ServerVersion: "1.0", ServerName: "pulsenative",
		DefaultSink: "sink.primary", DefaultSource: "source.primary",
		DefaultFormat: uint8(sample.S16LE), DefaultChannels: 2, DefaultRate: 44100,
		DefaultMap: []uint8{1, 2},
	})
	r := tag.NewReader(b.Bytes())
	u, _, err := r.GetString()
	require.NoError(t, err)
	require.Equal(t, "svc", u)
}

func TestSubscriptionTypeEncodesFacilityAndKind(t *testing.T) {
	v, fac, ok := SubscriptionType(engine.ClassSink, engine.EventNew)
	require.True(t, ok)
	require.Equal(t, proto.MaskSink, fac)
	decodedFac, decodedKind := proto.DecodeSubscriptionEvent(v)
	require.Equal(t, proto.MaskSink, decodedFac)
	require.Equal(t, proto.EventNew, decodedKind)
}

func TestMatchesChecksMaskBit(t *testing.T) {
	require.True(t, Matches(proto.MaskSink|proto.MaskCard, proto.MaskSink))
	require.False(t, Matches(proto.MaskCard, proto.MaskSink))
}
