package introspect

import (
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
	"github.com/pulsenative/pulsed/internal/pulse/volume"
)

// EmitSink appends one SINK_INFO entry. monitorIndex/monitorName identify
// the paired monitor source; this server always synthesizes a 1:1
// monitor relationship (one monitor source per sink) rather than
// modeling the handful of sinks upstream that share or omit one.
func EmitSink(b *tag.Buffer, n engine.Node, monitorIndex uint32, monitorName string) {
	b.PutU32(n.Index)
	b.PutString(n.Name)
	b.PutString(n.Description)
	b.PutSampleSpec(specOf(n.Format, n.Channels, n.Rate))
	b.PutChannelMap(mapOf(n.ChannelMap))
	b.PutU32(ownerCardOrInvalid(n.OwnerCard))
	b.PutCVolume(volumeOf(n.Volume))
	b.PutBoolean(n.Muted)
	b.PutU32(monitorIndex)
	b.PutString(monitorName)
	b.PutUsec(0) // latency: no real I/O path behind this node to measure
	b.PutString("protocol-native.c")
	b.PutU32(0) // flags: HARDWARE/HW_VOLUME_CTRL/etc. none advertised
	b.PutProplist(toProplist(n.Props))
	b.PutUsec(0) // configured latency
	b.PutVolume(volume.Norm)
	b.PutU32(nodeState(n))
	b.PutU32(uint32(volume.Norm)) // n_volume_steps: unused by PA_VOLUME-style servers, mirrored as Norm like the reference server does
	b.PutU32(ownerCardOrInvalid(n.OwnerCard))
	b.PutU32(0) // n_ports
	b.PutNullString() // active_port
	b.PutU8(0)         // n_formats
}

// EmitSource appends one SOURCE_INFO entry. monitorOfSink identifies the
// sink this is a monitor source for, or proto.InvalidIndex for a non-
// monitor (real capture) source.
func EmitSource(b *tag.Buffer, n engine.Node, monitorOfSink uint32) {
	b.PutU32(n.Index)
	b.PutString(n.Name)
	b.PutString(n.Description)
	b.PutSampleSpec(specOf(n.Format, n.Channels, n.Rate))
	b.PutChannelMap(mapOf(n.ChannelMap))
	b.PutU32(ownerCardOrInvalid(n.OwnerCard))
	b.PutCVolume(volumeOf(n.Volume))
	b.PutBoolean(n.Muted)
	b.PutU32(monitorOfSink)
	b.PutString("") // monitor_of_sink_name: always empty; nothing fills it in
	b.PutUsec(0)
	b.PutString("protocol-native.c")
	b.PutU32(0)
	b.PutProplist(toProplist(n.Props))
	b.PutUsec(0)
	b.PutVolume(volume.Norm)
	b.PutU32(nodeState(n))
	b.PutU32(uint32(volume.Norm))
	b.PutU32(ownerCardOrInvalid(n.OwnerCard))
	b.PutU32(0)
	b.PutNullString()
	b.PutU8(0)
}
