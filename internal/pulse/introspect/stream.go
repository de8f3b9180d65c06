package introspect

import (
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

// EmitSinkInput appends one SINK_INPUT_INFO entry.
func EmitSinkInput(b *tag.Buffer, s engine.Stream) {
	emitStream(b, s)
}

// EmitSourceOutput appends one SOURCE_OUTPUT_INFO entry. The wire layout
// is identical to sink-input; which GET_*_INFO command carried it is
// what tells a client which node-role field names apply.
func EmitSourceOutput(b *tag.Buffer, s engine.Stream) {
	emitStream(b, s)
}

func emitStream(b *tag.Buffer, s engine.Stream) {
	b.PutU32(s.Index)
	b.PutString(stringProp(s.Props, "media.name"))
	b.PutU32(proto.InvalidIndex) // owner_module: streams are never module-owned in this object model
	b.PutU32(clientIdxOrInvalid(s.ClientIdx))
	b.PutU32(s.NodeIndex)
	b.PutSampleSpec(specOf(s.Format, s.Channels, s.Rate))
	b.PutChannelMap(mapOf(s.ChannelMap))
	b.PutCVolume(volumeOf(s.Volume))
	b.PutUsec(0) // buffer latency
	b.PutUsec(0) // node latency
	b.PutString("protocol-native.c")
	b.PutBoolean(s.Muted)
	b.PutProplist(toProplist(s.Props))
	b.PutBoolean(s.Corked)
	b.PutBoolean(true) // has_volume
	b.PutBoolean(true) // volume_writable
	b.PutFormatInfo(tag.FormatInfo{Encoding: tag.EncodingPCM, Props: toProplist(s.Props)})
}
