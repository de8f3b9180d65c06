package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/session"
	"github.com/pulsenative/pulsed/internal/pulse/stream"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

// latencyMsecFromProps extracts the client library's PULSE_LATENCY_MSEC
// override, echoed to the server as a property on stream creation, used
// by stream.Negotiate to scale every unset buffer-attribute field
// together rather than against the fixed defaults.
func latencyMsecFromProps(props map[string]string) uint32 {
	v, ok := props["pulse.latency.msec"]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return uint32(n)
}

// fractionFromProps parses a "num/denom" client property into a
// stream.Fraction, matching the published module's parse_frac: a
// missing key, a malformed value, or a zero denominator all resolve to
// the zero Fraction (Valid() == false), leaving Negotiate to fall back
// to its fixed defaults for that knob.
func fractionFromProps(props map[string]string, key string) stream.Fraction {
	v, ok := props[key]
	if !ok {
		return stream.Fraction{}
	}
	var num, denom uint32
	if n, err := fmt.Sscanf(v, "%d/%d", &num, &denom); n != 2 || err != nil || denom == 0 {
		return stream.Fraction{}
	}
	return stream.Fraction{Num: num, Denom: denom}
}

// negotiateOptionsFromProps builds the full set of pulse.min.*/
// pulse.default.* quantum-fraction overrides (and the PULSE_LATENCY_MSEC
// override) from a stream creation request's property list.
func negotiateOptionsFromProps(props map[string]string) stream.NegotiateOptions {
	return stream.NegotiateOptions{
		LatencyMsec:    latencyMsecFromProps(props),
		MinReq:         fractionFromProps(props, "pulse.min.req"),
		MinFrag:        fractionFromProps(props, "pulse.min.frag"),
		MinQuantum:     fractionFromProps(props, "pulse.min.quantum"),
		DefaultReq:     fractionFromProps(props, "pulse.default.req"),
		DefaultFrag:    fractionFromProps(props, "pulse.default.frag"),
		DefaultTlength: fractionFromProps(props, "pulse.default.tlength"),
	}
}

// idleTimeoutFromProps resolves the per-stream idle-kill timeout: a
// client-supplied pulse.idle.timeout property overrides the server's
// configured default, matching stream_new's spa_atou32 override of
// defs->idle_timeout.
func idleTimeoutFromProps(props map[string]string, serverDefault uint32) time.Duration {
	seconds := serverDefault
	if v, ok := props["pulse.idle.timeout"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			seconds = uint32(n)
		}
	}
	return time.Duration(seconds) * time.Second
}

func readRequestedAttr(r *tag.Reader, dir stream.Direction) (stream.BufferAttr, error) {
	maxLength, err := r.GetU32()
	if err != nil {
		return stream.BufferAttr{}, pulseerrors.NewProtocolError("command.stream.attr.maxlength", err)
	}
	attr := stream.BufferAttr{MaxLength: maxLength}
	switch dir {
	case stream.Playback:
		tlength, err := r.GetU32()
		if err != nil {
			return stream.BufferAttr{}, pulseerrors.NewProtocolError("command.stream.attr.tlength", err)
		}
		prebuf, err := r.GetU32()
		if err != nil {
			return stream.BufferAttr{}, pulseerrors.NewProtocolError("command.stream.attr.prebuf", err)
		}
		minreq, err := r.GetU32()
		if err != nil {
			return stream.BufferAttr{}, pulseerrors.NewProtocolError("command.stream.attr.minreq", err)
		}
		attr.TLength, attr.Prebuf, attr.MinReq = tlength, prebuf, minreq
	case stream.Record:
		fragsize, err := r.GetU32()
		if err != nil {
			return stream.BufferAttr{}, pulseerrors.NewProtocolError("command.stream.attr.fragsize", err)
		}
		attr.Fragsize = fragsize
	}
	return attr, nil
}

func writeNegotiatedAttr(b *tag.Buffer, attr stream.BufferAttr, dir stream.Direction) {
	b.PutU32(attr.MaxLength)
	if dir == stream.Playback {
		b.PutU32(attr.TLength)
		b.PutU32(attr.Prebuf)
		b.PutU32(attr.MinReq)
	} else {
		b.PutU32(attr.Fragsize)
	}
}

func handleCreatePlaybackStream(ctx context.Context, d *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	if !sess.Capability().AllowsPlayback() {
		return nil, pulseerrors.NewAccessError("command.createplaybackstream.capability", nil)
	}
	sinkIndex, sinkName, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	spec, err := r.GetSampleSpec()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createplaybackstream.spec", err)
	}
	cm, err := r.GetChannelMap()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createplaybackstream.channelmap", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := cm.Validate(int(spec.Channels)); err != nil {
		return nil, err
	}
	reqAttr, err := readRequestedAttr(r, stream.Playback)
	if err != nil {
		return nil, err
	}
	corked, err := r.GetBoolean()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createplaybackstream.corked", err)
	}
	vol, err := r.GetCVolume()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createplaybackstream.volume", err)
	}
	muted, err := r.GetBoolean()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createplaybackstream.muted", err)
	}
	props, err := r.GetProplist()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createplaybackstream.props", err)
	}
	strProps := propsToStrings(props)

	sink, err := resolveSinkForStream(ctx, d, sinkIndex, sinkName)
	if err != nil {
		return nil, err
	}

	attr := stream.Negotiate(reqAttr, spec, stream.Playback, negotiateOptionsFromProps(strProps))

	graphIndex, err := d.eng.CreateStream(ctx, engine.ClassSinkInput, engine.Stream{
		ClientIdx:  int64(sess.Index),
		NodeIndex:  sink.Index,
		Channels:   spec.Channels,
		Rate:       spec.Rate,
		Format:     uint8(spec.Format),
		ChannelMap: chanmapPositions(cm),
		Volume:     vol.Values,
		Muted:      muted,
		Corked:     corked,
		Props:      strProps,
	})
	if err != nil {
		return nil, err
	}

	reg := streamsFor(sess)
	idleTimeout := idleTimeoutFromProps(strProps, d.cfg.IdleTimeout)
	st := reg.New(sess, stream.Playback, spec, cm, attr, vol, props, idleTimeout)
	st.SetMute(muted)
	st.Cork(corked)
	st.SetNodeQuiet(sink.Index, sink.Name)
	st.SetDrainCallback(func(corTag uint32) {
		sess.ReplyTo(corTag, tag.NewBuffer())
	})
	st.StartPlayback(context.Background())

	reply := tag.NewBuffer()
	reply.PutU32(st.Channel)
	reply.PutU32(graphIndex)
	writeNegotiatedAttr(reply, attr, stream.Playback)
	reply.PutSampleSpec(spec)
	reply.PutChannelMap(cm)
	reply.PutU32(sink.Index)
	reply.PutString(sink.Name)
	reply.PutUsec(0)
	return reply, nil
}

func handleCreateRecordStream(ctx context.Context, d *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	if !sess.Capability().AllowsRecord() {
		return nil, pulseerrors.NewAccessError("command.createrecordstream.capability", nil)
	}
	sourceIndex, sourceName, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	spec, err := r.GetSampleSpec()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createrecordstream.spec", err)
	}
	cm, err := r.GetChannelMap()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createrecordstream.channelmap", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := cm.Validate(int(spec.Channels)); err != nil {
		return nil, err
	}
	reqAttr, err := readRequestedAttr(r, stream.Record)
	if err != nil {
		return nil, err
	}
	corked, err := r.GetBoolean()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createrecordstream.corked", err)
	}
	vol, err := r.GetCVolume()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createrecordstream.volume", err)
	}
	muted, err := r.GetBoolean()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createrecordstream.muted", err)
	}
	props, err := r.GetProplist()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.createrecordstream.props", err)
	}
	strProps := propsToStrings(props)

	source, err := resolveNode(ctx, d, engine.ClassSource, sourceIndex, sourceName)
	if err != nil {
		return nil, err
	}

	attr := stream.Negotiate(reqAttr, spec, stream.Record, negotiateOptionsFromProps(strProps))

	graphIndex, err := d.eng.CreateStream(ctx, engine.ClassSourceOutput, engine.Stream{
		ClientIdx:  int64(sess.Index),
		NodeIndex:  source.Index,
		Channels:   spec.Channels,
		Rate:       spec.Rate,
		Format:     uint8(spec.Format),
		ChannelMap: chanmapPositions(cm),
		Volume:     vol.Values,
		Muted:      muted,
		Corked:     corked,
		Props:      strProps,
	})
	if err != nil {
		return nil, err
	}

	reg := streamsFor(sess)
	idleTimeout := idleTimeoutFromProps(strProps, d.cfg.IdleTimeout)
	st := reg.New(sess, stream.Record, spec, cm, attr, vol, props, idleTimeout)
	st.SetMute(muted)
	st.Cork(corked)
	st.SetNodeQuiet(source.Index, source.Name)
	if !corked {
		st.StartRecord(context.Background())
	}

	reply := tag.NewBuffer()
	reply.PutU32(st.Channel)
	reply.PutU32(graphIndex)
	writeNegotiatedAttr(reply, attr, stream.Record)
	reply.PutSampleSpec(spec)
	reply.PutChannelMap(cm)
	reply.PutU32(source.Index)
	reply.PutString(source.Name)
	reply.PutUsec(uint64(st.LatencyUSec()))
	return reply, nil
}

func handleDeleteStream(_ context.Context, _ *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	channel, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.deletestream.channel", err)
	}
	reg := streamsFor(sess)
	if !reg.Delete(channel) {
		return nil, pulseerrors.NewNoEntityError("command.deletestream", nil)
	}
	return tag.NewBuffer(), nil
}

func resolveSinkForStream(ctx context.Context, d *Dispatcher, index uint32, name string) (engine.Node, error) {
	if index == proto.InvalidIndex && name == "" {
		def := d.mirror.Metadata().Default()
		return resolveNode(ctx, d, engine.ClassSink, proto.InvalidIndex, def.Sink)
	}
	return resolveNode(ctx, d, engine.ClassSink, index, name)
}
