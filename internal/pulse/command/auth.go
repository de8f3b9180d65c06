package command

import (
	"bytes"
	"context"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/session"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

// protocolVersionMask is PA_PROTOCOL_VERSION_MASK: clients OR their
// supported version with this bit to advertise SHM/memfd support, which
// this server never negotiates, so it is always stripped before
// comparing.
const protocolVersionMask uint32 = 0x80000000

// minProtocolVersion and maxProtocolVersion bound the versions this
// server will negotiate down to, matching a contemporary libpulse's
// native protocol version.
const (
	minProtocolVersion uint16 = 8
	maxProtocolVersion uint16 = 35
)

func handleAuth(_ context.Context, d *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	rawVersion, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.auth.version", err)
	}
	cookie, err := r.GetArbitrary()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.auth.cookie", err)
	}
	if len(d.cfg.Cookie) > 0 && !bytes.Equal(cookie, d.cfg.Cookie) {
		return nil, pulseerrors.NewAuthError("command.auth.cookie.mismatch", nil)
	}

	clientVersion := uint16(rawVersion &^ protocolVersionMask)
	negotiated := clientVersion
	if negotiated > maxProtocolVersion {
		negotiated = maxProtocolVersion
	}
	if negotiated < minProtocolVersion {
		return nil, pulseerrors.NewAuthError("command.auth.version.unsupported", nil)
	}
	if err := sess.Authenticate(clientVersion, negotiated); err != nil {
		return nil, err
	}

	reply := tag.NewBuffer()
	reply.PutU32(uint32(negotiated))
	return reply, nil
}

func handleSetClientName(ctx context.Context, d *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	props, err := r.GetProplist()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setclientname.props", err)
	}
	strProps := propsToStrings(props)

	graphIndex, err := d.eng.RegisterClient(ctx, strProps["application.name"], strProps)
	if err != nil {
		return nil, err
	}
	idx := uint32(graphIndex)
	if err := sess.SetClientName(strProps, idx); err != nil {
		return nil, err
	}
	d.registerSession(idx, sess)
	if err := sess.MarkReady(); err != nil {
		return nil, err
	}
	sink, source := d.mirror.Metadata().Default().Sink, d.mirror.Metadata().Default().Source
	sess.SetMirroredDefaults(sink, source)

	reply := tag.NewBuffer()
	reply.PutU32(idx)
	return reply, nil
}

func handleExit(_ context.Context, _ *Dispatcher, _ *session.Session, _ uint32, _ *tag.Reader) (*tag.Buffer, error) {
	return tag.NewBuffer(), nil
}

func handleStat(_ context.Context, _ *Dispatcher, sess *session.Session, _ uint32, _ *tag.Reader) (*tag.Buffer, error) {
	reg := streamsFor(sess)
	reply := tag.NewBuffer()
	reply.PutU32(0) // memblock total: this server keeps no shared memory pool
	reply.PutU32(0) // memblock total size
	reply.PutU32(uint32(reg.Len()))
	reply.PutU32(0) // allocated size
	reply.PutU32(0) // sample cache size
	return reply, nil
}

// propsToStrings converts a wire Proplist (raw bytes, possibly
// NUL-terminated C strings) to a plain string map for the parts of this
// server (sandbox resolution, engine client registration, mirror
// property remap) that only deal in strings, not arbitrary byte values.
func propsToStrings(p tag.Proplist) map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = string(bytes.TrimRight(v, "\x00"))
	}
	return out
}
