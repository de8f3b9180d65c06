// Package stream implements the per-connection playback and record stream
// state machine: buffer-attribute negotiation, the credit-based flow
// control that drives REQUEST frames, prebuffering and cork/drain, and
// the record-side clock model used to report latency.
package stream

import "github.com/pulsenative/pulsed/internal/pulse/sample"

// Direction distinguishes the three stream kinds this server creates.
type Direction uint8

const (
	Playback Direction = iota
	Record
	Upload
)

func (d Direction) String() string {
	switch d {
	case Playback:
		return "playback"
	case Record:
		return "record"
	case Upload:
		return "upload"
	default:
		return "unknown"
	}
}

// BufferAttr is the negotiated set of buffer-attribute fields carried on
// CREATE_*_STREAM and SET_*_STREAM_BUFFER_ATTR, matching the published
// pa_buffer_attr layout. A field set to AttrAdjustLatency on the way in
// means "pick a sensible value for me"; Negotiate always returns concrete
// values, never the sentinel.
type BufferAttr struct {
	MaxLength uint32
	TLength   uint32 // playback target length; unused (0) for record
	Prebuf    uint32 // playback only
	MinReq    uint32 // playback only
	Fragsize  uint32 // record only
}

// AttrAdjustLatency is PA_BUFFER_ATTR_ADJUST_LATENCY's wire sentinel
// (math.MaxUint32, the same value as proto.InvalidIndex) used by clients
// that want the server to pick tlength/fragsize/maxlength for them.
const AttrAdjustLatency uint32 = 0xffffffff

// Defaults, in microseconds, used when a client neither supplies an
// explicit attribute nor a PULSE_LATENCY_MSEC override. These match the
// nominal 2s buffer / 250ms target-latency shape used by the published
// client library's own defaulting; minreq and fragsize both default
// from this same tlength-derived value rather than a smaller constant
// of their own (spec.md §4.F: "minreq defaults to tlength", "fragsize
// defaults to tlength for record").
const (
	defaultMaxLengthUSec = 2000 * 1000
	defaultTLengthUSec   = 250 * 1000
	minFragmentUSec      = 5 * 1000
)

// Fraction is a num/denom pair, matching the published module's
// spa_fraction: a client overrides a min/default negotiation knob by
// naming it as a fraction of the server's nominal quantum rather than
// an absolute duration, so the override scales with whatever quantum
// the graph is actually running at.
type Fraction struct {
	Num, Denom uint32
}

// Valid reports whether f was parsed from an explicit client property,
// as opposed to the zero value meaning "client named none".
func (f Fraction) Valid() bool {
	return f.Denom != 0
}

// usec returns the fraction's duration against the nominal quantum.
func (f Fraction) usec() uint64 {
	if !f.Valid() {
		return 0
	}
	return uint64(f.Num) * nominalQuantumUSec / uint64(f.Denom)
}

// nominalQuantumUSec is the graph's nominal scheduling quantum — 1024
// frames at 48kHz — used as the unit the pulse.min.*/pulse.default.*
// client-property fractions are expressed against, matching the
// published module's quantum-relative negotiation knobs.
const nominalQuantumUSec uint64 = 1024 * 1000000 / 48000

// NegotiateOptions carries the per-client overrides that influence
// defaulting. An explicit PULSE_LATENCY_MSEC environment property (as
// LatencyMsec here) forces every unset field to track that target
// instead of the fixed defaults below, exactly as libpulse's own stream
// creation does when the environment variable is set client-side and
// echoed to the server as a property; it takes precedence over the
// quantum-fraction knobs below when both are present (see DESIGN.md's
// Open Question note on this ambiguity).
//
// MinReq/MinFrag/MinQuantum and DefaultReq/DefaultFrag/DefaultTlength
// mirror the client properties pulse.min.req, pulse.min.frag,
// pulse.min.quantum, pulse.default.req, pulse.default.frag, and
// pulse.default.tlength: each is a Fraction of the nominal quantum, and
// an invalid (zero-denom) Fraction means the client named no override
// for that knob.
type NegotiateOptions struct {
	LatencyMsec   uint32 // 0 means "not set"
	AdjustLatency bool

	MinReq     Fraction
	MinFrag    Fraction
	MinQuantum Fraction

	DefaultReq     Fraction
	DefaultFrag    Fraction
	DefaultTlength Fraction
}

// Negotiate computes the concrete buffer attributes for a new or
// reconfigured stream from the client's requested attr (which may carry
// AttrAdjustLatency in any field), the stream's sample spec, and its
// direction.
//
// Defaulting rules (spec-mandated):
//   - maxlength defaults to the bytes implied by defaultMaxLengthUSec; an
//     explicit client maxlength is taken as given, and tlength and
//     fragsize are then capped by it.
//   - tlength (playback) defaults to defaultTLengthUSec of data, or to
//     opts.LatencyMsec when set.
//   - minreq (playback) defaults to tlength itself (opts.DefaultReq, when
//     set, overrides that default instead), floored by the
//     opts.MinReq fraction and by one whole frame, and capped by
//     tlength so a WRITE can never be asked for less data than fits in
//     a single sample frame nor more than the target buffer.
//   - prebuf (playback) defaults to tlength; a client may request 0 to
//     start playback immediately without prebuffering.
//   - fragsize (record) defaults to the same tlength-derived value
//     playback's tlength uses (opts.DefaultFrag, when set, overrides
//     that default instead), or to opts.LatencyMsec when set, floored
//     at minFragmentUSec and by the opts.MinFrag fraction so a
//     pathologically small request doesn't turn the record path into a
//     syscall storm.
func Negotiate(requested BufferAttr, spec sample.Spec, dir Direction, opts NegotiateOptions) BufferAttr {
	tlengthDefaultUSec := uint64(defaultTLengthUSec)
	if opts.DefaultTlength.Valid() {
		tlengthDefaultUSec = opts.DefaultTlength.usec()
	}
	targetUSec := tlengthDefaultUSec
	if opts.LatencyMsec > 0 {
		targetUSec = uint64(opts.LatencyMsec) * 1000
	}

	out := BufferAttr{}

	out.MaxLength = resolve(requested.MaxLength, usecToBytes(spec, defaultMaxLengthUSec))
	if out.MaxLength == 0 {
		out.MaxLength = usecToBytes(spec, defaultMaxLengthUSec)
	}

	switch dir {
	case Playback:
		out.TLength = resolve(requested.TLength, usecToBytes(spec, targetUSec))
		if minQuantum := usecToBytes(spec, opts.MinQuantum.usec()); minQuantum > out.TLength {
			out.TLength = minQuantum
		}
		if out.TLength > out.MaxLength {
			out.TLength = out.MaxLength
		}
		minReqDefault := out.TLength
		if opts.DefaultReq.Valid() {
			minReqDefault = usecToBytes(spec, opts.DefaultReq.usec())
			if minReqDefault > out.TLength {
				minReqDefault = out.TLength
			}
		}
		out.MinReq = resolve(requested.MinReq, minReqDefault)
		if minReqFloor := usecToBytes(spec, opts.MinReq.usec()); minReqFloor > out.MinReq {
			out.MinReq = minReqFloor
		}
		if out.MinReq > out.TLength {
			out.MinReq = out.TLength
		}
		if frameSize := frameSizeOf(spec); frameSize > 0 && out.MinReq < uint32(frameSize) {
			out.MinReq = uint32(frameSize)
		}
		out.Prebuf = requested.Prebuf
		if out.Prebuf == AttrAdjustLatency {
			out.Prebuf = out.TLength
		}
		if out.Prebuf > out.TLength {
			out.Prebuf = out.TLength
		}
	case Record:
		fragUSec := tlengthDefaultUSec
		if opts.DefaultFrag.Valid() {
			fragUSec = opts.DefaultFrag.usec()
		}
		if opts.LatencyMsec > 0 {
			fragUSec = targetUSec
		}
		if fragUSec < minFragmentUSec {
			fragUSec = minFragmentUSec
		}
		out.Fragsize = resolve(requested.Fragsize, usecToBytes(spec, fragUSec))
		if minFrag := usecToBytes(spec, minFragmentUSec); out.Fragsize < minFrag {
			out.Fragsize = minFrag
		}
		if minFragFloor := usecToBytes(spec, opts.MinFrag.usec()); minFragFloor > out.Fragsize {
			out.Fragsize = minFragFloor
		}
		if out.Fragsize > out.MaxLength {
			out.Fragsize = out.MaxLength
		}
	case Upload:
		// Upload streams have no flow-control fields; maxlength alone
		// bounds the sample being assembled.
	}
	return out
}

// resolve picks requested when it is neither zero nor the
// adjust-latency sentinel, otherwise falls back to def.
func resolve(requested, def uint32) uint32 {
	if requested == 0 || requested == AttrAdjustLatency {
		return def
	}
	return requested
}

func frameSizeOf(spec sample.Spec) int {
	fs, err := spec.FrameSize()
	if err != nil {
		return 0
	}
	return fs
}

func usecToBytes(spec sample.Spec, usec uint64) uint32 {
	b, err := spec.USecToBytes(usec)
	if err != nil {
		return 0
	}
	if b > 0xffffffff {
		return 0xffffffff
	}
	return uint32(b)
}
