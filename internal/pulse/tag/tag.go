// Package tag implements the PulseAudio native-protocol tagged-value codec:
// a closed set of typed values, each prefixed by a single marker byte, that
// make up every message payload after the 20-byte frame descriptor.
//
// Each value type lives in its own file (string.go, u32.go, ...), mirroring
// the per-type encode/decode pair convention. A Buffer accumulates a
// sequence of values for one outbound message; a Reader consumes one in
// strict order, which is how every command and reply is shaped on the wire.
package tag

import (
	"bytes"
	"fmt"
	"io"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// Marker bytes, matching the published PulseAudio native protocol values.
const (
	markerString      = 't'
	markerStringNull  = 'N'
	markerU32         = 'L'
	markerU8          = 'B'
	markerU64         = 'R'
	markerS64         = 'r'
	markerSampleSpec  = 'a'
	markerArbitrary   = 'x'
	markerBooleanTrue = '1'
	markerBoolFalse   = '0'
	markerTimeval     = 'T'
	markerUsec        = 'U'
	markerChannelMap  = 'm'
	markerCVolume     = 'v'
	markerProplist    = 'P'
	markerVolume      = 'V'
	markerFormatInfo  = 'f'
)

// Buffer accumulates a sequence of tagged values to be sent as one message
// payload, in the order they are put.
type Buffer struct {
	buf bytes.Buffer
}

// NewBuffer returns an empty tag Buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Bytes returns the accumulated payload.
func (b *Buffer) Bytes() []byte { return b.buf.Bytes() }

// Len reports the number of bytes accumulated so far.
func (b *Buffer) Len() int { return b.buf.Len() }

// Reader consumes a sequence of tagged values from a message payload in
// strict order. Every Get call fails with a protocol error if the next
// marker byte does not match what is expected, mirroring how a malformed
// frame from a misbehaving client is rejected rather than guessed at.
type Reader struct {
	r   *bytes.Reader
	pos int
}

// NewReader wraps payload for sequential tagged-value decoding.
func NewReader(payload []byte) *Reader {
	return &Reader{r: bytes.NewReader(payload)}
}

// Remaining reports how many bytes are left unread.
func (d *Reader) Remaining() int { return d.r.Len() }

func (d *Reader) readMarker() (byte, error) {
	var m [1]byte
	if _, err := io.ReadFull(d.r, m[:]); err != nil {
		return 0, pulseerrors.NewProtocolError("tag.marker.read", err)
	}
	return m[0], nil
}

func (d *Reader) expectMarker(want byte) error {
	got, err := d.readMarker()
	if err != nil {
		return err
	}
	if got != want {
		return pulseerrors.NewProtocolError("tag.marker.mismatch",
			fmt.Errorf("expected marker %q got %q", want, got))
	}
	return nil
}

// PeekMarker reports the next marker byte without consuming it, used by
// callers that need to branch on tag type (e.g. proplist values, which may
// be STRING or ARBITRARY).
func (d *Reader) PeekMarker() (byte, error) {
	m, err := d.readMarker()
	if err != nil {
		return 0, err
	}
	if _, err := d.r.Seek(-1, io.SeekCurrent); err != nil {
		return 0, pulseerrors.NewIOError("tag.marker.peek.seek", err)
	}
	return m, nil
}
