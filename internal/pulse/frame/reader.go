package frame

// Reader implementation (grounded on the teacher's chunk dechunker).
//
// Design goals mirrored from the teacher: single-pass streaming, no
// buffering beyond the current frame, protocol fidelity over length and
// channel fields, and the full message pool's per-message cap enforced
// before any payload allocation happens.

import (
	"encoding/binary"
	"io"

	"github.com/pulsenative/pulsed/internal/bufpool"
	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// Reader converts a byte stream into complete Frames. Not safe for
// concurrent use; expected usage is a single read-loop goroutine per
// connection.
type Reader struct {
	br      io.Reader
	scratch [DescriptorSize]byte
}

// NewReader wraps r for frame-at-a-time reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: r}
}

// ReadFrame blocks until the next complete frame is read or an error
// occurs. io.EOF is returned unwrapped only when it occurs before any byte
// of a new descriptor has been read, so callers can distinguish "peer hung
// up between messages" from "peer hung up mid-message" (an I/O error).
func (r *Reader) ReadFrame() (*Frame, error) {
	if _, err := io.ReadFull(r.br, r.scratch[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, pulseerrors.NewIOError("frame.descriptor.read", err)
	}

	d := Descriptor{
		Length:   binary.BigEndian.Uint32(r.scratch[0:4]),
		Channel:  binary.BigEndian.Uint32(r.scratch[4:8]),
		OffsetHi: binary.BigEndian.Uint32(r.scratch[8:12]),
		OffsetLo: binary.BigEndian.Uint32(r.scratch[12:16]),
		Flags:    binary.BigEndian.Uint32(r.scratch[16:20]),
	}

	if d.Length > bufpool.MaxMessageSize {
		return nil, pulseerrors.NewOversizedError("frame.descriptor.length", nil)
	}

	payload := bufpool.Get(int(d.Length))
	if d.Length > 0 {
		if _, err := io.ReadFull(r.br, payload); err != nil {
			bufpool.Put(payload)
			return nil, pulseerrors.NewIOError("frame.payload.read", err)
		}
	}

	return &Frame{Descriptor: d, Payload: payload}, nil
}
