package tag

import (
	"encoding/binary"
	"io"

	"github.com/pulsenative/pulsed/internal/bufpool"
	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// PutArbitrary appends a length-prefixed opaque byte blob, used for cookies,
// proplist values, and raw audio sample data embedded directly in a command.
// Wire format: marker 'x' | 4-byte big-endian length | raw bytes.
func (b *Buffer) PutArbitrary(data []byte) {
	b.buf.WriteByte(markerArbitrary)
	var ln [4]byte
	binary.BigEndian.PutUint32(ln[:], uint32(len(data)))
	b.buf.Write(ln[:])
	b.buf.Write(data)
}

// GetArbitrary decodes an opaque byte blob tag. A length exceeding the
// message pool's per-message cap is rejected without allocating.
func (d *Reader) GetArbitrary() ([]byte, error) {
	if err := d.expectMarker(markerArbitrary); err != nil {
		return nil, err
	}
	var ln [4]byte
	if _, err := io.ReadFull(d.r, ln[:]); err != nil {
		return nil, pulseerrors.NewProtocolError("tag.arbitrary.length.read", err)
	}
	n := binary.BigEndian.Uint32(ln[:])
	if n > bufpool.MaxMessageSize {
		return nil, pulseerrors.NewOversizedError("tag.arbitrary.length", nil)
	}
	buf := bufpool.Get(int(n))
	if n > 0 {
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return nil, pulseerrors.NewProtocolError("tag.arbitrary.read", err)
		}
	}
	return buf, nil
}
