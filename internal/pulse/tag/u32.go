package tag

import (
	"encoding/binary"
	"io"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// PutU32 appends a 32-bit unsigned integer tag.
// Wire format: marker 'L' | 4 bytes big-endian.
func (b *Buffer) PutU32(v uint32) {
	b.buf.WriteByte(markerU32)
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], v)
	b.buf.Write(raw[:])
}

// GetU32 decodes a 32-bit unsigned integer tag.
func (d *Reader) GetU32() (uint32, error) {
	if err := d.expectMarker(markerU32); err != nil {
		return 0, err
	}
	var raw [4]byte
	if _, err := io.ReadFull(d.r, raw[:]); err != nil {
		return 0, pulseerrors.NewProtocolError("tag.u32.read", err)
	}
	return binary.BigEndian.Uint32(raw[:]), nil
}
