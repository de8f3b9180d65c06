package tag

import (
	"fmt"
	"io"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// PutU8 appends an 8-bit unsigned integer tag.
// Wire format: marker 'B' | 1 byte.
func (b *Buffer) PutU8(v uint8) {
	b.buf.WriteByte(markerU8)
	b.buf.WriteByte(v)
}

// GetU8 decodes an 8-bit unsigned integer tag.
func (d *Reader) GetU8() (uint8, error) {
	if err := d.expectMarker(markerU8); err != nil {
		return 0, err
	}
	var v [1]byte
	if _, err := io.ReadFull(d.r, v[:]); err != nil {
		return 0, pulseerrors.NewProtocolError("tag.u8.read", err)
	}
	return v[0], nil
}

// marker mismatch helper reused by the bool-like tags below for clarity.
func markerError(op string, want, got byte) error {
	return pulseerrors.NewProtocolError(op, fmt.Errorf("expected marker %q got %q", want, got))
}
