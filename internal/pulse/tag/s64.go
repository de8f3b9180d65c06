package tag

import (
	"encoding/binary"
	"io"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// PutS64 appends a signed 64-bit integer tag.
// Wire format: marker 'r' | 8 bytes big-endian.
func (b *Buffer) PutS64(v int64) {
	b.buf.WriteByte(markerS64)
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], uint64(v))
	b.buf.Write(raw[:])
}

// GetS64 decodes a signed 64-bit integer tag.
func (d *Reader) GetS64() (int64, error) {
	if err := d.expectMarker(markerS64); err != nil {
		return 0, err
	}
	var raw [8]byte
	if _, err := io.ReadFull(d.r, raw[:]); err != nil {
		return 0, pulseerrors.NewProtocolError("tag.s64.read", err)
	}
	return int64(binary.BigEndian.Uint64(raw[:])), nil
}

// PutU64 appends an unsigned 64-bit integer tag.
// Wire format: marker 'R' | 8 bytes big-endian.
func (b *Buffer) PutU64(v uint64) {
	b.buf.WriteByte(markerU64)
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], v)
	b.buf.Write(raw[:])
}

// GetU64 decodes an unsigned 64-bit integer tag.
func (d *Reader) GetU64() (uint64, error) {
	if err := d.expectMarker(markerU64); err != nil {
		return 0, err
	}
	var raw [8]byte
	if _, err := io.ReadFull(d.r, raw[:]); err != nil {
		return 0, pulseerrors.NewProtocolError("tag.u64.read", err)
	}
	return binary.BigEndian.Uint64(raw[:]), nil
}

// PutUsec appends a microsecond-resolution duration tag. Wire-compatible
// with U64 but kept distinct on the marker so a reader can tell a raw
// counter from an elapsed-time value at a glance.
// Wire format: marker 'U' | 8 bytes big-endian.
func (b *Buffer) PutUsec(v uint64) {
	b.buf.WriteByte(markerUsec)
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], v)
	b.buf.Write(raw[:])
}

// GetUsec decodes a microsecond-resolution duration tag.
func (d *Reader) GetUsec() (uint64, error) {
	if err := d.expectMarker(markerUsec); err != nil {
		return 0, err
	}
	var raw [8]byte
	if _, err := io.ReadFull(d.r, raw[:]); err != nil {
		return 0, pulseerrors.NewProtocolError("tag.usec.read", err)
	}
	return binary.BigEndian.Uint64(raw[:]), nil
}
