package tag

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/pulsenative/pulsed/internal/pulse/sample"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// PutTimeval appends a wall-clock timestamp tag, truncated to second and
// microsecond components as the wire format requires.
// Wire format: marker 'T' | 4-byte seconds | 4-byte microseconds, both
// big-endian.
func (b *Buffer) PutTimeval(t time.Time) {
	b.buf.WriteByte(markerTimeval)
	var raw [8]byte
	binary.BigEndian.PutUint32(raw[0:4], uint32(t.Unix()))
	binary.BigEndian.PutUint32(raw[4:8], uint32(t.Nanosecond()/1000))
	b.buf.Write(raw[:])
}

// GetTimeval decodes a timestamp tag.
func (d *Reader) GetTimeval() (time.Time, error) {
	if err := d.expectMarker(markerTimeval); err != nil {
		return time.Time{}, err
	}
	var raw [8]byte
	if _, err := io.ReadFull(d.r, raw[:]); err != nil {
		return time.Time{}, pulseerrors.NewProtocolError("tag.timeval.read", err)
	}
	sec := binary.BigEndian.Uint32(raw[0:4])
	usec := binary.BigEndian.Uint32(raw[4:8])
	return time.Unix(int64(sec), int64(usec)*1000), nil
}

// PutSampleSpec appends a sample-spec tag.
// Wire format: marker 'a' | u8 format | u8 channels | u32 rate (big-endian).
func (b *Buffer) PutSampleSpec(s sample.Spec) {
	b.buf.WriteByte(markerSampleSpec)
	b.buf.WriteByte(byte(s.Format))
	b.buf.WriteByte(s.Channels)
	var rate [4]byte
	binary.BigEndian.PutUint32(rate[:], s.Rate)
	b.buf.Write(rate[:])
}

// GetSampleSpec decodes a sample-spec tag.
func (d *Reader) GetSampleSpec() (sample.Spec, error) {
	if err := d.expectMarker(markerSampleSpec); err != nil {
		return sample.Spec{}, err
	}
	var hdr [2]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		return sample.Spec{}, pulseerrors.NewProtocolError("tag.samplespec.read", err)
	}
	var rate [4]byte
	if _, err := io.ReadFull(d.r, rate[:]); err != nil {
		return sample.Spec{}, pulseerrors.NewProtocolError("tag.samplespec.rate.read", err)
	}
	return sample.Spec{
		Format:   sample.Format(hdr[0]),
		Channels: hdr[1],
		Rate:     binary.BigEndian.Uint32(rate[:]),
	}, nil
}
