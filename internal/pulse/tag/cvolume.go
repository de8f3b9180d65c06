package tag

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pulsenative/pulsed/internal/pulse/chanmap"
	"github.com/pulsenative/pulsed/internal/pulse/volume"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// PutCVolume appends a per-channel volume vector tag.
// Wire format: marker 'v' | u8 channel count | one u32 big-endian wire
// volume per channel.
func (b *Buffer) PutCVolume(v volume.CVolume) {
	b.buf.WriteByte(markerCVolume)
	b.buf.WriteByte(byte(len(v.Values)))
	var raw [4]byte
	for _, c := range v.Values {
		binary.BigEndian.PutUint32(raw[:], c)
		b.buf.Write(raw[:])
	}
}

// GetCVolume decodes a per-channel volume vector tag.
func (d *Reader) GetCVolume() (volume.CVolume, error) {
	if err := d.expectMarker(markerCVolume); err != nil {
		return volume.CVolume{}, err
	}
	var n [1]byte
	if _, err := io.ReadFull(d.r, n[:]); err != nil {
		return volume.CVolume{}, pulseerrors.NewProtocolError("tag.cvolume.count.read", err)
	}
	if int(n[0]) > chanmap.MaxChannels {
		return volume.CVolume{}, pulseerrors.NewInvalidError("tag.cvolume.count",
			fmt.Errorf("%d exceeds max channels %d", n[0], chanmap.MaxChannels))
	}
	vals := make([]uint32, n[0])
	for i := range vals {
		var raw [4]byte
		if _, err := io.ReadFull(d.r, raw[:]); err != nil {
			return volume.CVolume{}, pulseerrors.NewProtocolError("tag.cvolume.value.read", err)
		}
		vals[i] = binary.BigEndian.Uint32(raw[:])
	}
	return volume.CVolume{Values: vals}, nil
}

// PutVolume appends a single wire volume tag, used for scalar volume fields
// outside of a per-channel vector (e.g. extension sub-protocol payloads).
// Wire format: marker 'V' | u32 big-endian.
func (b *Buffer) PutVolume(v uint32) {
	b.buf.WriteByte(markerVolume)
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], v)
	b.buf.Write(raw[:])
}

// GetVolume decodes a single wire volume tag.
func (d *Reader) GetVolume() (uint32, error) {
	if err := d.expectMarker(markerVolume); err != nil {
		return 0, err
	}
	var raw [4]byte
	if _, err := io.ReadFull(d.r, raw[:]); err != nil {
		return 0, pulseerrors.NewProtocolError("tag.volume.read", err)
	}
	return binary.BigEndian.Uint32(raw[:]), nil
}
