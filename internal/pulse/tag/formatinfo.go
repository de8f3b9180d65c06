package tag

import (
	"io"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// EncodingPCM and friends identify the codec carried by a FormatInfo, as
// negotiated by the extended API (format-negotiated playback/record
// streams). Only PCM is produced by the object model in this server; the
// others round-trip for clients that probe encoding support.
const (
	EncodingAny uint8 = iota
	EncodingPCM
	EncodingAC3
	EncodingEAC3
	EncodingMPEG
	EncodingDTS
	EncodingMP3
	EncodingAAC
)

// FormatInfo pairs a codec encoding with a property list describing its
// parameters (format.rate, format.channels, ...).
type FormatInfo struct {
	Encoding uint8
	Props    Proplist
}

// PutFormatInfo appends a format-info tag.
// Wire format: marker 'f' | u8 encoding | proplist.
func (b *Buffer) PutFormatInfo(f FormatInfo) {
	b.buf.WriteByte(markerFormatInfo)
	b.buf.WriteByte(f.Encoding)
	b.PutProplist(f.Props)
}

// GetFormatInfo decodes a format-info tag.
func (d *Reader) GetFormatInfo() (FormatInfo, error) {
	if err := d.expectMarker(markerFormatInfo); err != nil {
		return FormatInfo{}, err
	}
	var enc [1]byte
	if _, err := io.ReadFull(d.r, enc[:]); err != nil {
		return FormatInfo{}, pulseerrors.NewProtocolError("tag.formatinfo.encoding.read", err)
	}
	props, err := d.GetProplist()
	if err != nil {
		return FormatInfo{}, err
	}
	return FormatInfo{Encoding: enc[0], Props: props}, nil
}
