package tag

import (
	"io"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// PutString appends a NUL-terminated string tag, even when s is empty; an
// absent string is written with PutNullString instead.
// Wire format: marker 't' | UTF-8 bytes | 0x00.
func (b *Buffer) PutString(s string) {
	b.buf.WriteByte(markerString)
	b.buf.WriteString(s)
	b.buf.WriteByte(0)
}

// PutNullString appends the dedicated absent-string marker, distinct from an
// empty string: many commands use this to mean "no override" rather than
// "empty name".
// Wire format: marker 'N' with no payload.
func (b *Buffer) PutNullString() {
	b.buf.WriteByte(markerStringNull)
}

// GetString decodes a string tag. It accepts either a populated string
// ('t') or the null-string marker ('N'), returning ("", true) for the
// latter so callers can distinguish "absent" from "empty".
func (d *Reader) GetString() (s string, isNull bool, err error) {
	m, err := d.readMarker()
	if err != nil {
		return "", false, err
	}
	switch m {
	case markerStringNull:
		return "", true, nil
	case markerString:
		var out []byte
		var ch [1]byte
		for {
			if _, rerr := io.ReadFull(d.r, ch[:]); rerr != nil {
				return "", false, pulseerrors.NewProtocolError("tag.string.read", rerr)
			}
			if ch[0] == 0 {
				break
			}
			out = append(out, ch[0])
		}
		return string(out), false, nil
	default:
		return "", false, markerError("tag.string.marker", markerString, m)
	}
}
