package tag

import (
	"fmt"
	"io"

	"github.com/pulsenative/pulsed/internal/pulse/chanmap"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// PutChannelMap appends a channel-map tag.
// Wire format: marker 'm' | u8 channel count | one position byte per
// channel.
func (b *Buffer) PutChannelMap(m chanmap.Map) {
	b.buf.WriteByte(markerChannelMap)
	b.buf.WriteByte(byte(len(m.Positions)))
	for _, p := range m.Positions {
		b.buf.WriteByte(byte(p))
	}
}

// GetChannelMap decodes a channel-map tag.
func (d *Reader) GetChannelMap() (chanmap.Map, error) {
	if err := d.expectMarker(markerChannelMap); err != nil {
		return chanmap.Map{}, err
	}
	var n [1]byte
	if _, err := io.ReadFull(d.r, n[:]); err != nil {
		return chanmap.Map{}, pulseerrors.NewProtocolError("tag.channelmap.count.read", err)
	}
	if int(n[0]) > chanmap.MaxChannels {
		return chanmap.Map{}, pulseerrors.NewInvalidError("tag.channelmap.count",
			fmt.Errorf("%d exceeds max channels %d", n[0], chanmap.MaxChannels))
	}
	positions := make([]chanmap.Position, n[0])
	for i := range positions {
		var p [1]byte
		if _, err := io.ReadFull(d.r, p[:]); err != nil {
			return chanmap.Map{}, pulseerrors.NewProtocolError("tag.channelmap.position.read", err)
		}
		positions[i] = chanmap.Position(p[0])
	}
	return chanmap.Map{Positions: positions}, nil
}
