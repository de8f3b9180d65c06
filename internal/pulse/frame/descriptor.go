// Package frame implements the 20-byte frame descriptor that precedes every
// PulseAudio native-protocol message: a fixed header giving the payload
// length, the destination channel (or the control channel for commands),
// a 64-bit offset used by record/playback data frames, and a flags word.
package frame

import "github.com/pulsenative/pulsed/internal/bufpool"

// DescriptorSize is the fixed on-wire size of a frame descriptor, five
// big-endian uint32 fields.
const DescriptorSize = 20

// ControlChannel marks a frame as carrying a tagged-value command or reply
// rather than stream sample data.
const ControlChannel uint32 = 0xFFFFFFFF

// Seek modes occupy the low bits of Flags on playback data frames,
// matching the published wire encoding.
const (
	SeekRelative uint32 = 0
	SeekAbsolute uint32 = 1
	SeekRelativeOnRead uint32 = 2
	SeekRelativeEnd    uint32 = 3
	seekModeMask       uint32 = 0xff
)

// Descriptor is the fixed-size frame header.
type Descriptor struct {
	Length   uint32
	Channel  uint32
	OffsetHi uint32
	OffsetLo uint32
	Flags    uint32
}

// IsControl reports whether this descriptor addresses the control channel.
func (d Descriptor) IsControl() bool { return d.Channel == ControlChannel }

// SeekMode extracts the seek mode from a data frame's Flags.
func (d Descriptor) SeekMode() uint32 { return d.Flags & seekModeMask }

// Offset reconstructs the 64-bit offset from its hi/lo halves.
func (d Descriptor) Offset() uint64 {
	return uint64(d.OffsetHi)<<32 | uint64(d.OffsetLo)
}

// Frame pairs a descriptor with its payload. Payload is either a tagged
// command/reply stream (control channel) or raw PCM sample data (stream
// channel), and is owned by whoever produced the Frame until returned via
// Release.
type Frame struct {
	Descriptor Descriptor
	Payload    []byte
}

// Release returns Payload to the shared buffer pool. Call once the frame's
// contents have been fully consumed (decoded or written to the wire).
func (f *Frame) Release() {
	if f == nil || f.Payload == nil {
		return
	}
	bufpool.Put(f.Payload)
	f.Payload = nil
}
