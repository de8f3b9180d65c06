package frame

import (
	"encoding/binary"
	"io"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// Writer emits frames to the wire. Not concurrency-safe; expected usage is a
// single write-loop goroutine per connection, fed by a buffered outbound
// channel (see internal/pulse/session).
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for frame-at-a-time writing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame encodes the descriptor and writes it back-to-back with the
// payload in a single underlying Write call, so concurrent frames destined
// for different channels never interleave their bytes on the socket.
func (w *Writer) WriteFrame(channel uint32, flags uint32, payload []byte) error {
	buf := make([]byte, DescriptorSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(buf[4:8], channel)
	binary.BigEndian.PutUint32(buf[8:12], 0)
	binary.BigEndian.PutUint32(buf[12:16], 0)
	binary.BigEndian.PutUint32(buf[16:20], flags)
	copy(buf[DescriptorSize:], payload)
	if _, err := w.w.Write(buf); err != nil {
		return pulseerrors.NewIOError("frame.write", err)
	}
	return nil
}

// WriteDataFrame writes a stream data frame carrying a 64-bit offset, used
// by record streams to report the absolute read index alongside sample
// data.
func (w *Writer) WriteDataFrame(channel uint32, offset uint64, seekMode uint32, payload []byte) error {
	buf := make([]byte, DescriptorSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(buf[4:8], channel)
	binary.BigEndian.PutUint32(buf[8:12], uint32(offset>>32))
	binary.BigEndian.PutUint32(buf[12:16], uint32(offset))
	binary.BigEndian.PutUint32(buf[16:20], seekMode&seekModeMask)
	copy(buf[DescriptorSize:], payload)
	if _, err := w.w.Write(buf); err != nil {
		return pulseerrors.NewIOError("frame.write.data", err)
	}
	return nil
}
