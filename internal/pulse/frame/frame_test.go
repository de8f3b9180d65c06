package frame

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip_ControlFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	payload := []byte("command payload")
	require.NoError(t, w.WriteFrame(ControlChannel, 0, payload))

	r := NewReader(&buf)
	fr, err := r.ReadFrame()
	require.NoError(t, err)
	defer fr.Release()

	require.True(t, fr.Descriptor.IsControl())
	require.Equal(t, uint32(len(payload)), fr.Descriptor.Length)
	require.Equal(t, payload, fr.Payload)
}

func TestWriteReadRoundTrip_DataFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, w.WriteDataFrame(3, 0x1_0000_0002, SeekAbsolute, payload))

	r := NewReader(&buf)
	fr, err := r.ReadFrame()
	require.NoError(t, err)
	defer fr.Release()

	require.False(t, fr.Descriptor.IsControl())
	require.Equal(t, uint32(3), fr.Descriptor.Channel)
	require.Equal(t, uint64(0x1_0000_0002), fr.Descriptor.Offset())
	require.Equal(t, SeekAbsolute, fr.Descriptor.SeekMode())
	require.Equal(t, payload, fr.Payload)
}

func TestReadFrame_EOFBetweenMessages(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.ReadFrame()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_TruncatedDescriptorIsIOError(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0, 0, 0, 1}))
	_, err := r.ReadFrame()
	require.Error(t, err)
	require.NotErrorIs(t, err, io.EOF)
}

func TestReadFrame_OversizedLengthRejected(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	// Write a legitimate small frame, then hand-craft an oversized descriptor.
	require.NoError(t, w.WriteFrame(ControlChannel, 0, nil))
	buf.Reset()
	oversized := []byte{0x01, 0x00, 0x00, 0x00, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	buf.Write(oversized)
	r := NewReader(&buf)
	_, err := r.ReadFrame()
	require.Error(t, err)
}

func TestMultipleFramesInterleave(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteFrame(ControlChannel, 0, []byte("cmd1")))
	require.NoError(t, w.WriteDataFrame(1, 0, SeekRelative, []byte("data1")))
	require.NoError(t, w.WriteFrame(ControlChannel, 0, []byte("cmd2")))

	r := NewReader(&buf)
	f1, err := r.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, "cmd1", string(f1.Payload))

	f2, err := r.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, "data1", string(f2.Payload))

	f3, err := r.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, "cmd2", string(f3.Payload))
}
