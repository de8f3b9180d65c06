package sample

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameSizeAndBytesPerSecond(t *testing.T) {
	s := Spec{Format: S16LE, Channels: 2, Rate: 48000}
	fs, err := s.FrameSize()
	require.NoError(t, err)
	require.Equal(t, 4, fs)

	bps, err := s.BytesPerSecond()
	require.NoError(t, err)
	require.Equal(t, 4*48000, bps)
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	require.Error(t, Spec{Format: S16LE, Channels: 0, Rate: 48000}.Validate())
	require.Error(t, Spec{Format: S16LE, Channels: 33, Rate: 48000}.Validate())
	require.Error(t, Spec{Format: S16LE, Channels: 2, Rate: 0}.Validate())
	require.Error(t, Spec{Format: Format(200), Channels: 2, Rate: 48000}.Validate())
	require.NoError(t, Spec{Format: S16LE, Channels: 2, Rate: 48000}.Validate())
}

func TestUSecBytesRoundTrip(t *testing.T) {
	s := Spec{Format: Float32LE, Channels: 2, Rate: 44100}
	b, err := s.USecToBytes(1000000)
	require.NoError(t, err)
	require.Equal(t, uint64(44100*8), b)

	usec, err := s.BytesToUSec(b)
	require.NoError(t, err)
	require.Equal(t, uint64(1000000), usec)
}

func TestFormatStringAndValidity(t *testing.T) {
	require.Equal(t, "s16le", S16LE.String())
	require.True(t, S16LE.Valid())
	require.False(t, Format(200).Valid())
	require.Equal(t, "invalid", Format(200).String())
}
