package tag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsenative/pulsed/internal/pulse/chanmap"
	"github.com/pulsenative/pulsed/internal/pulse/sample"
	"github.com/pulsenative/pulsed/internal/pulse/volume"
)

func TestRoundTripScalars(t *testing.T) {
	b := NewBuffer()
	b.PutU8(7)
	b.PutU32(0xdeadbeef)
	b.PutS64(-12345)
	b.PutU64(0xfeedfacecafebeef)
	b.PutUsec(1000000)
	b.PutBoolean(true)
	b.PutBoolean(false)
	b.PutString("hello")
	b.PutNullString()
	b.PutArbitrary([]byte{1, 2, 3, 4})

	r := NewReader(b.Bytes())

	u8, err := r.GetU8()
	require.NoError(t, err)
	require.Equal(t, uint8(7), u8)

	u32, err := r.GetU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), u32)

	s64, err := r.GetS64()
	require.NoError(t, err)
	require.Equal(t, int64(-12345), s64)

	u64, err := r.GetU64()
	require.NoError(t, err)
	require.Equal(t, uint64(0xfeedfacecafebeef), u64)

	usec, err := r.GetUsec()
	require.NoError(t, err)
	require.Equal(t, uint64(1000000), usec)

	bt, err := r.GetBoolean()
	require.NoError(t, err)
	require.True(t, bt)
	bf, err := r.GetBoolean()
	require.NoError(t, err)
	require.False(t, bf)

	s, isNull, err := r.GetString()
	require.NoError(t, err)
	require.False(t, isNull)
	require.Equal(t, "hello", s)

	_, isNull, err = r.GetString()
	require.NoError(t, err)
	require.True(t, isNull)

	blob, err := r.GetArbitrary()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, blob)

	require.Zero(t, r.Remaining())
}

func TestRoundTripTimevalAndSampleSpec(t *testing.T) {
	b := NewBuffer()
	now := time.Unix(1700000000, 123000)
	b.PutTimeval(now)
	spec := sample.Spec{Format: sample.S16LE, Channels: 2, Rate: 48000}
	b.PutSampleSpec(spec)

	r := NewReader(b.Bytes())
	tv, err := r.GetTimeval()
	require.NoError(t, err)
	require.Equal(t, now.Unix(), tv.Unix())

	gotSpec, err := r.GetSampleSpec()
	require.NoError(t, err)
	require.Equal(t, spec, gotSpec)
}

func TestRoundTripChannelMapAndVolume(t *testing.T) {
	b := NewBuffer()
	m := chanmap.Stereo()
	b.PutChannelMap(m)
	cv := volume.Scale(2, volume.Norm)
	b.PutCVolume(cv)
	b.PutVolume(volume.Norm)

	r := NewReader(b.Bytes())
	gotMap, err := r.GetChannelMap()
	require.NoError(t, err)
	require.Equal(t, m, gotMap)

	gotCV, err := r.GetCVolume()
	require.NoError(t, err)
	require.Equal(t, cv, gotCV)

	gotV, err := r.GetVolume()
	require.NoError(t, err)
	require.Equal(t, volume.Norm, gotV)
}

func TestRoundTripProplistAndFormatInfo(t *testing.T) {
	props := Proplist{
		"application.name": []byte("firefox"),
		"media.role":       []byte("music"),
	}
	b := NewBuffer()
	b.PutProplist(props)
	fi := FormatInfo{Encoding: EncodingPCM, Props: Proplist{"format.rate": []byte("48000")}}
	b.PutFormatInfo(fi)

	r := NewReader(b.Bytes())
	gotProps, err := r.GetProplist()
	require.NoError(t, err)
	require.Equal(t, props, gotProps)

	gotFI, err := r.GetFormatInfo()
	require.NoError(t, err)
	require.Equal(t, fi.Encoding, gotFI.Encoding)
	require.Equal(t, fi.Props, gotFI.Props)
}

func TestMarkerMismatchIsProtocolError(t *testing.T) {
	b := NewBuffer()
	b.PutU8(1)
	r := NewReader(b.Bytes())
	_, err := r.GetU32()
	require.Error(t, err)
}

func TestArbitraryOverPerMessageCapRejected(t *testing.T) {
	b := NewBuffer()
	b.buf.WriteByte(markerArbitrary)
	// Forge an oversized length prefix without actually allocating the body.
	oversizeLen := []byte{0x01, 0x00, 0x00, 0x00} // 0x01000000 > MaxMessageSize
	b.buf.Write(oversizeLen)
	r := NewReader(b.Bytes())
	_, err := r.GetArbitrary()
	require.Error(t, err)
}
