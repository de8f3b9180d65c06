package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsenative/pulsed/internal/pulse/sample"
)

func cdSpec() sample.Spec {
	return sample.Spec{Format: sample.S16LE, Channels: 2, Rate: 44100}
}

func TestNegotiatePlaybackDefaults(t *testing.T) {
	attr := Negotiate(BufferAttr{}, cdSpec(), Playback, NegotiateOptions{})
	require.Greater(t, attr.MaxLength, uint32(0))
	require.Greater(t, attr.TLength, uint32(0))
	require.LessOrEqual(t, attr.TLength, attr.MaxLength)
	require.LessOrEqual(t, attr.MinReq, attr.TLength)
	require.LessOrEqual(t, attr.Prebuf, attr.TLength)
	require.Equal(t, uint32(0), attr.Fragsize)
}

func TestNegotiateRecordDefaults(t *testing.T) {
	attr := Negotiate(BufferAttr{}, cdSpec(), Record, NegotiateOptions{})
	require.Greater(t, attr.Fragsize, uint32(0))
	require.LessOrEqual(t, attr.Fragsize, attr.MaxLength)
	require.Equal(t, uint32(0), attr.TLength)
}

func TestNegotiateHonorsExplicitRequest(t *testing.T) {
	requested := BufferAttr{MaxLength: 1 << 20, TLength: 8192, MinReq: 2048, Prebuf: 4096}
	attr := Negotiate(requested, cdSpec(), Playback, NegotiateOptions{})
	require.Equal(t, uint32(1<<20), attr.MaxLength)
	require.Equal(t, uint32(8192), attr.TLength)
	require.Equal(t, uint32(2048), attr.MinReq)
	require.Equal(t, uint32(4096), attr.Prebuf)
}

func TestNegotiateAdjustLatencySentinelFallsBackToDefault(t *testing.T) {
	requested := BufferAttr{TLength: AttrAdjustLatency}
	attr := Negotiate(requested, cdSpec(), Playback, NegotiateOptions{})
	require.NotEqual(t, uint32(AttrAdjustLatency), attr.TLength)
	require.Greater(t, attr.TLength, uint32(0))
}

func TestNegotiateLatencyMsecOverride(t *testing.T) {
	short := Negotiate(BufferAttr{}, cdSpec(), Playback, NegotiateOptions{LatencyMsec: 10})
	long := Negotiate(BufferAttr{}, cdSpec(), Playback, NegotiateOptions{LatencyMsec: 1000})
	require.Less(t, short.TLength, long.TLength)
}

func TestNegotiateMinReqNeverBelowOneFrame(t *testing.T) {
	requested := BufferAttr{TLength: 64, MinReq: 0}
	attr := Negotiate(requested, cdSpec(), Playback, NegotiateOptions{})
	frameSize, err := cdSpec().FrameSize()
	require.NoError(t, err)
	require.GreaterOrEqual(t, int(attr.MinReq), frameSize)
}

func TestNegotiateMinReqFractionRaisesFloor(t *testing.T) {
	requested := BufferAttr{MinReq: 64}
	plain := Negotiate(requested, cdSpec(), Playback, NegotiateOptions{})
	withFloor := Negotiate(requested, cdSpec(), Playback, NegotiateOptions{
		MinReq: Fraction{Num: 4, Denom: 1},
	})
	require.Greater(t, withFloor.MinReq, plain.MinReq)
	require.LessOrEqual(t, withFloor.MinReq, withFloor.TLength)
}

func TestNegotiateMinReqDefaultsToTlength(t *testing.T) {
	attr := Negotiate(BufferAttr{}, cdSpec(), Playback, NegotiateOptions{})
	require.Equal(t, attr.TLength, attr.MinReq)
}

func TestNegotiateDefaultTlengthFractionOverridesFixedDefault(t *testing.T) {
	plain := Negotiate(BufferAttr{}, cdSpec(), Playback, NegotiateOptions{})
	shorter := Negotiate(BufferAttr{}, cdSpec(), Playback, NegotiateOptions{
		DefaultTlength: Fraction{Num: 1, Denom: 4},
	})
	require.Less(t, shorter.TLength, plain.TLength)
}

func TestNegotiateLatencyMsecTakesPrecedenceOverDefaultTlengthFraction(t *testing.T) {
	attr := Negotiate(BufferAttr{}, cdSpec(), Playback, NegotiateOptions{
		LatencyMsec:    1000,
		DefaultTlength: Fraction{Num: 1, Denom: 100},
	})
	require.Greater(t, attr.TLength, uint32(0))
	longUSec, err := cdSpec().BytesToUSec(uint64(attr.TLength))
	require.NoError(t, err)
	require.InDelta(t, 1000*1000, longUSec, float64(2*time.Millisecond.Microseconds()))
}

func TestNegotiateInvalidFractionIsIgnored(t *testing.T) {
	plain := Negotiate(BufferAttr{}, cdSpec(), Playback, NegotiateOptions{})
	zeroDenom := Negotiate(BufferAttr{}, cdSpec(), Playback, NegotiateOptions{
		MinReq: Fraction{Num: 4, Denom: 0},
	})
	require.Equal(t, plain.MinReq, zeroDenom.MinReq)
}

func TestNegotiateRecordMinFragFractionRaisesFloor(t *testing.T) {
	requested := BufferAttr{Fragsize: 64}
	plain := Negotiate(requested, cdSpec(), Record, NegotiateOptions{})
	withFloor := Negotiate(requested, cdSpec(), Record, NegotiateOptions{
		MinFrag: Fraction{Num: 8, Denom: 1},
	})
	require.Greater(t, withFloor.Fragsize, plain.Fragsize)
}

func TestNegotiateRecordFragsizeDefaultsLikeTlength(t *testing.T) {
	playback := Negotiate(BufferAttr{}, cdSpec(), Playback, NegotiateOptions{})
	record := Negotiate(BufferAttr{}, cdSpec(), Record, NegotiateOptions{})
	require.Equal(t, playback.TLength, record.Fragsize)
}
