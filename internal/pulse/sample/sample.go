// Package sample defines the PCM sample format enum and the fixed-size
// spec used to describe a stream's encoding, matching PulseAudio's
// published pa_sample_format_t and pa_sample_spec.
package sample

import (
	"fmt"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// Format identifies a PCM sample encoding, matching the published
// PA_SAMPLE_* wire values.
type Format uint8

// Sample formats, in their published wire ordering.
const (
	U8        Format = 0
	ALaw      Format = 1
	ULaw      Format = 2
	S16LE     Format = 3
	S16BE     Format = 4
	Float32LE Format = 5
	Float32BE Format = 6
	S32LE     Format = 7
	S32BE     Format = 8
	S24LE     Format = 9
	S24BE     Format = 10
	S24_32LE  Format = 11
	S24_32BE  Format = 12

	formatCount = S24_32BE + 1
)

var byteWidth = [formatCount]int{
	U8: 1, ALaw: 1, ULaw: 1,
	S16LE: 2, S16BE: 2,
	Float32LE: 4, Float32BE: 4,
	S32LE: 4, S32BE: 4,
	S24LE: 3, S24BE: 3,
	S24_32LE: 4, S24_32BE: 4,
}

var names = [formatCount]string{
	U8: "u8", ALaw: "alaw", ULaw: "ulaw",
	S16LE: "s16le", S16BE: "s16be",
	Float32LE: "float32le", Float32BE: "float32be",
	S32LE: "s32le", S32BE: "s32be",
	S24LE: "s24le", S24BE: "s24be",
	S24_32LE: "s24-32le", S24_32BE: "s24-32be",
}

// String renders the format's canonical wire name.
func (f Format) String() string {
	if int(f) < len(names) && names[f] != "" {
		return names[f]
	}
	return "invalid"
}

// Valid reports whether f is a recognized format.
func (f Format) Valid() bool {
	return int(f) < len(byteWidth) && names[f] != ""
}

// BytesPerSample returns the per-channel byte width of one sample in format f.
func (f Format) BytesPerSample() (int, error) {
	if !f.Valid() {
		return 0, pulseerrors.NewInvalidError("sample.format", fmt.Errorf("unknown format %d", f))
	}
	return byteWidth[f], nil
}

// Spec is the fixed {format, channels, rate} triple negotiated for every
// stream.
type Spec struct {
	Format   Format
	Channels uint8
	Rate     uint32
}

// MaxChannels mirrors chanmap.MaxChannels without creating an import cycle
// between the two leaf packages; both enforce PA_CHANNELS_MAX = 32.
const MaxChannels = 32

// MinRate and MaxRate bound the sample rates this server will negotiate,
// matching the published PA_RATE_MIN/PA_RATE_MAX constants.
const (
	MinRate uint32 = 1
	MaxRate uint32 = 384000
)

// FrameSize returns the byte size of one sample frame (one sample per
// channel) for this spec.
func (s Spec) FrameSize() (int, error) {
	w, err := s.Format.BytesPerSample()
	if err != nil {
		return 0, err
	}
	return w * int(s.Channels), nil
}

// BytesPerSecond returns the nominal data rate implied by this spec.
func (s Spec) BytesPerSecond() (int, error) {
	fs, err := s.FrameSize()
	if err != nil {
		return 0, err
	}
	return fs * int(s.Rate), nil
}

// Validate checks the spec against the protocol's channel and rate bounds.
func (s Spec) Validate() error {
	if !s.Format.Valid() {
		return pulseerrors.NewInvalidError("sample.spec.format", nil)
	}
	if s.Channels == 0 || int(s.Channels) > MaxChannels {
		return pulseerrors.NewInvalidError("sample.spec.channels", nil)
	}
	if s.Rate < MinRate || s.Rate > MaxRate {
		return pulseerrors.NewInvalidError("sample.spec.rate", nil)
	}
	return nil
}

// USecToBytes converts a microsecond duration to a byte count for this
// spec, rounding down to the nearest whole frame.
func (s Spec) USecToBytes(usec uint64) (uint64, error) {
	fs, err := s.FrameSize()
	if err != nil {
		return 0, err
	}
	frames := usec * uint64(s.Rate) / 1000000
	return frames * uint64(fs), nil
}

// BytesToUSec converts a byte count for this spec to a microsecond
// duration.
func (s Spec) BytesToUSec(n uint64) (uint64, error) {
	fs, err := s.FrameSize()
	if err != nil || fs == 0 {
		return 0, err
	}
	frames := n / uint64(fs)
	return frames * 1000000 / uint64(s.Rate), nil
}
