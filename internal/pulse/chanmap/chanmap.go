// Package chanmap defines channel position identifiers and channel-map
// construction, matching the published PulseAudio PA_CHANNEL_POSITION_*
// wire values.
package chanmap

import pulseerrors "github.com/pulsenative/pulsed/internal/errors"

// Position is a single channel's speaker position, as carried in a
// channel-map tag.
type Position uint8

// Channel positions, matching the published wire enum ordering.
const (
	Mono Position = iota
	FrontLeft
	FrontRight
	FrontCenter
	RearCenter
	RearLeft
	RearRight
	LFE
	FrontLeftOfCenter
	FrontRightOfCenter
	SideLeft
	SideRight
	Aux0
	Aux1
	Aux2
	Aux3
	// Aux4..Aux31 occupy 16..43 and have no named constant here.
	TopCenter Position = iota + 28
	TopFrontLeft
	TopFrontRight
	TopFrontCenter
	TopRearLeft
	TopRearRight
	TopRearCenter
	positionCount
)

// MaxChannels is PA_CHANNELS_MAX, the hard ceiling on channels in any
// sample spec, channel map, or volume vector.
const MaxChannels = 32

var names = [positionCount]string{
	Mono: "mono", FrontLeft: "front-left", FrontRight: "front-right",
	FrontCenter: "front-center", RearCenter: "rear-center", RearLeft: "rear-left",
	RearRight: "rear-right", LFE: "lfe",
	FrontLeftOfCenter: "front-left-of-center", FrontRightOfCenter: "front-right-of-center",
	SideLeft: "side-left", SideRight: "side-right",
	Aux0: "aux0", Aux1: "aux1", Aux2: "aux2", Aux3: "aux3",
	TopCenter: "top-center",
	TopFrontLeft: "top-front-left", TopFrontRight: "top-front-right", TopFrontCenter: "top-front-center",
	TopRearLeft: "top-rear-left", TopRearRight: "top-rear-right", TopRearCenter: "top-rear-center",
}

// String renders the position's canonical wire name.
func (p Position) String() string {
	if int(p) < len(names) && names[p] != "" {
		return names[p]
	}
	return "invalid"
}

// Map is an ordered set of channel positions, one per channel in a stream's
// sample spec.
type Map struct {
	Positions []Position
}

// Stereo returns the conventional two-channel map.
func Stereo() Map { return Map{Positions: []Position{FrontLeft, FrontRight}} }

// MonoMap returns the conventional single-channel map.
func MonoMap() Map { return Map{Positions: []Position{Mono}} }

// Default returns the conventional map for the given channel count,
// following the same front/side/rear fill order libpulse's default mapping
// uses for up to 8 channels; beyond that every added channel is Aux(n).
func Default(channels int) Map {
	switch channels {
	case 1:
		return MonoMap()
	case 2:
		return Stereo()
	case 3:
		return Map{Positions: []Position{FrontLeft, FrontRight, LFE}}
	case 4:
		return Map{Positions: []Position{FrontLeft, FrontRight, RearLeft, RearRight}}
	case 5:
		return Map{Positions: []Position{FrontLeft, FrontRight, FrontCenter, RearLeft, RearRight}}
	case 6:
		return Map{Positions: []Position{FrontLeft, FrontRight, FrontCenter, LFE, RearLeft, RearRight}}
	}
	m := Map{Positions: []Position{FrontLeft, FrontRight, FrontCenter, LFE, RearLeft, RearRight, SideLeft, SideRight}}
	base := len(m.Positions)
	for i := base; i < channels; i++ {
		m.Positions = append(m.Positions, Aux0+Position(i-base))
	}
	if len(m.Positions) > channels {
		m.Positions = m.Positions[:channels]
	}
	return m
}

// Validate checks the map against a channel count and the protocol's
// channel ceiling.
func (m Map) Validate(channels int) error {
	if channels <= 0 || channels > MaxChannels {
		return pulseerrors.NewInvalidError("chanmap.validate.count", nil)
	}
	if len(m.Positions) != channels {
		return pulseerrors.NewInvalidError("chanmap.validate.length", nil)
	}
	return nil
}
