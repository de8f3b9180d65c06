package introspect

import (
	"github.com/pulsenative/pulsed/internal/pulse/chanmap"
	"github.com/pulsenative/pulsed/internal/pulse/sample"
	"github.com/pulsenative/pulsed/internal/pulse/volume"
)

// specOf builds the sample.Spec the mirror's engine.Node/engine.Stream
// structs carry as three separate scalar fields, since the engine
// collaborator interface deliberately avoids depending on this server's
// wire-facing sample package.
func specOf(format uint8, channels uint8, rate uint32) sample.Spec {
	return sample.Spec{Format: sample.Format(format), Channels: channels, Rate: rate}
}

func mapOf(positions []uint8) chanmap.Map {
	out := make([]chanmap.Position, len(positions))
	for i, p := range positions {
		out[i] = chanmap.Position(p)
	}
	return chanmap.Map{Positions: out}
}

func volumeOf(values []uint32) volume.CVolume {
	return volume.CVolume{Values: values}
}
