// Package introspect renders the mirror's object-graph snapshots into the
// wire-tagged reply payloads GET_*_INFO(_LIST) and SUBSCRIBE EVENT need,
// and the ServerInfo payload GET_SERVER_INFO returns. It is the one place
// that knows the field order for each object class, so the command
// dispatcher and the subscribe-event path (which re-sends the same shape
// for NEW/CHANGE notifications) share a single rendering.
package introspect

import (
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

// Node state values, matching the published PA_SINK_STATE_*/
// PA_SOURCE_STATE_* wire enumeration. The mirrored engine.Node only
// tracks Suspended, not the finer RUNNING/IDLE split a real sink reports
// based on whether anything is currently connected, so nodeState always
// reports RUNNING for an active node; this is recorded as a deliberate
// simplification rather than left silently wrong.
const (
	StateRunning   uint32 = 0
	StateIdle      uint32 = 1
	StateSuspended uint32 = 2
)

func nodeState(n engine.Node) uint32 {
	if n.Suspended {
		return StateSuspended
	}
	return StateRunning
}

// ownerCardOrInvalid renders a possibly-absent card association (-1) as
// the wire's INVALID_INDEX sentinel.
func ownerCardOrInvalid(idx int64) uint32 {
	if idx < 0 {
		return proto.InvalidIndex
	}
	return uint32(idx)
}

func clientIdxOrInvalid(idx int64) uint32 {
	if idx < 0 {
		return proto.InvalidIndex
	}
	return uint32(idx)
}

// stringProp returns props[key], or "" if absent, for fields that are
// sourced from a node/stream's property bag rather than a dedicated
// struct field (media.name, application.name, ...).
func stringProp(props map[string]string, key string) string {
	return props[key]
}

func toProplist(props map[string]string) tag.Proplist {
	out := make(tag.Proplist, len(props))
	for k, v := range props {
		out[k] = []byte(v)
	}
	return out
}
