package introspect

import (
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
)

// classFacility maps an engine.Class to the wire subscription facility
// bit it belongs to.
func classFacility(c engine.Class) proto.Facility {
	switch c {
	case engine.ClassSink:
		return proto.MaskSink
	case engine.ClassSource:
		return proto.MaskSource
	case engine.ClassSinkInput:
		return proto.MaskSinkInput
	case engine.ClassSourceOutput:
		return proto.MaskSourceOutput
	case engine.ClassCard:
		return proto.MaskCard
	case engine.ClassModule:
		return proto.MaskModule
	case engine.ClassClient:
		return proto.MaskClient
	default:
		return 0
	}
}

func eventKind(k engine.EventKind) proto.EventKind {
	switch k {
	case engine.EventNew:
		return proto.EventNew
	case engine.EventRemove:
		return proto.EventRemove
	default:
		return proto.EventChange
	}
}

// SubscriptionType encodes a mirror/engine change event into the single
// u32 "type" field a SUBSCRIBE_EVENT command carries, or ok=false if the
// event's class has no wire facility (nothing in this object model falls
// into that bucket today, but Subscribe filtering elsewhere may still
// hand back a class this function doesn't recognize from a future
// engine extension).
func SubscriptionType(class engine.Class, kind engine.EventKind) (value uint32, facility proto.Facility, ok bool) {
	fac := classFacility(class)
	if fac == 0 {
		return 0, 0, false
	}
	return proto.EncodeSubscriptionEvent(fac, eventKind(kind)), fac, true
}

// Matches reports whether a client's subscription mask includes the
// given facility.
func Matches(mask proto.Facility, fac proto.Facility) bool {
	return mask&fac != 0
}
