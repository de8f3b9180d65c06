package mirror

// propertyRemap pairs an internal graph property key with the PulseAudio
// key a client expects to see in a proplist. Both directions use the same
// table: outbound (graph -> wire) looks up by internal key, inbound
// (wire -> graph) looks up by pulse key.
type propertyRemap struct {
	internal string
	pulse    string
}

// remapTable is the fixed bidirectional property-key mapping, mirroring
// the real server's proplist translation between its internal node/device
// property namespace and the PulseAudio proplist keys clients understand.
var remapTable = []propertyRemap{
	{"node.description", "device.description"},
	{"node.nick", "device.description"},
	{"device.icon_name", "device.icon_name"},
	{"device.bus", "device.bus"},
	{"device.form_factor", "device.form_factor"},
	{"device.api", "device.api"},
	{"device.serial", "device.serial"},
	{"audio.channels", "device.channels"},
	{"application.name", "application.name"},
	{"application.icon_name", "application.icon_name"},
	{"application.process.id", "application.process.id"},
	{"application.process.binary", "application.process.binary"},
	{"application.process.user", "application.process.user"},
	{"media.name", "media.name"},
	{"media.role", "media.role"},
}

// roleRemap is the media.role child table: internal role value on the
// left, PulseAudio role value on the right. Several internal roles
// (animation) collapse onto the same PulseAudio role (movie); the inverse
// direction picks the first match.
var roleRemap = []propertyRemap{
	{"video", "Movie"},
	{"music", "Music"},
	{"game", "Game"},
	{"event", "Notification"},
	{"phone", "Communication"},
	{"animation", "Movie"},
	{"production", "Production"},
	{"a11y", "Accessibility"},
	{"test", "Test"},
}

func internalToPulseKey(key string) (string, bool) {
	for _, r := range remapTable {
		if r.internal == key {
			return r.pulse, true
		}
	}
	return "", false
}

func pulseToInternalKey(key string) (string, bool) {
	for _, r := range remapTable {
		if r.pulse == key {
			return r.internal, true
		}
	}
	return "", false
}

func internalToPulseRole(role string) string {
	for _, r := range roleRemap {
		if r.internal == role {
			return r.pulse
		}
	}
	return role
}

func pulseToInternalRole(role string) string {
	for _, r := range roleRemap {
		if r.pulse == role {
			return r.internal
		}
	}
	return role
}

// RemapOutbound translates a graph-side property bag into the proplist a
// client expects: keys are remapped through remapTable, and media.role
// values are additionally remapped through roleRemap. Keys with no entry
// in the table pass through unchanged, matching the real server's
// behavior of forwarding unrecognized properties verbatim.
func RemapOutbound(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		outKey := k
		if pulseKey, ok := internalToPulseKey(k); ok {
			outKey = pulseKey
		}
		if k == "media.role" {
			v = internalToPulseRole(v)
		}
		out[outKey] = v
	}
	return out
}

// RemapInbound translates a client-supplied proplist back into the graph's
// internal property namespace, the inverse of RemapOutbound.
func RemapInbound(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		outKey := k
		if internalKey, ok := pulseToInternalKey(k); ok {
			outKey = internalKey
		}
		if outKey == "media.role" {
			v = pulseToInternalRole(v)
		}
		out[outKey] = v
	}
	return out
}
