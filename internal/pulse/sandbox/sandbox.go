// Package sandbox resolves a connecting client's confinement label (as
// reported by the kernel's LSM, typically AppArmor under snapd) to an audio
// capability grant, matching the real server's snap-policy gate: a confined
// client only gets the sink/source access its snap's connected plugs grant
// it, while an unconfined or non-snap client gets full access.
package sandbox

import "strings"

// Capability is the audio access level granted to a client.
type Capability uint8

// Capability levels, from least to most permissive.
const (
	// NotASandbox means the client carries no snap confinement label at
	// all: an ordinary classic-confinement or distro-packaged process.
	NotASandbox Capability = iota
	// None means the client is snap-confined but has neither the
	// audio-playback nor audio-record plug connected.
	None
	// Playback grants sink access only.
	Playback
	// Record grants source access only.
	Record
	// All grants both, either via both plugs or the legacy "pulseaudio"
	// plug, or because the client belongs to this server's own snap.
	All
)

const snapLabelPrefix = "snap."

// PolicyClient abstracts the snapd query needed to resolve a confined
// client's connected plugs. A real deployment backs this with an HTTP
// client against the local snapd socket; tests use a map-backed fake.
type PolicyClient interface {
	// IsPlugConnected reports whether snapName has plugName connected to
	// any slot.
	IsPlugConnected(snapName, plugName string) (bool, error)
}

// Plug names this gate checks, matching the real interface names.
const (
	PlugAudioPlayback = "audio-playback"
	PlugAudioRecord   = "audio-record"
	PlugPulseAudio    = "pulseaudio" // legacy full-access plug
)

// Resolve computes a client's Capability from its confinement label.
//
//   - An empty label, or one not prefixed "snap.", means the process isn't
//     snap-confined at all: NotASandbox (full access, nothing to check).
//   - A label ending in "(complain)" or equal to "unconfined" is a
//     non-enforcing AppArmor profile: treated the same as NotASandbox.
//   - selfSnapName is this server's own snap name, if it is itself running
//     confined; a client belonging to the same snap always gets All.
//   - Otherwise the snap name is extracted from the label
//     ("snap.<name>.<app>") and plug connections are queried.
func Resolve(label string, selfSnapName string, client PolicyClient) (Capability, error) {
	if label == "" || !strings.HasPrefix(label, snapLabelPrefix) {
		return NotASandbox, nil
	}
	if label == "unconfined" || strings.HasSuffix(label, "(complain)") {
		return NotASandbox, nil
	}

	snapName := snapNameFromLabel(label)
	if snapName == "" {
		return NotASandbox, nil
	}
	if selfSnapName != "" && snapName == selfSnapName {
		return All, nil
	}
	if client == nil {
		return None, nil
	}

	full, err := client.IsPlugConnected(snapName, PlugPulseAudio)
	if err != nil {
		return None, err
	}
	if full {
		return All, nil
	}

	playback, err := client.IsPlugConnected(snapName, PlugAudioPlayback)
	if err != nil {
		return None, err
	}
	record, err := client.IsPlugConnected(snapName, PlugAudioRecord)
	if err != nil {
		return None, err
	}

	switch {
	case playback && record:
		return All, nil
	case playback:
		return Playback, nil
	case record:
		return Record, nil
	default:
		return None, nil
	}
}

// snapNameFromLabel extracts "name" from a "snap.name.app" AppArmor label.
func snapNameFromLabel(label string) string {
	rest := strings.TrimPrefix(label, snapLabelPrefix)
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// AllowsPlayback reports whether c permits creating playback streams
// against sinks.
func (c Capability) AllowsPlayback() bool {
	return c == NotASandbox || c == Playback || c == All
}

// AllowsRecord reports whether c permits creating record streams against
// sources.
func (c Capability) AllowsRecord() bool {
	return c == NotASandbox || c == Record || c == All
}
