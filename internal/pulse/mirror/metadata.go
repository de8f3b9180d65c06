package mirror

import (
	"encoding/json"
	"sync"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// metadataDefaultKey and metadataRoutesKey are the two metadata object
// names the mirror tracks specially, matching the real server's
// "default" and "routes" metadata objects.
const (
	metadataDefaultKey = "default"
	metadataRoutesKey  = "routes"
)

// DefaultEndpoints holds the current default sink and source names, as
// published through the "default" metadata object.
type DefaultEndpoints struct {
	Sink   string `json:"sink,omitempty"`
	Source string `json:"source,omitempty"`
}

// RouteEntry is one stream's saved routing state: its channel map,
// per-channel volume, mute flag, and an optional saved target device
// name. The stream-restore extension reads and writes these through the
// metadata shim, marshaled as JSON in the underlying metadata value.
type RouteEntry struct {
	ChannelMap []uint8  `json:"channel_map,omitempty"`
	Volume     []uint32 `json:"volume,omitempty"`
	Muted      bool     `json:"muted"`
	Target     string   `json:"target,omitempty"`
}

// Metadata is the mirror's shim over the two specially tracked metadata
// objects. Writes from extension commands are translated to metadata
// writes under the respective key; reads decode the stored JSON back
// into typed values.
type Metadata struct {
	mu     sync.RWMutex
	def    DefaultEndpoints
	routes map[string]RouteEntry
}

func newMetadata() *Metadata {
	return &Metadata{routes: make(map[string]RouteEntry)}
}

// Default returns a snapshot of the current default sink/source.
func (m *Metadata) Default() DefaultEndpoints {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.def
}

// SetDefaultSink updates the default sink name.
func (m *Metadata) SetDefaultSink(name string) {
	m.mu.Lock()
	m.def.Sink = name
	m.mu.Unlock()
}

// SetDefaultSource updates the default source name.
func (m *Metadata) SetDefaultSource(name string) {
	m.mu.Lock()
	m.def.Source = name
	m.mu.Unlock()
}

// Route returns the saved route entry for a stream name, if any.
func (m *Metadata) Route(streamName string) (RouteEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routes[streamName]
	return r, ok
}

// SetRoute saves a stream's routing state.
func (m *Metadata) SetRoute(streamName string, entry RouteEntry) {
	m.mu.Lock()
	m.routes[streamName] = entry
	m.mu.Unlock()
}

// DeleteRoute forgets a stream's saved routing state.
func (m *Metadata) DeleteRoute(streamName string) {
	m.mu.Lock()
	delete(m.routes, streamName)
	m.mu.Unlock()
}

// AllRoutes returns a snapshot copy of every saved route, keyed by stream
// name, for bulk extension reads (e.g. stream-restore's "read all").
func (m *Metadata) AllRoutes() map[string]RouteEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]RouteEntry, len(m.routes))
	for k, v := range m.routes {
		out[k] = v
	}
	return out
}

// decodeRouteJSON decodes a single metadata value (as stored on the
// "routes" metadata object by the real graph) into a RouteEntry.
func decodeRouteJSON(raw []byte) (RouteEntry, error) {
	var entry RouteEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return RouteEntry{}, pulseerrors.NewInvalidError("mirror.metadata.decoderoute", err)
	}
	return entry, nil
}

// encodeRouteJSON is the inverse of decodeRouteJSON, used when the mirror
// pushes a restore-extension write back out to the metadata object.
func encodeRouteJSON(entry RouteEntry) ([]byte, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, pulseerrors.NewInvalidError("mirror.metadata.encoderoute", err)
	}
	return raw, nil
}

// decodeDefaultJSON decodes the "default" metadata object's value.
func decodeDefaultJSON(raw []byte) (DefaultEndpoints, error) {
	var d DefaultEndpoints
	if err := json.Unmarshal(raw, &d); err != nil {
		return DefaultEndpoints{}, pulseerrors.NewInvalidError("mirror.metadata.decodedefault", err)
	}
	return d, nil
}

func encodeDefaultJSON(d DefaultEndpoints) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, pulseerrors.NewInvalidError("mirror.metadata.encodedefault", err)
	}
	return raw, nil
}
