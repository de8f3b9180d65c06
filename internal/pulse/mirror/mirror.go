// Package mirror maintains this server's classified view of the external
// object graph: sinks, sources, streams, cards, modules, and clients
// mirrored from internal/pulse/engine, with PulseAudio-shaped property
// lists, link synthesis between streams and the nodes they run on, and
// the "default"/"routes" metadata shim the stream-restore extension
// reads and writes through.
package mirror

import (
	"context"
	"sync"

	"github.com/google/uuid"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/engine"
)

// EventKind classifies a mirror-level change notification, matching the
// wire protocol's NEW/CHANGE/REMOVE subscription event categories.
type EventKind = engine.EventKind

// Re-exported for callers that only need mirror, not engine, in scope.
const (
	EventNew    = engine.EventNew
	EventChange = engine.EventChange
	EventRemove = engine.EventRemove
)

// Event is a classified, already-remapped object-graph change.
type Event struct {
	Kind  EventKind
	Class engine.Class
	Index uint32
}

type subscriber struct {
	ch chan Event
}

// Manager subscribes to an engine.Engine's change feed, tracks the link
// set between streams and their nodes, and fans out change events to
// sessions subscribed through Subscribe. It keeps no per-object cache;
// object state is read from the engine.
//
// The per-object "initialised" flag the real server keeps (to distinguish
// the first NEW notification from later CHANGEs during a slow object
// bring-up) is folded into the engine's own EventKind, since this
// server's Engine collaborator already reports NEW vs CHANGE for each
// publish; the mirror's job is purely classification, remap, and
// re-broadcast.
type Manager struct {
	eng engine.Engine

	mu    sync.RWMutex
	links map[uint32]uint32 // stream index (any class) -> node index

	meta *Metadata

	subMu sync.RWMutex
	subs  map[uuid.UUID]*subscriber

	engineSubID uuid.UUID
	cancel      context.CancelFunc
}

// NewManager constructs a Manager bound to eng. Call Run to start
// consuming the engine's change feed.
func NewManager(eng engine.Engine) *Manager {
	return &Manager{
		eng:   eng,
		links: make(map[uint32]uint32),
		meta:  newMetadata(),
		subs:  make(map[uuid.UUID]*subscriber),
	}
}

// Metadata returns the mirror's default/routes metadata shim.
func (m *Manager) Metadata() *Metadata {
	return m.meta
}

// MetadataObjectNames lists the two specially tracked metadata object
// names, for introspection commands that enumerate metadata objects.
func MetadataObjectNames() []string {
	return []string{metadataDefaultKey, metadataRoutesKey}
}

// Run subscribes to the engine's change feed and mirrors events until ctx
// is cancelled or Stop is called. It is meant to run in its own
// goroutine for the server's lifetime.
func (m *Manager) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	id, events := m.eng.Subscribe(ctx)
	m.engineSubID = id
	defer m.eng.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.handleEngineEvent(ctx, ev)
		}
	}
}

// Stop tears down the mirror's engine subscription.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	m.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) handleEngineEvent(ctx context.Context, ev engine.Event) {
	switch ev.Class {
	case engine.ClassSinkInput, engine.ClassSourceOutput:
		m.syncLink(ctx, ev)
	}
	m.publish(Event{Kind: ev.Kind, Class: ev.Class, Index: ev.Index})
}

// syncLink keeps the stream->node link table current so LinkedNode can
// answer "which sink is this stream-output on" without a round trip to
// the engine on every query.
func (m *Manager) syncLink(ctx context.Context, ev engine.Event) {
	if ev.Kind == engine.EventRemove {
		m.mu.Lock()
		delete(m.links, ev.Index)
		m.mu.Unlock()
		return
	}
	s, err := m.eng.GetStream(ctx, ev.Class, ev.Index)
	if err != nil {
		return
	}
	m.mu.Lock()
	prev, had := m.links[ev.Index]
	m.links[ev.Index] = s.NodeIndex
	m.mu.Unlock()
	if had && prev != s.NodeIndex {
		// Endpoint changed: the node on both sides of the move needs a
		// CHANGE notification since their link set changed.
		m.publish(Event{Kind: engine.EventChange, Class: nodeClassFor(ev.Class), Index: prev})
		m.publish(Event{Kind: engine.EventChange, Class: nodeClassFor(ev.Class), Index: s.NodeIndex})
	}
}

func nodeClassFor(streamClass engine.Class) engine.Class {
	if streamClass == engine.ClassSourceOutput {
		return engine.ClassSource
	}
	return engine.ClassSink
}

// LinkedNode returns the node index a stream (sink-input or
// source-output) currently runs on.
func (m *Manager) LinkedNode(streamIndex uint32) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.links[streamIndex]
	return idx, ok
}

// Sink returns a sink node with its properties remapped to PulseAudio
// keys.
func (m *Manager) Sink(ctx context.Context, index uint32) (engine.Node, error) {
	return m.remappedNode(ctx, engine.ClassSink, index)
}

// Source returns a source node with its properties remapped.
func (m *Manager) Source(ctx context.Context, index uint32) (engine.Node, error) {
	return m.remappedNode(ctx, engine.ClassSource, index)
}

func (m *Manager) remappedNode(ctx context.Context, class engine.Class, index uint32) (engine.Node, error) {
	n, err := m.eng.GetNode(ctx, class, index)
	if err != nil {
		return engine.Node{}, err
	}
	n.Props = RemapOutbound(n.Props)
	return n, nil
}

// Sinks lists all sinks with remapped properties.
func (m *Manager) Sinks(ctx context.Context) ([]engine.Node, error) {
	return m.remappedNodes(ctx, engine.ClassSink)
}

// Sources lists all sources with remapped properties.
func (m *Manager) Sources(ctx context.Context) ([]engine.Node, error) {
	return m.remappedNodes(ctx, engine.ClassSource)
}

func (m *Manager) remappedNodes(ctx context.Context, class engine.Class) ([]engine.Node, error) {
	nodes, err := m.eng.ListNodes(ctx, class)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Node, len(nodes))
	for i, n := range nodes {
		n.Props = RemapOutbound(n.Props)
		out[i] = n
	}
	return out, nil
}

// SinkInputs lists all sink-input streams with remapped properties.
func (m *Manager) SinkInputs(ctx context.Context) ([]engine.Stream, error) {
	return m.remappedStreams(ctx, engine.ClassSinkInput)
}

// SourceOutputs lists all source-output streams with remapped
// properties.
func (m *Manager) SourceOutputs(ctx context.Context) ([]engine.Stream, error) {
	return m.remappedStreams(ctx, engine.ClassSourceOutput)
}

func (m *Manager) remappedStreams(ctx context.Context, class engine.Class) ([]engine.Stream, error) {
	streams, err := m.eng.ListStreams(ctx, class)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Stream, len(streams))
	for i, s := range streams {
		s.Props = RemapOutbound(s.Props)
		out[i] = s
	}
	return out, nil
}

// Cards lists all cards.
func (m *Manager) Cards(ctx context.Context) ([]engine.Card, error) {
	cards, err := m.eng.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Card, len(cards))
	for i, c := range cards {
		c.Props = RemapOutbound(c.Props)
		out[i] = c
	}
	return out, nil
}

// Modules lists all loaded modules.
func (m *Manager) Modules(ctx context.Context) ([]engine.Module, error) {
	return m.eng.ListModules(ctx)
}

// Clients lists all connected clients as seen from the graph side.
func (m *Manager) Clients(ctx context.Context) ([]engine.Client, error) {
	clients, err := m.eng.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Client, len(clients))
	for i, c := range clients {
		c.Props = RemapOutbound(c.Props)
		out[i] = c
	}
	return out, nil
}

// Subscribe registers a listener for remapped, link-aware change events.
func (m *Manager) Subscribe() (uuid.UUID, <-chan Event) {
	id := uuid.New()
	ch := make(chan Event, 64)
	m.subMu.Lock()
	m.subs[id] = &subscriber{ch: ch}
	m.subMu.Unlock()
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (m *Manager) Unsubscribe(id uuid.UUID) {
	m.subMu.Lock()
	sub, ok := m.subs[id]
	if ok {
		delete(m.subs, id)
	}
	m.subMu.Unlock()
	if ok {
		close(sub.ch)
	}
}

func (m *Manager) publish(ev Event) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	for _, sub := range m.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// errNoSuchMetadataObject is returned by extension commands that address
// a metadata object by name outside the two this mirror tracks.
var errNoSuchMetadataObject = pulseerrors.NewNoEntityError("mirror.metadata.object", nil)
