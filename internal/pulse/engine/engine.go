// Package engine declares the interface to the external multimedia-server
// object graph this wire-protocol server projects: the sinks, sources,
// streams, cards, modules, and clients actually live somewhere else (the
// graph the real server schedules audio through), and this process only
// mirrors and manipulates them through this narrow collaborator interface.
// Nothing in this package schedules audio or owns a node graph; Fake exists
// so the rest of the tree has something concrete to mirror and test
// against.
package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Class identifies which object table an Index belongs to.
type Class uint8

// Object classes mirrored from the external graph.
const (
	ClassSink Class = iota
	ClassSource
	ClassSinkInput
	ClassSourceOutput
	ClassCard
	ClassModule
	ClassClient
)

func (c Class) String() string {
	switch c {
	case ClassSink:
		return "sink"
	case ClassSource:
		return "source"
	case ClassSinkInput:
		return "sink-input"
	case ClassSourceOutput:
		return "source-output"
	case ClassCard:
		return "card"
	case ClassModule:
		return "module"
	case ClassClient:
		return "client"
	default:
		return "unknown"
	}
}

// Node describes a sink or source: a playback or capture endpoint in the
// external graph, carrying whatever property bag the graph itself attaches
// (node.description, device.api, media.class, ...).
type Node struct {
	Index       uint32
	Name        string
	Description string
	OwnerCard   int64 // -1 if not associated with a card
	Channels    uint8
	Rate        uint32
	Format      uint8
	ChannelMap  []uint8
	Volume      []uint32
	Muted       bool
	Suspended   bool
	Props       map[string]string
}

// Stream describes a sink-input or source-output: one client's connection
// into a node.
type Stream struct {
	Index      uint32
	ClientIdx  int64 // -1 if orphaned
	NodeIndex  uint32
	Channels   uint8
	Rate       uint32
	Format     uint8
	ChannelMap []uint8
	Volume     []uint32
	Muted      bool
	Corked     bool
	Props      map[string]string
}

// Card describes a hardware or virtual audio device grouping one or more
// nodes, with a set of selectable profiles.
type Card struct {
	Index    uint32
	Name     string
	Driver   string
	Profiles []string
	Active   string
	Props    map[string]string
}

// Module describes a loaded server module (real or shimmed).
type Module struct {
	Index    uint32
	Name     string
	Argument string
}

// Client describes a connected native-protocol peer as seen from the graph
// side (as opposed to internal/pulse/session.Session, which is this
// process's view of the same connection).
type Client struct {
	Index int64
	Name  string
	Props map[string]string
}

// EventKind classifies a change notification.
type EventKind uint8

// Event kinds, matching the subscription semantics of the wire protocol.
const (
	EventNew EventKind = iota
	EventChange
	EventRemove
)

// Event is a single object-graph change notification.
type Event struct {
	Kind  EventKind
	Class Class
	Index uint32
}

// Engine is the narrow collaborator interface the rest of this server
// depends on. A real deployment backs this with a connection to the actual
// multimedia graph; Fake backs it with an in-memory store for tests and as
// the default standalone backend.
type Engine interface {
	ListNodes(ctx context.Context, class Class) ([]Node, error)
	GetNode(ctx context.Context, class Class, index uint32) (Node, error)
	ListStreams(ctx context.Context, class Class) ([]Stream, error)
	GetStream(ctx context.Context, class Class, index uint32) (Stream, error)
	ListCards(ctx context.Context) ([]Card, error)
	ListModules(ctx context.Context) ([]Module, error)
	ListClients(ctx context.Context) ([]Client, error)

	SetNodeVolume(ctx context.Context, class Class, index uint32, volume []uint32) error
	SetNodeMute(ctx context.Context, class Class, index uint32, muted bool) error
	SetStreamVolume(ctx context.Context, class Class, index uint32, volume []uint32) error
	SetStreamMute(ctx context.Context, class Class, index uint32, muted bool) error
	MoveStream(ctx context.Context, class Class, streamIndex, targetNodeIndex uint32) error
	KillStream(ctx context.Context, class Class, index uint32) error
	SetCardProfile(ctx context.Context, cardIndex uint32, profile string) error

	// LoadModule and UnloadModule back LOAD_MODULE/UNLOAD_MODULE. A real
	// deployment would reject most module names outright (this server has
	// no loadable-module mechanism of its own to drive); Fake accepts any
	// name so the command path and ListModules reflect it.
	LoadModule(ctx context.Context, name, argument string) (uint32, error)
	UnloadModule(ctx context.Context, index uint32) error

	// CreateStream registers a new sink-input or source-output in the
	// object graph for a wire client's new playback/record stream and
	// returns its assigned index. DestroyStream removes one, mirroring
	// the wire client tearing its stream down (DELETE_*_STREAM or
	// connection loss), distinct from KillStream which models an admin
	// client forcibly ending someone else's stream.
	CreateStream(ctx context.Context, class Class, s Stream) (uint32, error)
	DestroyStream(ctx context.Context, class Class, index uint32) error

	// RegisterClient and UnregisterClient mirror a wire session naming
	// itself (SET_CLIENT_NAME) and disconnecting into the graph's client
	// table, the same create/destroy split CreateStream/DestroyStream
	// give the sink-input/source-output tables.
	RegisterClient(ctx context.Context, name string, props map[string]string) (int64, error)
	UnregisterClient(ctx context.Context, index int64) error

	// Subscribe registers a change listener and returns a unique handle plus
	// a channel delivering events until Unsubscribe is called with the same
	// handle. The channel is closed by Unsubscribe, never by the engine.
	Subscribe(ctx context.Context) (uuid.UUID, <-chan Event)
	Unsubscribe(handle uuid.UUID)
}

// subscriber is the fan-out registration shared by every Engine
// implementation that needs one (currently only Fake).
type subscriber struct {
	ch chan Event
}

// broadcaster is embeddable plumbing for in-process Engine implementations:
// a registry of subscriber channels guarded by a mutex, mirroring the
// teacher's stream-registry broadcast pattern generalized from one stream's
// subscriber list to the whole object graph's change feed.
type broadcaster struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*subscriber
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[uuid.UUID]*subscriber)}
}

func (b *broadcaster) subscribe() (uuid.UUID, <-chan Event) {
	id := uuid.New()
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[id] = &subscriber{ch: ch}
	b.mu.Unlock()
	return id, ch
}

func (b *broadcaster) unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}

func (b *broadcaster) publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			// Slow subscriber: drop rather than block the object graph.
		}
	}
}
