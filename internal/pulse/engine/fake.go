package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// Fake is an in-memory Engine used by tests and as the default backend when
// this server is run without a real multimedia-graph connection. It holds
// one table per object Class and fans out change events to subscribers.
type Fake struct {
	*broadcaster

	mu       sync.RWMutex
	nodes    map[Class]map[uint32]Node
	streams  map[Class]map[uint32]Stream
	cards    map[uint32]Card
	modules  map[uint32]Module
	clients  map[int64]Client
	nextIdx  uint32
	nextClID int64
}

// NewFake returns an empty Fake engine.
func NewFake() *Fake {
	return &Fake{
		broadcaster: newBroadcaster(),
		nodes: map[Class]map[uint32]Node{
			ClassSink:   {},
			ClassSource: {},
		},
		streams: map[Class]map[uint32]Stream{
			ClassSinkInput:    {},
			ClassSourceOutput: {},
		},
		cards:   map[uint32]Card{},
		modules: map[uint32]Module{},
		clients: map[int64]Client{},
	}
}

// nextIndex hands out monotonically increasing object indexes starting at
// 1 (an Index of 0 asks AddNode/AddStream for a fresh one), shared
// across classes the way the real object graph's global index space works.
func (f *Fake) nextIndex() uint32 {
	return atomic.AddUint32(&f.nextIdx, 1)
}

// AddNode inserts or replaces a node (sink/source) and publishes a NEW (or
// CHANGE, if it already existed) event.
func (f *Fake) AddNode(class Class, n Node) uint32 {
	f.mu.Lock()
	_, existed := f.nodes[class][n.Index]
	if n.Index == 0 && !existed {
		n.Index = f.nextIndex()
	}
	f.nodes[class][n.Index] = n
	f.mu.Unlock()
	kind := EventNew
	if existed {
		kind = EventChange
	}
	f.publish(Event{Kind: kind, Class: class, Index: n.Index})
	return n.Index
}

// RemoveNode deletes a node and publishes a REMOVE event.
func (f *Fake) RemoveNode(class Class, index uint32) {
	f.mu.Lock()
	delete(f.nodes[class], index)
	f.mu.Unlock()
	f.publish(Event{Kind: EventRemove, Class: class, Index: index})
}

// AddStream inserts or replaces a stream (sink-input/source-output) and
// publishes the corresponding event.
func (f *Fake) AddStream(class Class, s Stream) uint32 {
	f.mu.Lock()
	_, existed := f.streams[class][s.Index]
	if s.Index == 0 && !existed {
		s.Index = f.nextIndex()
	}
	f.streams[class][s.Index] = s
	f.mu.Unlock()
	kind := EventNew
	if existed {
		kind = EventChange
	}
	f.publish(Event{Kind: kind, Class: class, Index: s.Index})
	return s.Index
}

// RemoveStream deletes a stream and publishes a REMOVE event.
func (f *Fake) RemoveStream(class Class, index uint32) {
	f.mu.Lock()
	delete(f.streams[class], index)
	f.mu.Unlock()
	f.publish(Event{Kind: EventRemove, Class: class, Index: index})
}

// AddClient registers a client as seen from the graph side.
func (f *Fake) AddClient(name string, props map[string]string) int64 {
	f.mu.Lock()
	f.nextClID++
	idx := f.nextClID
	f.clients[idx] = Client{Index: idx, Name: name, Props: props}
	f.mu.Unlock()
	f.publish(Event{Kind: EventNew, Class: ClassClient, Index: uint32(idx)})
	return idx
}

func (f *Fake) ListNodes(_ context.Context, class Class) ([]Node, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Node, 0, len(f.nodes[class]))
	for _, n := range f.nodes[class] {
		out = append(out, n)
	}
	return out, nil
}

func (f *Fake) GetNode(_ context.Context, class Class, index uint32) (Node, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n, ok := f.nodes[class][index]
	if !ok {
		return Node{}, pulseerrors.NewNoEntityError("engine.getnode", nil)
	}
	return n, nil
}

func (f *Fake) ListStreams(_ context.Context, class Class) ([]Stream, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Stream, 0, len(f.streams[class]))
	for _, s := range f.streams[class] {
		out = append(out, s)
	}
	return out, nil
}

func (f *Fake) GetStream(_ context.Context, class Class, index uint32) (Stream, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.streams[class][index]
	if !ok {
		return Stream{}, pulseerrors.NewNoEntityError("engine.getstream", nil)
	}
	return s, nil
}

func (f *Fake) ListCards(_ context.Context) ([]Card, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Card, 0, len(f.cards))
	for _, c := range f.cards {
		out = append(out, c)
	}
	return out, nil
}

func (f *Fake) ListModules(_ context.Context) ([]Module, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Module, 0, len(f.modules))
	for _, m := range f.modules {
		out = append(out, m)
	}
	return out, nil
}

func (f *Fake) ListClients(_ context.Context) ([]Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Client, 0, len(f.clients))
	for _, c := range f.clients {
		out = append(out, c)
	}
	return out, nil
}

func (f *Fake) SetNodeVolume(_ context.Context, class Class, index uint32, vol []uint32) error {
	f.mu.Lock()
	n, ok := f.nodes[class][index]
	if !ok {
		f.mu.Unlock()
		return pulseerrors.NewNoEntityError("engine.setnodevolume", nil)
	}
	n.Volume = vol
	f.nodes[class][index] = n
	f.mu.Unlock()
	f.publish(Event{Kind: EventChange, Class: class, Index: index})
	return nil
}

func (f *Fake) SetNodeMute(_ context.Context, class Class, index uint32, muted bool) error {
	f.mu.Lock()
	n, ok := f.nodes[class][index]
	if !ok {
		f.mu.Unlock()
		return pulseerrors.NewNoEntityError("engine.setnodemute", nil)
	}
	n.Muted = muted
	f.nodes[class][index] = n
	f.mu.Unlock()
	f.publish(Event{Kind: EventChange, Class: class, Index: index})
	return nil
}

func (f *Fake) SetStreamVolume(_ context.Context, class Class, index uint32, vol []uint32) error {
	f.mu.Lock()
	s, ok := f.streams[class][index]
	if !ok {
		f.mu.Unlock()
		return pulseerrors.NewNoEntityError("engine.setstreamvolume", nil)
	}
	s.Volume = vol
	f.streams[class][index] = s
	f.mu.Unlock()
	f.publish(Event{Kind: EventChange, Class: class, Index: index})
	return nil
}

func (f *Fake) SetStreamMute(_ context.Context, class Class, index uint32, muted bool) error {
	f.mu.Lock()
	s, ok := f.streams[class][index]
	if !ok {
		f.mu.Unlock()
		return pulseerrors.NewNoEntityError("engine.setstreammute", nil)
	}
	s.Muted = muted
	f.streams[class][index] = s
	f.mu.Unlock()
	f.publish(Event{Kind: EventChange, Class: class, Index: index})
	return nil
}

func (f *Fake) MoveStream(_ context.Context, class Class, streamIndex, targetNodeIndex uint32) error {
	targetClass := ClassSink
	if class == ClassSourceOutput {
		targetClass = ClassSource
	}
	f.mu.Lock()
	s, ok := f.streams[class][streamIndex]
	if !ok {
		f.mu.Unlock()
		return pulseerrors.NewNoEntityError("engine.movestream", nil)
	}
	if _, ok := f.nodes[targetClass][targetNodeIndex]; !ok {
		f.mu.Unlock()
		return pulseerrors.NewNoEntityError("engine.movestream.target", nil)
	}
	s.NodeIndex = targetNodeIndex
	f.streams[class][streamIndex] = s
	f.mu.Unlock()
	f.publish(Event{Kind: EventChange, Class: class, Index: streamIndex})
	return nil
}

func (f *Fake) KillStream(_ context.Context, class Class, index uint32) error {
	f.mu.Lock()
	_, ok := f.streams[class][index]
	if !ok {
		f.mu.Unlock()
		return pulseerrors.NewNoEntityError("engine.killstream", nil)
	}
	delete(f.streams[class], index)
	f.mu.Unlock()
	f.publish(Event{Kind: EventRemove, Class: class, Index: index})
	return nil
}

func (f *Fake) SetCardProfile(_ context.Context, cardIndex uint32, profile string) error {
	f.mu.Lock()
	c, ok := f.cards[cardIndex]
	if !ok {
		f.mu.Unlock()
		return pulseerrors.NewNoEntityError("engine.setcardprofile", nil)
	}
	found := false
	for _, p := range c.Profiles {
		if p == profile {
			found = true
			break
		}
	}
	if !found {
		f.mu.Unlock()
		return pulseerrors.NewInvalidError("engine.setcardprofile.profile", nil)
	}
	c.Active = profile
	f.cards[cardIndex] = c
	f.mu.Unlock()
	f.publish(Event{Kind: EventChange, Class: ClassCard, Index: cardIndex})
	return nil
}

// LoadModule registers a new Module entry and publishes a NEW event, the
// graph-side effect of a client's LOAD_MODULE command.
func (f *Fake) LoadModule(_ context.Context, name, argument string) (uint32, error) {
	f.mu.Lock()
	idx := f.nextIndex()
	f.modules[idx] = Module{Index: idx, Name: name, Argument: argument}
	f.mu.Unlock()
	f.publish(Event{Kind: EventNew, Class: ClassModule, Index: idx})
	return idx, nil
}

// UnloadModule removes a Module entry and publishes a REMOVE event.
func (f *Fake) UnloadModule(_ context.Context, index uint32) error {
	f.mu.Lock()
	_, ok := f.modules[index]
	if ok {
		delete(f.modules, index)
	}
	f.mu.Unlock()
	if !ok {
		return pulseerrors.NewNoEntityError("engine.unloadmodule", nil)
	}
	f.publish(Event{Kind: EventRemove, Class: ClassModule, Index: index})
	return nil
}

// CreateStream is AddStream exposed through the Engine interface: wire
// clients creating playback/record streams go through this method rather
// than the AddStream/AddNode helpers used to seed a Fake in tests.
func (f *Fake) CreateStream(_ context.Context, class Class, s Stream) (uint32, error) {
	return f.AddStream(class, s), nil
}

// DestroyStream is RemoveStream exposed through the Engine interface.
func (f *Fake) DestroyStream(_ context.Context, class Class, index uint32) error {
	f.mu.Lock()
	_, ok := f.streams[class][index]
	f.mu.Unlock()
	if !ok {
		return pulseerrors.NewNoEntityError("engine.destroystream", nil)
	}
	f.RemoveStream(class, index)
	return nil
}

// RegisterClient is AddClient exposed through the Engine interface.
func (f *Fake) RegisterClient(_ context.Context, name string, props map[string]string) (int64, error) {
	return f.AddClient(name, props), nil
}

// UnregisterClient removes a client from the graph-side table and
// publishes a REMOVE event.
func (f *Fake) UnregisterClient(_ context.Context, index int64) error {
	f.mu.Lock()
	_, ok := f.clients[index]
	if ok {
		delete(f.clients, index)
	}
	f.mu.Unlock()
	if !ok {
		return pulseerrors.NewNoEntityError("engine.unregisterclient", nil)
	}
	f.publish(Event{Kind: EventRemove, Class: ClassClient, Index: uint32(index)})
	return nil
}

func (f *Fake) Subscribe(_ context.Context) (uuid.UUID, <-chan Event) {
	return f.broadcaster.subscribe()
}

func (f *Fake) Unsubscribe(handle uuid.UUID) {
	f.broadcaster.unsubscribe(handle)
}
