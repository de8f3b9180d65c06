package stream

import (
	"context"
	"sync"
	"time"

	"github.com/pulsenative/pulsed/internal/pulse/chanmap"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/sample"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
	"github.com/pulsenative/pulsed/internal/pulse/volume"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
)

// FrameSink is the slice of internal/pulse/session.Session a stream needs
// to push server-initiated frames: *session.Session satisfies this
// directly, so streams never import the session package and the two
// packages cannot form an import cycle regardless of how either evolves.
type FrameSink interface {
	PushCommand(code uint32, body *tag.Buffer)
	PushData(channel uint32, offset uint64, seekMode uint32, payload []byte)
}

// seek modes, matching the published PA_SEEK_* wire values used on WRITE
// and the data-frame seek field.
const (
	SeekRelative uint32 = iota
	SeekAbsolute
	SeekRelativeOnRead
	SeekRelativeEnd
)

// Stream is one playback, record, or upload stream belonging to a ready
// session. Playback and record streams additionally run a background
// goroutine simulating the node side of the flow: a playback stream
// drains its queue at the nominal byte rate and emits REQUEST/UNDERFLOW;
// a record stream produces silence at the nominal byte rate and emits
// DATA/clock-corrected LATENCY reports. Upload streams are purely an
// in-memory accumulator with no goroutine.
type Stream struct {
	Channel   uint32
	Direction Direction
	Spec      sample.Spec
	Map       chanmap.Map
	Name      string
	Props     tag.Proplist

	sink FrameSink

	mu         sync.Mutex
	attr       BufferAttr
	vol        volume.CVolume
	muted      bool
	corked     bool
	nodeIndex  uint32 // sink or source this stream is linked to
	nodeName   string
	drainTag        uint32
	draining        bool
	onDrainComplete func(corTag uint32)
	idleSince  time.Time
	idleTimer  time.Duration
	lastReqErr time.Time

	// playback accounting
	queued      uint32
	outstanding uint32 // bytes server has told the client it may send
	armed       bool   // past prebuf, actively "playing"

	// record accounting
	clock *dllClock

	cancel context.CancelFunc
	done   chan struct{}
}

// Registry is the per-session table of open streams, keyed by the
// protocol's channel identifier. Allocation begins at 1; the control
// channel is frame.ControlChannel (0xFFFFFFFF), which these identifiers
// never reach.
type Registry struct {
	mu      sync.RWMutex
	streams map[uint32]*Stream
	next    uint32
}

// NewRegistry returns an empty stream registry.
func NewRegistry() *Registry {
	return &Registry{streams: make(map[uint32]*Stream), next: 1}
}

// New creates a stream, assigns it the next free channel identifier, and
// registers it. idleTimeout of 0 disables the idle-kill policy for this
// stream.
func (r *Registry) New(sink FrameSink, dir Direction, spec sample.Spec, m chanmap.Map, attr BufferAttr, vol volume.CVolume, props tag.Proplist, idleTimeout time.Duration) *Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := r.next
	r.next++
	s := &Stream{
		Channel:   ch,
		Direction: dir,
		Spec:      spec,
		Map:       m,
		Props:     props,
		sink:      sink,
		attr:      attr,
		vol:       vol,
		idleTimer: idleTimeout,
		idleSince: time.Now(),
	}
	if dir == Record {
		s.clock = newDLLClock(spec)
	}
	r.streams[ch] = s
	return s
}

// Get returns the stream on a channel, or nil if none is open.
func (r *Registry) Get(channel uint32) *Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.streams[channel]
}

// Delete removes and stops a stream.
func (r *Registry) Delete(channel uint32) bool {
	r.mu.Lock()
	s, ok := r.streams[channel]
	if ok {
		delete(r.streams, channel)
	}
	r.mu.Unlock()
	if ok {
		s.Stop()
	}
	return ok
}

// Len reports the number of open streams, used by STAT and idle-session
// bookkeeping.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

// Each calls fn for every open stream, under the registry's read lock. fn
// must not call back into the registry.
func (r *Registry) Each(fn func(*Stream)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.streams {
		fn(s)
	}
}

// CloseAll stops and removes every stream, for session teardown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	streams := make([]*Stream, 0, len(r.streams))
	for ch, s := range r.streams {
		streams = append(streams, s)
		delete(r.streams, ch)
	}
	r.mu.Unlock()
	for _, s := range streams {
		s.Stop()
	}
}

// Attr returns a snapshot of the stream's negotiated buffer attributes.
func (s *Stream) Attr() BufferAttr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attr
}

// SetAttr installs a renegotiated buffer attribute set (SET_*_BUFFER_ATTR).
func (s *Stream) SetAttr(attr BufferAttr) {
	s.mu.Lock()
	s.attr = attr
	s.mu.Unlock()
}

// Volume returns the stream's current per-channel volume and mute state.
func (s *Stream) Volume() (volume.CVolume, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vol, s.muted
}

// SetVolume updates the stream's volume vector.
func (s *Stream) SetVolume(v volume.CVolume) {
	s.mu.Lock()
	s.vol = v
	s.mu.Unlock()
}

// SetMute updates the stream's mute flag.
func (s *Stream) SetMute(m bool) {
	s.mu.Lock()
	s.muted = m
	s.mu.Unlock()
}

// Corked reports whether the stream is currently corked.
func (s *Stream) Corked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corked
}

// NodeIndex returns the sink or source index this stream is linked to.
func (s *Stream) NodeIndex() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodeIndex
}

// SetNodeQuiet records the linked node without notifying the client,
// used at stream creation time when the client already learns the node
// from the CREATE_*_STREAM reply itself.
func (s *Stream) SetNodeQuiet(index uint32, name string) {
	s.mu.Lock()
	s.nodeIndex = index
	s.nodeName = name
	s.mu.Unlock()
}

// SetNode updates the linked node and pushes a *_STREAM_MOVED
// notification if a subscribed client cares (command layer decides
// whether to call this based on a MOVE_SINK_INPUT/MOVE_SOURCE_OUTPUT
// admin command or the mirror reporting a link change).
func (s *Stream) SetNode(index uint32, name string) {
	s.mu.Lock()
	s.nodeIndex = index
	s.nodeName = name
	s.mu.Unlock()

	body := tag.NewBuffer()
	body.PutU32(s.Channel)
	body.PutU32(index)
	body.PutBoolean(false) // suspend flag: this server never reports the node itself suspended on a move
	body.PutSampleSpec(s.Spec)
	body.PutChannelMap(s.Map)

	code := uint32(proto.CmdPlaybackStreamMoved)
	if s.Direction == Record {
		code = uint32(proto.CmdRecordStreamMoved)
	}
	s.sink.PushCommand(code, body)
}

// SetRate updates the stream's nominal sample rate (UPDATE_*_SAMPLE_RATE).
// The background playback/record goroutine's byte-rate pacing is fixed at
// StartPlayback/StartRecord time from the spec as it stood then, so this
// is honored for latency reporting (LatencyUSec reads the current Spec)
// but does not retime an already-running simulated drain/fragment loop.
func (s *Stream) SetRate(rate uint32) {
	s.mu.Lock()
	s.Spec.Rate = rate
	s.mu.Unlock()
}

// touch resets the idle-timeout clock; called whenever the client performs
// an action that proves the stream is in active use.
func (s *Stream) touch() {
	s.mu.Lock()
	s.idleSince = time.Now()
	s.mu.Unlock()
}

// Idle reports whether the stream has gone longer than its configured
// idle timeout without activity: a WRITE, an uncork, or (record) an
// emitted fragment. Corking does not reset the clock, and a playback
// stream that receives no writes counts as idle whether or not it is
// corked.
func (s *Stream) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer <= 0 {
		return false
	}
	return time.Since(s.idleSince) > s.idleTimer
}

// Stop halts the stream's background goroutine, if any. Safe to call more
// than once and on upload streams that never started one.
func (s *Stream) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// validateWrite rejects a write larger than the remaining buffer budget,
// the admission check CREATE_PLAYBACK_STREAM and WRITE share.
func validateWrite(attr BufferAttr, queued, n uint32) error {
	if uint64(queued)+uint64(n) > uint64(attr.MaxLength) {
		return pulseerrors.NewInvalidError("stream.write.overflow", nil)
	}
	return nil
}
