// Package session implements the per-connection client state machine: the
// ACCEPTED -> AUTHENTICATING -> NAMED -> READY -> {SUSPENDED} -> CLOSING ->
// GONE progression, the read/write loops over a framed connection, the
// outbound queue with watermark-based flow control, and correlation-tag
// tracking for in-flight commands.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/logger"
	"github.com/pulsenative/pulsed/internal/pulse/frame"
	"github.com/pulsenative/pulsed/internal/pulse/sandbox"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

// State is a session's position in its lifecycle state machine.
type State uint8

const (
	Accepted State = iota
	Authenticating
	Named
	Ready
	Suspended
	Closing
	Gone
)

func (s State) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Authenticating:
		return "authenticating"
	case Named:
		return "named"
	case Ready:
		return "ready"
	case Suspended:
		return "suspended"
	case Closing:
		return "closing"
	case Gone:
		return "gone"
	default:
		return "unknown"
	}
}

// outboundWatermark is the outbound queue depth at or above which
// Congested reports true. The session does not pause command processing
// on its own; Enqueue blocks only once the queue is full.
const outboundWatermark = 64

const outboundQueueCapacity = 256

// Dispatcher handles one command's payload and returns either a reply
// payload to enqueue under the same correlation tag, or an error that is
// translated into an ERROR frame. It is implemented by internal/pulse/command
// and injected here to avoid a session<->command import cycle.
type Dispatcher interface {
	Dispatch(ctx context.Context, sess *Session, commandCode uint32, corTag uint32, payload *tag.Reader) (*tag.Buffer, error)
}

// pendingOp tracks one in-flight command so session teardown can cancel it.
type pendingOp struct {
	cancel context.CancelFunc
}

// Session is one connected client's protocol state.
type Session struct {
	Index uint32 // assigned client index, == this session's mirror id once named

	conn   net.Conn
	reader *frame.Reader
	writer *frame.Writer

	log *slog.Logger

	dispatcher Dispatcher

	mu    sync.RWMutex
	state State

	protocolVersion uint16

	props map[string]string

	subscriptionMask uint32

	outbound chan *frame.Frame

	pendingMu sync.Mutex
	pending   map[uint32]*pendingOp

	nextTag uint32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onClosed   func(*Session)
	streamSink func(*frame.Frame)
	fatal      error

	closeOnce sync.Once

	capability  sandbox.Capability
	defaultSink string
	defaultSrc  string
	userData    any // per-session state owned by higher layers (e.g. the stream registry), opaque here to avoid an import cycle
}

// New wraps an accepted connection in a Session in the Accepted state.
func New(conn net.Conn, dispatcher Dispatcher) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:       conn,
		reader:     frame.NewReader(conn),
		writer:     frame.NewWriter(conn),
		log:        logger.WithConn(logger.Logger(), conn.RemoteAddr().String(), conn.RemoteAddr().String()),
		dispatcher: dispatcher,
		state:      Accepted,
		props:      make(map[string]string),
		outbound:   make(chan *frame.Frame, outboundQueueCapacity),
		pending:    make(map[uint32]*pendingOp),
		ctx:        ctx,
		cancel:     cancel,
	}
	return s
}

// SetOnClosed registers a callback invoked exactly once when the session
// transitions to Gone, used by server wiring to unregister the session from
// the manager mirror's client table and kill its attached streams.
func (s *Session) SetOnClosed(fn func(*Session)) {
	s.mu.Lock()
	s.onClosed = fn
	s.mu.Unlock()
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// transition moves the session forward if the move is legal, returning a
// state error otherwise. Only forward transitions and Ready<->Suspended are
// permitted; CLOSING and GONE are reachable from anywhere.
func (s *Session) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if to == Closing || to == Gone {
		s.state = to
		return nil
	}
	ok := false
	switch s.state {
	case Accepted:
		ok = to == Authenticating
	case Authenticating:
		ok = to == Named
	case Named:
		ok = to == Ready
	case Ready:
		ok = to == Suspended
	case Suspended:
		ok = to == Ready
	}
	if !ok {
		return pulseerrors.NewStateError("session.transition", nil)
	}
	s.state = to
	return nil
}

// ProtocolVersion returns the negotiated wire protocol version.
func (s *Session) ProtocolVersion() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protocolVersion
}

// Authenticate validates a client's AUTH command and moves the session from
// Accepted to Authenticating (awaiting SET_CLIENT_NAME) on success.
func (s *Session) Authenticate(clientVersion uint16, negotiated uint16) error {
	if s.State() != Accepted {
		return pulseerrors.NewStateError("session.authenticate", nil)
	}
	s.mu.Lock()
	s.protocolVersion = negotiated
	s.mu.Unlock()
	return s.transition(Authenticating)
}

// SetClientName records the client's property list and the client index
// the caller assigns (a server-assigned index, typically the engine's
// client id), and advances the session to Named.
func (s *Session) SetClientName(props map[string]string, index uint32) error {
	if s.State() != Authenticating {
		return pulseerrors.NewStateError("session.setclientname", nil)
	}
	s.mu.Lock()
	s.props = props
	s.Index = index
	s.mu.Unlock()
	return s.transition(Named)
}

// MarkReady advances a Named session into Ready, the state in which stream
// and introspection commands become valid.
func (s *Session) MarkReady() error {
	return s.transition(Ready)
}

// Suspend and Resume toggle the Ready<->Suspended states used while a
// stream-level suspend is outstanding.
func (s *Session) Suspend() error { return s.transition(Suspended) }
func (s *Session) Resume() error  { return s.transition(Ready) }

// RequireReady returns a state error unless the session is in Ready, the
// only state in which stream/introspection commands are valid.
func (s *Session) RequireReady() error {
	if s.State() != Ready {
		return pulseerrors.NewStateError("session.requireready", nil)
	}
	return nil
}

// SubscriptionMask returns the bitmask of object classes this client has
// subscribed to notifications for.
func (s *Session) SubscriptionMask() uint32 {
	return atomic.LoadUint32(&s.subscriptionMask)
}

// SetSubscriptionMask updates the subscription bitmask (SUBSCRIBE command).
func (s *Session) SetSubscriptionMask(mask uint32) {
	atomic.StoreUint32(&s.subscriptionMask, mask)
}

// NextTag allocates the next outbound correlation tag for server-initiated
// traffic (none in this protocol today, but kept symmetric with the
// client-tag tracking below).
func (s *Session) NextTag() uint32 {
	return atomic.AddUint32(&s.nextTag, 1)
}

// Run starts the session's read loop and blocks until the connection ends.
// Call it from its own goroutine; Close may be called concurrently to tear
// the session down early.
func (s *Session) Run() {
	s.wg.Add(1)
	go s.writeLoop()

	defer func() {
		s.cancel()
		s.wg.Wait()
		_ = s.conn.Close()
		s.finish()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		f, err := s.reader.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug("session read loop: peer closed connection")
			} else {
				s.log.Error("session read loop error", "error", err)
			}
			return
		}
		s.handleFrame(f)
		if pulseerrors.IsTerminal(s.lastFatal()) {
			return
		}
	}
}

// lastFatal is a placeholder hook: handleFrame stores a fatal error here
// when framing/auth/io failures require session teardown rather than an
// ERROR reply. nil means "keep going".
func (s *Session) lastFatal() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fatal
}

func (s *Session) handleFrame(f *frame.Frame) {
	defer f.Release()

	if f.Descriptor.IsControl() {
		s.handleCommandFrame(f.Payload)
		return
	}
	s.handleStreamFrame(f)
}

func (s *Session) handleCommandFrame(payload []byte) {
	r := tag.NewReader(payload)
	commandCode, err := r.GetU32()
	if err != nil {
		s.failFatal(pulseerrors.NewProtocolError("session.command.code", err))
		return
	}
	corTag, err := r.GetU32()
	if err != nil {
		s.failFatal(pulseerrors.NewProtocolError("session.command.tag", err))
		return
	}

	opCtx := s.trackPending(corTag)
	defer s.untrackPending(corTag)

	reply, dispatchErr := s.dispatcher.Dispatch(opCtx, s, commandCode, corTag, r)
	if dispatchErr != nil {
		s.replyError(corTag, dispatchErr)
		if pulseerrors.IsTerminal(dispatchErr) {
			s.failFatal(dispatchErr)
		}
		return
	}
	if reply != nil {
		s.enqueueCommandReply(corTag, reply)
	}
}

// handleStreamFrame forwards a data-channel frame; the stream engine (not
// yet wired at this layer) consumes these through a registered sink set by
// server wiring. Absent a sink, frames are dropped.
func (s *Session) handleStreamFrame(f *frame.Frame) {
	s.mu.RLock()
	sink := s.streamSink
	s.mu.RUnlock()
	if sink == nil {
		return
	}
	sink(f)
}

// SetStreamSink installs the callback that receives data-channel frames.
func (s *Session) SetStreamSink(fn func(*frame.Frame)) {
	s.mu.Lock()
	s.streamSink = fn
	s.mu.Unlock()
}

func (s *Session) trackPending(corTag uint32) context.Context {
	ctx, cancel := context.WithCancel(s.ctx)
	s.pendingMu.Lock()
	s.pending[corTag] = &pendingOp{cancel: cancel}
	s.pendingMu.Unlock()
	return ctx
}

func (s *Session) untrackPending(corTag uint32) {
	s.pendingMu.Lock()
	delete(s.pending, corTag)
	s.pendingMu.Unlock()
}

func (s *Session) failAllPending(cause error) {
	s.pendingMu.Lock()
	ops := s.pending
	s.pending = make(map[uint32]*pendingOp)
	s.pendingMu.Unlock()
	for tagID, op := range ops {
		op.cancel()
		s.replyError(tagID, cause)
	}
}

func (s *Session) failFatal(err error) {
	s.mu.Lock()
	if s.fatal == nil {
		s.fatal = err
	}
	s.mu.Unlock()
}

// replyError encodes and enqueues an ERROR reply carrying the wire code for
// err under the request's correlation tag.
func (s *Session) replyError(corTag uint32, err error) {
	b := tag.NewBuffer()
	b.PutU32(uint32(pulseerrors.WireCodeOf(err)))
	s.enqueueReplyPayload(corTag, b, true)
}

func (s *Session) enqueueCommandReply(corTag uint32, payload *tag.Buffer) {
	s.enqueueReplyPayload(corTag, payload, false)
}

// enqueueReplyPayload wraps a reply buffer in a control frame and queues it
// for the write loop. The wire reply/error framing (command code REPLY or
// ERROR plus the tag) is prefixed here so callers only supply the body.
func (s *Session) enqueueReplyPayload(corTag uint32, body *tag.Buffer, isError bool) {
	full := tag.NewBuffer()
	if isError {
		full.PutU32(replyCommandError)
	} else {
		full.PutU32(replyCommandReply)
	}
	full.PutU32(corTag)
	out := append(full.Bytes(), body.Bytes()...)

	s.Enqueue(&frame.Frame{
		Descriptor: frameDescriptorFor(out),
		Payload:    out,
	})
}

// invalidTag is PA_INVALID_INDEX, the correlation tag carried by every
// server-initiated control message (events, REQUEST, OVERFLOW, UNDERFLOW,
// STARTED, the *_MOVED notifications) since those are not replies to any
// client command.
const invalidTag uint32 = 0xffffffff

// ReplyTo enqueues a reply payload under a correlation tag the caller
// already holds rather than one taken from the currently-dispatching
// command, for asynchronous completions (a deferred DRAIN_PLAYBACK_STREAM
// reply once the queue empties) that must still answer the original
// client request after the handler that received it has already
// returned.
func (s *Session) ReplyTo(corTag uint32, body *tag.Buffer) {
	s.enqueueCommandReply(corTag, body)
}

// PushCommand frames and enqueues a server-initiated control message (a
// subscription EVENT, a stream REQUEST/UNDERFLOW/OVERFLOW/STARTED, or a
// PLAYBACK_STREAM_MOVED/RECORD_STREAM_MOVED notification) under the
// protocol's fixed invalid-index tag, for callers outside this package
// (internal/pulse/stream, internal/pulse/extension) that need to push
// traffic the client did not ask for.
func (s *Session) PushCommand(code uint32, body *tag.Buffer) {
	full := tag.NewBuffer()
	full.PutU32(code)
	full.PutU32(invalidTag)
	out := append(full.Bytes(), body.Bytes()...)
	s.Enqueue(&frame.Frame{
		Descriptor: frameDescriptorFor(out),
		Payload:    out,
	})
}

// PushData frames and enqueues a data-channel frame (record-stream sample
// bytes) carrying the given 64-bit offset and seek mode, read back on the
// write loop via Writer.WriteDataFrame so the offset survives the wire
// round trip (control frames never carry a meaningful offset).
func (s *Session) PushData(channel uint32, offset uint64, seekMode uint32, payload []byte) {
	s.Enqueue(&frame.Frame{
		Descriptor: frame.Descriptor{
			Length:   uint32(len(payload)),
			Channel:  channel,
			OffsetHi: uint32(offset >> 32),
			OffsetLo: uint32(offset),
			Flags:    seekMode,
		},
		Payload: payload,
	})
}

// Enqueue queues an already-framed message for transmission, blocking
// while the outbound queue is full until the session is cancelled. It
// applies no watermark check itself; Congested reports whether the queue
// is at or above the watermark.
func (s *Session) Enqueue(f *frame.Frame) {
	select {
	case s.outbound <- f:
	case <-s.ctx.Done():
	}
}

// Done returns a channel closed once the session's connection context is
// cancelled (Close called, or a fatal read/write error), letting
// long-lived collaborators (the subscription event forwarder in
// internal/pulse/command) stop without needing their own teardown hook
// wired through SetOnClosed.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Congested reports whether the outbound queue has grown past the
// watermark at which new command processing should pause.
func (s *Session) Congested() bool {
	return len(s.outbound) >= outboundWatermark
}

func (s *Session) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case f, ok := <-s.outbound:
			if !ok {
				return
			}
			var err error
			if f.Descriptor.IsControl() {
				err = s.writer.WriteFrame(f.Descriptor.Channel, f.Descriptor.Flags, f.Payload)
			} else {
				err = s.writer.WriteDataFrame(f.Descriptor.Channel, f.Descriptor.Offset(), f.Descriptor.Flags, f.Payload)
			}
			if err != nil {
				s.log.Error("session write loop error", "error", err)
				s.failFatal(pulseerrors.NewIOError("session.write", err))
				return
			}
		}
	}
}

// Close begins graceful teardown: CLOSING is entered, all pending
// operations are failed with an I/O error, and the
// connection is closed so the read loop unblocks.
func (s *Session) Close() {
	_ = s.transition(Closing)
	s.failAllPending(pulseerrors.NewIOError("session.closed", nil))
	s.cancel()
	// Closing the connection directly unblocks a read loop parked in a
	// blocking Read call; ctx cancellation alone only stops it between
	// frames.
	_ = s.conn.Close()
}

func (s *Session) finish() {
	s.closeOnce.Do(func() {
		s.setState(Gone)
		s.mu.RLock()
		cb := s.onClosed
		s.mu.RUnlock()
		if cb != nil {
			cb(s)
		}
	})
}

// SetCapability records the sandbox capability resolved for this client at
// accept time, consulted by command handlers at admission.
func (s *Session) SetCapability(c sandbox.Capability) {
	s.mu.Lock()
	s.capability = c
	s.mu.Unlock()
}

// Capability returns the client's sandbox capability.
func (s *Session) Capability() sandbox.Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capability
}

// SetMirroredDefaults records the names of the default sink/source this
// session was last told about, so it can answer GET_SERVER_INFO without a
// mirror round trip.
func (s *Session) SetMirroredDefaults(sink, source string) {
	s.mu.Lock()
	s.defaultSink = sink
	s.defaultSrc = source
	s.mu.Unlock()
}

// MirroredDefaults returns the session's last known default sink/source
// names.
func (s *Session) MirroredDefaults() (sink, source string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultSink, s.defaultSrc
}

// SetUserData attaches higher-layer state (the stream registry) to this
// session. internal/pulse/session has no knowledge of internal/pulse/stream
// (which only depends on this package's PushCommand/PushData shape through
// its own FrameSink interface, never on the session package directly), so
// this is typed any and cast back by the owning layer.
func (s *Session) SetUserData(v any) {
	s.mu.Lock()
	s.userData = v
	s.mu.Unlock()
}

// UserData returns the value set by SetUserData, or nil.
func (s *Session) UserData() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userData
}

// Props returns a copy of the client's property list as set by
// SET_CLIENT_NAME.
func (s *Session) Props() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.props))
	for k, v := range s.props {
		out[k] = v
	}
	return out
}
