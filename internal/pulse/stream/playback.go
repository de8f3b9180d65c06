package stream

import (
	"context"
	"time"

	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

// underflowRateLimit is the minimum gap between consecutive UNDERFLOW
// notifications for one stream, so a starved client gets one event per
// drought rather than one per drain tick.
const underflowRateLimit = 200 * time.Millisecond

// StartPlayback begins the background goroutine that drains the
// stream's queue at its nominal byte rate, the stand-in for the real
// audio thread consuming WRITE data. It is started once the session has
// replied to CREATE_PLAYBACK_STREAM and must not be called twice.
func (s *Stream) StartPlayback(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	bps, err := s.Spec.BytesPerSecond()
	if err != nil || bps <= 0 {
		bps = 44100 * 2 * 2
	}
	tickInterval := 20 * time.Millisecond
	bytesPerTick := uint32(int64(bps) * tickInterval.Milliseconds() / 1000)
	if bytesPerTick == 0 {
		bytesPerTick = 1
	}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.drainTick(bytesPerTick)
			}
		}
	}()
}

// drainTick consumes up to n bytes from the queue, requesting more data
// from the client and flagging underflow when the queue runs dry while
// the stream is armed and not corked.
func (s *Stream) drainTick(n uint32) {
	s.mu.Lock()
	corked := s.corked
	if corked {
		s.mu.Unlock()
		return
	}
	wasArmed := s.armed
	consumed := n
	if consumed > s.queued {
		consumed = s.queued
	}
	s.queued -= consumed
	ranDry := wasArmed && s.queued == 0 && consumed < n
	attr := s.attr
	drainTag := s.drainTag
	drainCompleted := s.draining && s.queued == 0
	if drainCompleted {
		s.draining = false
	}
	onDrain := s.onDrainComplete
	var fireUnderflow bool
	if ranDry && time.Since(s.lastReqErr) > underflowRateLimit {
		fireUnderflow = true
		s.lastReqErr = time.Now()
	}
	missing := uint32(0)
	if have := s.outstanding + s.queued; have < attr.TLength {
		missing = attr.TLength - have
	}
	// spec.md §4.F: REQUEST is only emitted once missing reaches minreq,
	// or immediately if the stream has run dry (prebuf drained to zero)
	// regardless of how small the gap is — not on every drain tick that
	// leaves any gap at all.
	if missing > 0 && (missing >= attr.MinReq || ranDry) {
		s.outstanding += missing
	} else {
		missing = 0
	}
	s.mu.Unlock()

	if fireUnderflow {
		body := tag.NewBuffer()
		body.PutU32(s.Channel)
		s.sink.PushCommand(uint32(proto.CmdUnderflow), body)
	}
	if missing > 0 {
		body := tag.NewBuffer()
		body.PutU32(s.Channel)
		body.PutU32(missing)
		s.sink.PushCommand(uint32(proto.CmdRequest), body)
	}
	if drainCompleted && onDrain != nil {
		onDrain(drainTag)
	}
}

// Write admits n bytes of client data at the given stream offset,
// enforcing the overflow check and arming the stream once prebuf is
// satisfied.
func (s *Stream) Write(offset uint64, seekMode uint32, n uint32) error {
	s.mu.Lock()
	err := validateWrite(s.attr, s.queued, n)
	var fireOverflow bool
	if err != nil {
		if time.Since(s.lastReqErr) > underflowRateLimit {
			fireOverflow = true
			s.lastReqErr = time.Now()
		}
		s.mu.Unlock()
		if fireOverflow {
			body := tag.NewBuffer()
			body.PutU32(s.Channel)
			s.sink.PushCommand(uint32(proto.CmdOverflow), body)
		}
		return err
	}

	s.queued += n
	if n <= s.outstanding {
		s.outstanding -= n
	} else {
		s.outstanding = 0
	}
	if !s.armed && s.queued >= s.attr.Prebuf {
		s.armed = true
	}
	s.touchLocked()
	s.mu.Unlock()
	return nil
}

// touchLocked is touch without acquiring the mutex, for callers that
// already hold it.
func (s *Stream) touchLocked() {
	s.idleSince = time.Now()
}

// Cork sets the stream's corked state. A playback stream stops being
// drained (and therefore stops emitting REQUEST/UNDERFLOW) while corked.
func (s *Stream) Cork(corked bool) {
	s.mu.Lock()
	s.corked = corked
	if !corked {
		s.idleSince = time.Now()
	}
	s.mu.Unlock()
}

// Flush discards all queued-but-undrained data and resets arming, as
// FLUSH requires.
func (s *Stream) Flush() {
	s.mu.Lock()
	s.queued = 0
	s.armed = false
	s.mu.Unlock()
}

// Drain marks the stream as wanting a reply once the queue empties,
// returning immediately (true) if it is already empty.
func (s *Stream) Drain(corTag uint32) (immediate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queued == 0 {
		return true
	}
	s.draining = true
	s.drainTag = corTag
	return false
}

// Trigger forces prebuffered data to start playing immediately, as
// TRIGGER requires when a stream was created with prebuf > 0 and the
// client wants playback to begin before prebuf fills naturally.
func (s *Stream) Trigger() {
	s.mu.Lock()
	s.armed = true
	s.mu.Unlock()
}

// RequestedBytes returns the outstanding REQUEST credit not yet
// satisfied by a WRITE, surfaced by GET_PLAYBACK_LATENCY-style queries.
func (s *Stream) RequestedBytes() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding
}

// QueuedBytes returns the current playback queue depth.
func (s *Stream) QueuedBytes() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued
}

// SetDrainCallback installs the function invoked once a deferred Drain
// completes, letting the command layer reply to the original
// DRAIN_PLAYBACK_STREAM command's correlation tag without the stream
// package needing to know anything about command dispatch.
func (s *Stream) SetDrainCallback(fn func(corTag uint32)) {
	s.mu.Lock()
	s.onDrainComplete = fn
	s.mu.Unlock()
}
