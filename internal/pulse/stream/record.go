package stream

import (
	"context"
	"time"

	"github.com/pulsenative/pulsed/internal/bufpool"
)

// StartRecord begins the background goroutine that produces fragsize
// chunks at the stream's nominal byte rate and pushes them as data
// frames, the stand-in for the real capture device feeding this
// connection. Silence is produced since no real source is wired; the
// DLL clock model still runs so GET_RECORD_LATENCY-style queries report
// a realistically smoothed value rather than a flat zero.
func (s *Stream) StartRecord(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	fragsize := s.attr.Fragsize
	s.mu.Unlock()

	bps, err := s.Spec.BytesPerSecond()
	if err != nil || bps <= 0 {
		bps = 44100 * 2 * 2
	}
	if fragsize == 0 {
		fragsize = uint32(bps / 40) // ~25ms fallback
	}
	interval := time.Duration(int64(fragsize) * int64(time.Second) / int64(bps))
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}

	go func() {
		defer close(s.done)
		var offset uint64
		next := time.Now()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.recordTick(fragsize, &offset, now, &next, interval)
			}
		}
	}()
}

// recordTick emits one fragment of silence, feeding the DLL clock the
// scheduling error observed between when the fragment was expected and
// when the ticker actually fired.
func (s *Stream) recordTick(fragsize uint32, offset *uint64, fired time.Time, expected *time.Time, interval time.Duration) {
	s.mu.Lock()
	corked := s.corked
	*expected = expected.Add(interval)
	errUSec := float64(fired.Sub(*expected)) / float64(time.Microsecond)
	var corrected float64
	if s.clock != nil {
		corrected = s.clock.Observe(errUSec)
	}
	s.mu.Unlock()
	_ = corrected

	if corked {
		return
	}

	chunk := bufpool.Get(int(fragsize))
	s.sink.PushData(s.Channel, *offset, SeekRelative, chunk)
	*offset += uint64(fragsize)
	s.touch()
}

// LatencyUSec returns the clock model's current smoothed correction,
// added to the nominal fragsize-implied latency to answer
// GET_RECORD_LATENCY / stream-info latency fields.
func (s *Stream) LatencyUSec() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	nominal, err := s.Spec.BytesToUSec(uint64(s.attr.Fragsize))
	if err != nil {
		nominal = 0
	}
	if s.clock == nil {
		return int64(nominal)
	}
	return int64(nominal) + int64(s.clock.SmoothedUSec())
}
