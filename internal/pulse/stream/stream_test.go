package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsenative/pulsed/internal/pulse/chanmap"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
	"github.com/pulsenative/pulsed/internal/pulse/volume"
)

type fakeSink struct {
	mu       sync.Mutex
	commands []uint32
	data     [][]byte
}

func (f *fakeSink) PushCommand(code uint32, body *tag.Buffer) {
	f.mu.Lock()
	f.commands = append(f.commands, code)
	f.mu.Unlock()
}

func (f *fakeSink) PushData(channel uint32, offset uint64, seekMode uint32, payload []byte) {
	f.mu.Lock()
	f.data = append(f.data, payload)
	f.mu.Unlock()
}

func (f *fakeSink) count(code uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.commands {
		if c == code {
			n++
		}
	}
	return n
}

func (f *fakeSink) dataCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

func TestRegistryAllocatesIncreasingChannels(t *testing.T) {
	r := NewRegistry()
	sink := &fakeSink{}
	s1 := r.New(sink, Playback, cdSpec(), chanmap.Stereo(), BufferAttr{MaxLength: 1 << 20, TLength: 8192, MinReq: 1024, Prebuf: 4096}, volume.Scale(2, volume.Norm), nil, 0)
	s2 := r.New(sink, Record, cdSpec(), chanmap.Stereo(), BufferAttr{MaxLength: 1 << 20, Fragsize: 2048}, volume.Scale(2, volume.Norm), nil, 0)
	require.Equal(t, uint32(1), s1.Channel)
	require.Equal(t, uint32(2), s2.Channel)
	require.Equal(t, 2, r.Len())
	require.Same(t, s1, r.Get(1))
	require.True(t, r.Delete(1))
	require.Nil(t, r.Get(1))
	require.Equal(t, 1, r.Len())
}

func TestWriteArmsOnceQueueReachesPrebuf(t *testing.T) {
	sink := &fakeSink{}
	r := NewRegistry()
	s := r.New(sink, Playback, cdSpec(), chanmap.Stereo(), BufferAttr{MaxLength: 8192, TLength: 4096, MinReq: 512, Prebuf: 2048}, volume.Scale(2, volume.Norm), nil, 0)

	require.NoError(t, s.Write(0, SeekRelative, 1024))
	require.False(t, s.Corked())
	require.Equal(t, uint32(1024), s.QueuedBytes())
	require.False(t, s.armed)

	require.NoError(t, s.Write(1024, SeekRelative, 1024))
	require.Equal(t, uint32(2048), s.QueuedBytes())
	require.True(t, s.armed)
}

func TestWriteRejectsOverflowAndFiresEvent(t *testing.T) {
	sink := &fakeSink{}
	r := NewRegistry()
	s := r.New(sink, Playback, cdSpec(), chanmap.Stereo(), BufferAttr{MaxLength: 1024, TLength: 1024, MinReq: 256, Prebuf: 0}, volume.Scale(2, volume.Norm), nil, 0)

	require.NoError(t, s.Write(0, SeekRelative, 1024))
	err := s.Write(1024, SeekRelative, 1)
	require.Error(t, err)
	require.Equal(t, 1, sink.count(uint32(proto.CmdOverflow)))
}

func TestDrainReportsImmediateWhenQueueEmpty(t *testing.T) {
	sink := &fakeSink{}
	r := NewRegistry()
	s := r.New(sink, Playback, cdSpec(), chanmap.Stereo(), BufferAttr{MaxLength: 8192, TLength: 4096, MinReq: 512, Prebuf: 0}, volume.Scale(2, volume.Norm), nil, 0)
	require.True(t, s.Drain(7))
}

func TestDrainDefersUntilQueueEmptiesViaDrainTick(t *testing.T) {
	sink := &fakeSink{}
	r := NewRegistry()
	s := r.New(sink, Playback, cdSpec(), chanmap.Stereo(), BufferAttr{MaxLength: 8192, TLength: 4096, MinReq: 512, Prebuf: 0}, volume.Scale(2, volume.Norm), nil, 0)
	require.NoError(t, s.Write(0, SeekRelative, 256))

	done := make(chan uint32, 1)
	s.SetDrainCallback(func(corTag uint32) { done <- corTag })

	require.False(t, s.Drain(99))
	s.drainTick(1024)

	select {
	case tagv := <-done:
		require.EqualValues(t, 99, tagv)
	case <-time.After(time.Second):
		t.Fatal("drain callback never fired")
	}
}

func TestCorkStopsDrainTicks(t *testing.T) {
	sink := &fakeSink{}
	r := NewRegistry()
	s := r.New(sink, Playback, cdSpec(), chanmap.Stereo(), BufferAttr{MaxLength: 8192, TLength: 4096, MinReq: 512, Prebuf: 0}, volume.Scale(2, volume.Norm), nil, 0)
	s.Cork(true)
	require.NoError(t, s.Write(0, SeekRelative, 100))
	s.drainTick(1024)
	require.Equal(t, uint32(100), s.QueuedBytes())
}

func TestStartRecordProducesFragmentsAtFragsize(t *testing.T) {
	sink := &fakeSink{}
	r := NewRegistry()
	s := r.New(sink, Record, cdSpec(), chanmap.Stereo(), BufferAttr{MaxLength: 1 << 20, Fragsize: 256}, volume.Scale(2, volume.Norm), nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartRecord(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool { return sink.dataCount() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestIdleDetectsStaleCorkedStream(t *testing.T) {
	sink := &fakeSink{}
	r := NewRegistry()
	s := r.New(sink, Playback, cdSpec(), chanmap.Stereo(), BufferAttr{MaxLength: 8192, TLength: 4096, MinReq: 512, Prebuf: 0}, volume.Scale(2, volume.Norm), nil, time.Millisecond)
	s.Cork(true)
	require.False(t, s.Idle())
	time.Sleep(5 * time.Millisecond)
	require.True(t, s.Idle())
}
