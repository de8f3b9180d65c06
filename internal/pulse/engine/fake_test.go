package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeNodeLifecycleAndEvents(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	_, events := f.Subscribe(ctx)

	idx := f.AddNode(ClassSink, Node{Name: "alsa_output.analog-stereo", Description: "Built-in Audio"})
	select {
	case ev := <-events:
		require.Equal(t, EventNew, ev.Kind)
		require.Equal(t, ClassSink, ev.Class)
		require.Equal(t, idx, ev.Index)
	case <-time.After(time.Second):
		t.Fatal("expected NEW event")
	}

	n, err := f.GetNode(ctx, ClassSink, idx)
	require.NoError(t, err)
	require.Equal(t, "alsa_output.analog-stereo", n.Name)

	require.NoError(t, f.SetNodeVolume(ctx, ClassSink, idx, []uint32{65536, 65536}))
	select {
	case ev := <-events:
		require.Equal(t, EventChange, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected CHANGE event")
	}

	f.RemoveNode(ClassSink, idx)
	select {
	case ev := <-events:
		require.Equal(t, EventRemove, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected REMOVE event")
	}

	_, err = f.GetNode(ctx, ClassSink, idx)
	require.Error(t, err)
}

func TestFakeMoveStreamValidatesTarget(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	sinkIdx := f.AddNode(ClassSink, Node{Name: "sink-a"})
	streamIdx := f.AddStream(ClassSinkInput, Stream{NodeIndex: sinkIdx})

	require.Error(t, f.MoveStream(ctx, ClassSinkInput, streamIdx, 999))

	otherSink := f.AddNode(ClassSink, Node{Name: "sink-b"})
	require.NoError(t, f.MoveStream(ctx, ClassSinkInput, streamIdx, otherSink))

	s, err := f.GetStream(ctx, ClassSinkInput, streamIdx)
	require.NoError(t, err)
	require.Equal(t, otherSink, s.NodeIndex)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	id, events := f.Subscribe(ctx)
	f.Unsubscribe(id)
	_, ok := <-events
	require.False(t, ok)
}

func TestSlowSubscriberEventsAreDroppedNotBlocked(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	_, _ = f.Subscribe(ctx)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			f.AddNode(ClassSource, Node{Name: "spam"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow/unread subscriber channel")
	}
}
