package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/frame"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

type fakeDispatcher struct {
	handle func(ctx context.Context, sess *Session, code, corTag uint32, r *tag.Reader) (*tag.Buffer, error)
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, sess *Session, code, corTag uint32, r *tag.Reader) (*tag.Buffer, error) {
	return f.handle(ctx, sess, code, corTag, r)
}

func writeCommandFrame(t *testing.T, conn net.Conn, code, corTag uint32, body *tag.Buffer) {
	t.Helper()
	full := tag.NewBuffer()
	full.PutU32(code)
	full.PutU32(corTag)
	payload := append(full.Bytes(), body.Bytes()...)
	require.NoError(t, frame.NewWriter(conn).WriteFrame(frame.ControlChannel, 0, payload))
}

func readReplyFrame(t *testing.T, conn net.Conn) (code uint32, corTag uint32, body *tag.Reader) {
	t.Helper()
	f, err := frame.NewReader(conn).ReadFrame()
	require.NoError(t, err)
	r := tag.NewReader(f.Payload)
	c, err := r.GetU32()
	require.NoError(t, err)
	tg, err := r.GetU32()
	require.NoError(t, err)
	return c, tg, r
}

func TestSessionStateMachineTransitions(t *testing.T) {
	server, _ := net.Pipe()
	defer server.Close()
	s := New(server, &fakeDispatcher{})

	require.Equal(t, Accepted, s.State())
	require.NoError(t, s.Authenticate(30, 30))
	require.Equal(t, Authenticating, s.State())
	require.NoError(t, s.SetClientName(map[string]string{"application.name": "test"}, 1))
	require.Equal(t, Named, s.State())
	require.Error(t, s.RequireReady())
	require.NoError(t, s.MarkReady())
	require.Equal(t, Ready, s.State())
	require.NoError(t, s.RequireReady())

	require.NoError(t, s.Suspend())
	require.Equal(t, Suspended, s.State())
	require.NoError(t, s.Resume())
	require.Equal(t, Ready, s.State())
}

func TestSessionRejectsOutOfOrderTransitions(t *testing.T) {
	server, _ := net.Pipe()
	defer server.Close()
	s := New(server, &fakeDispatcher{})

	require.Error(t, s.SetClientName(nil, 1))
	require.Error(t, s.MarkReady())
}

func TestSessionDispatchesCommandAndRepliesInOrder(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	disp := &fakeDispatcher{handle: func(ctx context.Context, sess *Session, code, corTag uint32, r *tag.Reader) (*tag.Buffer, error) {
		reply := tag.NewBuffer()
		reply.PutU32(code + 1)
		return reply, nil
	}}
	s := New(server, disp)
	go s.Run()
	defer s.Close()

	body := tag.NewBuffer()
	writeCommandFrame(t, client, 42, 7, body)

	code, corTag, r := readReplyFrame(t, client)
	require.EqualValues(t, ReplyCommandReply, code)
	require.EqualValues(t, 7, corTag)
	v, err := r.GetU32()
	require.NoError(t, err)
	require.EqualValues(t, 43, v)
}

func TestSessionDispatchErrorProducesErrorReply(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	disp := &fakeDispatcher{handle: func(ctx context.Context, sess *Session, code, corTag uint32, r *tag.Reader) (*tag.Buffer, error) {
		return nil, pulseerrors.NewNoEntityError("test.missing", nil)
	}}
	s := New(server, disp)
	go s.Run()
	defer s.Close()

	writeCommandFrame(t, client, 1, 99, tag.NewBuffer())

	code, corTag, r := readReplyFrame(t, client)
	require.EqualValues(t, ReplyCommandError, code)
	require.EqualValues(t, 99, corTag)
	wireCode, err := r.GetU32()
	require.NoError(t, err)
	require.EqualValues(t, pulseerrors.CodeNoEntity, wireCode)
}

func TestSessionCloseInvokesOnClosedOnce(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	disp := &fakeDispatcher{handle: func(ctx context.Context, sess *Session, code, corTag uint32, r *tag.Reader) (*tag.Buffer, error) {
		return tag.NewBuffer(), nil
	}}
	s := New(server, disp)

	closed := make(chan struct{})
	s.SetOnClosed(func(*Session) { close(closed) })

	go s.Run()
	s.Close()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected onClosed callback after Close")
	}
	require.Equal(t, Gone, s.State())
}

func TestCongestedReflectsOutboundDepth(t *testing.T) {
	server, _ := net.Pipe()
	defer server.Close()
	s := New(server, &fakeDispatcher{})
	require.False(t, s.Congested())
	for i := 0; i < outboundWatermark; i++ {
		s.outbound <- &frame.Frame{Descriptor: frame.Descriptor{Channel: frame.ControlChannel}, Payload: []byte{}}
	}
	require.True(t, s.Congested())
}
