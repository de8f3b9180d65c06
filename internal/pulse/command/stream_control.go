package command

import (
	"context"
	"time"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/session"
	"github.com/pulsenative/pulsed/internal/pulse/stream"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

// lookupStream resolves a channel id carried on a stream-lifecycle
// command to the session's open Stream, or a NoEntityError if the
// channel isn't (or is no longer) open.
func lookupStream(sess *session.Session, channel uint32) (*stream.Stream, error) {
	st := streamsFor(sess).Get(channel)
	if st == nil {
		return nil, pulseerrors.NewNoEntityError("command.stream.lookup", nil)
	}
	return st, nil
}

func handleCork(_ context.Context, _ *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	channel, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.cork.channel", err)
	}
	corked, err := r.GetBoolean()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.cork.corked", err)
	}
	st, err := lookupStream(sess, channel)
	if err != nil {
		return nil, err
	}
	st.Cork(corked)
	return tag.NewBuffer(), nil
}

func handleFlush(_ context.Context, _ *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	channel, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.flush.channel", err)
	}
	st, err := lookupStream(sess, channel)
	if err != nil {
		return nil, err
	}
	st.Flush()
	return tag.NewBuffer(), nil
}

func handleTrigger(_ context.Context, _ *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	channel, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.trigger.channel", err)
	}
	st, err := lookupStream(sess, channel)
	if err != nil {
		return nil, err
	}
	st.Trigger()
	return tag.NewBuffer(), nil
}

// handleDrainPlaybackStream either replies immediately (queue already
// empty) or defers the reply until the stream's background drain tick
// observes an empty queue, via the callback installed at stream creation
// (SetDrainCallback) which calls sess.ReplyTo with the stored
// correlation tag.
func handleDrainPlaybackStream(_ context.Context, _ *Dispatcher, sess *session.Session, corTag uint32, r *tag.Reader) (*tag.Buffer, error) {
	channel, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.drainplaybackstream.channel", err)
	}
	st, err := lookupStream(sess, channel)
	if err != nil {
		return nil, err
	}
	if immediate := st.Drain(corTag); immediate {
		return tag.NewBuffer(), nil
	}
	// Deferred: no reply now, one will arrive later via ReplyTo.
	return nil, nil
}

func handleGetPlaybackLatency(_ context.Context, _ *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	channel, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.getplaybacklatency.channel", err)
	}
	st, err := lookupStream(sess, channel)
	if err != nil {
		return nil, err
	}
	queued := st.QueuedBytes()
	requested := st.RequestedBytes()
	reply := tag.NewBuffer()
	reply.PutUsec(0)               // sink latency: no real device to measure against
	reply.PutUsec(0)               // source latency
	reply.PutBoolean(!st.Corked()) // playing
	reply.PutTimeval(time.Time{})  // timestamp
	reply.PutTimeval(time.Time{})  // timestamp of latency measurement
	reply.PutS64(int64(queued))    // write index
	reply.PutS64(-int64(requested)) // read index, expressed relative to write per the wire contract
	return reply, nil
}

func handleSetPlaybackStreamBufferAttr(_ context.Context, _ *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	channel, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setplaybackstreambufferattr.channel", err)
	}
	reqAttr, err := readRequestedAttr(r, stream.Playback)
	if err != nil {
		return nil, err
	}
	st, err := lookupStream(sess, channel)
	if err != nil {
		return nil, err
	}
	attr := stream.Negotiate(reqAttr, st.Spec, stream.Playback, stream.NegotiateOptions{})
	st.SetAttr(attr)
	reply := tag.NewBuffer()
	writeNegotiatedAttr(reply, attr, stream.Playback)
	return reply, nil
}

func handleSetRecordStreamBufferAttr(_ context.Context, _ *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	channel, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setrecordstreambufferattr.channel", err)
	}
	reqAttr, err := readRequestedAttr(r, stream.Record)
	if err != nil {
		return nil, err
	}
	st, err := lookupStream(sess, channel)
	if err != nil {
		return nil, err
	}
	attr := stream.Negotiate(reqAttr, st.Spec, stream.Record, stream.NegotiateOptions{})
	st.SetAttr(attr)
	reply := tag.NewBuffer()
	writeNegotiatedAttr(reply, attr, stream.Record)
	return reply, nil
}

func handleUpdatePlaybackStreamSampleRate(_ context.Context, _ *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	return updateStreamSampleRate(sess, r)
}

func handleUpdateRecordStreamSampleRate(_ context.Context, _ *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	return updateStreamSampleRate(sess, r)
}

func updateStreamSampleRate(sess *session.Session, r *tag.Reader) (*tag.Buffer, error) {
	channel, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.updatestreamsamplerate.channel", err)
	}
	rate, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.updatestreamsamplerate.rate", err)
	}
	st, err := lookupStream(sess, channel)
	if err != nil {
		return nil, err
	}
	st.SetRate(rate)
	return tag.NewBuffer(), nil
}
