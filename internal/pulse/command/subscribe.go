package command

import (
	"context"
	"sync"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/introspect"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/session"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

// forwarders tracks, per session, whether its SUBSCRIBE_EVENT forwarding
// goroutine has already been started; SUBSCRIBE may be sent more than
// once by a client narrowing or widening its mask; only the first call
// needs to start the goroutine.
var forwarders = struct {
	mu      sync.Mutex
	started map[*session.Session]bool
}{started: make(map[*session.Session]bool)}

func handleSubscribe(_ context.Context, d *Dispatcher, sess *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	mask, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.subscribe.mask", err)
	}
	sess.SetSubscriptionMask(mask)
	d.ensureEventForwarder(sess)
	return tag.NewBuffer(), nil
}

// ensureEventForwarder starts, at most once per session, the goroutine
// that relays mirror change events to this client as SUBSCRIBE_EVENT
// frames, filtered by its current subscription mask.
func (d *Dispatcher) ensureEventForwarder(sess *session.Session) {
	forwarders.mu.Lock()
	if forwarders.started[sess] {
		forwarders.mu.Unlock()
		return
	}
	forwarders.started[sess] = true
	forwarders.mu.Unlock()

	go d.forwardEvents(sess)
}

func (d *Dispatcher) forwardEvents(sess *session.Session) {
	id, events := d.mirror.Subscribe()
	defer d.mirror.Unsubscribe(id)
	defer func() {
		forwarders.mu.Lock()
		delete(forwarders.started, sess)
		forwarders.mu.Unlock()
	}()

	for {
		select {
		case <-sess.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			value, fac, ok := introspect.SubscriptionType(ev.Class, ev.Kind)
			if !ok {
				continue
			}
			if !introspect.Matches(proto.Facility(sess.SubscriptionMask()), fac) {
				continue
			}
			body := tag.NewBuffer()
			body.PutU32(value)
			body.PutU32(ev.Index)
			sess.PushCommand(uint32(proto.CmdSubscribeEvent), body)
		}
	}
}
