// Package zeroconf optionally announces the native control socket's TCP
// listener over mDNS/DNS-SD, the pure-Go equivalent of the real server's
// module-zeroconf-publish: off unless a TCP listener is actually bound,
// since a UNIX-socket-only deployment has nothing routable to announce.
package zeroconf

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/logger"
)

// serviceType is the DNS-SD service type the real server's Avahi publish
// module registers for the native protocol.
const serviceType = "_pulse-server._tcp"

// Config carries the announced instance's name and reachable TCP
// address.
type Config struct {
	// InstanceName identifies this server on the network, e.g. the host
	// name; dnssd mangles it on collision the same way Avahi does.
	InstanceName string
	// Port is the TCP port the native protocol listener is bound to.
	Port int
	// Text is published as the service's TXT record (protocol version,
	// cookie-required flag, and the like).
	Text map[string]string
}

// Announcer owns the running DNS-SD responder for one published service.
type Announcer struct {
	responder dnssd.Responder
	handle    dnssd.ServiceHandle
	cancel    context.CancelFunc
	done      chan struct{}
}

// Start registers cfg's service with a new DNS-SD responder and begins
// responding to queries in a background goroutine. Callers must call
// Stop to withdraw the announcement and release the responder. A zero
// Port announces nothing and returns a nil Announcer, whose Stop is a
// no-op.
func Start(cfg Config) (*Announcer, error) {
	if cfg.Port == 0 {
		return nil, nil
	}
	svc, err := dnssd.NewService(dnssd.Config{
		Name: cfg.InstanceName,
		Type: serviceType,
		Port: cfg.Port,
		Text: cfg.Text,
	})
	if err != nil {
		return nil, pulseerrors.NewIOError("zeroconf.newservice", err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return nil, pulseerrors.NewIOError("zeroconf.newresponder", err)
	}

	handle, err := responder.Add(svc)
	if err != nil {
		return nil, pulseerrors.NewIOError("zeroconf.add", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Announcer{responder: responder, handle: handle, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(a.done)
		if err := responder.Respond(ctx); err != nil && ctx.Err() == nil {
			logger.Logger().Warn("zeroconf responder stopped", "error", err)
		}
	}()

	logger.Logger().Info("zeroconf announcement started",
		"name", cfg.InstanceName, "type", serviceType, "port", cfg.Port)
	return a, nil
}

// Stop withdraws the announcement and waits for the responder goroutine
// to return.
func (a *Announcer) Stop() {
	if a == nil {
		return
	}
	a.responder.Remove(a.handle)
	a.cancel()
	<-a.done
}

// String renders the fully-qualified service instance name for logging.
func (c Config) String() string {
	return fmt.Sprintf("%s.%s", c.InstanceName, serviceType)
}
