// Package listener accepts native-protocol connections on the UNIX
// control socket (and, optionally, a TCP socket) and hands each one off
// to a new internal/pulse/session.Session, resolving the connecting
// peer's sandbox capability before the session is allowed to run,
// mirroring the teacher's accept-loop-plus-connection-registry server
// shape generalized from one listener to a UNIX+TCP pair.
package listener

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/pulsenative/pulsed/internal/logger"
	"github.com/pulsenative/pulsed/internal/pulse/sandbox"
	"github.com/pulsenative/pulsed/internal/pulse/session"
)

// Config carries the listener's bind points and the sandbox-resolution
// inputs that only make sense for a UNIX-socket peer.
type Config struct {
	// SocketPath is the UNIX socket to bind, created with the
	// directory's existing permissions intact ($XDG_RUNTIME_DIR/pulse
	// is already 0700 on a real desktop session). Required.
	SocketPath string
	// TCPAddr optionally exposes the same protocol over TCP
	// (host:port). Empty disables it, matching the real server's
	// module-native-protocol-tcp being unloaded by default.
	TCPAddr string
	// SelfSnapName is this server's own snap name, if any, passed
	// through to sandbox.Resolve.
	SelfSnapName string
	// PolicyClient resolves a confined peer's connected plugs. A nil
	// client makes every confined peer resolve to sandbox.None.
	PolicyClient sandbox.PolicyClient
}

// NewSession is the collaborator the Listener hands every accepted
// connection to; internal/pulse/server supplies session.New bound to its
// shared dispatcher.
type NewSession func(conn net.Conn) *session.Session

// Listener owns the UNIX (and optional TCP) listeners and the accept
// loops feeding them into NewSession.
type Listener struct {
	cfg       Config
	newSess   NewSession
	onSession func(*session.Session)

	mu        sync.Mutex
	listeners []net.Listener
	wg        sync.WaitGroup
	closing   bool
}

// New builds a Listener. newSess constructs a Session for an accepted
// connection; onSession, if non-nil, is called with every session after
// its sandbox capability is resolved and before Run is started, letting
// server wiring register it for KILL_CLIENT lookup and attach the
// close-teardown hook.
func New(cfg Config, newSess NewSession, onSession func(*session.Session)) *Listener {
	return &Listener{cfg: cfg, newSess: newSess, onSession: onSession}
}

// Start binds every configured socket and launches one accept loop per
// listener. It returns once all configured sockets are bound.
func (l *Listener) Start() error {
	if l.cfg.SocketPath == "" {
		return errors.New("listener: SocketPath is required")
	}
	unixLn, err := listenUnix(l.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listener: unix socket %s: %w", l.cfg.SocketPath, err)
	}
	l.addListener(unixLn, true)

	if l.cfg.TCPAddr != "" {
		tcpLn, err := net.Listen("tcp", l.cfg.TCPAddr)
		if err != nil {
			unixLn.Close()
			return fmt.Errorf("listener: tcp %s: %w", l.cfg.TCPAddr, err)
		}
		l.addListener(tcpLn, false)
	}
	return nil
}

func (l *Listener) addListener(ln net.Listener, isUnix bool) {
	l.mu.Lock()
	l.listeners = append(l.listeners, ln)
	l.mu.Unlock()
	l.wg.Add(1)
	go l.acceptLoop(ln, isUnix)
}

// listenUnix removes a stale socket file left by an unclean previous
// shutdown before binding, the same recovery a real server's socket-api
// module performs on startup.
func listenUnix(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0700); err != nil {
		ln.Close()
		return nil, err
	}
	return ln, nil
}

func (l *Listener) acceptLoop(ln net.Listener, isUnix bool) {
	defer l.wg.Done()
	log := logger.Logger().With("listener", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			l.mu.Lock()
			closing := l.closing
			l.mu.Unlock()
			if closing || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("accept error", "error", err)
			continue
		}
		go l.handleConn(conn, isUnix)
	}
}

func (l *Listener) handleConn(conn net.Conn, isUnix bool) {
	log := logger.Logger().With("remote", conn.RemoteAddr().String())
	capability, err := l.resolveCapability(conn, isUnix)
	if err != nil {
		log.Warn("sandbox resolution failed, closing connection", "error", err)
		conn.Close()
		return
	}
	sess := l.newSess(conn)
	sess.SetCapability(capability)
	if l.onSession != nil {
		l.onSession(sess)
	}
	sess.Run()
}

// resolveCapability looks up peer credentials and an AppArmor
// confinement label for a UNIX peer and resolves it through
// sandbox.Resolve; a TCP peer carries no kernel-level confinement label
// to query, so it always resolves to sandbox.NotASandbox.
func (l *Listener) resolveCapability(conn net.Conn, isUnix bool) (sandbox.Capability, error) {
	if !isUnix {
		return sandbox.NotASandbox, nil
	}
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return sandbox.NotASandbox, nil
	}
	label, err := peerAppArmorLabel(unixConn)
	if err != nil {
		// A peer that has already disconnected or a kernel without the
		// credential ioctl shouldn't block an otherwise valid local
		// connection; treat it as unconfined rather than failing accept.
		return sandbox.NotASandbox, nil
	}
	return sandbox.Resolve(label, l.cfg.SelfSnapName, l.cfg.PolicyClient)
}

// Stop closes every bound listener and waits for their accept loops to
// return. It does not close sessions already handed off; each one runs
// until its own connection closes.
func (l *Listener) Stop() {
	l.mu.Lock()
	l.closing = true
	lns := l.listeners
	l.listeners = nil
	l.mu.Unlock()
	for _, ln := range lns {
		ln.Close()
	}
	l.wg.Wait()
}
