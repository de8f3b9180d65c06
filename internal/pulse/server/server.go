// Package server wires the mirror, engine, extension registry, command
// dispatcher and listener into one runnable native-protocol server,
// the composition root the teacher's own server package plays for the
// RTMP side: one Start/Stop pair standing up every collaborator behind
// it. Stop closes the listeners and the mirror; sessions already
// accepted keep running until their own connections close.
package server

import (
	"context"
	"net"

	"github.com/pulsenative/pulsed/internal/logger"
	"github.com/pulsenative/pulsed/internal/pulse/command"
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/extension"
	"github.com/pulsenative/pulsed/internal/pulse/listener"
	"github.com/pulsenative/pulsed/internal/pulse/mirror"
	"github.com/pulsenative/pulsed/internal/pulse/sandbox"
	"github.com/pulsenative/pulsed/internal/pulse/session"
	"github.com/pulsenative/pulsed/internal/pulse/stream"
)

// Config carries everything needed to stand up a Server: the listener's
// bind points and sandbox inputs, plus the command dispatcher's
// negotiation/auth parameters.
type Config struct {
	Listener listener.Config
	Command  command.Config
}

// Server owns the shared engine, mirror, extension registry and command
// dispatcher, and the listener accepting connections against them.
type Server struct {
	eng    engine.Engine
	mirror *mirror.Manager
	ext    *extension.Registry
	disp   *command.Dispatcher
	ln     *listener.Listener
}

// New builds a Server around eng. A nil eng defaults to an in-memory
// engine.NewFake, letting a caller stand up a server with no backing
// audio graph for local testing.
func New(cfg Config, eng engine.Engine) *Server {
	if eng == nil {
		eng = engine.NewFake()
	}
	mgr := mirror.NewManager(eng)
	ext := extension.New(mgr, eng)
	disp := command.New(mgr, eng, ext, cfg.Command)

	s := &Server{eng: eng, mirror: mgr, ext: ext, disp: disp}
	s.ln = listener.New(cfg.Listener, s.newSession, s.onSession)
	return s
}

// newSession wraps an accepted net.Conn in a session.Session bound to
// this server's shared dispatcher.
func (s *Server) newSession(conn net.Conn) *session.Session {
	return session.New(conn, s.disp)
}

// onSession attaches the close-teardown hook that unwinds everything a
// session accumulated: its streams, its engine client entry and its
// dispatcher-level KILL_CLIENT registration.
func (s *Server) onSession(sess *session.Session) {
	sess.SetOnClosed(s.teardown)
}

// teardown runs once a session reaches State Gone: it closes every
// stream the session created, unregisters its engine client entry and
// drops it from the dispatcher's client-index table, mirroring the real
// server's client-disconnect path which tears down sink-inputs,
// source-outputs and the client object together.
func (s *Server) teardown(sess *session.Session) {
	ctx := context.Background()
	if reg, ok := sess.UserData().(*stream.Registry); ok {
		reg.CloseAll()
	}
	s.disp.UnregisterSession(sess.Index)
	if sess.Index == 0 {
		return
	}
	if err := s.eng.UnregisterClient(ctx, int64(sess.Index)); err != nil {
		logger.Logger().Warn("unregister client on disconnect", "client", sess.Index, "error", err)
	}
}

// Start runs the mirror against the engine's change feed, then binds the
// listener's sockets and begins accepting connections.
func (s *Server) Start() error {
	go s.mirror.Run(context.Background())
	return s.ln.Start()
}

// Stop closes every listening socket, waits for their accept loops to
// return, and stops the mirror. It does not forcibly close sessions
// already in flight; those finish tearing themselves down as their
// connections close.
func (s *Server) Stop() {
	s.ln.Stop()
	s.mirror.Stop()
}

// Engine exposes the server's backing engine, e.g. so a caller seeds a
// Fake with nodes before Start.
func (s *Server) Engine() engine.Engine {
	return s.eng
}

// Mirror exposes the server's metadata mirror.
func (s *Server) Mirror() *mirror.Manager {
	return s.mirror
}

// PolicyClient is re-exported so callers configuring Config.Listener
// don't need to import internal/pulse/sandbox themselves just to set a
// nil default.
type PolicyClient = sandbox.PolicyClient
