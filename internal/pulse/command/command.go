// Package command implements the command-code-keyed dispatch table that
// answers every control-channel frame a session receives: the
// internal/pulse/session.Dispatcher this server injects into each
// Session at accept time. Each handler decodes its request body with
// internal/pulse/tag, mutates or queries the internal/pulse/mirror view
// of internal/pulse/engine, and renders its reply with
// internal/pulse/introspect, mirroring the teacher's table-driven RPC
// dispatcher generalized from one fixed method set to this protocol's
// much larger command set.
package command

import (
	"context"
	"fmt"
	"sync"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/extension"
	"github.com/pulsenative/pulsed/internal/pulse/mirror"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/sandbox"
	"github.com/pulsenative/pulsed/internal/pulse/session"
	"github.com/pulsenative/pulsed/internal/pulse/stream"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

// Handler answers one command's payload, returning either a reply body to
// enqueue under the request's correlation tag or an error translated into
// an ERROR frame by the session layer.
type Handler func(ctx context.Context, d *Dispatcher, sess *session.Session, corTag uint32, r *tag.Reader) (*tag.Buffer, error)

// Config carries the server identity fields GET_SERVER_INFO and AUTH need
// that have no home in the object graph.
type Config struct {
	ServerName      string
	ServerVersion   string
	UserName        string
	HostName        string
	Cookie          []byte
	SelfSnapName    string
	IdleTimeout     uint32 // seconds; 0 disables idle stream teardown
	DefaultFormat   uint8
	DefaultChannels uint8
	DefaultRate     uint32
}

// Dispatcher is the session.Dispatcher implementation wiring every
// control command to the mirror/engine/stream/extension collaborators.
// One Dispatcher instance is shared by every session the server accepts.
type Dispatcher struct {
	mirror *mirror.Manager
	eng    engine.Engine
	ext    *extension.Registry
	cfg    Config

	handlers map[uint32]Handler

	sessMu   sync.Mutex
	sessions map[uint32]*session.Session
}

// New builds a Dispatcher wired to the given collaborators and registers
// every known command handler.
func New(mgr *mirror.Manager, eng engine.Engine, ext *extension.Registry, cfg Config) *Dispatcher {
	d := &Dispatcher{mirror: mgr, eng: eng, ext: ext, cfg: cfg, sessions: make(map[uint32]*session.Session)}
	d.handlers = map[uint32]Handler{
		proto.CmdAuth:           handleAuth,
		proto.CmdSetClientName:  handleSetClientName,
		proto.CmdExit:           handleExit,
		proto.CmdSubscribe:      handleSubscribe,
		proto.CmdStat:           handleStat,
		proto.CmdGetServerInfo:  handleGetServerInfo,

		proto.CmdGetSinkInfo:         handleGetSinkInfo,
		proto.CmdGetSinkInfoList:     handleGetSinkInfoList,
		proto.CmdGetSourceInfo:       handleGetSourceInfo,
		proto.CmdGetSourceInfoList:   handleGetSourceInfoList,
		proto.CmdGetSinkInputInfo:       handleGetSinkInputInfo,
		proto.CmdGetSinkInputInfoList:   handleGetSinkInputInfoList,
		proto.CmdGetSourceOutputInfo:     handleGetSourceOutputInfo,
		proto.CmdGetSourceOutputInfoList: handleGetSourceOutputInfoList,
		proto.CmdGetClientInfo:       handleGetClientInfo,
		proto.CmdGetClientInfoList:   handleGetClientInfoList,
		proto.CmdGetClientInfoByName: handleGetClientInfoByName,
		proto.CmdGetModuleInfo:       handleGetModuleInfo,
		proto.CmdGetModuleInfoList:   handleGetModuleInfoList,
		proto.CmdGetCardInfo:         handleGetCardInfo,
		proto.CmdGetCardInfoList:     handleGetCardInfoList,
		proto.CmdLookupSink:          handleLookupSink,
		proto.CmdLookupSource:        handleLookupSource,

		proto.CmdSetSinkVolume:       handleSetSinkVolume,
		proto.CmdSetSinkMute:         handleSetSinkMute,
		proto.CmdSetSourceVolume:     handleSetSourceVolume,
		proto.CmdSetSourceMute:       handleSetSourceMute,
		proto.CmdSetSinkInputVolume:  handleSetSinkInputVolume,
		proto.CmdSetSinkInputMute:    handleSetSinkInputMute,
		proto.CmdSetSourceOutputVolume: handleSetSourceOutputVolume,
		proto.CmdSetSourceOutputMute:   handleSetSourceOutputMute,
		proto.CmdSuspendSink:         handleSuspendSink,
		proto.CmdSuspendSource:       handleSuspendSource,
		proto.CmdSetCardProfile:      handleSetCardProfile,

		proto.CmdCreatePlaybackStream: handleCreatePlaybackStream,
		proto.CmdCreateRecordStream:   handleCreateRecordStream,
		proto.CmdDeletePlaybackStream: handleDeleteStream,
		proto.CmdDeleteRecordStream:   handleDeleteStream,

		proto.CmdCork:                          handleCork,
		proto.CmdFlush:                         handleFlush,
		proto.CmdTrigger:                       handleTrigger,
		proto.CmdDrainPlaybackStream:           handleDrainPlaybackStream,
		proto.CmdGetPlaybackLatency:            handleGetPlaybackLatency,
		proto.CmdSetPlaybackStreamBufferAttr:   handleSetPlaybackStreamBufferAttr,
		proto.CmdSetRecordStreamBufferAttr:     handleSetRecordStreamBufferAttr,
		proto.CmdUpdatePlaybackStreamSampleRate: handleUpdatePlaybackStreamSampleRate,
		proto.CmdUpdateRecordStreamSampleRate:   handleUpdateRecordStreamSampleRate,

		proto.CmdMoveSinkInput:     handleMoveSinkInput,
		proto.CmdMoveSourceOutput:  handleMoveSourceOutput,
		proto.CmdKillClient:        handleKillClient,
		proto.CmdKillSinkInput:     handleKillSinkInput,
		proto.CmdKillSourceOutput:  handleKillSourceOutput,
		proto.CmdSetDefaultSink:    handleSetDefaultSink,
		proto.CmdSetDefaultSource:  handleSetDefaultSource,
		proto.CmdSetSinkInputName:  handleSetSinkInputName,

		proto.CmdLoadModule:   handleLoadModule,
		proto.CmdUnloadModule: handleUnloadModule,

		proto.CmdExtension: handleExtension,
	}
	return d
}

// commandsBeforeReady lists the only commands valid before a session
// reaches Ready: authentication and naming have to happen first, and the
// client is free to hang up at any point.
var commandsBeforeReady = map[uint32]bool{
	proto.CmdAuth:          true,
	proto.CmdSetClientName: true,
	proto.CmdExit:          true,
}

// Dispatch implements session.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *session.Session, commandCode uint32, corTag uint32, payload *tag.Reader) (*tag.Buffer, error) {
	h, ok := d.handlers[commandCode]
	if !ok {
		return nil, pulseerrors.NewNotSupportedError(fmt.Sprintf("command.dispatch.unknown(%d)", commandCode), nil)
	}
	if !commandsBeforeReady[commandCode] {
		if err := sess.RequireReady(); err != nil {
			return nil, err
		}
	}
	return h(ctx, d, sess, corTag, payload)
}

// registerSession records the session bound to a just-assigned client
// index, so an admin command (KILL_CLIENT) issued from a different
// session can find and close it.
func (d *Dispatcher) registerSession(index uint32, sess *session.Session) {
	d.sessMu.Lock()
	d.sessions[index] = sess
	d.sessMu.Unlock()
}

// UnregisterSession drops a closed session from the client-index lookup
// table. Server wiring calls this from the session's OnClosed callback.
func (d *Dispatcher) UnregisterSession(index uint32) {
	d.sessMu.Lock()
	delete(d.sessions, index)
	d.sessMu.Unlock()
}

func (d *Dispatcher) sessionByIndex(index uint32) (*session.Session, bool) {
	d.sessMu.Lock()
	defer d.sessMu.Unlock()
	sess, ok := d.sessions[index]
	return sess, ok
}

// streamsFor lazily attaches a per-session stream.Registry as session
// user data the first time a session needs one, giving every later
// handler on the same session the same registry instance.
func streamsFor(sess *session.Session) *stream.Registry {
	if existing, ok := sess.UserData().(*stream.Registry); ok {
		return existing
	}
	reg := stream.NewRegistry()
	sess.SetUserData(reg)
	return reg
}
