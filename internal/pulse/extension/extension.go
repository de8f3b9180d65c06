// Package extension implements the COMMAND_EXTENSION sub-protocol: a
// second, nested command dispatch that the stream-restore,
// device-restore, and device-manager client-library modules use to
// reach server-side functionality that never got a dedicated top-level
// command code. A client addresses one of these by module index or
// name, same as GET_CARD_INFO addressing a card by either; the payload
// after that carries its own u32 sub-command and sub-command-specific
// body, mirroring the teacher's own table-driven command dispatch one
// level down.
package extension

import (
	"context"
	"sort"
	"strconv"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/chanmap"
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/mirror"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
	"github.com/pulsenative/pulsed/internal/pulse/volume"
)

// Module indices, matching the reference server's static extension table
// (module-stream-restore, module-device-restore, module-device-manager).
const (
	IndexStreamRestore uint32 = 0
	IndexDeviceRestore uint32 = 1
	IndexDeviceManager uint32 = 2
)

const (
	nameStreamRestore = "module-stream-restore"
	nameDeviceRestore = "module-device-restore"
	nameDeviceManager = "module-device-manager"
)

// Sub-command indices within EXT_STREAM_RESTORE.
const (
	streamRestoreTest      uint32 = 0
	streamRestoreRead      uint32 = 1
	streamRestoreWrite     uint32 = 2
	streamRestoreDelete    uint32 = 3
	streamRestoreSubscribe uint32 = 4
)

// Sub-command indices within EXT_DEVICE_RESTORE.
const (
	deviceRestoreTest           uint32 = 0
	deviceRestoreSubscribe      uint32 = 1
	deviceRestoreReadFormatsAll uint32 = 3
	deviceRestoreReadFormats    uint32 = 4
	deviceRestoreSaveFormats    uint32 = 5
)

// deviceTypeSink is the only DEVICE_TYPE_* value this server's
// READ_FORMATS/SAVE_FORMATS support: sinks only, sources were never
// wired into the real module either.
const deviceTypeSink uint32 = 0

// Protocol versions echoed back by each extension's TEST sub-command.
const (
	streamRestoreVersion uint32 = 1
	deviceRestoreVersion uint32 = 1
)

// Registry answers COMMAND_EXTENSION requests by dispatching into the
// stream-restore, device-restore, and device-manager sub-protocols, the
// same mirror/engine collaborators the top-level command.Dispatcher uses.
type Registry struct {
	mirror *mirror.Manager
	eng    engine.Engine
}

// New builds a Registry wired to the given collaborators.
func New(mgr *mirror.Manager, eng engine.Engine) *Registry {
	return &Registry{mirror: mgr, eng: eng}
}

// Dispatch answers one COMMAND_EXTENSION payload: module index-or-name
// followed by a sub-command u32, exactly the shape a GET_CARD_INFO-style
// by-one lookup takes one level up.
func (reg *Registry) Dispatch(ctx context.Context, index uint32, name string, r *tag.Reader) (*tag.Buffer, error) {
	mod, ok := resolveModule(index, name)
	if !ok {
		return nil, pulseerrors.NewNoEntityError("extension.dispatch.module", nil)
	}
	sub, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("extension.dispatch.subcommand", err)
	}
	switch mod {
	case IndexStreamRestore:
		return reg.dispatchStreamRestore(sub, r)
	case IndexDeviceRestore:
		return reg.dispatchDeviceRestore(ctx, sub, r)
	case IndexDeviceManager:
		return reg.dispatchDeviceManager(sub, r)
	default:
		return nil, pulseerrors.NewNotSupportedError("extension.dispatch", nil)
	}
}

func resolveModule(index uint32, name string) (uint32, bool) {
	if name != "" {
		switch name {
		case nameStreamRestore:
			return IndexStreamRestore, true
		case nameDeviceRestore:
			return IndexDeviceRestore, true
		case nameDeviceManager:
			return IndexDeviceManager, true
		default:
			return 0, false
		}
	}
	switch index {
	case IndexStreamRestore, IndexDeviceRestore, IndexDeviceManager:
		return index, true
	default:
		return 0, false
	}
}

// putOptionalString writes name as a populated string, or the dedicated
// null-string marker when it's empty, matching how the stream-restore
// READ reply distinguishes "no saved target device" from an empty name.
func putOptionalString(b *tag.Buffer, s string) {
	if s == "" {
		b.PutNullString()
		return
	}
	b.PutString(s)
}

func positionsFromBytes(raw []uint8) chanmap.Map {
	positions := make([]chanmap.Position, len(raw))
	for i, p := range raw {
		positions[i] = chanmap.Position(p)
	}
	return chanmap.Map{Positions: positions}
}

func bytesFromPositions(m chanmap.Map) []uint8 {
	out := make([]uint8, len(m.Positions))
	for i, p := range m.Positions {
		out[i] = uint8(p)
	}
	return out
}

func (reg *Registry) dispatchStreamRestore(sub uint32, r *tag.Reader) (*tag.Buffer, error) {
	switch sub {
	case streamRestoreTest:
		reply := tag.NewBuffer()
		reply.PutU32(streamRestoreVersion)
		return reply, nil

	case streamRestoreRead:
		routes := reg.mirror.Metadata().AllRoutes()
		names := make([]string, 0, len(routes))
		for name := range routes {
			names = append(names, name)
		}
		sort.Strings(names)
		reply := tag.NewBuffer()
		for _, name := range names {
			entry := routes[name]
			reply.PutString(name)
			reply.PutChannelMap(positionsFromBytes(entry.ChannelMap))
			reply.PutCVolume(volume.CVolume{Values: entry.Volume})
			putOptionalString(reply, entry.Target)
			reply.PutBoolean(entry.Muted)
		}
		return reply, nil

	case streamRestoreWrite:
		if _, err := r.GetU32(); err != nil { // restore mode: unused, this server has one storage tier
			return nil, pulseerrors.NewProtocolError("extension.streamrestore.write.mode", err)
		}
		if _, err := r.GetBoolean(); err != nil { // apply-immediately: always applied
			return nil, pulseerrors.NewProtocolError("extension.streamrestore.write.apply", err)
		}
		for r.Remaining() > 0 {
			name, isNull, err := r.GetString()
			if err != nil {
				return nil, pulseerrors.NewProtocolError("extension.streamrestore.write.name", err)
			}
			if isNull || name == "" {
				return nil, pulseerrors.NewProtocolError("extension.streamrestore.write.name.empty", nil)
			}
			cm, err := r.GetChannelMap()
			if err != nil {
				return nil, pulseerrors.NewProtocolError("extension.streamrestore.write.channelmap", err)
			}
			vol, err := r.GetCVolume()
			if err != nil {
				return nil, pulseerrors.NewProtocolError("extension.streamrestore.write.volume", err)
			}
			target, targetNull, err := r.GetString()
			if err != nil {
				return nil, pulseerrors.NewProtocolError("extension.streamrestore.write.target", err)
			}
			if targetNull {
				target = ""
			}
			muted, err := r.GetBoolean()
			if err != nil {
				return nil, pulseerrors.NewProtocolError("extension.streamrestore.write.muted", err)
			}
			reg.mirror.Metadata().SetRoute(name, mirror.RouteEntry{
				ChannelMap: bytesFromPositions(cm),
				Volume:     vol.Values,
				Muted:      muted,
				Target:     target,
			})
		}
		return tag.NewBuffer(), nil

	case streamRestoreDelete:
		for r.Remaining() > 0 {
			name, isNull, err := r.GetString()
			if err != nil {
				return nil, pulseerrors.NewProtocolError("extension.streamrestore.delete.name", err)
			}
			if isNull {
				continue
			}
			reg.mirror.Metadata().DeleteRoute(name)
		}
		return tag.NewBuffer(), nil

	case streamRestoreSubscribe:
		if _, err := r.GetBoolean(); err != nil {
			return nil, pulseerrors.NewProtocolError("extension.streamrestore.subscribe.enable", err)
		}
		// Change notifications for saved routes ride the ordinary
		// SUBSCRIBE facility mask in this server; there is no separate
		// EXT_STREAM_RESTORE_EVENT push channel to arm here.
		return tag.NewBuffer(), nil

	default:
		return nil, pulseerrors.NewNotSupportedError("extension.streamrestore.subcommand", nil)
	}
}

func (reg *Registry) dispatchDeviceRestore(ctx context.Context, sub uint32, r *tag.Reader) (*tag.Buffer, error) {
	switch sub {
	case deviceRestoreTest:
		reply := tag.NewBuffer()
		reply.PutU32(deviceRestoreVersion)
		return reply, nil

	case deviceRestoreSubscribe:
		if _, err := r.GetBoolean(); err != nil {
			return nil, pulseerrors.NewProtocolError("extension.devicerestore.subscribe.enable", err)
		}
		return tag.NewBuffer(), nil

	case deviceRestoreReadFormatsAll:
		nodes, err := reg.mirror.Sinks(ctx)
		if err != nil {
			return nil, err
		}
		reply := tag.NewBuffer()
		for _, n := range nodes {
			putSinkFormats(reply, n)
		}
		return reply, nil

	case deviceRestoreReadFormats:
		devType, err := r.GetU32()
		if err != nil {
			return nil, pulseerrors.NewProtocolError("extension.devicerestore.readformats.type", err)
		}
		sinkIndex, err := r.GetU32()
		if err != nil {
			return nil, pulseerrors.NewProtocolError("extension.devicerestore.readformats.index", err)
		}
		if devType != deviceTypeSink {
			return nil, pulseerrors.NewNotSupportedError("extension.devicerestore.readformats.type", nil)
		}
		n, err := reg.eng.GetNode(ctx, engine.ClassSink, sinkIndex)
		if err != nil {
			return nil, err
		}
		reply := tag.NewBuffer()
		putSinkFormats(reply, n)
		return reply, nil

	case deviceRestoreSaveFormats:
		devType, err := r.GetU32()
		if err != nil {
			return nil, pulseerrors.NewProtocolError("extension.devicerestore.saveformats.type", err)
		}
		sinkIndex, err := r.GetU32()
		if err != nil {
			return nil, pulseerrors.NewProtocolError("extension.devicerestore.saveformats.index", err)
		}
		n, err := r.GetU8()
		if err != nil {
			return nil, pulseerrors.NewProtocolError("extension.devicerestore.saveformats.count", err)
		}
		for i := uint8(0); i < n; i++ {
			if _, err := r.GetFormatInfo(); err != nil {
				return nil, pulseerrors.NewProtocolError("extension.devicerestore.saveformats.formatinfo", err)
			}
		}
		if devType != deviceTypeSink {
			return nil, pulseerrors.NewNotSupportedError("extension.devicerestore.saveformats.type", nil)
		}
		// This server's object model has no persisted codec-preference
		// slot on a sink (Node carries a fixed Format, not a negotiable
		// set), so a save is accepted and acknowledged without changing
		// what subsequent READ_FORMATS reports.
		if _, err := reg.eng.GetNode(ctx, engine.ClassSink, sinkIndex); err != nil {
			return nil, err
		}
		return tag.NewBuffer(), nil

	default:
		return nil, pulseerrors.NewNotSupportedError("extension.devicerestore.subcommand", nil)
	}
}

// putSinkFormats writes one sink's READ_FORMATS(_ALL) entry: device type,
// sink index, then a u8 count of FormatInfo values. This server's Node
// carries one fixed encoding, so the count is always 1, unlike a
// real sink whose EnumFormat params can list several.
func putSinkFormats(b *tag.Buffer, n engine.Node) {
	b.PutU32(deviceTypeSink)
	b.PutU32(n.Index)
	b.PutU8(1)
	b.PutFormatInfo(tag.FormatInfo{
		Encoding: tag.EncodingPCM,
		Props: tag.Proplist{
			"format.rate":     []byte(strconv.FormatUint(uint64(n.Rate), 10)),
			"format.channels": []byte(strconv.FormatUint(uint64(n.Channels), 10)),
		},
	})
}

// deviceManager is not implemented: the reference module exists to
// rename devices and assign icons from a client-maintained config file
// this server has no analog for (no persisted device-name override
// store). NOT_SUPPORTED for every sub-command matches a real server
// built without that module loaded, which PulseAudio clients already
// handle by silently skipping device-manager-only UI.
func (reg *Registry) dispatchDeviceManager(_ uint32, _ *tag.Reader) (*tag.Buffer, error) {
	return nil, pulseerrors.NewNotSupportedError("extension.devicemanager", nil)
}
