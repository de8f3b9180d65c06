package command

import (
	"context"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/session"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

func handleMoveSinkInput(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	return moveStream(ctx, d, engine.ClassSinkInput, engine.ClassSink, r)
}

func handleMoveSourceOutput(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	return moveStream(ctx, d, engine.ClassSourceOutput, engine.ClassSource, r)
}

// moveStream backs MOVE_SINK_INPUT/MOVE_SOURCE_OUTPUT: reassign an
// existing stream to a different node, addressed by either index or
// name exactly like the by-one GET_*_INFO commands.
func moveStream(ctx context.Context, d *Dispatcher, streamClass, nodeClass engine.Class, r *tag.Reader) (*tag.Buffer, error) {
	streamIndex, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.movestream.streamindex", err)
	}
	nodeIndex, nodeName, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	node, err := resolveNode(ctx, d, nodeClass, nodeIndex, nodeName)
	if err != nil {
		return nil, err
	}
	if err := d.eng.MoveStream(ctx, streamClass, streamIndex, node.Index); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}

func handleKillSinkInput(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	return killStream(ctx, d, engine.ClassSinkInput, r)
}

func handleKillSourceOutput(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	return killStream(ctx, d, engine.ClassSourceOutput, r)
}

func killStream(ctx context.Context, d *Dispatcher, class engine.Class, r *tag.Reader) (*tag.Buffer, error) {
	index, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.killstream.index", err)
	}
	if err := d.eng.KillStream(ctx, class, index); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}

// handleKillClient backs KILL_CLIENT: removes the client from the graph's
// client table and, if a session is still attached to that index, closes
// its connection outright, tearing down every stream it owns along with
// it (mirroring the real server's native-connection teardown rather than
// leaving an orphaned socket around after the client entry disappears).
func handleKillClient(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.killclient.index", err)
	}
	if err := d.eng.UnregisterClient(ctx, int64(index)); err != nil {
		return nil, err
	}
	if target, ok := d.sessionByIndex(index); ok {
		target.Close()
	}
	return tag.NewBuffer(), nil
}

func handleSetDefaultSink(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	n, err := resolveNode(ctx, d, engine.ClassSink, index, name)
	if err != nil {
		return nil, err
	}
	d.mirror.Metadata().SetDefaultSink(n.Name)
	return tag.NewBuffer(), nil
}

func handleSetDefaultSource(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	n, err := resolveNode(ctx, d, engine.ClassSource, index, name)
	if err != nil {
		return nil, err
	}
	d.mirror.Metadata().SetDefaultSource(n.Name)
	return tag.NewBuffer(), nil
}

// handleSetSinkInputName backs SET_SINK_INPUT_NAME, a rename the real
// server treats as a media.name property update rather than a graph
// rename; nothing downstream reads it back from the engine today, so
// it's accepted and acknowledged without a corresponding mirror field.
func handleSetSinkInputName(_ context.Context, _ *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	if _, err := r.GetU32(); err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsinkinputname.index", err)
	}
	if _, _, err := r.GetString(); err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsinkinputname.name", err)
	}
	return tag.NewBuffer(), nil
}

func handleLoadModule(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	name, _, err := r.GetString()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.loadmodule.name", err)
	}
	argument, _, err := r.GetString()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.loadmodule.argument", err)
	}
	index, err := d.eng.LoadModule(ctx, name, argument)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	reply.PutU32(index)
	return reply, nil
}

func handleUnloadModule(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.unloadmodule.index", err)
	}
	if err := d.eng.UnloadModule(ctx, index); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}
