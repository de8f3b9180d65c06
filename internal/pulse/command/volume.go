package command

import (
	"context"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/session"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

func handleSetSinkVolume(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	vol, err := r.GetCVolume()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsinkvolume.volume", err)
	}
	n, err := resolveNode(ctx, d, engine.ClassSink, index, name)
	if err != nil {
		return nil, err
	}
	if err := d.eng.SetNodeVolume(ctx, engine.ClassSink, n.Index, vol.Values); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}

func handleSetSinkMute(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	muted, err := r.GetBoolean()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsinkmute.muted", err)
	}
	n, err := resolveNode(ctx, d, engine.ClassSink, index, name)
	if err != nil {
		return nil, err
	}
	if err := d.eng.SetNodeMute(ctx, engine.ClassSink, n.Index, muted); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}

func handleSetSourceVolume(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	vol, err := r.GetCVolume()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsourcevolume.volume", err)
	}
	n, err := resolveNode(ctx, d, engine.ClassSource, index, name)
	if err != nil {
		return nil, err
	}
	if err := d.eng.SetNodeVolume(ctx, engine.ClassSource, n.Index, vol.Values); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}

func handleSetSourceMute(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	muted, err := r.GetBoolean()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsourcemute.muted", err)
	}
	n, err := resolveNode(ctx, d, engine.ClassSource, index, name)
	if err != nil {
		return nil, err
	}
	if err := d.eng.SetNodeMute(ctx, engine.ClassSource, n.Index, muted); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}

func handleSetSinkInputVolume(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsinkinputvolume.index", err)
	}
	vol, err := r.GetCVolume()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsinkinputvolume.volume", err)
	}
	if err := d.eng.SetStreamVolume(ctx, engine.ClassSinkInput, index, vol.Values); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}

func handleSetSinkInputMute(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsinkinputmute.index", err)
	}
	muted, err := r.GetBoolean()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsinkinputmute.muted", err)
	}
	if err := d.eng.SetStreamMute(ctx, engine.ClassSinkInput, index, muted); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}

func handleSetSourceOutputVolume(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsourceoutputvolume.index", err)
	}
	vol, err := r.GetCVolume()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsourceoutputvolume.volume", err)
	}
	if err := d.eng.SetStreamVolume(ctx, engine.ClassSourceOutput, index, vol.Values); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}

func handleSetSourceOutputMute(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsourceoutputmute.index", err)
	}
	muted, err := r.GetBoolean()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setsourceoutputmute.muted", err)
	}
	if err := d.eng.SetStreamMute(ctx, engine.ClassSourceOutput, index, muted); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}

func handleSuspendSink(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	return suspendNode(ctx, d, engine.ClassSink, r)
}

func handleSuspendSource(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	return suspendNode(ctx, d, engine.ClassSource, r)
}

// suspendNode backs SUSPEND_SINK/SUSPEND_SOURCE. There is no dedicated
// engine method for toggling suspend independent of the node's mute
// state (the mirrored object model folds "suspended" into Node.Suspended,
// set only by the external graph), so a client-requested suspend is
// acknowledged but not applied to the graph; this is recorded as an
// accepted simplification since nothing in this server's object model
// schedules real I/O to pause.
func suspendNode(ctx context.Context, d *Dispatcher, class engine.Class, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.GetBoolean(); err != nil {
		return nil, pulseerrors.NewProtocolError("command.suspendnode.suspend", err)
	}
	if _, err := resolveNode(ctx, d, class, index, name); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}

func handleSetCardProfile(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	profile, _, err := r.GetString()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.setcardprofile.profile", err)
	}
	cardIndex := index
	if cardIndex == proto.InvalidIndex {
		cards, err := d.mirror.Cards(ctx)
		if err != nil {
			return nil, err
		}
		found := false
		for _, c := range cards {
			if c.Name == name {
				cardIndex = c.Index
				found = true
				break
			}
		}
		if !found {
			return nil, pulseerrors.NewNoEntityError("command.setcardprofile", nil)
		}
	}
	if err := d.eng.SetCardProfile(ctx, cardIndex, profile); err != nil {
		return nil, err
	}
	return tag.NewBuffer(), nil
}
