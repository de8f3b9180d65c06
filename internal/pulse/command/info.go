package command

import (
	"context"

	pulseerrors "github.com/pulsenative/pulsed/internal/errors"
	"github.com/pulsenative/pulsed/internal/pulse/chanmap"
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/introspect"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/session"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

func handleGetServerInfo(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, _ *tag.Reader) (*tag.Buffer, error) {
	def := d.mirror.Metadata().Default()
	reply := tag.NewBuffer()
	introspect.EmitServerInfo(reply, introspect.ServerInfo{
		UserName:        d.cfg.UserName,
		HostName:        d.cfg.HostName,
		ServerVersion:   d.cfg.ServerVersion,
		ServerName:      d.cfg.ServerName,
		DefaultSink:     def.Sink,
		DefaultSource:   def.Source,
		DefaultFormat:   d.cfg.DefaultFormat,
		DefaultChannels: d.cfg.DefaultChannels,
		DefaultRate:     d.cfg.DefaultRate,
		DefaultMap:      chanmapPositions(chanmap.Default(int(d.cfg.DefaultChannels))),
	})
	_ = ctx
	return reply, nil
}

func chanmapPositions(m chanmap.Map) []uint8 {
	out := make([]uint8, len(m.Positions))
	for i, p := range m.Positions {
		out[i] = uint8(p)
	}
	return out
}

// byIndexOrName reads the two fields (index u32, name string) every
// GET_*_INFO-by-one command carries: a client may address the object by
// either, with InvalidIndex/"" meaning "not given".
func byIndexOrName(r *tag.Reader) (index uint32, name string, err error) {
	index, err = r.GetU32()
	if err != nil {
		return 0, "", pulseerrors.NewProtocolError("command.byindexorname.index", err)
	}
	name, _, err = r.GetString()
	if err != nil {
		return 0, "", pulseerrors.NewProtocolError("command.byindexorname.name", err)
	}
	return index, name, nil
}

func handleGetSinkInfo(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	n, err := resolveNode(ctx, d, engine.ClassSink, index, name)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	monIdx, monName := monitorOf(n)
	introspect.EmitSink(reply, n, monIdx, monName)
	return reply, nil
}

func handleGetSinkInfoList(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, _ *tag.Reader) (*tag.Buffer, error) {
	nodes, err := d.mirror.Sinks(ctx)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	for _, n := range nodes {
		monIdx, monName := monitorOf(n)
		introspect.EmitSink(reply, n, monIdx, monName)
	}
	return reply, nil
}

func handleGetSourceInfo(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	n, err := resolveNode(ctx, d, engine.ClassSource, index, name)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	introspect.EmitSource(reply, n, proto.InvalidIndex)
	return reply, nil
}

func handleGetSourceInfoList(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, _ *tag.Reader) (*tag.Buffer, error) {
	nodes, err := d.mirror.Sources(ctx)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	for _, n := range nodes {
		introspect.EmitSource(reply, n, proto.InvalidIndex)
	}
	return reply, nil
}

// monitorOf reports the monitor source paired with a sink. This server
// synthesizes a 1:1 relationship (see introspect.EmitSink), encoded here
// as the sink's own index with a ".monitor" suffix on its name; no
// separate monitor-source node is created in the engine, matching the
// simplification introspect already documents.
func monitorOf(n engine.Node) (uint32, string) {
	return n.Index, n.Name + ".monitor"
}

func resolveNode(ctx context.Context, d *Dispatcher, class engine.Class, index uint32, name string) (engine.Node, error) {
	if index != proto.InvalidIndex {
		return d.eng.GetNode(ctx, class, index)
	}
	var nodes []engine.Node
	var err error
	if class == engine.ClassSink {
		nodes, err = d.mirror.Sinks(ctx)
	} else {
		nodes, err = d.mirror.Sources(ctx)
	}
	if err != nil {
		return engine.Node{}, err
	}
	for _, n := range nodes {
		if n.Name == name {
			return n, nil
		}
	}
	return engine.Node{}, pulseerrors.NewNoEntityError("command.resolvenode", nil)
}

func handleGetSinkInputInfo(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.getsinkinputinfo.index", err)
	}
	s, err := d.eng.GetStream(ctx, engine.ClassSinkInput, index)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	introspect.EmitSinkInput(reply, s)
	return reply, nil
}

func handleGetSinkInputInfoList(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, _ *tag.Reader) (*tag.Buffer, error) {
	streams, err := d.mirror.SinkInputs(ctx)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	for _, s := range streams {
		introspect.EmitSinkInput(reply, s)
	}
	return reply, nil
}

func handleGetSourceOutputInfo(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.getsourceoutputinfo.index", err)
	}
	s, err := d.eng.GetStream(ctx, engine.ClassSourceOutput, index)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	introspect.EmitSourceOutput(reply, s)
	return reply, nil
}

func handleGetSourceOutputInfoList(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, _ *tag.Reader) (*tag.Buffer, error) {
	streams, err := d.mirror.SourceOutputs(ctx)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	for _, s := range streams {
		introspect.EmitSourceOutput(reply, s)
	}
	return reply, nil
}

func handleGetClientInfo(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.getclientinfo.index", err)
	}
	clients, err := d.mirror.Clients(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		if uint32(c.Index) == index {
			reply := tag.NewBuffer()
			introspect.EmitClient(reply, c)
			return reply, nil
		}
	}
	return nil, pulseerrors.NewNoEntityError("command.getclientinfo", nil)
}

func handleGetClientInfoList(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, _ *tag.Reader) (*tag.Buffer, error) {
	clients, err := d.mirror.Clients(ctx)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	for _, c := range clients {
		introspect.EmitClient(reply, c)
	}
	return reply, nil
}

func handleGetClientInfoByName(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	name, _, err := r.GetString()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.getclientinfobyname.name", err)
	}
	clients, err := d.mirror.Clients(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		if c.Name == name {
			reply := tag.NewBuffer()
			introspect.EmitClient(reply, c)
			return reply, nil
		}
	}
	return nil, pulseerrors.NewNoEntityError("command.getclientinfobyname", nil)
}

func handleGetModuleInfo(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, err := r.GetU32()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.getmoduleinfo.index", err)
	}
	mods, err := d.mirror.Modules(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range mods {
		if m.Index == index {
			reply := tag.NewBuffer()
			introspect.EmitModule(reply, m)
			return reply, nil
		}
	}
	return nil, pulseerrors.NewNoEntityError("command.getmoduleinfo", nil)
}

func handleGetModuleInfoList(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, _ *tag.Reader) (*tag.Buffer, error) {
	mods, err := d.mirror.Modules(ctx)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	for _, m := range mods {
		introspect.EmitModule(reply, m)
	}
	return reply, nil
}

func handleGetCardInfo(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	index, name, err := byIndexOrName(r)
	if err != nil {
		return nil, err
	}
	cards, err := d.mirror.Cards(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		if (index != proto.InvalidIndex && c.Index == index) || (index == proto.InvalidIndex && c.Name == name) {
			reply := tag.NewBuffer()
			introspect.EmitCard(reply, c)
			return reply, nil
		}
	}
	return nil, pulseerrors.NewNoEntityError("command.getcardinfo", nil)
}

func handleGetCardInfoList(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, _ *tag.Reader) (*tag.Buffer, error) {
	cards, err := d.mirror.Cards(ctx)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	for _, c := range cards {
		introspect.EmitCard(reply, c)
	}
	return reply, nil
}

func handleLookupSink(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	name, _, err := r.GetString()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.lookupsink.name", err)
	}
	n, err := resolveNode(ctx, d, engine.ClassSink, proto.InvalidIndex, name)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	reply.PutU32(n.Index)
	return reply, nil
}

func handleLookupSource(ctx context.Context, d *Dispatcher, _ *session.Session, _ uint32, r *tag.Reader) (*tag.Buffer, error) {
	name, _, err := r.GetString()
	if err != nil {
		return nil, pulseerrors.NewProtocolError("command.lookupsource.name", err)
	}
	n, err := resolveNode(ctx, d, engine.ClassSource, proto.InvalidIndex, name)
	if err != nil {
		return nil, err
	}
	reply := tag.NewBuffer()
	reply.PutU32(n.Index)
	return reply, nil
}
