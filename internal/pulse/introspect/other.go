package introspect

import (
	"github.com/pulsenative/pulsed/internal/pulse/engine"
	"github.com/pulsenative/pulsed/internal/pulse/proto"
	"github.com/pulsenative/pulsed/internal/pulse/tag"
)

// EmitClient appends one CLIENT_INFO entry.
func EmitClient(b *tag.Buffer, c engine.Client) {
	b.PutU32(uint32(c.Index))
	b.PutString(c.Name)
	b.PutU32(proto.InvalidIndex) // owner_module
	b.PutString("protocol-native.c")
	b.PutProplist(toProplist(c.Props))
}

// EmitModule appends one MODULE_INFO entry.
func EmitModule(b *tag.Buffer, m engine.Module) {
	b.PutU32(m.Index)
	b.PutString(m.Name)
	b.PutString(m.Argument)
	b.PutS64(-1) // n_used: unknown, matching a module with no usage accounting
	b.PutBoolean(false)
	b.PutProplist(nil)
}

// EmitCard appends one CARD_INFO entry. Ports are not modeled by
// engine.Card, so n_ports is always 0; every card reports exactly the
// profiles engine.Card carries.
func EmitCard(b *tag.Buffer, c engine.Card) {
	b.PutU32(c.Index)
	b.PutString(c.Name)
	b.PutU32(proto.InvalidIndex) // owner_module
	b.PutString(c.Driver)
	b.PutU32(uint32(len(c.Profiles)))
	for i, name := range c.Profiles {
		b.PutString(name)
		b.PutString(name) // description: no separate human-readable profile description is modeled
		b.PutU32(1)        // n_sinks
		b.PutU32(1)        // n_sources
		b.PutU32(uint32(i)) // priority
		b.PutU32(0)          // available flag: 0 = PA_AVAILABLE_UNKNOWN
	}
	b.PutString(c.Active)
	b.PutProplist(toProplist(c.Props))
	b.PutU32(0) // n_ports
}

// ServerInfo is the rendered ServerInfo reply body, matching the
// GET_SERVER_INFO wire layout exactly.
type ServerInfo struct {
	UserName       string
	HostName       string
	ServerVersion  string
	ServerName     string
	DefaultSink    string
	DefaultSource  string
	Cookie         uint32
	DefaultFormat  uint8
	DefaultChannels uint8
	DefaultRate    uint32
	DefaultMap     []uint8
}

// EmitServerInfo writes the GET_SERVER_INFO reply body.
func EmitServerInfo(b *tag.Buffer, s ServerInfo) {
	b.PutString(s.UserName)
	b.PutString(s.HostName)
	b.PutString(s.ServerVersion)
	b.PutString(s.ServerName)
	b.PutSampleSpec(specOf(s.DefaultFormat, s.DefaultChannels, s.DefaultRate))
	b.PutString(s.DefaultSink)
	b.PutString(s.DefaultSource)
	b.PutU32(s.Cookie)
	b.PutChannelMap(mapOf(s.DefaultMap))
}
