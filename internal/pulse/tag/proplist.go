package tag

import "sort"

// Proplist is an unordered set of string-keyed byte-string properties
// attached to clients, streams, sinks, sources, and cards (node.description,
// application.name, media.role, and the like).
type Proplist map[string][]byte

// PutProplist appends a property-list tag.
// Wire format: marker 'P' | repeated { string key | u32 length |
// arbitrary(length) } terminated by the null-string marker in place of
// the next key. Keys are emitted in sorted order for deterministic output.
func (b *Buffer) PutProplist(p Proplist) {
	b.buf.WriteByte(markerProplist)
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := p[k]
		b.PutString(k)
		b.PutU32(uint32(len(v)))
		b.PutArbitrary(v)
	}
	b.PutNullString()
}

// GetProplist decodes a property-list tag.
func (d *Reader) GetProplist() (Proplist, error) {
	if err := d.expectMarker(markerProplist); err != nil {
		return nil, err
	}
	out := make(Proplist)
	for {
		key, isNull, err := d.GetString()
		if err != nil {
			return nil, err
		}
		if isNull {
			return out, nil
		}
		if _, err := d.GetU32(); err != nil {
			return nil, err
		}
		value, err := d.GetArbitrary()
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
}
