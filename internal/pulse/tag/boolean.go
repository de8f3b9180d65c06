package tag

// PutBoolean appends a boolean tag. Unlike most tags it carries no payload:
// truth is encoded entirely in the marker byte.
// Wire format: marker '1' (true) or '0' (false), no data.
func (b *Buffer) PutBoolean(v bool) {
	if v {
		b.buf.WriteByte(markerBooleanTrue)
	} else {
		b.buf.WriteByte(markerBoolFalse)
	}
}

// GetBoolean decodes a boolean tag.
func (d *Reader) GetBoolean() (bool, error) {
	m, err := d.readMarker()
	if err != nil {
		return false, err
	}
	switch m {
	case markerBooleanTrue:
		return true, nil
	case markerBoolFalse:
		return false, nil
	default:
		return false, markerError("tag.boolean.marker", markerBooleanTrue, m)
	}
}
