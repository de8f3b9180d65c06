package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestWireCodeClassification(t *testing.T) {
	root := stdErrors.New("root")
	wrapped := fmt.Errorf("adding context: %w", root)

	p := NewProtocolError("frame.decode", wrapped)
	if WireCodeOf(p) != CodeProtocol {
		t.Fatalf("expected CodeProtocol, got %v", WireCodeOf(p))
	}
	if !stdErrors.Is(p, root) {
		t.Fatalf("expected errors.Is to find root cause")
	}
	var pe *ProtocolError
	if !stdErrors.As(p, &pe) {
		t.Fatalf("expected errors.As to *ProtocolError")
	}
	if pe.Op != "frame.decode" {
		t.Fatalf("unexpected op: %s", pe.Op)
	}

	access := NewAccessError("command.admission", nil)
	if WireCodeOf(access) != CodeAccess {
		t.Fatalf("expected CodeAccess, got %v", WireCodeOf(access))
	}

	state := NewStateError("session.dispatch", nil)
	if WireCodeOf(state) != CodeBadState {
		t.Fatalf("expected CodeBadState, got %v", WireCodeOf(state))
	}

	inval := NewInvalidError("sample.channels", nil)
	if WireCodeOf(inval) != CodeInvalid {
		t.Fatalf("expected CodeInvalid, got %v", WireCodeOf(inval))
	}

	ne := NewNoEntityError("mirror.lookup", nil)
	if WireCodeOf(ne) != CodeNoEntity {
		t.Fatalf("expected CodeNoEntity, got %v", WireCodeOf(ne))
	}

	ns := NewNotSupportedError("extension.devicemanager", nil)
	if WireCodeOf(ns) != CodeNotSupported {
		t.Fatalf("expected CodeNotSupported, got %v", WireCodeOf(ns))
	}

	oversized := NewOversizedError("frame.read", nil)
	if WireCodeOf(oversized) != CodeTooLarge {
		t.Fatalf("expected CodeTooLarge, got %v", WireCodeOf(oversized))
	}
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"protocol", NewProtocolError("op", nil), true},
		{"auth", NewAuthError("op", nil), true},
		{"io", NewIOError("op", nil), true},
		{"oversized", NewOversizedError("op", nil), true},
		{"access", NewAccessError("op", nil), false},
		{"state", NewStateError("op", nil), false},
		{"invalid", NewInvalidError("op", nil), false},
		{"noentity", NewNoEntityError("op", nil), false},
		{"notsupported", NewNotSupportedError("op", nil), false},
		{"plain", stdErrors.New("plain"), false},
		{"nil", nil, false},
	}
	for _, c := range cases {
		if got := IsTerminal(c.err); got != c.want {
			t.Fatalf("%s: IsTerminal = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestWireCodeOfNilAndPlain(t *testing.T) {
	if WireCodeOf(nil) != 0 {
		t.Fatalf("expected 0 for nil error")
	}
	if WireCodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("expected CodeInternal fallback for unclassified error")
	}
}

func TestErrorStrings(t *testing.T) {
	withCause := NewAccessError("command.admission", stdErrors.New("sandbox denied"))
	if s := withCause.Error(); s == "" {
		t.Fatalf("expected non-empty error string")
	}
	withoutCause := NewAccessError("command.admission", nil)
	if s := withoutCause.Error(); s == "" {
		t.Fatalf("expected non-empty error string without cause")
	}
}
