package tag

import (
	"testing"

	"pgregory.net/rapid"
)

// TestRapidScalarRoundTrip exercises the invariant that every scalar tag,
// for any value in its domain, decodes to exactly what was encoded.
func TestRapidScalarRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		u8 := rapid.Uint8().Draw(rt, "u8")
		u32 := rapid.Uint32().Draw(rt, "u32")
		s64 := rapid.Int64().Draw(rt, "s64")
		u64 := rapid.Uint64().Draw(rt, "u64")
		str := rapid.StringMatching(`[a-zA-Z0-9 _.\-]{0,64}`).Draw(rt, "str")
		blobLen := rapid.IntRange(0, 256).Draw(rt, "bloblen")
		blob := make([]byte, blobLen)
		for i := range blob {
			blob[i] = byte(rapid.IntRange(0, 255).Draw(rt, "byte"))
		}

		b := NewBuffer()
		b.PutU8(u8)
		b.PutU32(u32)
		b.PutS64(s64)
		b.PutU64(u64)
		b.PutString(str)
		b.PutArbitrary(blob)

		r := NewReader(b.Bytes())
		if got, err := r.GetU8(); err != nil || got != u8 {
			rt.Fatalf("u8 round trip: got=%v err=%v want=%v", got, err, u8)
		}
		if got, err := r.GetU32(); err != nil || got != u32 {
			rt.Fatalf("u32 round trip: got=%v err=%v want=%v", got, err, u32)
		}
		if got, err := r.GetS64(); err != nil || got != s64 {
			rt.Fatalf("s64 round trip: got=%v err=%v want=%v", got, err, s64)
		}
		if got, err := r.GetU64(); err != nil || got != u64 {
			rt.Fatalf("u64 round trip: got=%v err=%v want=%v", got, err, u64)
		}
		if got, isNull, err := r.GetString(); err != nil || isNull || got != str {
			rt.Fatalf("string round trip: got=%v isNull=%v err=%v want=%v", got, isNull, err, str)
		}
		if got, err := r.GetArbitrary(); err != nil || len(got) != len(blob) {
			rt.Fatalf("arbitrary round trip: got=%v err=%v want len=%d", got, err, len(blob))
		}
		if r.Remaining() != 0 {
			rt.Fatalf("expected no remaining bytes, got %d", r.Remaining())
		}
	})
}
