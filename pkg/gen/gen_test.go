package gen_test

import (
	"testing"

	"github.com/google/uuid"

	"ytmp3/pkg/gen"
)

func TestKey(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{a: "search", b: "lofi", want: "search|lofi"},
		{a: "", b: "PL1", want: "|PL1"},
		{a: "video", b: "", want: "video|"},
	}

	for _, tt := range tests {
		if got := gen.Key(tt.a, tt.b); got != tt.want {
			t.Errorf("Key(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestUUIDv5(t *testing.T) {
	got := gen.UUIDv5("list", "PL42")

	parsed, err := uuid.Parse(got)
	if err != nil {
		t.Fatalf("UUIDv5 returned %q: %v", got, err)
	}

	if parsed.Version() != 5 {
		t.Errorf("version = %d, want 5", parsed.Version())
	}

	if again := gen.UUIDv5("list", "PL42"); again != got {
		t.Errorf("UUIDv5 is not deterministic: %q vs %q", got, again)
	}

	if other := gen.UUIDv5("video", "PL42"); other == got {
		t.Errorf("different modes share an id")
	}
}

func TestRunID(t *testing.T) {
	a, b := gen.RunID(), gen.RunID()
	if a == b {
		t.Fatalf("RunID returned the same value twice: %q", a)
	}

	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("RunID %q is not a uuid: %v", a, err)
	}
}
