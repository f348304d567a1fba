package httpapi

import (
	"testing"

	"github.com/signet-ai/signet/internal/types"
)

func TestToActorType(t *testing.T) {
	cases := []struct {
		in   string
		want types.ActorType
	}{
		{"user", types.ActorUser},
		{"harness", types.ActorHarness},
		{"worker", types.ActorWorker},
		{"system", types.ActorSystem},
		{"", types.ActorHarness},
		{"bogus", types.ActorHarness},
	}
	for _, tt := range cases {
		if got := toActorType(tt.in); got != tt.want {
			t.Errorf("toActorType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"", 50, 50},
		{"10", 50, 10},
		{"not-a-number", 50, 50},
		{"0", 50, 0},
	}
	for _, tt := range cases {
		if got := atoiDefault(tt.in, tt.def); got != tt.want {
			t.Errorf("atoiDefault(%q, %d) = %d, want %d", tt.in, tt.def, got, tt.want)
		}
	}
}

func TestPreviewTokenDeterministic(t *testing.T) {
	ids := []string{"a", "b", "c"}
	first := previewToken(ids)
	second := previewToken([]string{"a", "b", "c"})
	if first != second {
		t.Errorf("previewToken not deterministic: %q != %q", first, second)
	}
}

func TestPreviewTokenOrderSensitive(t *testing.T) {
	if previewToken([]string{"a", "b"}) == previewToken([]string{"b", "a"}) {
		t.Error("previewToken should differ when id order differs")
	}
}

func TestPreviewTokenDiffersOnContent(t *testing.T) {
	if previewToken([]string{"a", "b"}) == previewToken([]string{"a", "c"}) {
		t.Error("previewToken should differ for a different id set")
	}
}
