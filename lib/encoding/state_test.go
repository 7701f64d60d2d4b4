package encoding

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSerializeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"nested objects", map[string]any{
			"props": map[string]any{
				"page":  map[string]any{"title": "Home", "count": float64(3)},
				"frame": map[string]any{"nav": []any{"a", "b"}},
			},
		}},
		{"arrays", []any{float64(1), "two", true, nil, []any{"nested"}}},
		{"script close", map[string]any{"html": "<p>hi</p></script><script>alert(1)</script>"}},
		{"script close uppercase", map[string]any{"html": "</SCRIPT>"}},
		{"style close", map[string]any{"css": "</Style>"}},
		{"comment opener", map[string]any{"note": "<!-- hidden -->"}},
		{"key with markup", map[string]any{"</script>": "<!--"}},
		{"unicode", map[string]any{"s": "héllo   wörld"}},
		{"plain string", "just text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Serialize(tt.value)
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			if !IsSafe(s) {
				t.Fatalf("Serialize() output is not safe: %s", s)
			}

			var got any
			if err := Deserialize(s, &got); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}
			if diff := cmp.Diff(tt.value, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSerializeLeavesHarmlessMarkup(t *testing.T) {
	s, err := Serialize(map[string]any{"html": "<b>bold</b>"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(s, "<b>bold</b>") {
		t.Errorf("Serialize() = %s, want harmless markup kept verbatim", s)
	}
}

func TestEscape(t *testing.T) {
	lt := `\` + "u003c"
	tests := map[string]string{
		"</script>":        lt + "/script>",
		"</ScRiPt":         lt + "/ScRiPt",
		"<!--":             lt + "!--",
		"</style>":         lt + "/style>",
		"<div></div>":      "<div></div>",
		"a < b":            "a < b",
		"</scrip":          "</scrip",
		"x</script</style": "x" + lt + "/script" + lt + "/style",
	}
	for in, want := range tests {
		if got := Escape(in); got != want {
			t.Errorf("Escape(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeserializeInvalid(t *testing.T) {
	var v any
	err := Deserialize("{not json", &v)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Deserialize() error = %v, want ErrInvalidFormat", err)
	}
}
