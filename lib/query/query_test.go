package query

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Values
	}{
		{"empty", "", Values{}},
		{"only question mark", "?", Values{}},
		{"single", "a=1", Values{"a": "1"}},
		{"leading question mark", "?a=1&b=2", Values{"a": "1", "b": "2"}},
		{"repeated twice", "a=1&a=2", Values{"a": []string{"1", "2"}}},
		{"repeated thrice", "a=1&a=2&a=3", Values{"a": []string{"1", "2", "3"}}},
		{"plus is space", "q=hello+world", Values{"q": "hello world"}},
		{"percent escapes", "q=%3C%2Fscript%3E&k%20ey=v", Values{"q": "</script>", "k ey": "v"}},
		{"encoded plus stays", "q=1%2B1", Values{"q": "1+1"}},
		{"key without value", "flag&x=", Values{"flag": "", "x": ""}},
		{"empty segments skipped", "a=1&&b=2&", Values{"a": "1", "b": "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.raw, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestParseSingleOccurrenceIsScalar(t *testing.T) {
	got, err := Parse("a=1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got["a"].(string); !ok {
		t.Errorf("got[a] = %#v, want string", got["a"])
	}
}

func TestParseMalformedEscape(t *testing.T) {
	for _, raw := range []string{"a=%zz", "%=1", "a=100%"} {
		_, err := Parse(raw)
		if !errors.Is(err, ErrDecode) {
			t.Errorf("Parse(%q) error = %v, want ErrDecode", raw, err)
		}
	}
}

func TestValuesAccessors(t *testing.T) {
	v, err := Parse("a=1&a=2&b=x")
	if err != nil {
		t.Fatal(err)
	}
	if got := v.Get("a"); got != "1" {
		t.Errorf("Get(a) = %q, want %q", got, "1")
	}
	if got := v.Get("b"); got != "x" {
		t.Errorf("Get(b) = %q, want %q", got, "x")
	}
	if diff := cmp.Diff([]string{"1", "2"}, v.All("a")); diff != "" {
		t.Errorf("All(a) mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x"}, v.All("b")); diff != "" {
		t.Errorf("All(b) mismatch:\n%s", diff)
	}
	if v.Has("c") {
		t.Error("Has(c) = true, want false")
	}
	if v.All("c") != nil {
		t.Error("All(c) should be nil")
	}
}
