// Package encoding serializes view state for embedding inside markup.
//
// The output is plain JSON with every "<" that starts a closing script or
// style tag, or an HTML comment opener, rewritten as the JSON escape
// \u003c. The escape only ever lands inside JSON strings (a "<" cannot
// appear anywhere else in JSON), so a standard JSON parser decodes it back
// to the original character.
package encoding

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidFormat is returned when serialized state cannot be decoded.
var ErrInvalidFormat = errors.New("encoding: invalid state format")

// dangerous lists the lowercase sequences that must not survive inside an
// inline <script> or <template> element.
var dangerous = []string{"</script", "</style", "<!--"}

// Serialize encodes v as JSON that is safe to place in an inline script.
func Serialize(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return Escape(strings.TrimSuffix(buf.String(), "\n")), nil
}

// Deserialize decodes data produced by Serialize into v.
func Deserialize(data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return errors.Join(ErrInvalidFormat, err)
	}
	return nil
}

// Escape rewrites the "<" of every closing script/style tag and comment
// opener in s, matching case-insensitively.
func Escape(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		if s[i] == '<' && isDangerous(s[i:]) {
			sb.WriteString(`\u003c`)
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// IsSafe reports whether s contains none of the sequences Escape rewrites.
func IsSafe(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '<' && isDangerous(s[i:]) {
			return false
		}
	}
	return true
}

func isDangerous(s string) bool {
	for _, d := range dangerous {
		if len(s) >= len(d) && strings.EqualFold(s[:len(d)], d) {
			return true
		}
	}
	return false
}
