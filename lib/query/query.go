// Package query decodes query strings and URLs into structured records.
//
// Repeated keys are folded the way browsers' query parsers usually do it:
// the first occurrence is stored as a string, the second upgrades the entry
// to a []string and later occurrences append to it.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrDecode is returned when a query component holds a malformed escape.
var ErrDecode = errors.New("query: malformed escape sequence")

// Values maps a decoded key to either a string or a []string.
type Values map[string]any

// Get returns the first value stored under key.
func (v Values) Get(key string) string {
	switch val := v[key].(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

// All returns every value stored under key in first-seen order.
func (v Values) All(key string) []string {
	switch val := v[key].(type) {
	case string:
		return []string{val}
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	}
	return nil
}

// Has reports whether key occurred at least once.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

func (v Values) add(key, value string) {
	switch cur := v[key].(type) {
	case nil:
		v[key] = value
	case string:
		v[key] = []string{cur, value}
	case []string:
		v[key] = append(cur, value)
	}
}

// Parse decodes a raw query string. A leading "?" is ignored and empty
// segments are skipped. An empty input yields an empty, non-nil map.
func Parse(raw string) (Values, error) {
	values := make(Values)
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return values, nil
	}

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")

		key, err := Decode(rawKey)
		if err != nil {
			return nil, err
		}
		value, err := Decode(rawValue)
		if err != nil {
			return nil, err
		}
		values.add(key, value)
	}
	return values, nil
}

// Decode decodes a single query component: "+" becomes a space before
// percent-decoding.
func Decode(s string) (string, error) {
	out, err := url.PathUnescape(strings.ReplaceAll(s, "+", " "))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrDecode, s)
	}
	return out, nil
}
