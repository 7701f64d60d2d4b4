package hxview

import (
	"fmt"

	"github.com/pthm/hxview/lib/encoding"
)

// Reserved element ids shared by the Composer and the Hydrator.
const (
	StateID  = "hxview-state"
	TargetID = "hxview-root"
)

// Ref names one layer of the hydration chain.
type Ref struct {
	Key  string `json:"key"`
	Path string `json:"path,omitempty"`
}

// State is the payload embedded in a composed document for hydration:
// the props of the page and every frame, keyed by view key, plus the
// chain of layers. The layout is never included.
type State struct {
	Page   Ref              `json:"page"`
	Frames []Ref            `json:"frames,omitempty"`
	Props  map[string]Props `json:"props"`
}

// NewState extracts the client state of page.
func NewState(page Page) State {
	st := State{
		Page:  Ref{Key: page.Key, Path: page.Path},
		Props: map[string]Props{page.Key: nonNil(page.Props)},
	}
	for _, f := range page.Frames {
		st.Frames = append(st.Frames, Ref{Key: f.Key, Path: f.Path})
		st.Props[f.Key] = nonNil(f.Props)
	}
	return st
}

// Encode serializes the state so it can sit inside a <script> element.
func (s State) Encode() (string, error) {
	return encoding.Serialize(s)
}

// DecodeState parses state produced by State.Encode.
func DecodeState(data string) (State, error) {
	var s State
	if err := encoding.Deserialize(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if s.Props == nil {
		s.Props = make(map[string]Props)
	}
	return s, nil
}

// PropsFor returns the props stored for key, never nil.
func (s State) PropsFor(key string) Props {
	return nonNil(s.Props[key])
}

func emptyState() State {
	return State{Props: make(map[string]Props)}
}

func nonNil(p Props) Props {
	if p == nil {
		return Props{}
	}
	return p
}
