// Package session keeps one user's playground state and mirrors it into a
// URL fragment after every committed change.
package session

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	gsp "github.com/richinsley/goshaderplayground"
	"github.com/richinsley/goshaderplayground/colormap"
	"github.com/richinsley/goshaderplayground/shader"
	"github.com/richinsley/goshaderplayground/state"
)

var (
	ErrUnknownPreset = errors.New("session: unknown preset")
	ErrOutOfRange    = errors.New("session: value out of range")
)

// Sink receives the fragment after every committed change, e.g. the
// browser location or a test recorder.
type Sink interface {
	WriteFragment(fragment string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(string)

func (f SinkFunc) WriteFragment(fragment string) { f(fragment) }

type discard struct{}

func (discard) WriteFragment(string) {}

// Session is the single owner of a playground state. The fragment is read
// once by Open and written after each setter; it is never read back.
type Session struct {
	// wmu orders commits end to end, so the sink and listeners see
	// fragments in the order the mutations happened. Taken before mu.
	wmu sync.Mutex

	mu        sync.Mutex
	codec     *state.Codec
	sink      Sink
	st        state.State
	fragment  string
	linkErr   error
	listeners []func(state.State)
}

// Open decodes fragment into a new session. An invalid link falls back to
// the default preset; the decode error is kept and reported by LinkError.
// The sink receives the canonical fragment of the opening state.
func Open(codec *state.Codec, fragment string, sink Sink) *Session {
	if sink == nil {
		sink = discard{}
	}
	s := &Session{codec: codec, sink: sink}

	st, err := codec.Decode(fragment)
	if err != nil {
		gsp.Logger().Warn("invalid link, using default preset",
			"default", codec.Default, "err", err)
		st = codec.DefaultState()
		s.linkErr = err
	}
	s.st = st
	s.fragment = codec.Encode(st)
	sink.WriteFragment(s.fragment)
	return s
}

// InvalidLink reports whether the opening fragment could not be decoded.
func (s *Session) InvalidLink() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkErr != nil
}

// LinkError returns the decode error of the opening fragment, if any.
func (s *Session) LinkError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkErr
}

// OnChange registers fn to run after every committed change, outside the
// session lock.
func (s *Session) OnChange(fn func(state.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// State returns a copy of the current state.
func (s *Session) State() state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Clone()
}

// Fragment returns the last fragment written to the sink.
func (s *Session) Fragment() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fragment
}

func (s *Session) Shader() string              { return s.State().Shader }
func (s *Session) ShaderName() string          { return s.State().ShaderName }
func (s *Session) Colormap() colormap.Colormap { return s.State().Colormap }
func (s *Session) AmbientLight() float64       { return s.State().AmbientLight }
func (s *Session) DirectLight() float64        { return s.State().DirectLight }
func (s *Session) SpecularLight() float64      { return s.State().SpecularLight }
func (s *Session) CutLow() int                 { return s.State().CutLow }
func (s *Session) CutHigh() int                { return s.State().CutHigh }

// commit applies one mutation, re-encodes and notifies. Listeners run
// outside mu but before the next commit starts; they must not call
// setters.
func (s *Session) commit(mutate func(*state.State)) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	mutate(&s.st)
	s.fragment = s.codec.Encode(s.st)
	frag := s.fragment
	snapshot := s.st.Clone()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	gsp.Logger().Debug("fragment written", "shaderName", snapshot.ShaderName, "length", len(frag))
	s.sink.WriteFragment(frag)
	for _, fn := range listeners {
		fn(snapshot)
	}
}

// SetShader replaces the shader source with user-edited text. The session
// becomes custom even if the text equals a preset.
func (s *Session) SetShader(src string) {
	s.commit(func(st *state.State) {
		st.ShaderName = shader.Custom
		st.Shader = src
	})
}

// SelectPreset switches to a preset's canonical source. Other parameters
// are kept.
func (s *Session) SelectPreset(name string) error {
	src, ok := s.codec.Presets.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	s.commit(func(st *state.State) {
		st.ShaderName = name
		st.Shader = src
	})
	return nil
}

func (s *Session) SetColormap(cm colormap.Colormap) error {
	if err := cm.Validate(); err != nil {
		return err
	}
	cm = cm.Clone()
	s.commit(func(st *state.State) { st.Colormap = cm })
	return nil
}

func checkUnit(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s must be in [0, 1], got %v", ErrOutOfRange, field, v)
	}
	return nil
}

func checkCut(field string, v int) error {
	if v < colormap.MinHU || v > colormap.MaxHU {
		return fmt.Errorf("%w: %s must be in [%d, %d], got %d", ErrOutOfRange, field, colormap.MinHU, colormap.MaxHU, v)
	}
	return nil
}

func (s *Session) SetAmbientLight(v float64) error {
	if err := checkUnit("ambientLight", v); err != nil {
		return err
	}
	s.commit(func(st *state.State) { st.AmbientLight = v })
	return nil
}

func (s *Session) SetDirectLight(v float64) error {
	if err := checkUnit("directLight", v); err != nil {
		return err
	}
	s.commit(func(st *state.State) { st.DirectLight = v })
	return nil
}

func (s *Session) SetSpecularLight(v float64) error {
	if err := checkUnit("specularLight", v); err != nil {
		return err
	}
	s.commit(func(st *state.State) { st.SpecularLight = v })
	return nil
}

// SetCutLow sets the lower cut. cutLow <= cutHigh is not enforced.
func (s *Session) SetCutLow(v int) error {
	if err := checkCut("cutLow", v); err != nil {
		return err
	}
	s.commit(func(st *state.State) { st.CutLow = v })
	return nil
}

func (s *Session) SetCutHigh(v int) error {
	if err := checkCut("cutHigh", v); err != nil {
		return err
	}
	s.commit(func(st *state.State) { st.CutHigh = v })
	return nil
}
