package state

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/richinsley/goshaderplayground/shader"
)

// Marker prefixes every encoded fragment.
const Marker = "#"

var errNotCustom = errors.New("payload shaderName must be \"custom\"")

// DecodeError reports a fragment that is neither a preset name nor a valid
// encoded payload.
type DecodeError struct {
	Fragment string
	Err      error
}

func (e *DecodeError) Error() string {
	frag := e.Fragment
	if len(frag) > 32 {
		frag = frag[:32] + "..."
	}
	return fmt.Sprintf("state: invalid fragment %q: %v", frag, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Codec maps states to URL fragments and back.
type Codec struct {
	Presets  *shader.Registry
	Default  string
	Defaults Defaults
}

// NewCodec returns a codec over the built-in presets with the default
// parameters and "lighting" as the default preset.
func NewCodec() *Codec {
	return &Codec{
		Presets:  shader.Builtin(),
		Default:  shader.DefaultPreset,
		Defaults: DefaultParameters(),
	}
}

// PresetState returns the state a preset link decodes to.
func (c *Codec) PresetState(name string) (State, bool) {
	src, ok := c.Presets.Lookup(name)
	if !ok {
		return State{}, false
	}
	return State{
		Shader:        src,
		ShaderName:    name,
		Colormap:      c.Defaults.Colormap.Clone(),
		AmbientLight:  c.Defaults.AmbientLight,
		DirectLight:   c.Defaults.DirectLight,
		SpecularLight: c.Defaults.SpecularLight,
		CutLow:        c.Defaults.CutLow,
		CutHigh:       c.Defaults.CutHigh,
	}, true
}

// DefaultState returns the state of an empty fragment.
func (c *Codec) DefaultState() State {
	s, ok := c.PresetState(c.Default)
	if !ok {
		panic(fmt.Sprintf("state: default preset %q is not registered", c.Default))
	}
	return s
}

// Decode parses a fragment, with or without its leading marker. Errors are
// always *DecodeError.
func (c *Codec) Decode(fragment string) (State, error) {
	frag := strings.TrimPrefix(fragment, Marker)
	if strings.Contains(frag, "%") {
		if unescaped, err := url.PathUnescape(frag); err == nil {
			frag = unescaped
		}
	}
	if frag == "" {
		frag = c.Default
	}
	if s, ok := c.PresetState(frag); ok {
		return s, nil
	}

	raw, err := base64.StdEncoding.DecodeString(frag)
	if err != nil {
		return State{}, &DecodeError{Fragment: frag, Err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var s State
	if err := dec.Decode(&s); err != nil {
		return State{}, &DecodeError{Fragment: frag, Err: err}
	}
	if dec.More() {
		return State{}, &DecodeError{Fragment: frag, Err: errors.New("trailing data after payload")}
	}
	if !s.IsCustom() {
		return State{}, &DecodeError{Fragment: frag, Err: errNotCustom}
	}
	return s, nil
}

// Encode returns the fragment for s, including the marker. Presets encode
// by name only; custom states carry every field.
func (c *Codec) Encode(s State) string {
	if !s.IsCustom() {
		return Marker + s.ShaderName
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		// State holds only strings, numbers and plain structs.
		panic(fmt.Sprintf("state: encode: %v", err))
	}
	payload := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return Marker + base64.StdEncoding.EncodeToString(payload)
}
