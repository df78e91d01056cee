// Package state holds the shareable playground configuration and its
// URL-fragment codec.
package state

import (
	"github.com/richinsley/goshaderplayground/colormap"
	"github.com/richinsley/goshaderplayground/shader"
)

// State is the editable playground configuration. Field order is the
// serialization order.
type State struct {
	Shader        string            `json:"shader"`
	ShaderName    string            `json:"shaderName"`
	Colormap      colormap.Colormap `json:"colormap"`
	AmbientLight  float64           `json:"ambientLight"`
	DirectLight   float64           `json:"directLight"`
	SpecularLight float64           `json:"specularLight"`
	CutLow        int               `json:"cutLow"`
	CutHigh       int               `json:"cutHigh"`
}

// IsCustom reports whether the state carries user-edited source.
func (s State) IsCustom() bool {
	return s.ShaderName == shader.Custom
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Colormap = s.Colormap.Clone()
	return out
}

// Defaults are the parameters a preset selection starts from.
type Defaults struct {
	Colormap      colormap.Colormap
	AmbientLight  float64
	DirectLight   float64
	SpecularLight float64
	CutLow        int
	CutHigh       int
}

// DefaultParameters returns the parameters used for preset links.
func DefaultParameters() Defaults {
	return Defaults{
		Colormap:      colormap.Bones(),
		AmbientLight:  0.25,
		DirectLight:   0.60,
		SpecularLight: 0.24,
		CutLow:        colormap.MinHU,
		CutHigh:       colormap.MaxHU,
	}
}
