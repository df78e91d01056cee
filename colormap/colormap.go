// Package colormap describes how densities map to display colors.
//
// A colormap is either a list of named density bands ("materials") or a
// linear two-color gradient across the whole density domain. The zero
// Colormap is valid and means "let the SDK pick".
package colormap

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Density domain of the sample volumes, in Hounsfield units.
const (
	MinHU = -1024
	MaxHU = 7178
)

const (
	TypeMaterials = "materials"
	TypeLinear    = "linear"
)

var ErrInvalid = errors.New("colormap: invalid")

// Color is an RGBA quadruple, serialized as a four-element JSON array.
type Color [4]uint8

// Material maps the inclusive density band [From, To] to a color.
type Material struct {
	Name     string  `json:"name"`
	From     float64 `json:"from"`
	To       float64 `json:"to"`
	Color    Color   `json:"color"`
	Disabled bool    `json:"disabled,omitempty"`

	// Extra keeps keys this package does not model, so that material
	// objects written by the SDK survive a round trip.
	Extra map[string]json.RawMessage `json:"-"`
}

type Colormap struct {
	Type      string     `json:"type,omitempty"`
	Name      string     `json:"name,omitempty"`
	Materials []Material `json:"materials,omitempty"`
	Start     *Color     `json:"start,omitempty"`
	End       *Color     `json:"end,omitempty"`

	// Extra keeps keys this package does not model. The SDK colormap
	// picker emits objects with more keys than the renderer needs.
	Extra map[string]json.RawMessage `json:"-"`
}

// IsZero reports whether cm is the empty colormap.
func (cm Colormap) IsZero() bool {
	return cm.Type == "" && cm.Name == "" && len(cm.Materials) == 0 && cm.Start == nil && cm.End == nil && len(cm.Extra) == 0
}

// Validate checks the structure of cm.
func (cm Colormap) Validate() error {
	switch cm.Type {
	case "":
		if !cm.IsZero() {
			return fmt.Errorf("%w: missing type", ErrInvalid)
		}
	case TypeMaterials:
		for i, m := range cm.Materials {
			if m.From > m.To {
				return fmt.Errorf("%w: material %d (%s) has from %v > to %v", ErrInvalid, i, m.Name, m.From, m.To)
			}
		}
	case TypeLinear:
		if cm.Start == nil || cm.End == nil {
			return fmt.Errorf("%w: linear colormap needs start and end colors", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, cm.Type)
	}
	return nil
}

// Sample returns the color density hu maps to. For materials the last
// enabled band containing hu wins; outside every band the result is fully
// transparent. Linear colormaps interpolate from Start at MinHU to End at
// MaxHU.
func (cm Colormap) Sample(hu float64) Color {
	switch cm.Type {
	case TypeMaterials:
		var c Color
		for _, m := range cm.Materials {
			if !m.Disabled && hu >= m.From && hu <= m.To {
				c = m.Color
			}
		}
		return c
	case TypeLinear:
		if cm.Start == nil || cm.End == nil {
			return Color{}
		}
		t := (hu - MinHU) / (MaxHU - MinHU)
		return lerp(*cm.Start, *cm.End, t)
	}
	return Color{}
}

func lerp(a, b Color, t float64) Color {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	var c Color
	for i := range c {
		c[i] = uint8(float64(a[i]) + (float64(b[i])-float64(a[i]))*t + 0.5)
	}
	return c
}

// Clone returns a deep copy of cm.
func (cm Colormap) Clone() Colormap {
	out := cm
	if cm.Materials != nil {
		out.Materials = make([]Material, len(cm.Materials))
		for i, m := range cm.Materials {
			m.Extra = cloneExtra(m.Extra)
			out.Materials[i] = m
		}
	}
	out.Extra = cloneExtra(cm.Extra)
	if cm.Start != nil {
		s := *cm.Start
		out.Start = &s
	}
	if cm.End != nil {
		e := *cm.End
		out.End = &e
	}
	return out
}

// Bones is the default colormap: soft tissue, bone and metal bands, with
// skin and tendons present but disabled.
func Bones() Colormap {
	return Colormap{
		Type: TypeMaterials,
		Name: "Bones",
		Materials: []Material{
			{Name: "Skin", From: -200, To: 150, Color: Color{242, 197, 165, 255}, Disabled: true},
			{Name: "Tendons", From: 85, To: 90, Color: Color{255, 90, 152, 255}, Disabled: true},
			{Name: "Tissues", From: 150, To: 250, Color: Color{180, 90, 90, 240}},
			{Name: "Bone", From: 250, To: 1700, Color: Color{254, 252, 231, 255}},
			{Name: "Metal", From: 2000, To: 3000, Color: Color{180, 180, 255, 255}},
		},
	}
}

// Grayscale is a linear black-to-white gradient.
func Grayscale() Colormap {
	return Colormap{
		Type:  TypeLinear,
		Name:  "Grayscale",
		Start: &Color{0, 0, 0, 0},
		End:   &Color{255, 255, 255, 255},
	}
}
