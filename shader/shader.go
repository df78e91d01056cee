package shader

import (
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Preset names. Custom is the sentinel for user-edited source and is never
// registered as a preset.
const (
	MaxIntensity = "max-intensity"
	Basic        = "basic"
	Lighting     = "lighting"
	Custom       = "custom"

	DefaultPreset = Lighting
)

var (
	ErrReservedName  = errors.New("shader: preset name is reserved")
	ErrDuplicateName = errors.New("shader: preset already registered")
)

// Registry maps preset names to their canonical sources, keeping the order
// presets were added in (the menu order).
type Registry struct {
	names   []string
	sources map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]string{}}
}

// Add registers a preset.
func (r *Registry) Add(name, source string) error {
	if name == "" || name == Custom {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.names = append(r.names, name)
	r.sources[name] = source
	return nil
}

// Lookup returns the canonical source of a preset.
func (r *Registry) Lookup(name string) (string, bool) {
	src, ok := r.sources[name]
	return src, ok
}

// Has reports whether name is a registered preset.
func (r *Registry) Has(name string) bool {
	_, ok := r.sources[name]
	return ok
}

// Names returns preset names in menu order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

var builtin = func() *Registry {
	r := NewRegistry()
	for _, p := range []struct{ name, src string }{
		{MaxIntensity, maxIntensitySource},
		{Basic, basicSource},
		{Lighting, lightingSource},
	} {
		if err := r.Add(p.name, p.src); err != nil {
			panic(err)
		}
	}
	return r
}()

// Builtin returns the registry of built-in presets. It must not be modified.
func Builtin() *Registry {
	return builtin
}

// Label returns the menu label for a preset name, e.g. "Max-Intensity".
func Label(name string) string {
	// Casers are stateful; one per call.
	return cases.Title(language.English).String(name)
}
