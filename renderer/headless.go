package renderer

import (
	"context"
	"fmt"
	"sync"

	gsp "github.com/richinsley/goshaderplayground"
	"github.com/richinsley/goshaderplayground/api"
	"github.com/richinsley/goshaderplayground/translator"
)

// ShaderValidator checks a fragment snippet before it is rendered.
type ShaderValidator func(ctx context.Context, snippet string) error

// ValidateWithTranslator compiles snippets with the shared shader
// translator.
func ValidateWithTranslator(ctx context.Context, snippet string) error {
	_, err := translator.Validate(ctx, snippet)
	return err
}

// Headless is an in-process stand-in for the rendering SDK. Images come
// from an api.Fetcher; workspaces keep the volume and the parameters of
// the last accepted render. Pixels are produced by the browser-side SDK.
type Headless struct {
	Fetcher  *api.Fetcher
	Validate ShaderValidator
}

// NewHeadless returns a Headless SDK that validates shaders with the
// shared translator.
func NewHeadless(f *api.Fetcher) *Headless {
	return &Headless{Fetcher: f, Validate: ValidateWithTranslator}
}

type volumeImage struct {
	*api.VolumeData
}

func (v volumeImage) Describe() string {
	return fmt.Sprintf("%s %s (%d bytes)", v.Type, v.Name, len(v.Data))
}

func (h *Headless) LoadImage(ctx context.Context, src api.Source, progress api.Progress) (Image, error) {
	vol, err := h.Fetcher.Fetch(ctx, src, progress)
	if err != nil {
		return nil, err
	}
	return volumeImage{vol}, nil
}

func (h *Headless) CreateWorkspace(ctx context.Context, img Image) (Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vi, ok := img.(volumeImage)
	if !ok {
		return nil, fmt.Errorf("renderer: foreign image %T", img)
	}
	if len(vi.Data) == 0 {
		return nil, fmt.Errorf("renderer: empty volume %s", vi.Name)
	}
	return &HeadlessWorkspace{image: vi, validate: h.Validate}, nil
}

// HeadlessWorkspace records renders instead of drawing them.
type HeadlessWorkspace struct {
	mu       sync.Mutex
	image    volumeImage
	validate ShaderValidator
	last     Params
	renders  int
	closed   bool
}

// Render validates p and records it. A rejected shader leaves the previous
// parameters in place.
func (w *HeadlessWorkspace) Render(ctx context.Context, p Params) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := p.Colormap.Validate(); err != nil {
		return err
	}
	if w.validate != nil {
		if err := w.validate(ctx, p.FragmentShader); err != nil {
			gsp.Logger().Warn("render rejected", "err", err)
			return err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.last = p
	w.last.Colormap = p.Colormap.Clone()
	w.renders++
	return nil
}

// Last returns the parameters of the last accepted render.
func (w *HeadlessWorkspace) Last() (Params, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.renders > 0
}

// Renders returns how many renders were accepted.
func (w *HeadlessWorkspace) Renders() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.renders
}

// Image describes the loaded volume, or returns "" once closed.
func (w *HeadlessWorkspace) Image() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.image.VolumeData == nil {
		return ""
	}
	return w.image.Describe()
}

func (w *HeadlessWorkspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.image = volumeImage{}
	return nil
}
