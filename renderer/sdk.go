// Package renderer is the boundary to the volumetric rendering SDK.
//
// The SDK loads a medical image, turns it into a workspace and renders the
// workspace with a fragment-shader snippet, a colormap, lighting scalars
// and a density cut window. Everything behind these interfaces is opaque to
// the playground.
package renderer

import (
	"context"
	"errors"
	"fmt"

	gsp "github.com/richinsley/goshaderplayground"
	"github.com/richinsley/goshaderplayground/api"
	"github.com/richinsley/goshaderplayground/colormap"
)

// Image is an opaque handle to a loaded volume.
type Image interface {
	Describe() string
}

type ImageLoader interface {
	// LoadImage may call progress any number of times before returning.
	LoadImage(ctx context.Context, src api.Source, progress api.Progress) (Image, error)
}

type WorkspaceFactory interface {
	CreateWorkspace(ctx context.Context, img Image) (Workspace, error)
}

// Workspace is a render-ready volume. It is owned by a single playground.
type Workspace interface {
	// Render draws the volume with p. Callers invoke it whenever any
	// parameter changes.
	Render(ctx context.Context, p Params) error
	Close() error
}

// Params are the inputs of one volumetric render.
type Params struct {
	AmbientLight   float64           `json:"ambientLight"`
	DiffuseLight   float64           `json:"diffuseLight"`
	SpecularLight  float64           `json:"specularLight"`
	LowCut         int               `json:"lowCut"`
	HighCut        int               `json:"highCut"`
	Colormap       colormap.Colormap `json:"colormap"`
	FragmentShader string            `json:"fragmentShader"`
}

// Load stages.
const (
	StageLoad      = "load"
	StageWorkspace = "workspace"
)

var ErrClosed = errors.New("renderer: workspace closed")

// LoadError reports a failure while loading an image or creating its
// workspace.
type LoadError struct {
	Stage  string
	Source api.Source
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("renderer: %s %s: %v", e.Stage, e.Source.Input, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load loads src and creates its workspace. Workspace creation starts only
// after the image loaded. Failures are logged and returned as *LoadError.
func Load(ctx context.Context, loader ImageLoader, factory WorkspaceFactory, src api.Source, progress api.Progress) (Workspace, error) {
	if progress == nil {
		progress = func(float64) {}
	}
	img, err := loader.LoadImage(ctx, src, progress)
	if err != nil {
		lerr := &LoadError{Stage: StageLoad, Source: src, Err: err}
		gsp.Logger().Error("image load failed", "source", src.Input, "err", err)
		return nil, lerr
	}
	ws, err := factory.CreateWorkspace(ctx, img)
	if err != nil {
		lerr := &LoadError{Stage: StageWorkspace, Source: src, Err: err}
		gsp.Logger().Error("workspace creation failed", "source", src.Input, "err", err)
		return nil, lerr
	}
	gsp.Logger().Info("workspace ready", "image", img.Describe())
	return ws, nil
}
