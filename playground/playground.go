// Package playground ties a session to a rendering workspace.
//
// Every committed state change triggers a render. Shader edits reach the
// workspace only after they settle in a debouncer, so typing in the editor
// does not recompile the volume shader on each keystroke. Other parameters
// render immediately with the last settled shader.
package playground

import (
	"context"
	"errors"
	"sync"
	"time"

	gsp "github.com/richinsley/goshaderplayground"
	"github.com/richinsley/goshaderplayground/api"
	"github.com/richinsley/goshaderplayground/debounce"
	"github.com/richinsley/goshaderplayground/renderer"
	"github.com/richinsley/goshaderplayground/session"
	"github.com/richinsley/goshaderplayground/state"
)

// DefaultDebounce is how long shader edits must be idle before rendering.
const DefaultDebounce = 500 * time.Millisecond

var (
	ErrClosed     = errors.New("playground: closed")
	ErrNoRenderer = errors.New("playground: no rendering SDK configured")
)

// Options configures a Playground.
type Options struct {
	Loader   renderer.ImageLoader
	Factory  renderer.WorkspaceFactory
	Source   api.Source    // zero selects api.DefaultSource
	Debounce time.Duration // zero selects DefaultDebounce
}

// Status is a snapshot of the playground's load and render state.
type Status struct {
	Loading   bool    `json:"loading"`
	Progress  float64 `json:"progress"`
	Ready     bool    `json:"ready"`
	LoadError string  `json:"loadError,omitempty"`
	// RenderError is the last render failure, usually a shader compile
	// error. It clears on the next successful render.
	RenderError string `json:"renderError,omitempty"`
	Renders     int    `json:"renders"`
}

type Playground struct {
	session *session.Session
	shader  *debounce.Value[string]
	loader  renderer.ImageLoader
	factory renderer.WorkspaceFactory
	source  api.Source
	ctx     context.Context
	cancel  context.CancelFunc

	mu         sync.Mutex
	ws         renderer.Workspace
	tracker    *renderer.ProgressTracker
	loadErr    error
	renderErr  error
	renders    int
	lastShader string // last shader input handed to the debouncer
	closed     bool
}

// New attaches a playground to sess. Nothing renders until Load succeeds.
func New(sess *session.Session, opts Options) *Playground {
	if opts.Source == (api.Source{}) {
		opts.Source = api.DefaultSource()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	initial := sess.Shader()
	p := &Playground{
		session:    sess,
		loader:     opts.Loader,
		factory:    opts.Factory,
		source:     opts.Source,
		ctx:        ctx,
		cancel:     cancel,
		tracker:    renderer.NewProgressTracker(nil),
		lastShader: initial,
	}
	p.shader = debounce.New(initial, opts.Debounce, func(string) { p.render() })
	sess.OnChange(p.changed)
	return p
}

func (p *Playground) Session() *session.Session { return p.session }

// Source returns the volume this playground loads.
func (p *Playground) Source() api.Source { return p.source }

// Shader returns the settled shader, the one the workspace renders with.
func (p *Playground) Shader() string { return p.shader.Get() }

func (p *Playground) changed(st state.State) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	shaderChanged := st.Shader != p.lastShader
	p.lastShader = st.Shader
	p.mu.Unlock()

	if shaderChanged {
		p.shader.Set(st.Shader)
		return
	}
	p.render()
}

// Flush renders a pending shader edit now.
func (p *Playground) Flush() bool { return p.shader.Flush() }

// Load fetches the volume and creates its workspace, replacing any previous
// one. progress may be nil. The error is also kept for LoadErr.
func (p *Playground) Load(ctx context.Context, progress api.Progress) error {
	if p.loader == nil || p.factory == nil {
		return ErrNoRenderer
	}
	tracker := renderer.NewProgressTracker(progress)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.tracker = tracker
	p.loadErr = nil
	p.mu.Unlock()

	// Load stops when either the caller or the playground goes away.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	ws, err := renderer.Load(ctx, p.loader, p.factory, p.source, tracker.Update)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		if ws != nil {
			ws.Close()
		}
		return ErrClosed
	}
	if err != nil {
		tracker.Fail()
		p.loadErr = err
		p.mu.Unlock()
		return err
	}
	old := p.ws
	p.ws = ws
	p.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			gsp.Logger().Warn("closing previous workspace", "err", err)
		}
	}
	p.render()
	return nil
}

// LoadErr returns the error of the last load, if it failed.
func (p *Playground) LoadErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadErr
}

// RenderErr returns the error of the last render, if it failed.
func (p *Playground) RenderErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renderErr
}

func (p *Playground) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, _ := p.tracker.Value()
	s := Status{
		Loading:  p.tracker.Loading(),
		Progress: v,
		Ready:    p.ws != nil,
		Renders:  p.renders,
	}
	if p.loadErr != nil {
		s.LoadError = p.loadErr.Error()
	}
	if p.renderErr != nil {
		s.RenderError = p.renderErr.Error()
	}
	return s
}

// Params builds render parameters from the current session state and the
// settled shader.
func (p *Playground) Params() renderer.Params {
	st := p.session.State()
	return renderer.Params{
		AmbientLight:   st.AmbientLight,
		DiffuseLight:   st.DirectLight,
		SpecularLight:  st.SpecularLight,
		LowCut:         st.CutLow,
		HighCut:        st.CutHigh,
		Colormap:       st.Colormap,
		FragmentShader: p.shader.Get(),
	}
}

func (p *Playground) render() {
	p.mu.Lock()
	ws := p.ws
	closed := p.closed
	p.mu.Unlock()
	if ws == nil || closed {
		return
	}

	err := ws.Render(p.ctx, p.Params())

	p.mu.Lock()
	defer p.mu.Unlock()
	p.renderErr = err
	if err == nil {
		p.renders++
		return
	}
	if !errors.Is(err, context.Canceled) {
		gsp.Logger().Warn("render failed", "err", err)
	}
}

// Close cancels pending shader edits and releases the workspace. It is
// safe to call more than once.
func (p *Playground) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	ws := p.ws
	p.ws = nil
	p.mu.Unlock()

	p.shader.Stop()
	p.cancel()
	if ws != nil {
		return ws.Close()
	}
	return nil
}
