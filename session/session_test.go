package session

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/richinsley/goshaderplayground/colormap"
	"github.com/richinsley/goshaderplayground/shader"
	"github.com/richinsley/goshaderplayground/state"
)

type fragmentRecorder struct {
	mu     sync.Mutex
	writes []string
}

func (r *fragmentRecorder) WriteFragment(f string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, f)
}

func (r *fragmentRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.writes) == 0 {
		return ""
	}
	return r.writes[len(r.writes)-1]
}

func (r *fragmentRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.writes)
}

func TestOpenPreset(t *testing.T) {
	rec := &fragmentRecorder{}
	s := Open(state.NewCodec(), "#basic", rec)

	if s.ShaderName() != shader.Basic {
		t.Errorf("Expected basic, got %q", s.ShaderName())
	}
	if s.InvalidLink() {
		t.Error("valid link reported as invalid")
	}
	if rec.count() != 1 || rec.last() != "#basic" {
		t.Errorf("Expected one write of #basic, got %v", rec.writes)
	}
}

func TestOpenEmptyWritesDefault(t *testing.T) {
	rec := &fragmentRecorder{}
	s := Open(state.NewCodec(), "", rec)
	if s.Fragment() != "#lighting" || rec.last() != "#lighting" {
		t.Errorf("Expected #lighting, got %q", s.Fragment())
	}
}

func TestOpenInvalidLinkFallsBack(t *testing.T) {
	rec := &fragmentRecorder{}
	codec := state.NewCodec()
	s := Open(codec, "#garbage!", rec)

	if !s.InvalidLink() {
		t.Fatal("Expected invalid link")
	}
	var de *state.DecodeError
	if !errors.As(s.LinkError(), &de) {
		t.Errorf("Expected *state.DecodeError, got %v", s.LinkError())
	}
	if !reflect.DeepEqual(s.State(), codec.DefaultState()) {
		t.Error("Expected fallback to the default preset")
	}
	if rec.last() != "#lighting" {
		t.Errorf("Expected the default fragment to be written, got %q", rec.last())
	}
}

func TestOpenNilSink(t *testing.T) {
	s := Open(state.NewCodec(), "", nil)
	if err := s.SetAmbientLight(0.5); err != nil {
		t.Fatalf("SetAmbientLight failed: %v", err)
	}
}

func TestSettersWriteOncePerMutation(t *testing.T) {
	rec := &fragmentRecorder{}
	s := Open(state.NewCodec(), "#lighting", rec)
	start := rec.count()

	steps := []struct {
		name string
		do   func() error
	}{
		{"colormap", func() error { return s.SetColormap(colormap.Grayscale()) }},
		{"ambient", func() error { return s.SetAmbientLight(0.3) }},
		{"direct", func() error { return s.SetDirectLight(0.4) }},
		{"specular", func() error { return s.SetSpecularLight(0.5) }},
		{"cutLow", func() error { return s.SetCutLow(-100) }},
		{"cutHigh", func() error { return s.SetCutHigh(2000) }},
		{"preset", func() error { return s.SelectPreset(shader.MaxIntensity) }},
	}
	for i, step := range steps {
		if err := step.do(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got := rec.count() - start; got != i+1 {
			t.Errorf("%s: expected %d writes, got %d", step.name, i+1, got)
		}
	}

	// Non-shader parameters are not part of a preset link.
	if rec.last() != "#max-intensity" {
		t.Errorf("Expected #max-intensity, got %q", rec.last())
	}
	st := s.State()
	if st.AmbientLight != 0.3 || st.DirectLight != 0.4 || st.SpecularLight != 0.5 {
		t.Errorf("lighting not applied: %+v", st)
	}
	if st.CutLow != -100 || st.CutHigh != 2000 {
		t.Errorf("cut not applied: %+v", st)
	}
	if st.Colormap.Name != "Grayscale" {
		t.Errorf("colormap not applied: %+v", st.Colormap)
	}
}

func TestSetShaderMakesCustom(t *testing.T) {
	rec := &fragmentRecorder{}
	codec := state.NewCodec()
	s := Open(codec, "#basic", rec)
	_ = s.SetCutLow(10)
	s.SetShader("void main() { gl_FragColor = vec4(1.0); }")

	if s.ShaderName() != shader.Custom {
		t.Fatalf("Expected custom, got %q", s.ShaderName())
	}
	decoded, err := codec.Decode(rec.last())
	if err != nil {
		t.Fatalf("custom fragment does not decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, s.State()) {
		t.Errorf("fragment does not carry the full state:\nwant %+v\ngot  %+v", s.State(), decoded)
	}

	// Re-opening the link restores the same session.
	again := Open(codec, s.Fragment(), nil)
	if !reflect.DeepEqual(again.State(), s.State()) {
		t.Error("re-opened session differs")
	}
}

func TestSetShaderWithPresetTextStaysCustom(t *testing.T) {
	s := Open(state.NewCodec(), "#basic", nil)
	src := s.Shader()
	s.SetShader(src)
	if s.ShaderName() != shader.Custom {
		t.Errorf("Expected custom, got %q", s.ShaderName())
	}
}

func TestSetterValidation(t *testing.T) {
	rec := &fragmentRecorder{}
	s := Open(state.NewCodec(), "#lighting", rec)
	before := s.State()
	writes := rec.count()

	if err := s.SelectPreset("nope"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("Expected ErrUnknownPreset, got %v", err)
	}
	if err := s.SelectPreset(shader.Custom); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("custom is not selectable, got %v", err)
	}
	for _, v := range []float64{-0.1, 1.1, math.NaN()} {
		if err := s.SetAmbientLight(v); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SetAmbientLight(%v): expected ErrOutOfRange, got %v", v, err)
		}
		if err := s.SetDirectLight(v); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SetDirectLight(%v): expected ErrOutOfRange, got %v", v, err)
		}
		if err := s.SetSpecularLight(v); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SetSpecularLight(%v): expected ErrOutOfRange, got %v", v, err)
		}
	}
	if err := s.SetCutLow(colormap.MinHU - 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange for cutLow, got %v", err)
	}
	if err := s.SetCutHigh(colormap.MaxHU + 1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange for cutHigh, got %v", err)
	}
	if err := s.SetColormap(colormap.Colormap{Type: "rainbow"}); !errors.Is(err, colormap.ErrInvalid) {
		t.Errorf("Expected colormap.ErrInvalid, got %v", err)
	}

	if rec.count() != writes {
		t.Errorf("rejected setters must not write, got %d extra writes", rec.count()-writes)
	}
	if !reflect.DeepEqual(before, s.State()) {
		t.Error("rejected setters must not mutate state")
	}
}

func TestCutOrderNotEnforced(t *testing.T) {
	s := Open(state.NewCodec(), "", nil)
	if err := s.SetCutLow(5000); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCutHigh(0); err != nil {
		t.Fatal(err)
	}
	if s.CutLow() != 5000 || s.CutHigh() != 0 {
		t.Errorf("Expected inverted cut to be stored, got [%d, %d]", s.CutLow(), s.CutHigh())
	}
}

func TestOnChange(t *testing.T) {
	s := Open(state.NewCodec(), "", nil)
	var seen []state.State
	s.OnChange(func(st state.State) { seen = append(seen, st) })

	_ = s.SetAmbientLight(0.9)
	s.SetShader("x")

	if len(seen) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(seen))
	}
	if seen[0].AmbientLight != 0.9 || seen[1].Shader != "x" {
		t.Errorf("unexpected notifications: %+v", seen)
	}
}

func TestStateReturnsCopy(t *testing.T) {
	s := Open(state.NewCodec(), "", nil)
	st := s.State()
	st.Colormap.Materials[0].Name = "changed"
	if s.Colormap().Materials[0].Name != "Skin" {
		t.Error("State must return a deep copy")
	}
}

func TestConcurrentSetters(t *testing.T) {
	rec := &fragmentRecorder{}
	s := Open(state.NewCodec(), "", rec)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SetCutLow(i)
			_ = s.Fragment()
		}(i)
	}
	wg.Wait()

	if rec.count() != 51 {
		t.Errorf("Expected 51 writes, got %d", rec.count())
	}
}

func TestSinkSeesCommitOrder(t *testing.T) {
	var mu sync.Mutex
	var last string
	entered := make(chan struct{})
	release := make(chan struct{})
	sink := SinkFunc(func(f string) {
		if f == "#basic" {
			close(entered)
			<-release
		}
		mu.Lock()
		last = f
		mu.Unlock()
	})
	s := Open(state.NewCodec(), "#lighting", sink)

	first := make(chan error, 1)
	go func() { first <- s.SelectPreset(shader.Basic) }()
	<-entered

	second := make(chan error, 1)
	go func() { second <- s.SelectPreset(shader.MaxIntensity) }()

	// The second commit must wait for the first write to finish.
	select {
	case <-second:
		t.Fatal("second setter finished while the first write was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	if err := <-first; err != nil {
		t.Fatal(err)
	}
	if err := <-second; err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if last != s.Fragment() || last != "#max-intensity" {
		t.Errorf("Expected sink to end on %q, got %q", s.Fragment(), last)
	}
}

func TestSinkFunc(t *testing.T) {
	var got string
	Open(state.NewCodec(), "#basic", SinkFunc(func(f string) { got = f }))
	if got != "#basic" {
		t.Errorf("Expected #basic, got %q", got)
	}
}
