package translator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	gsp "github.com/richinsley/goshaderplayground"
	"github.com/richinsley/goshaderplayground/shader"
	gst "github.com/richinsley/goshadertranslator"
)

var (
	once       sync.Once
	translator *gst.ShaderTranslator
	initErr    error

	// The translator instance is not safe for concurrent use.
	mu   sync.Mutex
	last *cached
)

type cached struct {
	source string
	report *Report
	err    error
}

// GetTranslator returns the shared translator, creating it on first use.
// A creation failure is remembered and returned on every call.
func GetTranslator() (*gst.ShaderTranslator, error) {
	once.Do(func() {
		translator, initErr = gst.NewShaderTranslator(context.Background())
		if initErr != nil {
			gsp.Logger().Error("shader translator unavailable", "err", initErr)
		}
	})
	return translator, initErr
}

// CompileError is returned for a snippet the translator rejects. Log holds
// the translator's diagnostics; line numbers refer to the snippet.
type CompileError struct {
	Log string
}

func (e *CompileError) Error() string {
	return "shader compile failed: " + e.Log
}

// Report describes a snippet that compiled.
type Report struct {
	// Variables are the active variables of the wrapped shader, sorted.
	Variables []string
	// Code is the translated GLSL ES 3.00 source.
	Code string
}

// Uses reports whether the compiled shader references name.
func (r *Report) Uses(name string) bool {
	i := sort.SearchStrings(r.Variables, name)
	return i < len(r.Variables) && r.Variables[i] == name
}

// Validate compiles a fragment snippet inside the SDK prelude.
func Validate(ctx context.Context, snippet string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := GetTranslator()
	if err != nil {
		return nil, fmt.Errorf("shader translator unavailable: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if last != nil && last.source == snippet {
		return last.report, last.err
	}

	full := shader.GetFragmentShader(snippet)
	out, err := t.TranslateShader(full, "fragment", gst.ShaderSpecWebGL2, gst.OutputFormatESSL)
	if err != nil {
		cerr := &CompileError{Log: err.Error()}
		last = &cached{source: snippet, err: cerr}
		return nil, cerr
	}

	report := &Report{Code: out.Code}
	for name := range out.Variables {
		report.Variables = append(report.Variables, name)
	}
	sort.Strings(report.Variables)
	last = &cached{source: snippet, report: report}
	return report, nil
}
