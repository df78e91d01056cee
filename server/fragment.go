package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/richinsley/goshaderplayground/shader"
	"github.com/richinsley/goshaderplayground/state"
	"github.com/richinsley/goshaderplayground/translator"
)

// Preset is one entry of the shader menu.
type Preset struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Source string `json:"source"`
}

type fragmentRequest struct {
	Fragment string `json:"fragment"`
}

type fragmentResponse struct {
	Fragment string       `json:"fragment"`
	State    *state.State `json:"state,omitempty"`
}

type shaderRequest struct {
	Shader string `json:"shader"`
}

type validateResponse struct {
	Valid     bool     `json:"valid"`
	Variables []string `json:"variables,omitempty"`
	Error     string   `json:"error,omitempty"`
	Log       string   `json:"log,omitempty"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	reg := s.cfg.Codec.Presets
	presets := make([]Preset, 0, len(reg.Names()))
	for _, name := range reg.Names() {
		src, _ := reg.Lookup(name)
		presets = append(presets, Preset{Name: name, Label: shader.Label(name), Source: src})
	}
	writeJSON(w, http.StatusOK, presets)
}

// handleDecode turns a fragment into the state it encodes. Invalid links
// answer 400 with invalidLink set; the client falls back to the default.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req fragmentRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	st, err := s.cfg.Codec.Decode(req.Fragment)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       err.Error(),
			"invalidLink": true,
		})
		return
	}
	writeJSON(w, http.StatusOK, fragmentResponse{Fragment: s.cfg.Codec.Encode(st), State: &st})
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var st state.State
	if err := readJSON(w, r, &st); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !st.IsCustom() && !s.cfg.Codec.Presets.Has(st.ShaderName) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown shaderName %q", st.ShaderName))
		return
	}
	if err := st.Colormap.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, fragmentResponse{Fragment: s.cfg.Codec.Encode(st)})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req shaderRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	report, err := s.cfg.Validate(r.Context(), req.Shader)
	var cerr *translator.CompileError
	switch {
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusUnprocessableEntity, validateResponse{Error: "compile failed", Log: cerr.Log})
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeJSON(w, http.StatusOK, validateResponse{Valid: true, Variables: report.Variables})
	}
}
