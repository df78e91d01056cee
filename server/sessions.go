package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	gsp "github.com/richinsley/goshaderplayground"
	"github.com/richinsley/goshaderplayground/colormap"
	"github.com/richinsley/goshaderplayground/playground"
	"github.com/richinsley/goshaderplayground/session"
	"github.com/richinsley/goshaderplayground/state"
)

var ErrUnknownField = errors.New("unknown field")

type sessionResponse struct {
	ID          string            `json:"id"`
	State       state.State       `json:"state"`
	Fragment    string            `json:"fragment"`
	Shader      string            `json:"renderedShader"`
	InvalidLink bool              `json:"invalidLink"`
	Error       string            `json:"error,omitempty"`
	Status      playground.Status `json:"status"`
}

func newID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (string, *playground.Playground, bool) {
	id := r.PathValue("id")
	pg, ok := s.sessions.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown session %q", id))
	}
	return id, pg, ok
}

func describe(id string, pg *playground.Playground) sessionResponse {
	sess := pg.Session()
	resp := sessionResponse{
		ID:          id,
		State:       sess.State(),
		Fragment:    sess.Fragment(),
		Shader:      pg.Shader(),
		InvalidLink: sess.InvalidLink(),
		Status:      pg.Status(),
	}
	if err := sess.LinkError(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// handleCreateSession opens a session from an optional fragment. A bad
// fragment still creates a session on the default preset, flagged with
// invalidLink.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req fragmentRequest
	if err := readJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sess := session.Open(s.cfg.Codec, req.Fragment, nil)
	pg := playground.New(sess, playground.Options{
		Loader:   s.cfg.Loader,
		Factory:  s.cfg.Factory,
		Source:   s.cfg.Source,
		Debounce: s.cfg.Debounce,
	})
	id := newID()
	closeAll(s.sessions.add(id, pg))

	gsp.Logger().Info("session opened", "id", id, "shaderName", sess.ShaderName(), "invalidLink", sess.InvalidLink())
	writeJSON(w, http.StatusCreated, describe(id, pg))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, pg, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, describe(id, pg))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pg, ok := s.sessions.remove(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown session %q", id))
		return
	}
	closeAll([]*playground.Playground{pg})
	w.WriteHeader(http.StatusNoContent)
}

var errBadValue = errors.New("invalid value")

func decodeValue[T any](raw json.RawMessage, field string) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w for %s: %s", errBadValue, field, raw)
	}
	return v, nil
}

func setFloat(raw json.RawMessage, field string, set func(float64) error) error {
	v, err := decodeValue[float64](raw, field)
	if err != nil {
		return err
	}
	return set(v)
}

func setInt(raw json.RawMessage, field string, set func(int) error) error {
	v, err := decodeValue[int](raw, field)
	if err != nil {
		return err
	}
	return set(v)
}

// applyField decodes raw as the value of field and calls its setter.
func applyField(sess *session.Session, field string, raw json.RawMessage) error {
	switch field {
	case "shader":
		v, err := decodeValue[string](raw, field)
		if err != nil {
			return err
		}
		sess.SetShader(v)
		return nil
	case "preset":
		v, err := decodeValue[string](raw, field)
		if err != nil {
			return err
		}
		return sess.SelectPreset(v)
	case "colormap":
		v, err := decodeValue[colormap.Colormap](raw, field)
		if err != nil {
			return err
		}
		return sess.SetColormap(v)
	case "ambientLight":
		return setFloat(raw, field, sess.SetAmbientLight)
	case "directLight":
		return setFloat(raw, field, sess.SetDirectLight)
	case "specularLight":
		return setFloat(raw, field, sess.SetSpecularLight)
	case "cutLow":
		return setInt(raw, field, sess.SetCutLow)
	case "cutHigh":
		return setInt(raw, field, sess.SetCutHigh)
	}
	return fmt.Errorf("%w %q", ErrUnknownField, field)
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	id, pg, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var raw json.RawMessage
	if err := readJSON(w, r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err := applyField(pg.Session(), r.PathValue("field"), raw)
	switch {
	case errors.Is(err, ErrUnknownField):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, errBadValue):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeJSON(w, http.StatusOK, describe(id, pg))
	}
}

// handleLoad streams load progress as server-sent events: any number of
// progress events, then ready or error. A client disconnect cancels the
// load.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	_, pg, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if _, ok := w.(http.Flusher); !ok {
		writeError(w, http.StatusInternalServerError, errStreaming)
		return
	}
	setSSEHeaders(w)
	ctx := r.Context()

	events := make(chan sseEvent, 16)
	go func() {
		defer close(events)
		send := func(ev sseEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}
		err := pg.Load(ctx, func(f float64) {
			send(sseEvent{Type: "progress", Data: strconv.FormatFloat(f, 'f', -1, 64)})
		})
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				send(sseEvent{Type: "error", Data: err.Error()})
			}
			return
		}
		data, _ := json.Marshal(pg.Status())
		send(sseEvent{Type: "ready", Data: string(data)})
	}()

	writeSSEEvents(ctx, w, events)
	// Drain so the loader never blocks on a departed client.
	for range events {
	}
}

// handleLegend renders the session's colormap as a PNG strip. The query
// parameters width, height, low and high override the defaults; low and
// high default to the session's cut window.
func (s *Server) handleLegend(w http.ResponseWriter, r *http.Request) {
	_, pg, ok := s.lookup(w, r)
	if !ok {
		return
	}
	st := pg.Session().State()

	width, err := parseIntParam(r, "width", 256, 16, 4096)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	height, err := parseIntParam(r, "height", 32, 4, 1024)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	low, err := parseIntParam(r, "low", st.CutLow, colormap.MinHU, colormap.MaxHU)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	high, err := parseIntParam(r, "high", st.CutHigh, colormap.MinHU, colormap.MaxHU)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if low >= high {
		low, high = colormap.MinHU, colormap.MaxHU
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := colormap.WriteLegendPNG(w, st.Colormap, width, height, float64(low), float64(high)); err != nil {
		gsp.Logger().Error("legend rendering failed", "err", err)
	}
}
