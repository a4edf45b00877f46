package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"feedwall/internal/ambient"
	"feedwall/internal/catalog"
	"feedwall/internal/feed"
	"feedwall/internal/platform/metrics"
	"feedwall/internal/prefs"
)

// OverlaySize is the number of cells in the grid overlay.
const OverlaySize = 24

// Handler exposes session and catalog endpoints using go-chi.
type Handler struct {
	svc     *Service
	thumbs  *catalog.ThumbnailIndex
	log     *slog.Logger
	metrics *metrics.Metrics

	bedOnce sync.Once
	bedWAV  []byte
}

// NewHandler returns a Handler. Metrics may be nil to disable metric
// recording (e.g. in tests).
func NewHandler(svc *Service, thumbs *catalog.ThumbnailIndex, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, thumbs: thumbs, log: log, metrics: m}
}

// CreateSession handles POST /sessions. Body (optional): { "viewer": "abc" }.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug("invalid session body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	e, err := h.svc.CreateSession(r.Context(), req.Viewer)
	if err != nil {
		h.fail(w, "create session failed", err)
		return
	}
	h.respondView(w, r, e, http.StatusCreated)
}

// GetSession handles GET /sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	h.respondView(w, r, e, http.StatusOK)
}

// EndSession handles DELETE /sessions/{id}.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.EndSession(chi.URLParam(r, "id")); err != nil {
		h.fail(w, "end session failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Next handles POST /sessions/{id}/next.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, r, func(c *feed.Controller) error {
		_, err := c.Advance(1)
		return err
	})
}

// Prev handles POST /sessions/{id}/prev.
func (h *Handler) Prev(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, r, func(c *feed.Controller) error {
		_, err := c.Advance(-1)
		return err
	})
}

// Show handles POST /sessions/{id}/show/{index}. Any integer is accepted and
// wrapped into range.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.navigate(w, r, func(c *feed.Controller) error {
		_, err := c.ShowAt(index)
		return err
	})
}

func (h *Handler) navigate(w http.ResponseWriter, r *http.Request, op func(*feed.Controller) error) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := e.Session.Do(r.Context(), op); err != nil {
		h.fail(w, "navigation failed", err)
		return
	}
	h.respondView(w, r, e, http.StatusOK)
}

// SourceError handles POST /sessions/{id}/sources/{seq}/error.
func (h *Handler) SourceError(w http.ResponseWriter, r *http.Request) {
	h.sourceCallback(w, r, "error", (*feed.Controller).OnSourceError)
}

// SourceLoaded handles POST /sessions/{id}/sources/{seq}/loaded.
func (h *Handler) SourceLoaded(w http.ResponseWriter, r *http.Request) {
	h.sourceCallback(w, r, "loaded", (*feed.Controller).OnSourceLoaded)
}

func (h *Handler) sourceCallback(w http.ResponseWriter, r *http.Request, kind string, cb func(*feed.Controller, feed.Tag) error) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	seq, err := strconv.ParseUint(chi.URLParam(r, "seq"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	err = e.Session.Do(r.Context(), func(c *feed.Controller) error {
		return cb(c, c.TagFor(seq))
	})
	h.recordCallback(kind, err)
	if err != nil {
		h.fail(w, "source callback rejected", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFilter handles PUT /sessions/{id}/filter. Body: { "country": "US" } or
// { "country": null } to clear. An empty result is reported through the
// view's state, not as an error status.
func (h *Handler) SetFilter(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	country := ""
	if req.Country != nil {
		country = *req.Country
	}
	err := e.Session.Do(r.Context(), func(c *feed.Controller) error { return c.SetCountryFilter(country) })
	if err != nil && !errors.Is(err, feed.ErrFilterYieldsEmpty) {
		h.fail(w, "set filter failed", err)
		return
	}
	if err := h.svc.Prefs(e).SetCountryFilter(r.Context(), country); err != nil {
		h.log.Warn("could not save filter", slog.String("error", err.Error()))
	}
	h.respondView(w, r, e, http.StatusOK)
}

// Overlay handles POST /sessions/{id}/overlay. Body: { "open": true }.
func (h *Handler) Overlay(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	var req overlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	items, err := e.Session.Overlay(r.Context(), req.Open, OverlaySize)
	if err != nil {
		h.fail(w, "overlay failed", err)
		return
	}
	audio, err := e.Session.Audio(r.Context())
	if err != nil {
		h.fail(w, "overlay failed", err)
		return
	}
	now := h.svc.clock.Now()
	out := OverlayView{Items: make([]OverlayItemView, 0, len(items)), Audio: audioView(audio)}
	for _, it := range items {
		out.Items = append(out.Items, OverlayItemView{Index: it.Index, Camera: cameraView(it.Camera, now), Source: it.Source})
	}
	writeJSON(w, http.StatusOK, out)
}

// SelectOverlay handles POST /sessions/{id}/overlay/select/{index}.
func (h *Handler) SelectOverlay(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, err := e.Session.Select(r.Context(), index); err != nil {
		h.fail(w, "overlay select failed", err)
		return
	}
	h.respondView(w, r, e, http.StatusOK)
}

// ToggleMute handles POST /sessions/{id}/mute.
func (h *Handler) ToggleMute(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	audio, err := e.Session.ToggleMute(r.Context())
	if err != nil {
		h.fail(w, "mute failed", err)
		return
	}
	writeJSON(w, http.StatusOK, audioView(audio))
}

// Events handles GET /sessions/{id}/events?after=N.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	var after uint64
	if s := r.URL.Query().Get("after"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		after = v
	}
	records, err := e.Session.Events(r.Context(), after)
	if err != nil {
		h.fail(w, "events failed", err)
		return
	}
	out := make([]EventView, 0, len(records))
	for _, rec := range records {
		out = append(out, eventView(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// Vote handles PUT /sessions/{id}/votes/{camera_id}. Body: { "vote": "up" }.
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	id := catalog.CameraID(chi.URLParam(r, "camera_id"))
	var req voteRequest
	if id == "" || json.NewDecoder(r.Body).Decode(&req) != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	v, err := prefs.ParseVote(req.Vote)
	if err != nil {
		h.fail(w, "vote rejected", err)
		return
	}
	if err := h.svc.Prefs(e).SetVote(r.Context(), id, v); err != nil {
		h.fail(w, "vote failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"camera_id": string(id), "vote": v.String()})
}

// SessionAmbient handles GET /sessions/{id}/ambient.wav.
func (h *Handler) SessionAmbient(w http.ResponseWriter, r *http.Request) {
	e, ok := h.entry(w, r)
	if !ok {
		return
	}
	bed, rate, err := e.Session.AmbientBed(r.Context())
	if err != nil {
		h.fail(w, "ambient failed", err)
		return
	}
	var buf bytes.Buffer
	if err := ambient.EncodeWAV(&buf, bed, rate); err != nil {
		h.fail(w, "ambient failed", err)
		return
	}
	writeWAV(w, buf.Bytes())
}

// Ambient handles GET /ambient.wav, a bed shared by every viewer.
func (h *Handler) Ambient(w http.ResponseWriter, r *http.Request) {
	h.bedOnce.Do(func() {
		var buf bytes.Buffer
		bed := ambient.GenerateBed(ambient.DefaultSampleRate, ambient.BedLength, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
		if err := ambient.EncodeWAV(&buf, bed, ambient.DefaultSampleRate); err != nil {
			h.log.Error("encode ambient bed failed", slog.String("error", err.Error()))
			return
		}
		h.bedWAV = buf.Bytes()
	})
	if h.bedWAV == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeWAV(w, h.bedWAV)
}

// Cameras handles GET /api/cams.
func (h *Handler) Cameras(w http.ResponseWriter, r *http.Request) {
	cat, err := h.svc.Catalog(r.Context())
	if err != nil {
		h.fail(w, "catalog unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, cat.Records())
}

// Countries handles GET /api/countries.
func (h *Handler) Countries(w http.ResponseWriter, r *http.Request) {
	cat, err := h.svc.Catalog(r.Context())
	if err != nil {
		h.fail(w, "catalog unavailable", err)
		return
	}
	codes := catalog.AvailableCountries(cat.Records())
	out := make([]CountryView, 0, len(codes))
	for _, c := range codes {
		out = append(out, CountryView{Code: c, Name: catalog.DisplayCountry(c)})
	}
	writeJSON(w, http.StatusOK, out)
}

// ThumbnailIDs handles GET /api/thumbnail-ids.
func (h *Handler) ThumbnailIDs(w http.ResponseWriter, r *http.Request) {
	ids := h.thumbs.IDs()
	if ids == nil {
		ids = []catalog.CameraID{}
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, ids)
}

func (h *Handler) entry(w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	e, err := h.svc.Session(chi.URLParam(r, "id"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return nil, false
	}
	return e, true
}

func (h *Handler) respondView(w http.ResponseWriter, r *http.Request, e *Entry, status int) {
	v, err := h.svc.View(r.Context(), e)
	if err != nil {
		h.fail(w, "session view failed", err)
		return
	}
	writeJSON(w, status, v)
}

func (h *Handler) recordCallback(kind string, err error) {
	if h.metrics == nil {
		return
	}
	result := "accepted"
	switch {
	case errors.Is(err, feed.ErrStaleAttempt):
		result = "stale"
	case err != nil:
		result = "rejected"
	}
	h.metrics.IncSourceCallback(kind, result)
}

// fail maps an error kind to a status code and logs it at a level matching
// its severity.
func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	attrs := []any{slog.String("error", err.Error()), slog.Int("status", status)}
	if status >= http.StatusInternalServerError {
		h.log.Error(msg, attrs...)
	} else {
		h.log.Debug(msg, attrs...)
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, feed.ErrSessionClosed):
		return http.StatusNotFound
	case errors.Is(err, feed.ErrStaleAttempt), errors.Is(err, feed.ErrFilterYieldsEmpty):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, prefs.ErrInvalidVote):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeWAV(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
