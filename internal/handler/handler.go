package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/examinaite/examinaite/internal/catalog"
	"github.com/examinaite/examinaite/internal/generator"
	"github.com/examinaite/examinaite/internal/handler/views"
	"github.com/examinaite/examinaite/internal/model"
	"github.com/examinaite/examinaite/internal/points"
	"github.com/examinaite/examinaite/internal/store"
)

const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	catalog   *catalog.Catalog
	generator *generator.Service
	store     *store.Store
	config    model.GeneratorConfig
}

// New creates a new Handler.
func New(cat *catalog.Catalog, gen *generator.Service, s *store.Store, cfg model.GeneratorConfig) (*Handler, error) {
	if cat == nil || gen == nil || s == nil {
		return nil, errors.New("handler needs a catalog, a generator and a store")
	}
	return &Handler{catalog: cat, generator: gen, store: s, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/subjects", h.handleListSubjects)
		r.Get("/subjects/{subject}", h.handleGetSubject)
		r.Get("/subjects/{subject}/levels/{level}/papers/{paper}/topics", h.handleListTopics)
		r.Get("/subjects/{subject}/levels/{level}/papers/{paper}/topics/{topic}/subtopics", h.handleListSubtopics)

		r.Post("/generate", h.handleGenerate)
		r.Get("/generations", h.handleListGenerations)
		r.Get("/generations/{id}", h.handleGetGeneration)
		r.Delete("/generations/{id}", h.handleDeleteGeneration)

		r.Post("/points", h.handlePoints)
		r.Get("/points/defaults", h.handlePointsDefaults)
	})
}

// BasePathMiddleware makes the configured base path available to views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.GenerationCount()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.IndexPage(h.catalog.Subjects(), count).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "subjects": h.catalog.Len()})
}

type subjectSummary struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Levels      []string `json:"levels"`
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects := h.catalog.Subjects()
	out := make([]subjectSummary, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, subjectSummary{Name: s.Name, DisplayName: s.DisplayName, Levels: s.LevelNames()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	s, err := h.catalog.Get(param(r, "subject"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.catalog.ListTopics(param(r, "subject"), param(r, "level"), param(r, "paper"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (h *Handler) handleListSubtopics(w http.ResponseWriter, r *http.Request) {
	subtopics, err := h.catalog.ListSubtopics(param(r, "subject"), param(r, "level"), param(r, "paper"), param(r, "topic"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subtopics)
}

type generateResponse struct {
	ID      string                  `json:"id,omitempty"`
	Request model.GenerationRequest `json:"request"`
	Result  *model.GenerationResult `json:"result"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	gen, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := generateResponse{Request: gen.Request, Result: gen.Result}
	if r.URL.Query().Get("save") == "true" {
		rec, err := model.NewRecord("", gen.Request, *gen.Result)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		rec, err = h.store.SaveGeneration(rec)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		slog.Info("generation saved", "id", rec.ID, "title", rec.Title)
		resp.ID = rec.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListGenerations(r.URL.Query().Get("subject"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []model.GenerationRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetGeneration(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDeleteGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteGeneration(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	slog.Info("generation deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePoints(w http.ResponseWriter, r *http.Request) {
	var subjects []points.GradedSubject
	if err := decodeJSON(w, r, &subjects); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := points.Total(subjects)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handlePointsDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, points.DefaultSubjects())
}

// param returns a decoded URL parameter; catalog names contain spaces.
func param(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &badRequestError{err: err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// isNotFound reports a missing stored generation.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
