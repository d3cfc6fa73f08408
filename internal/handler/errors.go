package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/examinaite/examinaite/internal/catalog"
	"github.com/examinaite/examinaite/internal/generator"
	"github.com/examinaite/examinaite/internal/i18n"
	"github.com/examinaite/examinaite/internal/llm"
	"github.com/examinaite/examinaite/internal/points"
)

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return "bad request: " + e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps err to a status code and a localized message. Generation
// failures never expose the model output or parser diagnostics.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var (
		nf *catalog.NotFoundError
		ir *generator.InvalidRequestError
		ve *points.ValidationError
		br *badRequestError
		ex *llm.ExhaustedRetriesError
	)
	switch {
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorBody{
			Error: i18n.Td(ctx, "NotFound", map[string]any{"What": nf.Kind + " " + strings.Join(nf.Path, " / ")}),
		})
	case isNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{
			Error: i18n.Td(ctx, "NotFound", map[string]any{"What": "generation"}),
		})
	case errors.As(err, &ir):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: i18n.T(ctx, "InvalidRequest"), Fields: ir.Fields})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: i18n.Td(ctx, "InvalidGrades", map[string]any{"Reason": ve.Error()}),
		})
	case errors.As(err, &br):
		slog.Debug("bad request", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: i18n.T(ctx, "InvalidRequest")})
	case errors.As(err, &ex), llm.IsRetryable(err):
		slog.Error("generator unavailable", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: i18n.T(ctx, "GeneratorUnavailable")})
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: i18n.T(ctx, "InternalError")})
	}
}
