package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-rebuilder/internal/collection"
	"github.com/ryanbastic/go-rebuilder/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// toHTTPError maps pipeline errors to API errors. Anything unexpected is
// logged and reported as a 500 with msg.
func toHTTPError(logger *slog.Logger, err error, msg string, attrs ...any) error {
	switch {
	case errors.Is(err, collection.ErrUnknownCollection),
		errors.Is(err, collection.ErrUnknownGlobal):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, storage.ErrDocumentNotFound):
		return huma.Error404NotFound("document not found")
	case errors.Is(err, storage.ErrGlobalNotFound):
		return huma.Error404NotFound("global not found")
	case errors.Is(err, storage.ErrSlugConflict):
		return huma.Error409Conflict("slug already exists in collection")
	case errors.Is(err, storage.ErrInvalidCursor):
		return huma.Error400BadRequest("invalid cursor")
	}
	logger.Error(msg, append(attrs, "error", err)...)
	return huma.Error500InternalServerError(msg)
}
