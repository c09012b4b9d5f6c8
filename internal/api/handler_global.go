package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-rebuilder/internal/collection"
)

// --- Huma Input/Output types ---

type GlobalPathInput struct {
	Slug string `path:"slug" doc:"Global slug" example:"site-settings"`
}

type PutGlobalBody struct {
	Body json.RawMessage `json:"body" doc:"Global content" required:"true"`
}

type PutGlobalInput struct {
	Slug string `path:"slug" doc:"Global slug" example:"site-settings"`
	Body PutGlobalBody
}

type GlobalResponse struct {
	Slug      string          `json:"slug" doc:"Global slug"`
	Body      json.RawMessage `json:"body" doc:"Global content"`
	UpdatedAt time.Time       `json:"updated_at" doc:"Last write"`
}

type GlobalOutput struct {
	Body GlobalResponse
}

// --- Handler ---

type GlobalHandler struct {
	svc    *collection.Service
	logger *slog.Logger
}

func NewGlobalHandler(svc *collection.Service, logger *slog.Logger) *GlobalHandler {
	return &GlobalHandler{svc: svc, logger: logger}
}

func registerGlobalRoutes(api huma.API, h *GlobalHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-global",
		Method:      http.MethodGet,
		Path:        "/v1/globals/{slug}",
		Summary:     "Get a global",
		Tags:        []string{"globals"},
	}, h.GetGlobal)

	huma.Register(api, huma.Operation{
		OperationID: "put-global",
		Method:      http.MethodPut,
		Path:        "/v1/globals/{slug}",
		Summary:     "Replace a global",
		Tags:        []string{"globals"},
	}, h.PutGlobal)
}

func (h *GlobalHandler) GetGlobal(ctx context.Context, input *GlobalPathInput) (*GlobalOutput, error) {
	g, err := h.svc.GetGlobal(ctx, input.Slug)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "failed to get global", "slug", input.Slug)
	}
	return &GlobalOutput{Body: GlobalResponse{Slug: g.Slug, Body: g.Body, UpdatedAt: g.UpdatedAt}}, nil
}

func (h *GlobalHandler) PutGlobal(ctx context.Context, input *PutGlobalInput) (*GlobalOutput, error) {
	g, err := h.svc.PutGlobal(ctx, input.Slug, input.Body.Body)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "failed to put global", "slug", input.Slug)
	}
	return &GlobalOutput{Body: GlobalResponse{Slug: g.Slug, Body: g.Body, UpdatedAt: g.UpdatedAt}}, nil
}
