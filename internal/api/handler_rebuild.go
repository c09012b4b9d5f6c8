package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-rebuilder/internal/collection"
)

// --- Huma Input/Output types ---

type TriggerRebuildBody struct {
	Source   string `json:"source" doc:"Collection or global that changed" required:"true" minLength:"1" example:"events"`
	EntityID string `json:"entity_id,omitempty" doc:"Record id; defaults to manual"`
}

type TriggerRebuildInput struct {
	Body TriggerRebuildBody
}

type TriggerRebuildResponse struct {
	Status string `json:"status" example:"accepted"`
	Source string `json:"source"`
}

type TriggerRebuildOutput struct {
	Body TriggerRebuildResponse
}

// --- Handler ---

// RebuildHandler lets operators retry a rebuild by hand. The trigger skips
// the cooldown; its outcome is only visible in logs and metrics.
type RebuildHandler struct {
	svc    *collection.Service
	logger *slog.Logger
}

func NewRebuildHandler(svc *collection.Service, logger *slog.Logger) *RebuildHandler {
	return &RebuildHandler{svc: svc, logger: logger}
}

func registerRebuildRoutes(api huma.API, h *RebuildHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "trigger-rebuild",
		Method:        http.MethodPost,
		Path:          "/v1/rebuilds",
		Summary:       "Trigger a frontend rebuild",
		Tags:          []string{"rebuilds"},
		DefaultStatus: http.StatusAccepted,
	}, h.TriggerRebuild)
}

func (h *RebuildHandler) TriggerRebuild(ctx context.Context, input *TriggerRebuildInput) (*TriggerRebuildOutput, error) {
	if err := h.svc.TriggerRebuild(ctx, input.Body.Source, input.Body.EntityID); err != nil {
		return nil, toHTTPError(h.logger, err, "failed to trigger rebuild", "source", input.Body.Source)
	}
	return &TriggerRebuildOutput{Body: TriggerRebuildResponse{Status: "accepted", Source: input.Body.Source}}, nil
}
