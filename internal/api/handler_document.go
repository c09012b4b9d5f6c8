package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/ryanbastic/go-rebuilder/internal/collection"
	"github.com/ryanbastic/go-rebuilder/internal/content"
)

// --- Huma Input/Output types ---

type DocumentBody struct {
	Slug        string               `json:"slug,omitempty" doc:"URL slug, derived from name when empty"`
	Name        string               `json:"name,omitempty" doc:"Display name or title"`
	Status      string               `json:"status,omitempty" doc:"Publication status" example:"published"`
	Location    *content.Location    `json:"location,omitempty" doc:"Where the record takes place"`
	Coordinates *content.Coordinates `json:"coordinates,omitempty" doc:"Manual coordinates, replaced by geocoding when the address resolves"`
	Body        json.RawMessage      `json:"body,omitempty" doc:"Remaining record fields"`
}

type CreateDocumentInput struct {
	Collection string `path:"collection" doc:"Collection name"`
	Body       DocumentBody
}

type DocumentOutput struct {
	Body content.Document
}

type DocumentPathInput struct {
	Collection string `path:"collection" doc:"Collection name"`
	ID         string `path:"id" doc:"Document UUID" format:"uuid"`
}

type UpdateDocumentInput struct {
	Collection string `path:"collection" doc:"Collection name"`
	ID         string `path:"id" doc:"Document UUID" format:"uuid"`
	Body       collection.Patch
}

type ListDocumentsInput struct {
	Collection string `path:"collection" doc:"Collection name"`
	Cursor     string `query:"cursor" doc:"Opaque cursor from a previous page" required:"false"`
	Limit      int    `query:"limit" doc:"Maximum number of documents to return" minimum:"0" maximum:"500" required:"false"`
}

type ListDocumentsResponse struct {
	Documents  []content.Document `json:"documents" doc:"Documents in creation order"`
	NextCursor string             `json:"next_cursor,omitempty" doc:"Cursor for the next page"`
	HasMore    bool               `json:"has_more" doc:"Whether another page exists"`
}

type ListDocumentsOutput struct {
	Body ListDocumentsResponse
}

// --- Handler ---

type DocumentHandler struct {
	svc    *collection.Service
	logger *slog.Logger
}

func NewDocumentHandler(svc *collection.Service, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, logger: logger}
}

func registerDocumentRoutes(api huma.API, h *DocumentHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-document",
		Method:        http.MethodPost,
		Path:          "/v1/collections/{collection}/documents",
		Summary:       "Create a document",
		Tags:          []string{"documents"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateDocument)

	huma.Register(api, huma.Operation{
		OperationID: "list-documents",
		Method:      http.MethodGet,
		Path:        "/v1/collections/{collection}/documents",
		Summary:     "List documents",
		Tags:        []string{"documents"},
	}, h.ListDocuments)

	huma.Register(api, huma.Operation{
		OperationID: "get-document",
		Method:      http.MethodGet,
		Path:        "/v1/collections/{collection}/documents/{id}",
		Summary:     "Get a document",
		Tags:        []string{"documents"},
	}, h.GetDocument)

	huma.Register(api, huma.Operation{
		OperationID: "update-document",
		Method:      http.MethodPatch,
		Path:        "/v1/collections/{collection}/documents/{id}",
		Summary:     "Update a document",
		Tags:        []string{"documents"},
	}, h.UpdateDocument)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-document",
		Method:        http.MethodDelete,
		Path:          "/v1/collections/{collection}/documents/{id}",
		Summary:       "Delete a document",
		Tags:          []string{"documents"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteDocument)
}

func (h *DocumentHandler) CreateDocument(ctx context.Context, input *CreateDocumentInput) (*DocumentOutput, error) {
	draft := content.Document{
		Slug:        input.Body.Slug,
		Name:        input.Body.Name,
		Status:      input.Body.Status,
		Location:    input.Body.Location,
		Coordinates: input.Body.Coordinates,
		Body:        input.Body.Body,
	}

	doc, err := h.svc.Create(ctx, input.Collection, draft)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "failed to create document", "collection", input.Collection)
	}
	return &DocumentOutput{Body: *doc}, nil
}

func (h *DocumentHandler) ListDocuments(ctx context.Context, input *ListDocumentsInput) (*ListDocumentsOutput, error) {
	page, err := h.svc.List(ctx, input.Collection, input.Cursor, input.Limit)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "failed to list documents", "collection", input.Collection)
	}

	docs := page.Documents
	if docs == nil {
		docs = []content.Document{}
	}
	return &ListDocumentsOutput{Body: ListDocumentsResponse{
		Documents:  docs,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}}, nil
}

func (h *DocumentHandler) GetDocument(ctx context.Context, input *DocumentPathInput) (*DocumentOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid id")
	}

	doc, err := h.svc.Get(ctx, input.Collection, id)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "failed to get document", "collection", input.Collection, "id", id)
	}
	return &DocumentOutput{Body: *doc}, nil
}

func (h *DocumentHandler) UpdateDocument(ctx context.Context, input *UpdateDocumentInput) (*DocumentOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid id")
	}

	doc, err := h.svc.Update(ctx, input.Collection, id, input.Body)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "failed to update document", "collection", input.Collection, "id", id)
	}
	return &DocumentOutput{Body: *doc}, nil
}

func (h *DocumentHandler) DeleteDocument(ctx context.Context, input *DocumentPathInput) (*struct{}, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid id")
	}

	if _, err := h.svc.Delete(ctx, input.Collection, id); err != nil {
		return nil, toHTTPError(h.logger, err, "failed to delete document", "collection", input.Collection, "id", id)
	}
	return nil, nil
}
