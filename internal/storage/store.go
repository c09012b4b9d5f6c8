package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-rebuilder/internal/content"
)

// ErrDocumentNotFound is returned when a document lookup finds no matching row.
var ErrDocumentNotFound = errors.New("document not found")

// ErrGlobalNotFound is returned when a global has never been written.
var ErrGlobalNotFound = errors.New("global not found")

// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// ErrSlugConflict is returned when a slug is already taken in a collection.
var ErrSlugConflict = errors.New("slug already exists in collection")

// DefaultPageSize is used when a list call passes a non-positive limit.
const DefaultPageSize = 100

// Page is one page of a cursor-paginated listing.
type Page struct {
	Documents  []content.Document
	NextCursor string
	HasMore    bool
}

// DocumentStore persists collection documents and globals.
type DocumentStore interface {
	// CreateDocument inserts doc and returns it with timestamps set.
	CreateDocument(ctx context.Context, doc content.Document) (*content.Document, error)

	// UpdateDocument replaces the stored document with the same
	// (collection, id) and bumps updated_at.
	UpdateDocument(ctx context.Context, doc content.Document) (*content.Document, error)

	// GetDocument returns a single document.
	GetDocument(ctx context.Context, collection string, id uuid.UUID) (*content.Document, error)

	// DeleteDocument removes a document and returns what was removed.
	DeleteDocument(ctx context.Context, collection string, id uuid.UUID) (*content.Document, error)

	// ListDocuments pages through a collection in creation order.
	ListDocuments(ctx context.Context, collection, cursor string, limit int) (*Page, error)

	// PutGlobal creates or replaces a global.
	PutGlobal(ctx context.Context, g content.Global) (*content.Global, error)

	// GetGlobal returns a global by slug.
	GetGlobal(ctx context.Context, slug string) (*content.Global, error)
}
