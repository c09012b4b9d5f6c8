// Package collection is the write path for documents and globals: geocode
// enrichment before a write and rebuild notification after it.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-rebuilder/internal/config"
	"github.com/ryanbastic/go-rebuilder/internal/content"
	"github.com/ryanbastic/go-rebuilder/internal/storage"
)

// ErrUnknownCollection is returned for a collection that is not configured.
var ErrUnknownCollection = errors.New("unknown collection")

// ErrUnknownGlobal is returned for a global that is not configured.
var ErrUnknownGlobal = errors.New("unknown global")

// ManualEntityID is used when an operator triggers a rebuild without naming
// a record.
const ManualEntityID = "manual"

// Notifier is told about every successful write.
type Notifier interface {
	DocumentChanged(ctx context.Context, doc *content.Document, op content.Operation) bool
	GlobalChanged(ctx context.Context, slug string) bool
	Trigger(ctx context.Context, source, entityID string)
}

// Patch is a partial update. Nil fields are left unchanged, and so is the
// slug when the new one is blank.
type Patch struct {
	Slug        *string              `json:"slug,omitempty"`
	Name        *string              `json:"name,omitempty"`
	Status      *string              `json:"status,omitempty"`
	Location    *content.Location    `json:"location,omitempty"`
	Coordinates *content.Coordinates `json:"coordinates,omitempty"`
	Body        json.RawMessage      `json:"body,omitempty"`
}

// Service runs the write pipeline for the configured collections.
type Service struct {
	store       storage.DocumentStore
	enricher    *Enricher
	notifier    Notifier
	collections map[string]config.CollectionDefinition
	globals     map[string]config.GlobalDefinition
	logger      *slog.Logger
}

// NewService creates a Service. A nil enricher disables geocoding; a nil
// notifier disables rebuild notifications.
func NewService(store storage.DocumentStore, enricher *Enricher, notifier Notifier, cfg *config.CollectionsConfig, logger *slog.Logger) *Service {
	s := &Service{
		store:       store,
		enricher:    enricher,
		notifier:    notifier,
		collections: make(map[string]config.CollectionDefinition, len(cfg.Collections)),
		globals:     make(map[string]config.GlobalDefinition, len(cfg.Globals)),
		logger:      logger,
	}
	for _, c := range cfg.Collections {
		s.collections[c.Name] = c
	}
	for _, g := range cfg.Globals {
		s.globals[g.Slug] = g
	}
	return s
}

// Collection returns the definition of a configured collection.
func (s *Service) Collection(name string) (config.CollectionDefinition, error) {
	def, ok := s.collections[name]
	if !ok {
		return config.CollectionDefinition{}, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return def, nil
}

// Create stores a new document. Enrichment runs before the write and the
// rebuild notification after it.
func (s *Service) Create(ctx context.Context, collection string, draft content.Document) (*content.Document, error) {
	def, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}

	draft.Collection = collection
	if draft.ID == uuid.Nil {
		draft.ID = uuid.New()
	}
	draft.Slug = strings.TrimSpace(draft.Slug)
	if draft.Slug == "" {
		draft.Slug = content.Slugify(draft.Name)
	}
	if draft.Slug == "" {
		draft.Slug = draft.ID.String()
	}

	draft = s.enrich(ctx, def, draft, nil)

	stored, err := s.store.CreateDocument(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("create %s document: %w", collection, err)
	}

	s.notifyDocument(ctx, def, stored, content.OperationCreated)
	return stored, nil
}

// Update applies patch to a stored document.
func (s *Service) Update(ctx context.Context, collection string, id uuid.UUID, patch Patch) (*content.Document, error) {
	def, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}

	previous, err := s.store.GetDocument(ctx, collection, id)
	if err != nil {
		return nil, fmt.Errorf("load %s document %s: %w", collection, id, err)
	}

	draft := patch.apply(*previous)
	draft = s.enrich(ctx, def, draft, previous)

	stored, err := s.store.UpdateDocument(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("update %s document %s: %w", collection, id, err)
	}

	s.notifyDocument(ctx, def, stored, content.OperationUpdated)
	return stored, nil
}

// Delete removes a document and returns it.
func (s *Service) Delete(ctx context.Context, collection string, id uuid.UUID) (*content.Document, error) {
	def, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}

	deleted, err := s.store.DeleteDocument(ctx, collection, id)
	if err != nil {
		return nil, fmt.Errorf("delete %s document %s: %w", collection, id, err)
	}

	s.notifyDocument(ctx, def, deleted, content.OperationDeleted)
	return deleted, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, collection string, id uuid.UUID) (*content.Document, error) {
	if _, err := s.Collection(collection); err != nil {
		return nil, err
	}
	return s.store.GetDocument(ctx, collection, id)
}

// List returns one page of a collection.
func (s *Service) List(ctx context.Context, collection, cursor string, limit int) (*storage.Page, error) {
	if _, err := s.Collection(collection); err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx, collection, cursor, limit)
}

// PutGlobal replaces a global and notifies the rebuild pipeline.
func (s *Service) PutGlobal(ctx context.Context, slug string, body json.RawMessage) (*content.Global, error) {
	def, ok := s.globals[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGlobal, slug)
	}

	stored, err := s.store.PutGlobal(ctx, content.Global{Slug: slug, Body: body})
	if err != nil {
		return nil, fmt.Errorf("put global %s: %w", slug, err)
	}

	if def.Rebuild && s.notifier != nil {
		s.notifier.GlobalChanged(ctx, slug)
	}
	return stored, nil
}

// GetGlobal returns a global.
func (s *Service) GetGlobal(ctx context.Context, slug string) (*content.Global, error) {
	if _, ok := s.globals[slug]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGlobal, slug)
	}
	return s.store.GetGlobal(ctx, slug)
}

// TriggerRebuild dispatches a rebuild for source right away, ignoring the
// cooldown. It is how operators retry after a failed trigger.
func (s *Service) TriggerRebuild(ctx context.Context, source, entityID string) error {
	if _, ok := s.collections[source]; !ok {
		if _, ok := s.globals[source]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCollection, source)
		}
	}
	if strings.TrimSpace(entityID) == "" {
		entityID = ManualEntityID
	}
	if s.notifier != nil {
		s.notifier.Trigger(ctx, source, entityID)
	}
	return nil
}

func (s *Service) enrich(ctx context.Context, def config.CollectionDefinition, draft content.Document, previous *content.Document) content.Document {
	if !def.Geocode || s.enricher == nil {
		return draft
	}
	return s.enricher.Enrich(ctx, draft, previous)
}

func (s *Service) notifyDocument(ctx context.Context, def config.CollectionDefinition, doc *content.Document, op content.Operation) {
	if !def.Rebuild || s.notifier == nil {
		return
	}
	s.notifier.DocumentChanged(ctx, doc, op)
}

// apply returns doc with the patch applied. doc's pointer fields are not
// shared with the result.
func (p Patch) apply(doc content.Document) content.Document {
	if doc.Location != nil {
		loc := *doc.Location
		doc.Location = &loc
	}
	if doc.Coordinates != nil {
		c := *doc.Coordinates
		doc.Coordinates = &c
	}

	if p.Slug != nil && !isBlank(*p.Slug) {
		doc.Slug = strings.TrimSpace(*p.Slug)
	}
	if p.Name != nil {
		doc.Name = *p.Name
	}
	if p.Status != nil {
		doc.Status = *p.Status
	}
	if p.Location != nil {
		loc := *p.Location
		doc.Location = &loc
	}
	if p.Coordinates != nil {
		c := *p.Coordinates
		doc.Coordinates = &c
	}
	if p.Body != nil {
		doc.Body = p.Body
	}
	return doc
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
