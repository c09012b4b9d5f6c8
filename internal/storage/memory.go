package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-rebuilder/internal/content"
)

// MemoryStore is an in-process DocumentStore. It is used when no database
// is configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[uuid.UUID]content.Document
	globals map[string]content.Global
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[uuid.UUID]content.Document),
		globals: make(map[string]content.Global),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) CreateDocument(_ context.Context, doc content.Document) (*content.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID]; ok {
		return nil, fmt.Errorf("create document: id %s already exists", doc.ID)
	}
	if s.slugTakenLocked(doc.Collection, doc.Slug, doc.ID) {
		return nil, ErrSlugConflict
	}

	now := s.now()
	doc.CreatedAt, doc.UpdatedAt = now, now
	if len(doc.Body) == 0 {
		doc.Body = json.RawMessage(`{}`)
	}
	doc = cloneDocument(doc)
	s.docs[doc.ID] = doc
	out := cloneDocument(doc)
	return &out, nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, doc content.Document) (*content.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.docs[doc.ID]
	if !ok || prev.Collection != doc.Collection {
		return nil, ErrDocumentNotFound
	}
	if s.slugTakenLocked(doc.Collection, doc.Slug, doc.ID) {
		return nil, ErrSlugConflict
	}

	doc.CreatedAt = prev.CreatedAt
	doc.UpdatedAt = s.now()
	if len(doc.Body) == 0 {
		doc.Body = json.RawMessage(`{}`)
	}
	doc = cloneDocument(doc)
	s.docs[doc.ID] = doc
	out := cloneDocument(doc)
	return &out, nil
}

func (s *MemoryStore) GetDocument(_ context.Context, collection string, id uuid.UUID) (*content.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok || doc.Collection != collection {
		return nil, ErrDocumentNotFound
	}
	out := cloneDocument(doc)
	return &out, nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, collection string, id uuid.UUID) (*content.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok || doc.Collection != collection {
		return nil, ErrDocumentNotFound
	}
	delete(s.docs, id)
	return &doc, nil
}

func (s *MemoryStore) ListDocuments(_ context.Context, collection, cursor string, limit int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var c *Cursor
	if cursor != "" {
		var err error
		c, err = DecodeCursor(cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
		}
	}

	s.mu.RLock()
	var docs []content.Document
	for _, doc := range s.docs {
		if doc.Collection != collection {
			continue
		}
		if c != nil && !c.after(&doc) {
			continue
		}
		docs = append(docs, cloneDocument(doc))
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID.String() < docs[j].ID.String()
	})
	if len(docs) > limit+1 {
		docs = docs[:limit+1]
	}
	return nextPage(docs, limit)
}

func (s *MemoryStore) PutGlobal(_ context.Context, g content.Global) (*content.Global, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(g.Body) == 0 {
		g.Body = json.RawMessage(`{}`)
	}
	g.Body = append(json.RawMessage(nil), g.Body...)
	g.UpdatedAt = s.now()
	s.globals[g.Slug] = g
	out := g
	return &out, nil
}

func (s *MemoryStore) GetGlobal(_ context.Context, slug string) (*content.Global, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.globals[slug]
	if !ok {
		return nil, ErrGlobalNotFound
	}
	return &g, nil
}

func (s *MemoryStore) slugTakenLocked(collection, slug string, self uuid.UUID) bool {
	for id, doc := range s.docs {
		if id != self && doc.Collection == collection && doc.Slug == slug {
			return true
		}
	}
	return false
}

// cloneDocument copies the pointer and slice fields so callers cannot
// mutate stored state.
func cloneDocument(doc content.Document) content.Document {
	if doc.Location != nil {
		loc := *doc.Location
		doc.Location = &loc
	}
	if doc.Coordinates != nil {
		c := *doc.Coordinates
		doc.Coordinates = &c
	}
	if doc.Body != nil {
		doc.Body = append(json.RawMessage(nil), doc.Body...)
	}
	return doc
}
