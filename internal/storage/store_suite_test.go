package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-rebuilder/internal/content"
)

// runStoreSuite exercises the DocumentStore contract. Every test uses its
// own collection and global slug, so one store may be shared.
func runStoreSuite(t *testing.T, store DocumentStore) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, store) })
	t.Run("CreateSlugConflict", func(t *testing.T) { testCreateSlugConflict(t, store) })
	t.Run("SameSlugOtherCollection", func(t *testing.T) { testSameSlugOtherCollection(t, store) })
	t.Run("GetNotFound", func(t *testing.T) { testGetNotFound(t, store) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, store) })
	t.Run("UpdateClearsCoordinates", func(t *testing.T) { testUpdateClearsCoordinates(t, store) })
	t.Run("UpdateNotFound", func(t *testing.T) { testUpdateNotFound(t, store) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, store) })
	t.Run("ListPagination", func(t *testing.T) { testListPagination(t, store) })
	t.Run("ListInvalidCursor", func(t *testing.T) { testListInvalidCursor(t, store) })
	t.Run("Globals", func(t *testing.T) { testGlobals(t, store) })
}

func uniqueCollection() string {
	return "events-" + uuid.NewString()[:8]
}

func newEvent(collection, slug string) content.Document {
	return content.Document{
		ID:         uuid.New(),
		Collection: collection,
		Slug:       slug,
		Name:       "Community Health Fair",
		Status:     "published",
		Location: &content.Location{
			Type:    content.LocationInPerson,
			Address: "100 Nassau St",
			City:    "Princeton",
			State:   "NJ",
			ZipCode: "08542",
		},
		Coordinates: &content.Coordinates{Lat: 40.3487, Lng: -74.6593},
		Body:        json.RawMessage(`{"description":"Free testing"}`),
	}
}

func testCreateAndGet(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	doc := newEvent(uniqueCollection(), "health-fair")

	created, err := store.CreateDocument(ctx, doc)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := store.GetDocument(ctx, doc.Collection, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Slug != "health-fair" || got.Name != doc.Name || got.Status != "published" {
		t.Errorf("got %+v", got)
	}
	if got.Location == nil || *got.Location != *doc.Location {
		t.Errorf("Location = %+v, want %+v", got.Location, doc.Location)
	}
	if got.Coordinates == nil || *got.Coordinates != *doc.Coordinates {
		t.Errorf("Coordinates = %+v, want %+v", got.Coordinates, doc.Coordinates)
	}

	var gotBody, wantBody map[string]any
	if err := json.Unmarshal(got.Body, &gotBody); err != nil {
		t.Fatalf("unmarshal got body: %v", err)
	}
	if err := json.Unmarshal(doc.Body, &wantBody); err != nil {
		t.Fatalf("unmarshal want body: %v", err)
	}
	if gotBody["description"] != wantBody["description"] {
		t.Errorf("Body = %s, want %s", got.Body, doc.Body)
	}
}

func testCreateSlugConflict(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	collection := uniqueCollection()

	if _, err := store.CreateDocument(ctx, newEvent(collection, "gala")); err != nil {
		t.Fatalf("first CreateDocument: %v", err)
	}
	_, err := store.CreateDocument(ctx, newEvent(collection, "gala"))
	if !errors.Is(err, ErrSlugConflict) {
		t.Fatalf("expected ErrSlugConflict, got %v", err)
	}
}

func testSameSlugOtherCollection(t *testing.T, store DocumentStore) {
	ctx := context.Background()

	if _, err := store.CreateDocument(ctx, newEvent(uniqueCollection(), "shared")); err != nil {
		t.Fatalf("first CreateDocument: %v", err)
	}
	if _, err := store.CreateDocument(ctx, newEvent(uniqueCollection(), "shared")); err != nil {
		t.Fatalf("second CreateDocument: %v", err)
	}
}

func testGetNotFound(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	collection := uniqueCollection()

	_, err := store.GetDocument(ctx, collection, uuid.New())
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}

	// A document is only visible through its own collection.
	doc := newEvent(collection, "scoped")
	if _, err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	_, err = store.GetDocument(ctx, uniqueCollection(), doc.ID)
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound from other collection, got %v", err)
	}
}

func testUpdate(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	doc := newEvent(uniqueCollection(), "before")

	created, err := store.CreateDocument(ctx, doc)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	created.Slug = "after"
	created.Location.City = "Trenton"
	updated, err := store.UpdateDocument(ctx, *created)
	if err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if updated.Slug != "after" || updated.Location.City != "Trenton" {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
	}
}

func testUpdateClearsCoordinates(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	doc := newEvent(uniqueCollection(), "virtual")

	if _, err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	doc.Location = &content.Location{Type: content.LocationVirtual, VirtualLink: "https://meet.example/x"}
	doc.Coordinates = nil
	if _, err := store.UpdateDocument(ctx, doc); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}

	got, err := store.GetDocument(ctx, doc.Collection, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Coordinates != nil {
		t.Errorf("Coordinates = %+v, want nil", got.Coordinates)
	}
	if got.Location == nil || got.Location.Type != content.LocationVirtual {
		t.Errorf("Location = %+v", got.Location)
	}
}

func testUpdateNotFound(t *testing.T, store DocumentStore) {
	_, err := store.UpdateDocument(context.Background(), newEvent(uniqueCollection(), "ghost"))
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func testDelete(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	doc := newEvent(uniqueCollection(), "to-delete")

	if _, err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	deleted, err := store.DeleteDocument(ctx, doc.Collection, doc.ID)
	if err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if deleted.ID != doc.ID || deleted.Slug != "to-delete" {
		t.Errorf("deleted = %+v", deleted)
	}

	if _, err := store.GetDocument(ctx, doc.Collection, doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound after delete, got %v", err)
	}
	if _, err := store.DeleteDocument(ctx, doc.Collection, doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound on second delete, got %v", err)
	}
}

func testListPagination(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	collection := uniqueCollection()

	want := make(map[uuid.UUID]bool)
	for i := 0; i < 5; i++ {
		doc := newEvent(collection, "event-"+uuid.NewString()[:8])
		if _, err := store.CreateDocument(ctx, doc); err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
		want[doc.ID] = true
	}
	// Noise in another collection.
	if _, err := store.CreateDocument(ctx, newEvent(uniqueCollection(), "noise")); err != nil {
		t.Fatalf("CreateDocument noise: %v", err)
	}

	seen := make(map[uuid.UUID]bool)
	cursor := ""
	pages := 0
	for {
		page, err := store.ListDocuments(ctx, collection, cursor, 2)
		if err != nil {
			t.Fatalf("ListDocuments: %v", err)
		}
		pages++
		if len(page.Documents) > 2 {
			t.Fatalf("page has %d documents, limit 2", len(page.Documents))
		}
		for _, d := range page.Documents {
			if seen[d.ID] {
				t.Fatalf("document %s returned twice", d.ID)
			}
			seen[d.ID] = true
		}
		if !page.HasMore {
			if page.NextCursor != "" {
				t.Error("expected empty NextCursor on last page")
			}
			break
		}
		cursor = page.NextCursor
	}

	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if len(seen) != len(want) {
		t.Fatalf("saw %d documents, want %d", len(seen), len(want))
	}
	for id := range want {
		if !seen[id] {
			t.Errorf("document %s missing from listing", id)
		}
	}
}

func testListInvalidCursor(t *testing.T, store DocumentStore) {
	_, err := store.ListDocuments(context.Background(), uniqueCollection(), "!!!", 10)
	if !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

func testGlobals(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	slug := "site-settings-" + uuid.NewString()[:8]

	if _, err := store.GetGlobal(ctx, slug); !errors.Is(err, ErrGlobalNotFound) {
		t.Fatalf("expected ErrGlobalNotFound, got %v", err)
	}

	first, err := store.PutGlobal(ctx, content.Global{Slug: slug, Body: json.RawMessage(`{"title":"HIV Connect"}`)})
	if err != nil {
		t.Fatalf("PutGlobal: %v", err)
	}
	if first.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}

	if _, err := store.PutGlobal(ctx, content.Global{Slug: slug, Body: json.RawMessage(`{"title":"Renamed"}`)}); err != nil {
		t.Fatalf("second PutGlobal: %v", err)
	}

	got, err := store.GetGlobal(ctx, slug)
	if err != nil {
		t.Fatalf("GetGlobal: %v", err)
	}
	var body map[string]string
	if err := json.Unmarshal(got.Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["title"] != "Renamed" {
		t.Errorf("title = %q, want %q", body["title"], "Renamed")
	}
}
