package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-rebuilder/internal/content"
)

// Cursor is an opaque pagination token. Listings are ordered by
// (created_at, id), and a cursor holds the last position returned.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}

// Encode serializes the cursor to a base64-encoded string.
func (c *Cursor) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeCursor parses a base64-encoded cursor string.
func DecodeCursor(s string) (*Cursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if c.ID == uuid.Nil {
		return nil, fmt.Errorf("cursor missing id")
	}
	return &c, nil
}

// after reports whether doc sorts strictly after the cursor position.
func (c *Cursor) after(doc *content.Document) bool {
	if !doc.CreatedAt.Equal(c.CreatedAt) {
		return doc.CreatedAt.After(c.CreatedAt)
	}
	return doc.ID.String() > c.ID.String()
}

// nextPage builds the page for docs fetched with limit+1 rows.
func nextPage(docs []content.Document, limit int) (*Page, error) {
	page := &Page{Documents: docs}
	if len(docs) <= limit {
		return page, nil
	}

	page.Documents = docs[:limit]
	last := page.Documents[limit-1]
	next := Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	encoded, err := next.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode next cursor: %w", err)
	}
	page.NextCursor = encoded
	page.HasMore = true
	return page, nil
}
