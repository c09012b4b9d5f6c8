package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ryanbastic/go-rebuilder/internal/content"
)

const uniqueViolation = "23505"

const documentColumns = `id, collection, slug, name, status, location,
	coordinates_lat, coordinates_lng, body, created_at, updated_at`

// PostgresStore implements DocumentStore using PostgreSQL.
type PostgresStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPostgresStore creates a DocumentStore on pool.
// queryTimeout sets the per-query context deadline; zero means no timeout.
func NewPostgresStore(pool *pgxpool.Pool, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		pool:         pool,
		queryTimeout: queryTimeout,
	}
}

// withTimeout derives a child context with the configured query timeout.
// If queryTimeout is zero, the parent context is returned unchanged.
func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc content.Document) (*content.Document, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	location, lat, lng, body, err := documentArgs(doc)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents (id, collection, slug, name, status, location,
			coordinates_lat, coordinates_lng, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+documentColumns,
		doc.ID, doc.Collection, doc.Slug, doc.Name, doc.Status, location, lat, lng, body,
	)
	stored, err := scanDocument(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugConflict
		}
		return nil, fmt.Errorf("create document: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, doc content.Document) (*content.Document, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	location, lat, lng, body, err := documentArgs(doc)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE documents
		SET slug = $3, name = $4, status = $5, location = $6,
			coordinates_lat = $7, coordinates_lng = $8, body = $9,
			updated_at = now()
		WHERE collection = $1 AND id = $2
		RETURNING `+documentColumns,
		doc.Collection, doc.ID, doc.Slug, doc.Name, doc.Status, location, lat, lng, body,
	)
	stored, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrSlugConflict
		}
		return nil, fmt.Errorf("update document: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, collection string, id uuid.UUID) (*content.Document, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, collection string, id uuid.UUID) (*content.Document, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
		RETURNING `+documentColumns,
		collection, id,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("delete document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, collection, cursor string, limit int) (*Page, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = DefaultPageSize
	}

	var rows pgx.Rows
	var err error
	if cursor == "" {
		rows, err = s.pool.Query(ctx, `
			SELECT `+documentColumns+`
			FROM documents
			WHERE collection = $1
			ORDER BY created_at, id
			LIMIT $2
		`, collection, limit+1)
	} else {
		c, decodeErr := DecodeCursor(cursor)
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, decodeErr)
		}
		rows, err = s.pool.Query(ctx, `
			SELECT `+documentColumns+`
			FROM documents
			WHERE collection = $1 AND (created_at, id) > ($2, $3)
			ORDER BY created_at, id
			LIMIT $4
		`, collection, c.CreatedAt, c.ID, limit+1)
	}
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []content.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list documents scan: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents rows: %w", err)
	}
	return nextPage(docs, limit)
}

func (s *PostgresStore) PutGlobal(ctx context.Context, g content.Global) (*content.Global, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	body := g.Body
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}

	var out content.Global
	err := s.pool.QueryRow(ctx, `
		INSERT INTO globals (slug, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slug)
		DO UPDATE SET body = $2, updated_at = now()
		RETURNING slug, body, updated_at
	`, g.Slug, []byte(body)).Scan(&out.Slug, &out.Body, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("put global %s: %w", g.Slug, err)
	}
	return &out, nil
}

func (s *PostgresStore) GetGlobal(ctx context.Context, slug string) (*content.Global, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out content.Global
	err := s.pool.QueryRow(ctx, `
		SELECT slug, body, updated_at FROM globals WHERE slug = $1
	`, slug).Scan(&out.Slug, &out.Body, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGlobalNotFound
		}
		return nil, fmt.Errorf("get global %s: %w", slug, err)
	}
	return &out, nil
}

// documentArgs converts the nullable parts of doc to query arguments.
func documentArgs(doc content.Document) (location []byte, lat, lng *float64, body []byte, err error) {
	if doc.Location != nil {
		location, err = json.Marshal(doc.Location)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("marshal location: %w", err)
		}
	}
	if doc.Coordinates != nil {
		lat, lng = &doc.Coordinates.Lat, &doc.Coordinates.Lng
	}
	body = doc.Body
	if len(body) == 0 {
		body = []byte(`{}`)
	}
	return location, lat, lng, body, nil
}

func scanDocument(row pgx.Row) (*content.Document, error) {
	var (
		doc      content.Document
		location []byte
		lat, lng *float64
		body     []byte
	)
	err := row.Scan(&doc.ID, &doc.Collection, &doc.Slug, &doc.Name, &doc.Status,
		&location, &lat, &lng, &body, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(location) > 0 {
		var loc content.Location
		if err := json.Unmarshal(location, &loc); err != nil {
			return nil, fmt.Errorf("unmarshal location: %w", err)
		}
		doc.Location = &loc
	}
	if lat != nil && lng != nil {
		doc.Coordinates = &content.Coordinates{Lat: *lat, Lng: *lng}
	}
	doc.Body = json.RawMessage(body)
	return &doc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
