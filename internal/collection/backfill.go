package collection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ryanbastic/go-rebuilder/internal/content"
	"github.com/ryanbastic/go-rebuilder/internal/storage"
)

// BackfillResult summarizes one backfill run. Geocoded counts documents
// actually written (or that would be, in a dry run).
type BackfillResult struct {
	Collection string
	Scanned    int
	Geocoded   int
	Failed     int
	Skipped    int
	DryRun     bool
}

// Backfiller geocodes stored documents that have an address but no
// coordinates. Lookups go through the shared pacer one at a time.
type Backfiller struct {
	store     storage.DocumentStore
	geocoder  Geocoder
	pacer     Pacer
	batchSize int
	logger    *slog.Logger
}

// NewBackfiller creates a Backfiller. A non-positive batchSize uses
// storage.DefaultPageSize.
func NewBackfiller(store storage.DocumentStore, geocoder Geocoder, pacer Pacer, batchSize int, logger *slog.Logger) *Backfiller {
	if batchSize <= 0 {
		batchSize = storage.DefaultPageSize
	}
	return &Backfiller{
		store:     store,
		geocoder:  geocoder,
		pacer:     pacer,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run pages through collection in creation order. Documents that fail to
// geocode are logged and skipped. With dryRun set, lookups still run but
// nothing is written. The result is returned even when Run fails, so the
// caller can see what was written before the failure.
func (b *Backfiller) Run(ctx context.Context, collection string, dryRun bool) (*BackfillResult, error) {
	res := &BackfillResult{Collection: collection, DryRun: dryRun}

	cursor := ""
	for {
		page, err := b.store.ListDocuments(ctx, collection, cursor, b.batchSize)
		if err != nil {
			return res, fmt.Errorf("list %s documents: %w", collection, err)
		}
		if err := b.processBatch(ctx, page.Documents, res); err != nil {
			return res, err
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	b.logger.Info("geocode backfill complete",
		"collection", collection,
		"scanned", res.Scanned,
		"geocoded", res.Geocoded,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"dry_run", dryRun,
	)
	return res, nil
}

func (b *Backfiller) processBatch(ctx context.Context, docs []content.Document, res *BackfillResult) error {
	for i := range docs {
		doc := docs[i]
		res.Scanned++

		if !needsGeocoding(&doc) {
			res.Skipped++
			continue
		}

		if b.pacer != nil {
			if err := b.pacer.Wait(ctx); err != nil {
				return fmt.Errorf("wait for geocoder: %w", err)
			}
		}
		coords := b.geocoder.Geocode(ctx, doc.Location.Query())
		if coords == nil {
			res.Failed++
			b.logger.Warn("backfill could not geocode document",
				"collection", doc.Collection,
				"id", doc.ID,
				"slug", doc.Slug,
			)
			continue
		}

		if res.DryRun {
			res.Geocoded++
			b.logger.Info("would set coordinates", "id", doc.ID, "lat", coords.Lat, "lng", coords.Lng)
			continue
		}
		doc.Coordinates = coords
		if _, err := b.store.UpdateDocument(ctx, doc); err != nil {
			return fmt.Errorf("update %s document %s: %w", doc.Collection, doc.ID, err)
		}
		res.Geocoded++
	}
	return nil
}

// needsGeocoding reports whether doc is physical, has an address, and
// lacks coordinates.
func needsGeocoding(doc *content.Document) bool {
	loc := doc.Location
	if loc == nil || doc.Coordinates != nil || loc.Type == content.LocationVirtual {
		return false
	}
	return !isBlank(loc.Address) || !isBlank(loc.City)
}
