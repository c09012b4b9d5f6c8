package collection

import (
	"context"
	"log/slog"

	"github.com/ryanbastic/go-rebuilder/internal/content"
)

// Geocoder resolves an address. A nil result means "no coordinates".
type Geocoder interface {
	Geocode(ctx context.Context, q content.AddressQuery) *content.Coordinates
}

// Pacer spaces geocoding requests.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Enricher fills in a document's coordinates from its location before the
// document is stored.
type Enricher struct {
	geocoder Geocoder
	pacer    Pacer
	logger   *slog.Logger
}

// NewEnricher creates an Enricher. A nil pacer disables pacing.
func NewEnricher(geocoder Geocoder, pacer Pacer, logger *slog.Logger) *Enricher {
	return &Enricher{geocoder: geocoder, pacer: pacer, logger: logger}
}

// Enrich returns draft with coordinates resolved. previous is the stored
// version for updates and nil for creates. Enrich never fails: when the
// lookup fails, coordinates the draft already had are kept.
func (e *Enricher) Enrich(ctx context.Context, draft content.Document, previous *content.Document) content.Document {
	loc := draft.Location
	if loc == nil {
		return draft
	}

	if loc.Type == content.LocationVirtual {
		draft.Coordinates = nil
		return draft
	}

	q := loc.Query()
	if isBlank(q.Address) && isBlank(q.City) {
		e.logger.Warn("no address to geocode",
			"collection", draft.Collection,
			"entity_id", draft.EntityID(),
		)
		return draft
	}

	// Coordinates set by hand survive edits that leave the address alone.
	if previous != nil && draft.Coordinates != nil && !content.AddressChanged(previous.Location, loc) {
		return draft
	}

	var coords *content.Coordinates
	if err := e.wait(ctx); err != nil {
		e.logger.Warn("geocoding skipped", "entity_id", draft.EntityID(), "error", err)
	} else {
		coords = e.geocoder.Geocode(ctx, q)
	}

	if coords != nil {
		draft.Coordinates = coords
		e.logger.Info("document geocoded",
			"collection", draft.Collection,
			"entity_id", draft.EntityID(),
			"lat", coords.Lat,
			"lng", coords.Lng,
		)
		return draft
	}

	if draft.Coordinates != nil {
		e.logger.Warn("geocoding failed, keeping existing coordinates",
			"collection", draft.Collection,
			"entity_id", draft.EntityID(),
		)
		return draft
	}
	e.logger.Warn("geocoding failed, document has no coordinates",
		"collection", draft.Collection,
		"entity_id", draft.EntityID(),
		"address", q.Text(),
	)
	return draft
}

func (e *Enricher) wait(ctx context.Context) error {
	if e.pacer == nil {
		return nil
	}
	return e.pacer.Wait(ctx)
}
