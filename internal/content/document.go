package content

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of change applied to a document.
type Operation string

const (
	OperationCreated Operation = "created"
	OperationUpdated Operation = "updated"
	OperationDeleted Operation = "deleted"
)

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	switch op {
	case OperationCreated, OperationUpdated, OperationDeleted:
		return true
	}
	return false
}

// LocationType says whether a record has a physical address.
type LocationType string

const (
	LocationInPerson LocationType = "in-person"
	LocationVirtual  LocationType = "virtual"
	LocationHybrid   LocationType = "hybrid"
)

// Location is the address-bearing part of a record.
type Location struct {
	Type        LocationType `json:"type"`
	VenueName   string       `json:"venue_name,omitempty"`
	Address     string       `json:"address,omitempty"`
	City        string       `json:"city,omitempty"`
	State       string       `json:"state,omitempty"`
	ZipCode     string       `json:"zip_code,omitempty"`
	VirtualLink string       `json:"virtual_link,omitempty"`
}

// Query returns the geocoding query for this location.
func (l *Location) Query() AddressQuery {
	if l == nil {
		return AddressQuery{}
	}
	return AddressQuery{
		Address: l.Address,
		City:    l.City,
		State:   l.State,
		ZipCode: l.ZipCode,
	}
}

// Coordinates is a resolved latitude/longitude pair. Derived from the
// address, but an editor may override it by hand.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Document is a single record in a collection.
type Document struct {
	ID          uuid.UUID       `json:"id"`
	Collection  string          `json:"collection"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Status      string          `json:"status,omitempty"`
	Location    *Location       `json:"location,omitempty"`
	Coordinates *Coordinates    `json:"coordinates"`
	Body        json.RawMessage `json:"body,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EntityID returns the identifier used to scope rebuild cooldowns:
// id, then slug, then name, then UnknownEntityID.
func (d *Document) EntityID() string {
	return ResolveEntityID(
		func() string {
			if d.ID == uuid.Nil {
				return ""
			}
			return d.ID.String()
		},
		func() string { return d.Slug },
		func() string { return d.Name },
	)
}

// Global is a singleton document such as site settings.
type Global struct {
	Slug      string          `json:"slug"`
	Body      json.RawMessage `json:"body"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// GlobalEntityID is the entity id reported for every global change.
const GlobalEntityID = "global"
