package content

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestResolveEntityID_FirstNonEmptyWins(t *testing.T) {
	tests := []struct {
		name      string
		accessors []func() string
		want      string
	}{
		{"first", []func() string{val("42"), val("slug")}, "42"},
		{"skips empty", []func() string{val(""), val("slug"), val("name")}, "slug"},
		{"skips blank", []func() string{val("  "), val(""), val("name")}, "name"},
		{"none", []func() string{val(""), val("")}, UnknownEntityID},
		{"no accessors", nil, UnknownEntityID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveEntityID(tt.accessors...); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveEntityID_StopsAtFirstMatch(t *testing.T) {
	called := false
	got := ResolveEntityID(val("id"), func() string {
		called = true
		return "slug"
	})
	if got != "id" {
		t.Errorf("got %q, want %q", got, "id")
	}
	if called {
		t.Error("later accessor should not be called")
	}
}

func TestDocument_EntityID(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	if got := (&Document{ID: id, Slug: "s"}).EntityID(); got != id.String() {
		t.Errorf("with id: got %q", got)
	}
	if got := (&Document{Slug: "health-fair", Name: "Health Fair"}).EntityID(); got != "health-fair" {
		t.Errorf("nil id: got %q", got)
	}
	if got := (&Document{Name: "Health Fair"}).EntityID(); got != "Health Fair" {
		t.Errorf("name only: got %q", got)
	}
	if got := (&Document{}).EntityID(); got != UnknownEntityID {
		t.Errorf("empty: got %q", got)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Health Fair 2025", "health-fair-2025"},
		{"  Planning Council -- Meeting!  ", "planning-council-meeting"},
		{"already-a-slug", "already-a-slug"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddressQuery_Text(t *testing.T) {
	q := AddressQuery{Address: "1 Main St", City: "Newark", State: "NJ", ZipCode: "07102"}
	if got := q.Text(); got != "1 Main St, Newark, NJ, 07102" {
		t.Errorf("got %q", got)
	}

	q = AddressQuery{City: "Newark", ZipCode: " "}
	if got := q.Text(); got != "Newark" {
		t.Errorf("partial: got %q", got)
	}
}

func TestAddressQuery_Empty(t *testing.T) {
	if !(AddressQuery{}).Empty() {
		t.Error("zero query should be empty")
	}
	if !(AddressQuery{Address: "  ", City: "\t"}).Empty() {
		t.Error("whitespace query should be empty")
	}
	if (AddressQuery{State: "NJ"}).Empty() {
		t.Error("state-only query should not be empty")
	}
}

func TestAddressChanged(t *testing.T) {
	base := &Location{Type: LocationInPerson, Address: "1 Main St", City: "Newark", State: "NJ", ZipCode: "07102"}

	same := *base
	same.VenueName = "Town Hall"
	if AddressChanged(base, &same) {
		t.Error("venue name is not an address field")
	}

	moved := *base
	moved.ZipCode = "07103"
	if !AddressChanged(base, &moved) {
		t.Error("zip change should count")
	}

	if !AddressChanged(nil, base) {
		t.Error("nil to populated should count")
	}
	if AddressChanged(nil, &Location{Type: LocationVirtual}) {
		t.Error("nil to empty address should not count")
	}
}

func TestOperation_Valid(t *testing.T) {
	for _, op := range []Operation{OperationCreated, OperationUpdated, OperationDeleted} {
		if !op.Valid() {
			t.Errorf("%q should be valid", op)
		}
	}
	if Operation("create").Valid() {
		t.Error("create should not be valid")
	}
}

func TestDocument_CoordinatesSerializeAsNull(t *testing.T) {
	data, err := json.Marshal(Document{Slug: "x"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v, ok := m["coordinates"]
	if !ok {
		t.Fatal("missing coordinates key")
	}
	if v != nil {
		t.Errorf("coordinates: got %v, want null", v)
	}
	if _, ok := m["location"]; ok {
		t.Error("nil location should be omitted")
	}
}

func val(s string) func() string {
	return func() string { return s }
}
