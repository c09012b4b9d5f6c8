package content

import "strings"

// AddressQuery is the free-text input to geocoding. All fields are optional.
type AddressQuery struct {
	Address string
	City    string
	State   string
	ZipCode string
}

// Text joins the non-blank parts with ", ".
func (q AddressQuery) Text() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{q.Address, q.City, q.State, q.ZipCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Empty reports whether there is nothing to geocode.
func (q AddressQuery) Empty() bool {
	return q.Text() == ""
}

// AddressChanged compares the address-bearing fields of two locations.
// A nil location is treated as having empty fields.
func AddressChanged(prev, next *Location) bool {
	a, b := prev.Query(), next.Query()
	return a.Address != b.Address ||
		a.City != b.City ||
		a.State != b.State ||
		a.ZipCode != b.ZipCode
}
