// Package geo resolves network addresses to coarse locations for display
// in login history. Resolution is best-effort: callers treat a failed or
// empty lookup as "location unknown", never as an error path.
package geo

import "context"

// Location is a coarse, display-oriented place description.
type Location struct {
	City    string
	Region  string
	Country string
}

// String renders the non-empty components joined by ", ".
func (l Location) String() string {
	out := ""
	for _, part := range []string{l.City, l.Region, l.Country} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}

// Locator looks up the location of a network address.
type Locator interface {
	Lookup(ctx context.Context, networkAddress string) (*Location, error)
}

// Null is a Locator that never resolves anything. It is the default when
// no geolocation backend is configured.
type Null struct{}

func (Null) Lookup(context.Context, string) (*Location, error) {
	return nil, nil
}
