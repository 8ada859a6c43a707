package geoip

import (
	"context"
	"fmt"
	"net"

	"github.com/phuslu/iploc"
)

// EmbeddedLocator looks up countries in the database compiled into the binary.
// It only knows countries, so City, Region and ZipCode stay empty.
type EmbeddedLocator struct{}

// NewEmbeddedLocator creates an EmbeddedLocator. No external files are required.
func NewEmbeddedLocator() *EmbeddedLocator {
	return &EmbeddedLocator{}
}

// Lookup returns the country of ip. Private and unknown ranges yield ErrUnavailable.
func (l *EmbeddedLocator) Lookup(_ context.Context, ip string) (*Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("%w: invalid address %q", ErrUnavailable, ip)
	}

	country := iploc.Country(parsed)
	if country == "" {
		return nil, fmt.Errorf("%w: no country for %s", ErrUnavailable, ip)
	}
	return &Location{
		Country:     countryName(country),
		CountryCode: country,
	}, nil
}
