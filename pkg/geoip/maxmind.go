package geoip

import (
	"context"
	"fmt"
	"net"

	geoip2 "github.com/oschwald/geoip2-golang"
)

// MaxMindLocator resolves addresses with a GeoIP2/GeoLite2 City database.
type MaxMindLocator struct {
	reader *geoip2.Reader
}

// OpenMaxMind opens the MaxMind-compatible database at path.
func OpenMaxMind(path string) (*MaxMindLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %s: %w", path, err)
	}
	return &MaxMindLocator{reader: reader}, nil
}

// Lookup returns the city level location of ip.
func (l *MaxMindLocator) Lookup(_ context.Context, ip string) (*Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("%w: invalid address %q", ErrUnavailable, ip)
	}

	record, err := l.reader.City(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	loc := &Location{
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		ZipCode:     record.Postal.Code,
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
	}
	if loc.Country == "" && loc.CountryCode == "" {
		return nil, fmt.Errorf("%w: no record for %s", ErrUnavailable, ip)
	}
	return loc, nil
}

// Close releases the database.
func (l *MaxMindLocator) Close() error {
	return l.reader.Close()
}
