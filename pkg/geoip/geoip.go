// Package geoip provides IP geolocation lookups for visitor reports.
package geoip

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrUnavailable is returned when a location cannot be determined.
// Providers wrap their underlying cause with it.
var ErrUnavailable = errors.New("geolocation unavailable")

// Location represents a geographic location.
type Location struct {
	Country     string
	CountryCode string
	City        string
	Region      string
	ZipCode     string
}

// String formats the location as "Country City, Region  Zip", skipping empty parts.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(l.Country)
	if l.City != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(l.City)
	}
	if l.Region != "" {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(l.Region)
	}
	if l.ZipCode != "" {
		if b.Len() > 0 {
			b.WriteString("  ")
		}
		b.WriteString(l.ZipCode)
	}
	return b.String()
}

// Locator resolves an address to a Location.
type Locator interface {
	Lookup(ctx context.Context, ip string) (*Location, error)
}

// CachingLocator memoizes successful lookups of another Locator.
// Failures are not cached so a later report can retry them.
type CachingLocator struct {
	next  Locator
	cache sync.Map // map[string]*Location
}

// NewCachingLocator wraps next with a concurrent-safe cache.
func NewCachingLocator(next Locator) *CachingLocator {
	return &CachingLocator{next: next}
}

// Lookup returns the cached location for ip or asks the wrapped locator.
func (c *CachingLocator) Lookup(ctx context.Context, ip string) (*Location, error) {
	if cached, ok := c.cache.Load(ip); ok {
		return cached.(*Location), nil
	}
	loc, err := c.next.Lookup(ctx, ip)
	if err != nil {
		return nil, err
	}
	c.cache.Store(ip, loc)
	return loc, nil
}
