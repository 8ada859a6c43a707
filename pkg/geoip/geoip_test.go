package geoip

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type stubLocator struct {
	calls atomic.Int32
	loc   *Location
	err   error
}

func (s *stubLocator) Lookup(_ context.Context, _ string) (*Location, error) {
	s.calls.Add(1)
	return s.loc, s.err
}

func TestLocationString(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{"full", &Location{Country: "United States", City: "Mountain View", Region: "California", ZipCode: "94043"}, "United States Mountain View, California  94043"},
		{"country only", &Location{Country: "Germany", CountryCode: "DE"}, "Germany"},
		{"no city", &Location{Country: "France", Region: "Normandy"}, "France, Normandy"},
		{"empty", &Location{}, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCachingLocatorCachesSuccess(t *testing.T) {
	stub := &stubLocator{loc: &Location{Country: "Japan"}}
	c := NewCachingLocator(stub)

	for i := 0; i < 3; i++ {
		loc, err := c.Lookup(context.Background(), "1.1.1.1")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if loc.Country != "Japan" {
			t.Fatalf("Lookup() country = %s, want Japan", loc.Country)
		}
	}
	if got := stub.calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
}

func TestCachingLocatorDoesNotCacheFailure(t *testing.T) {
	stub := &stubLocator{err: ErrUnavailable}
	c := NewCachingLocator(stub)

	for i := 0; i < 2; i++ {
		if _, err := c.Lookup(context.Background(), "1.1.1.1"); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Lookup() error = %v, want ErrUnavailable", err)
		}
	}
	if got := stub.calls.Load(); got != 2 {
		t.Errorf("expected failures to be retried, got %d calls", got)
	}
}

func TestEmbeddedLookupInvalidIP(t *testing.T) {
	locator := NewEmbeddedLocator()

	tests := []struct {
		name string
		ip   string
	}{
		{"invalid format", "not-an-ip"},
		{"empty string", ""},
		{"partial IP", "192.168"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := locator.Lookup(context.Background(), tt.ip)
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("Lookup(%q) error = %v, want ErrUnavailable", tt.ip, err)
			}
			if loc != nil {
				t.Errorf("Lookup(%q) = %+v, want nil", tt.ip, loc)
			}
		})
	}
}

func TestEmbeddedLookupPublicIPs(t *testing.T) {
	locator := NewEmbeddedLocator()

	for _, ip := range []string{"8.8.8.8", "1.1.1.1", "2001:4860:4860::8888"} {
		t.Run(ip, func(t *testing.T) {
			loc, err := locator.Lookup(context.Background(), ip)
			if err != nil {
				// The embedded database may not cover every range
				t.Logf("Lookup(%s) error = %v", ip, err)
				return
			}
			if loc.CountryCode == "" {
				t.Errorf("Lookup(%s) returned empty country code", ip)
			}
		})
	}
}

func TestCountryName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"US", "United States"},
		{"DE", "Germany"},
		{"XX", "XX"},
		{"", ""},
		{"us", "us"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := countryName(tt.code); got != tt.want {
				t.Errorf("countryName(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestOpenMaxMindMissingFile(t *testing.T) {
	if _, err := OpenMaxMind("/nonexistent/GeoLite2-City.mmdb"); err == nil {
		t.Error("OpenMaxMind() should fail on a missing database")
	}
}
