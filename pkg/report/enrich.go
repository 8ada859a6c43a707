package report

import (
	"context"
	"errors"
	"sync"

	"github.com/papaganelli/guestbook/pkg/geoip"
)

// ErrNoLocator is set on Geo results when enrichment is not configured.
var ErrNoLocator = errors.New("geolocation disabled")

// UnavailablePlaceholder is shown in place of a location that could not be resolved.
const UnavailablePlaceholder = "location unavailable"

// Geo is the enrichment result for one address.
type Geo struct {
	Address  string
	Location *geoip.Location
	Err      error
}

// OK reports whether a location was resolved.
func (g Geo) OK() bool {
	return g.Err == nil && g.Location != nil
}

// String returns the formatted location or UnavailablePlaceholder.
func (g Geo) String() string {
	if !g.OK() {
		return UnavailablePlaceholder
	}
	return g.Location.String()
}

// Enabled reports whether the engine has a locator.
func (e *Engine) Enabled() bool {
	return e.locator != nil
}

// Locate resolves address with the configured locator. It never fails:
// errors and timeouts end up in Geo.Err.
func (e *Engine) Locate(ctx context.Context, address string) Geo {
	geo := Geo{Address: address}
	if e.locator == nil {
		geo.Err = ErrNoLocator
		return geo
	}

	ctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	loc, err := e.locator.Lookup(ctx, address)
	if err == nil && loc == nil {
		err = geoip.ErrUnavailable
	}
	if err != nil {
		geo.Err = err
		return geo
	}
	geo.Location = loc
	return geo
}

// LocateAll resolves addresses concurrently. Results keep the input order.
func (e *Engine) LocateAll(ctx context.Context, addresses []string) []Geo {
	results := make([]Geo, len(addresses))
	sem := make(chan struct{}, e.concurrency)

	var wg sync.WaitGroup
	for i, address := range addresses {
		wg.Add(1)
		go func(i int, address string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.Locate(ctx, address)
		}(i, address)
	}
	wg.Wait()
	return results
}
