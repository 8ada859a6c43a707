package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/papaganelli/guestbook/pkg/geoip"
	"github.com/papaganelli/guestbook/pkg/registry"
)

type fakeLocator struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
	delay    time.Duration
	fail     map[string]bool
}

func (f *fakeLocator) Lookup(ctx context.Context, ip string) (*geoip.Location, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.fail[ip] {
		return nil, geoip.ErrUnavailable
	}
	return &geoip.Location{Country: "Country of " + ip}, nil
}

func TestLocateWithoutLocator(t *testing.T) {
	e := New(registry.New())
	if e.Enabled() {
		t.Fatal("Enabled() should be false without a locator")
	}
	geo := e.Locate(context.Background(), "1.2.3.4")
	if !errors.Is(geo.Err, ErrNoLocator) {
		t.Errorf("Locate() error = %v, want ErrNoLocator", geo.Err)
	}
	if geo.String() != UnavailablePlaceholder {
		t.Errorf("String() = %q, want placeholder", geo.String())
	}
}

func TestLocateFailureDegrades(t *testing.T) {
	e := New(registry.New(), WithLocator(&fakeLocator{fail: map[string]bool{"1.2.3.4": true}}))
	geo := e.Locate(context.Background(), "1.2.3.4")
	if geo.OK() {
		t.Fatal("expected lookup failure")
	}
	if !errors.Is(geo.Err, geoip.ErrUnavailable) {
		t.Errorf("Locate() error = %v, want ErrUnavailable", geo.Err)
	}
	if geo.String() != UnavailablePlaceholder {
		t.Errorf("String() = %q, want placeholder", geo.String())
	}
}

func TestLocateTimeout(t *testing.T) {
	e := New(registry.New(),
		WithLocator(&fakeLocator{delay: time.Second}),
		WithLookupTimeout(20*time.Millisecond),
	)
	start := time.Now()
	geo := e.Locate(context.Background(), "1.2.3.4")
	if geo.OK() {
		t.Fatal("expected timeout to be a failure")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Locate() did not honour the lookup timeout")
	}
}

func TestLocateAll(t *testing.T) {
	loc := &fakeLocator{delay: 10 * time.Millisecond, fail: map[string]bool{"3.3.3.3": true}}
	e := New(registry.New(), WithLocator(loc), WithConcurrency(2))

	addrs := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "4.4.4.4", "5.5.5.5"}
	results := e.LocateAll(context.Background(), addrs)

	if len(results) != len(addrs) {
		t.Fatalf("LocateAll() returned %d results, want %d", len(results), len(addrs))
	}
	for i, geo := range results {
		if geo.Address != addrs[i] {
			t.Errorf("result %d address = %s, want %s", i, geo.Address, addrs[i])
		}
		if addrs[i] == "3.3.3.3" {
			if geo.OK() {
				t.Errorf("expected %s to fail", addrs[i])
			}
			continue
		}
		if geo.String() != "Country of "+addrs[i] {
			t.Errorf("result %d = %q", i, geo.String())
		}
	}
	if loc.maxSeen > 2 {
		t.Errorf("saw %d concurrent lookups, limit is 2", loc.maxSeen)
	}
}
