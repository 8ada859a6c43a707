// Package report answers read-only queries over a populated visitor registry.
package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/papaganelli/guestbook/pkg/geoip"
	"github.com/papaganelli/guestbook/pkg/metrics"
	"github.com/papaganelli/guestbook/pkg/registry"
)

// ErrAddressNotFound is returned by per-address queries for unknown addresses.
var ErrAddressNotFound = errors.New("no records for address")

const (
	defaultLookupTimeout = 5 * time.Second
	defaultConcurrency   = 4
)

// Engine runs queries against a Registry. It holds no state besides the
// registry and its enrichment settings, so every call is independent.
type Engine struct {
	reg           *registry.Registry
	locator       geoip.Locator
	lookupTimeout time.Duration
	concurrency   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocator enables geolocation enrichment.
func WithLocator(l geoip.Locator) Option {
	return func(e *Engine) {
		e.locator = l
	}
}

// WithLookupTimeout bounds each geolocation lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lookupTimeout = d
		}
	}
}

// WithConcurrency sets how many lookups LocateAll runs at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// New creates an Engine over reg.
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:           reg,
		lookupTimeout: defaultLookupTimeout,
		concurrency:   defaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddressPages is the page breakdown of one address.
type AddressPages struct {
	Address string
	Pages   map[string]int
}

// PageCount is one row of a sorted page breakdown.
type PageCount struct {
	URL   string
	Count int
}

// TimelineEntry is one visit of an address.
type TimelineEntry struct {
	Timestamp string
	URL       string
}

// Summary describes the whole registry.
type Summary struct {
	Visitors    int
	Visits      int
	Pages       int
	UserAgents  int
	LinesSeen   int
	LinesParsed int
}

// RankedByVisitCount returns visitors sorted by visit count, highest first.
// Visitors with fewer than cutoff visits are left out; cutoff <= 0 keeps all.
// Equal counts are ordered by ascending address.
func (e *Engine) RankedByVisitCount(cutoff int) []*registry.Visitor {
	var ranked []*registry.Visitor
	for _, v := range e.reg.Visitors() {
		if cutoff > 0 && v.VisitCount() < cutoff {
			continue
		}
		ranked = append(ranked, v)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].VisitCount() != ranked[j].VisitCount() {
			return ranked[i].VisitCount() > ranked[j].VisitCount()
		}
		return ranked[i].Address() < ranked[j].Address()
	})
	return ranked
}

func (e *Engine) visitor(address string) (*registry.Visitor, error) {
	v, ok := e.reg.Lookup(address)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAddressNotFound, address)
	}
	return v, nil
}

// PageBreakdown returns full URL hit counts for address.
func (e *Engine) PageBreakdown(address string) (map[string]int, error) {
	v, err := e.visitor(address)
	if err != nil {
		return nil, err
	}
	return v.Pages(), nil
}

// PageBreakdownAll returns the page breakdown of every address in first-seen order.
func (e *Engine) PageBreakdownAll() []AddressPages {
	visitors := e.reg.Visitors()
	all := make([]AddressPages, 0, len(visitors))
	for _, v := range visitors {
		all = append(all, AddressPages{Address: v.Address(), Pages: v.Pages()})
	}
	return all
}

// UserAgents returns the distinct user agents of address in first-seen order.
func (e *Engine) UserAgents(address string) ([]string, error) {
	v, err := e.visitor(address)
	if err != nil {
		return nil, err
	}
	return v.UserAgents(), nil
}

// VisitTimeline returns every visit of address in log order.
func (e *Engine) VisitTimeline(address string) ([]TimelineEntry, error) {
	v, err := e.visitor(address)
	if err != nil {
		return nil, err
	}
	visits := v.Visits()
	timeline := make([]TimelineEntry, 0, len(visits))
	for _, visit := range visits {
		timeline = append(timeline, TimelineEntry{Timestamp: visit.Timestamp(), URL: visit.FullURL()})
	}
	return timeline, nil
}

// Activity buckets the visits of address by time. Visits with an
// unparseable timestamp are not counted.
func (e *Engine) Activity(address string, bucket time.Duration) (*metrics.Histogram, error) {
	v, err := e.visitor(address)
	if err != nil {
		return nil, err
	}
	h := metrics.NewHistogram(bucket)
	for _, visit := range v.Visits() {
		if t, ok := visit.Time(); ok {
			h.Record(t)
		}
	}
	return h, nil
}

// Summary returns registry wide totals.
func (e *Engine) Summary() Summary {
	pages := make(map[string]struct{})
	agents := make(map[string]struct{})
	s := Summary{
		Visitors:    e.reg.Len(),
		Visits:      e.reg.TotalVisits(),
		LinesSeen:   e.reg.Stats().Seen,
		LinesParsed: e.reg.Stats().Parsed,
	}
	for _, v := range e.reg.Visitors() {
		for url := range v.Pages() {
			pages[url] = struct{}{}
		}
		for _, agent := range v.UserAgents() {
			agents[agent] = struct{}{}
		}
	}
	s.Pages = len(pages)
	s.UserAgents = len(agents)
	return s
}

// SortedPages orders a page breakdown by hit count, then URL.
func SortedPages(pages map[string]int) []PageCount {
	rows := make([]PageCount, 0, len(pages))
	for url, count := range pages {
		rows = append(rows, PageCount{URL: url, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].URL < rows[j].URL
	})
	return rows
}
