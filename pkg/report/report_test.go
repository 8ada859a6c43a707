package report

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/papaganelli/guestbook/pkg/registry"
)

func logLine(ip, clock, path, agent string) string {
	return fmt.Sprintf(`%s - - [12/Mar/2024:%s +0100] "GET %s HTTP/1.1" 200 128 "example.com" "%s"`, ip, clock, path, agent)
}

func newRegistry(t *testing.T, lines ...string) *registry.Registry {
	t.Helper()
	r := registry.New()
	if _, err := r.IngestReader(strings.NewReader(strings.Join(lines, "\n"))); err != nil {
		t.Fatalf("IngestReader() error = %v", err)
	}
	return r
}

func addresses(visitors []*registry.Visitor) []string {
	out := make([]string, 0, len(visitors))
	for _, v := range visitors {
		out = append(out, v.Address())
	}
	return out
}

func TestEndToEnd(t *testing.T) {
	r := newRegistry(t,
		logLine("1.2.3.4", "10:00:00", "/a", "curl"),
		logLine("1.2.3.4", "10:00:05", "/b", "curl"),
		logLine("5.6.7.8", "10:01:00", "/a", "firefox"),
	)
	e := New(r)

	ranked := e.RankedByVisitCount(0)
	if got := addresses(ranked); !reflect.DeepEqual(got, []string{"1.2.3.4", "5.6.7.8"}) {
		t.Fatalf("RankedByVisitCount(0) = %v", got)
	}
	if ranked[0].VisitCount() != 2 || ranked[1].VisitCount() != 1 {
		t.Errorf("unexpected counts %d, %d", ranked[0].VisitCount(), ranked[1].VisitCount())
	}

	pages, err := e.PageBreakdown("1.2.3.4")
	if err != nil {
		t.Fatalf("PageBreakdown() error = %v", err)
	}
	want := map[string]int{"example.com/a": 1, "example.com/b": 1}
	if !reflect.DeepEqual(pages, want) {
		t.Errorf("PageBreakdown() = %v, want %v", pages, want)
	}
}

func TestRankedByVisitCountCutoff(t *testing.T) {
	r := newRegistry(t,
		logLine("10.0.0.1", "10:00:00", "/", "a"),
		logLine("10.0.0.2", "10:00:00", "/", "a"),
		logLine("10.0.0.2", "10:00:01", "/", "a"),
		logLine("10.0.0.3", "10:00:00", "/", "a"),
		logLine("10.0.0.3", "10:00:01", "/", "a"),
		logLine("10.0.0.3", "10:00:02", "/", "a"),
	)
	e := New(r)

	tests := []struct {
		name   string
		cutoff int
		want   []string
	}{
		{"no cutoff", 0, []string{"10.0.0.3", "10.0.0.2", "10.0.0.1"}},
		{"negative cutoff", -1, []string{"10.0.0.3", "10.0.0.2", "10.0.0.1"}},
		{"cutoff 2", 2, []string{"10.0.0.3", "10.0.0.2"}},
		{"cutoff 3", 3, []string{"10.0.0.3"}},
		{"cutoff above all", 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := e.RankedByVisitCount(tt.cutoff)
			got := addresses(ranked)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RankedByVisitCount(%d) = %v, want %v", tt.cutoff, got, tt.want)
			}
			for _, v := range ranked {
				if tt.cutoff > 0 && v.VisitCount() < tt.cutoff {
					t.Errorf("%s has %d visits, below cutoff %d", v.Address(), v.VisitCount(), tt.cutoff)
				}
			}
		})
	}
}

func TestRankedTiesByAddress(t *testing.T) {
	r := newRegistry(t,
		logLine("9.9.9.9", "10:00:00", "/", "a"),
		logLine("1.1.1.1", "10:00:00", "/", "a"),
		logLine("5.5.5.5", "10:00:00", "/", "a"),
	)
	got := addresses(New(r).RankedByVisitCount(0))
	want := []string{"1.1.1.1", "5.5.5.5", "9.9.9.9"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RankedByVisitCount(0) = %v, want %v", got, want)
	}
}

func TestNotFound(t *testing.T) {
	e := New(newRegistry(t, logLine("1.2.3.4", "10:00:00", "/", "a")))

	if _, err := e.PageBreakdown("9.9.9.9"); !errors.Is(err, ErrAddressNotFound) {
		t.Errorf("PageBreakdown() error = %v, want ErrAddressNotFound", err)
	}
	if _, err := e.UserAgents("9.9.9.9"); !errors.Is(err, ErrAddressNotFound) {
		t.Errorf("UserAgents() error = %v, want ErrAddressNotFound", err)
	}
	if _, err := e.VisitTimeline("9.9.9.9"); !errors.Is(err, ErrAddressNotFound) {
		t.Errorf("VisitTimeline() error = %v, want ErrAddressNotFound", err)
	}
	if _, err := e.Activity("9.9.9.9", time.Hour); !errors.Is(err, ErrAddressNotFound) {
		t.Errorf("Activity() error = %v, want ErrAddressNotFound", err)
	}
}

func TestPageBreakdownAll(t *testing.T) {
	r := newRegistry(t,
		logLine("5.6.7.8", "10:00:00", "/x", "a"),
		logLine("1.2.3.4", "10:00:00", "/y", "a"),
		logLine("5.6.7.8", "10:00:01", "/x", "a"),
	)
	all := New(r).PageBreakdownAll()
	if len(all) != 2 {
		t.Fatalf("PageBreakdownAll() returned %d entries, want 2", len(all))
	}
	if all[0].Address != "5.6.7.8" || all[0].Pages["example.com/x"] != 2 {
		t.Errorf("unexpected first entry %+v", all[0])
	}
	if all[1].Address != "1.2.3.4" || all[1].Pages["example.com/y"] != 1 {
		t.Errorf("unexpected second entry %+v", all[1])
	}
}

func TestUserAgents(t *testing.T) {
	r := newRegistry(t,
		logLine("1.2.3.4", "10:00:00", "/", "curl/8.0"),
		logLine("1.2.3.4", "10:00:01", "/", "Mozilla/5.0 (X11; Linux x86_64)"),
		logLine("1.2.3.4", "10:00:02", "/", "curl/8.0"),
	)
	agents, err := New(r).UserAgents("1.2.3.4")
	if err != nil {
		t.Fatalf("UserAgents() error = %v", err)
	}
	want := []string{"curl/8.0", "Mozilla/5.0 (X11; Linux x86_64)"}
	if !reflect.DeepEqual(agents, want) {
		t.Errorf("UserAgents() = %v, want %v", agents, want)
	}
}

func TestVisitTimeline(t *testing.T) {
	r := newRegistry(t,
		logLine("1.2.3.4", "10:00:00", "/first", "a"),
		logLine("5.6.7.8", "10:00:01", "/other", "a"),
		logLine("1.2.3.4", "09:00:00", "//second", "a"),
	)
	timeline, err := New(r).VisitTimeline("1.2.3.4")
	if err != nil {
		t.Fatalf("VisitTimeline() error = %v", err)
	}
	want := []TimelineEntry{
		{Timestamp: "12/Mar/2024 10:00:00", URL: "example.com/first"},
		{Timestamp: "12/Mar/2024 09:00:00", URL: "example.com/second"},
	}
	if !reflect.DeepEqual(timeline, want) {
		t.Errorf("VisitTimeline() = %+v, want %+v", timeline, want)
	}
}

func TestActivity(t *testing.T) {
	r := newRegistry(t,
		logLine("1.2.3.4", "10:05:00", "/", "a"),
		logLine("1.2.3.4", "10:55:00", "/", "a"),
		logLine("1.2.3.4", "12:00:00", "/", "a"),
	)
	h, err := New(r).Activity("1.2.3.4", time.Hour)
	if err != nil {
		t.Fatalf("Activity() error = %v", err)
	}
	buckets := h.Buckets()
	if len(buckets) != 2 {
		t.Fatalf("Activity() returned %d buckets, want 2", len(buckets))
	}
	if buckets[0].Count != 2 || buckets[0].Start.Hour() != 10 {
		t.Errorf("unexpected first bucket %+v", buckets[0])
	}
	if buckets[1].Count != 1 || buckets[1].Start.Hour() != 12 {
		t.Errorf("unexpected second bucket %+v", buckets[1])
	}
	if peak, ok := h.Peak(); !ok || peak.Count != 2 {
		t.Errorf("Peak() = %+v, %v, want the 10:00 bucket", peak, ok)
	}
}

func TestSummary(t *testing.T) {
	r := newRegistry(t,
		logLine("1.2.3.4", "10:00:00", "/a", "curl"),
		"garbage",
		logLine("1.2.3.4", "10:00:01", "/b", "curl"),
		logLine("5.6.7.8", "10:00:02", "/a", "firefox"),
	)
	got := New(r).Summary()
	want := Summary{Visitors: 2, Visits: 3, Pages: 2, UserAgents: 2, LinesSeen: 4, LinesParsed: 3}
	if got != want {
		t.Errorf("Summary() = %+v, want %+v", got, want)
	}
}

func TestSortedPages(t *testing.T) {
	rows := SortedPages(map[string]int{"b": 2, "a": 2, "c": 5, "d": 1})
	want := []PageCount{{"c", 5}, {"a", 2}, {"b", 2}, {"d", 1}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("SortedPages() = %v, want %v", rows, want)
	}
}
