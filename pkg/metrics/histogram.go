// Package metrics provides bucketed request counting over visit timestamps.
package metrics

import (
	"sort"
	"time"
)

// Bucket is the number of requests whose time falls in [Start, Start+size).
type Bucket struct {
	Start time.Time
	Count int
}

// Histogram counts requests per fixed-size time bucket.
// Unlike a live rate window it keeps every bucket it has seen, so it can
// describe a whole log file rather than the last few minutes.
type Histogram struct {
	bucketSize time.Duration
	counts     map[time.Time]int
}

// NewHistogram creates a new Histogram.
// bucketSize: duration of each bucket (e.g. time.Hour); values <= 0 fall back to one hour.
func NewHistogram(bucketSize time.Duration) *Histogram {
	if bucketSize <= 0 {
		bucketSize = time.Hour
	}
	return &Histogram{
		bucketSize: bucketSize,
		counts:     make(map[time.Time]int),
	}
}

// Record records a single request at the given time.
func (h *Histogram) Record(t time.Time) {
	h.counts[t.Truncate(h.bucketSize)]++
}

// Buckets returns the non-empty buckets in chronological order.
func (h *Histogram) Buckets() []Bucket {
	buckets := make([]Bucket, 0, len(h.counts))
	for start, count := range h.counts {
		buckets = append(buckets, Bucket{Start: start, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
	return buckets
}

// Peak returns the busiest bucket. The earliest one wins a tie.
// ok is false when nothing was recorded.
func (h *Histogram) Peak() (peak Bucket, ok bool) {
	for _, b := range h.Buckets() {
		if b.Count > peak.Count {
			peak = b
			ok = true
		}
	}
	return peak, ok
}
