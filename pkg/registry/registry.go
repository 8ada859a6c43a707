// Package registry aggregates parsed access log visits by client address.
package registry

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/papaganelli/guestbook/pkg/parser"
)

// maxLineSize bounds a single log line read by IngestReader, newline included.
const maxLineSize = 1024 * 1024

// IngestStats reports how many lines were read and how many of them parsed.
type IngestStats struct {
	Seen   int
	Parsed int
}

// Skipped returns the number of lines that did not match the log format.
func (s IngestStats) Skipped() int {
	return s.Seen - s.Parsed
}

// Registry maps client addresses to their Visitor aggregate.
// It is not safe for concurrent mutation; once ingestion is finished it
// may be read from any number of goroutines.
type Registry struct {
	visitors map[string]*Visitor
	order    []string
	stats    IngestStats
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{visitors: make(map[string]*Visitor)}
}

// Add parses one raw line and folds it into the registry.
// It returns false when the line does not match and was skipped.
func (r *Registry) Add(line string) bool {
	_, ok := r.AddLine(line)
	return ok
}

// AddLine is Add but also returns the parsed visit.
func (r *Registry) AddLine(line string) (parser.Visit, bool) {
	r.stats.Seen++
	visit, ok := parser.Parse(line)
	if !ok {
		return parser.Visit{}, false
	}
	r.stats.Parsed++
	r.AddVisit(visit)
	return visit, true
}

// AddVisit records an already parsed visit. It does not touch the line counters.
func (r *Registry) AddVisit(visit parser.Visit) {
	v, ok := r.visitors[visit.Address()]
	if !ok {
		v = newVisitor(visit.Address())
		r.visitors[visit.Address()] = v
		r.order = append(r.order, visit.Address())
	}
	v.AddVisit(visit)
}

// IngestReader reads r line by line and adds every line.
// Lines longer than maxLineSize are counted as seen and skipped.
// The returned stats cover this call only. A read error stops ingestion and
// is returned together with whatever was ingested before it.
func (r *Registry) IngestReader(rd io.Reader) (IngestStats, error) {
	var stats IngestStats

	br := bufio.NewReaderSize(rd, 64*1024)
	line := make([]byte, 0, 64*1024)
	tooLong := false

	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxLineSize {
				tooLong = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}

		if tooLong || len(line) > 0 {
			stats.Seen++
			if tooLong {
				r.stats.Seen++
			} else if r.Add(trimEOL(line)) {
				stats.Parsed++
			}
		}
		line = line[:0]
		tooLong = false

		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
	}
}

func trimEOL(line []byte) string {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return string(bytes.TrimSuffix(line, []byte("\r")))
}

// IngestLines adds lines from the channel until it is closed or ctx is done.
func (r *Registry) IngestLines(ctx context.Context, lines <-chan string) IngestStats {
	var stats IngestStats
	for {
		select {
		case <-ctx.Done():
			return stats
		case line, ok := <-lines:
			if !ok {
				return stats
			}
			stats.Seen++
			if r.Add(line) {
				stats.Parsed++
			}
		}
	}
}

// Stats returns the cumulative line counters across all ingestion calls.
func (r *Registry) Stats() IngestStats {
	return r.stats
}

// Lookup returns the visitor for address.
func (r *Registry) Lookup(address string) (*Visitor, bool) {
	v, ok := r.visitors[address]
	return v, ok
}

// Visitors returns every visitor in the order its address was first seen.
func (r *Registry) Visitors() []*Visitor {
	visitors := make([]*Visitor, 0, len(r.order))
	for _, address := range r.order {
		visitors = append(visitors, r.visitors[address])
	}
	return visitors
}

// Len returns the number of distinct addresses.
func (r *Registry) Len() int {
	return len(r.order)
}

// TotalVisits returns the number of visits across all visitors.
func (r *Registry) TotalVisits() int {
	total := 0
	for _, v := range r.visitors {
		total += v.VisitCount()
	}
	return total
}
