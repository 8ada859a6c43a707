package registry

import "github.com/papaganelli/guestbook/pkg/parser"

// Visitor aggregates every visit seen from one address.
type Visitor struct {
	address    string
	visits     []parser.Visit
	pages      map[string]int
	agents     []string
	seenAgents map[string]struct{}
}

func newVisitor(address string) *Visitor {
	return &Visitor{
		address:    address,
		pages:      make(map[string]int),
		seenAgents: make(map[string]struct{}),
	}
}

// AddVisit appends a visit and updates the page and agent statistics.
func (v *Visitor) AddVisit(visit parser.Visit) {
	v.visits = append(v.visits, visit)
	v.pages[visit.FullURL()]++

	agent := visit.UserAgent()
	if _, ok := v.seenAgents[agent]; !ok {
		v.seenAgents[agent] = struct{}{}
		v.agents = append(v.agents, agent)
	}
}

// Address returns the address that identifies this visitor.
func (v *Visitor) Address() string {
	return v.address
}

// VisitCount returns the number of visits recorded.
func (v *Visitor) VisitCount() int {
	return len(v.visits)
}

// Visits returns the visits in log order. The slice must not be modified.
func (v *Visitor) Visits() []parser.Visit {
	return v.visits
}

// Pages returns a copy of the full URL hit counts.
func (v *Visitor) Pages() map[string]int {
	pages := make(map[string]int, len(v.pages))
	for url, hits := range v.pages {
		pages[url] = hits
	}
	return pages
}

// UserAgents returns the distinct user agents in first-seen order.
func (v *Visitor) UserAgents() []string {
	return append([]string(nil), v.agents...)
}
