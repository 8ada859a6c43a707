package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/papaganelli/guestbook/pkg/metrics"
	"github.com/papaganelli/guestbook/pkg/registry"
	"github.com/papaganelli/guestbook/pkg/report"
)

// NotFoundMessage is printed for per-address reports of unknown addresses.
const NotFoundMessage = "Could not find any records for this IP in the access log file"

// Printer renders report results as text.
type Printer struct {
	w       io.Writer
	heading lipgloss.Style
	address lipgloss.Style
	dim     lipgloss.Style
	count   lipgloss.Style
}

// NewPrinter creates a Printer writing to w. With color off no escape codes are emitted.
func NewPrinter(w io.Writer, color bool) *Printer {
	p := &Printer{
		w:       w,
		heading: lipgloss.NewStyle(),
		address: lipgloss.NewStyle(),
		dim:     lipgloss.NewStyle(),
		count:   lipgloss.NewStyle(),
	}
	if color {
		r := lipgloss.NewRenderer(w)
		p.heading = r.NewStyle().Bold(true).Foreground(lipgloss.Color("117"))
		p.address = r.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
		p.dim = r.NewStyle().Foreground(lipgloss.Color("241"))
		p.count = r.NewStyle().Foreground(lipgloss.Color("213"))
	}
	return p
}

func (p *Printer) table(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(p.w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// NotFound prints the message for an unknown address.
func (p *Printer) NotFound(address string) {
	fmt.Fprintln(p.w, p.dim.Render(NotFoundMessage)+" ("+address+")")
}

// Ranked prints visitors with their visit counts. geos is optional and,
// when present, must be index aligned with visitors.
func (p *Printer) Ranked(visitors []*registry.Visitor, geos []report.Geo) {
	fmt.Fprintln(p.w, p.heading.Render("Most frequent visitors"))
	if len(visitors) == 0 {
		fmt.Fprintln(p.w, p.dim.Render("no visitors above the cutoff"))
		return
	}

	header := []string{"Rank", "Address", "Visits"}
	if geos != nil {
		header = append(header, "Location")
	}
	table := p.table(header)
	for i, v := range visitors {
		row := []string{strconv.Itoa(i + 1), v.Address(), strconv.Itoa(v.VisitCount())}
		if geos != nil {
			row = append(row, geos[i].String())
		}
		table.Append(row)
	}
	table.Render()
}

// Pages prints the page breakdown of one address.
func (p *Printer) Pages(address string, pages map[string]int) {
	fmt.Fprintln(p.w, p.address.Render(address))
	for _, row := range report.SortedPages(pages) {
		fmt.Fprintf(p.w, "    %s: %s visits\n", row.URL, p.count.Render(strconv.Itoa(row.Count)))
	}
}

// PagesAll prints the page breakdown of every address.
func (p *Printer) PagesAll(all []report.AddressPages) {
	for _, entry := range all {
		p.Pages(entry.Address, entry.Pages)
	}
}

// Agents prints the user agents of one address.
func (p *Printer) Agents(address string, agents []string) {
	fmt.Fprintln(p.w, p.heading.Render("Known user agents for ")+p.address.Render(address))
	for _, agent := range agents {
		if agent == "" {
			agent = "(empty)"
		}
		fmt.Fprintf(p.w, "    %s\n", agent)
	}
}

// Location prints the enrichment line of one address.
func (p *Printer) Location(geo report.Geo) {
	fmt.Fprintln(p.w, p.dim.Render("Location: ")+geo.String())
}

// Timeline prints the visits of one address in log order.
func (p *Printer) Timeline(address string, entries []report.TimelineEntry) {
	fmt.Fprintln(p.w, p.heading.Render("Access times for ")+p.address.Render(address))
	for _, e := range entries {
		fmt.Fprintf(p.w, "%s: %s\n", p.dim.Render(e.Timestamp), e.URL)
	}
}

// Activity prints a bar per time bucket, scaled to the busiest one.
func (p *Printer) Activity(address string, h *metrics.Histogram) {
	fmt.Fprintln(p.w, p.heading.Render("Activity for ")+p.address.Render(address))
	peak, ok := h.Peak()
	if !ok {
		fmt.Fprintln(p.w, p.dim.Render("no visits with a readable timestamp"))
		return
	}
	for _, b := range h.Buckets() {
		fmt.Fprintf(p.w, "%s %s %s\n",
			p.dim.Render(b.Start.Format("2006-01-02 15:04")),
			createBar(b.Count, peak.Count, 30),
			p.count.Render(strconv.Itoa(b.Count)),
		)
	}
}

// Summary prints registry totals.
func (p *Printer) Summary(s report.Summary) {
	fmt.Fprintln(p.w, p.heading.Render("Summary"))
	table := p.table([]string{"Metric", "Value"})
	table.AppendBulk([][]string{
		{"Lines read", strconv.Itoa(s.LinesSeen)},
		{"Lines parsed", strconv.Itoa(s.LinesParsed)},
		{"Lines skipped", strconv.Itoa(s.LinesSeen - s.LinesParsed)},
		{"Visitors", strconv.Itoa(s.Visitors)},
		{"Visits", strconv.Itoa(s.Visits)},
		{"Distinct pages", strconv.Itoa(s.Pages)},
		{"Distinct user agents", strconv.Itoa(s.UserAgents)},
	})
	table.Render()
}

// createBar draws value relative to peak using width cells.
func createBar(value, peak, width int) string {
	if peak <= 0 || value < 0 {
		return strings.Repeat("░", width)
	}
	filled := value * width / peak
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
