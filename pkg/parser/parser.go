// Package parser provides functionality to parse Apache combined access log entries.
package parser

import (
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is the layout of Visit timestamps, e.g. "10/Oct/2000 13:55:36".
const TimestampLayout = "02/Jan/2006 15:04:05"

// Visit represents a single parsed access log entry.
// A Visit is created by Parse and is never modified afterwards.
type Visit struct {
	address   string
	domain    string
	path      string
	timestamp string
	userAgent string
}

// NewVisit builds a Visit from already extracted fields.
func NewVisit(address, domain, path, timestamp, userAgent string) Visit {
	return Visit{
		address:   address,
		domain:    domain,
		path:      path,
		timestamp: timestamp,
		userAgent: userAgent,
	}
}

// Address returns the client address of the request.
func (v Visit) Address() string { return v.address }

// Domain returns the site context of the request.
// The combined format has no host field, so this is the quoted referrer slot.
func (v Visit) Domain() string { return v.domain }

// Path returns the requested URL path as it appeared in the request line.
func (v Visit) Path() string { return v.path }

// Timestamp returns the "DD/Mon/YYYY HH:MM:SS" request time, without timezone.
func (v Visit) Timestamp() string { return v.timestamp }

// UserAgent returns the raw user agent string.
func (v Visit) UserAgent() string { return v.userAgent }

// FullURL joins domain and path and collapses every "//" into "/".
func (v Visit) FullURL() string {
	return strings.ReplaceAll(v.domain+v.path, "//", "/")
}

// Time parses the timestamp. The timezone is not recorded, so the result is in UTC.
func (v Visit) Time() (time.Time, bool) {
	t, err := time.Parse(TimestampLayout, v.timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// combinedRegex matches the Apache combined log format.
// The path group is non-greedy so method and protocol anchor the request line.
var combinedRegex = regexp.MustCompile(`^(?P<ip>\S+) (?P<ident>\S+) (?P<user>\S+) \[(?P<day>[^:]+):(?P<clock>\d+:\d+:\d+) (?P<tz>[^\]]+)\] "(?P<method>\S+) (?P<path>.*?) (?P<proto>\S+)" (?P<status>\S+) (?P<bytes>\S+) "(?P<referer>[^"]*)" "(?P<agent>[^"]*)"`)

var (
	ipIndex      = combinedRegex.SubexpIndex("ip")
	dayIndex     = combinedRegex.SubexpIndex("day")
	clockIndex   = combinedRegex.SubexpIndex("clock")
	pathIndex    = combinedRegex.SubexpIndex("path")
	refererIndex = combinedRegex.SubexpIndex("referer")
	agentIndex   = combinedRegex.SubexpIndex("agent")
)

// Parse parses an Apache combined log format line into a Visit.
// It expects:
// <IP> <ident> <user> [<day>:<time> <tz>] "<method> <path> <proto>" <status> <bytes> "<referer>" "<agent>"
// The second return value is false if the line doesn't match the expected format.
func Parse(line string) (Visit, bool) {
	m := combinedRegex.FindStringSubmatch(line)
	if m == nil {
		return Visit{}, false
	}
	return Visit{
		address:   m[ipIndex],
		domain:    m[refererIndex],
		path:      m[pathIndex],
		timestamp: m[dayIndex] + " " + m[clockIndex],
		userAgent: m[agentIndex],
	}, true
}
