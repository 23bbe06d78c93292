// Package record defines the work-order record and its CSV wire format.
//
// A record is one job in the workshop: what it is, who it belongs to, when
// it is due and where it sits in the Open/Closed lifecycle. Records live in
// flat CSV files shared between machines, so the package is deliberately
// tolerant when reading and strict when writing.
package record

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkOrder is one job row in the workshop CSV.
//
// The ID is in-memory only: the CSV format has no primary key column, so an
// identifier is assigned when a record is parsed or created. It survives
// edits and reorders within a session but is regenerated on every reload
// (a reload is a full snapshot replacement).
type WorkOrder struct {
	ID string

	Retail         string
	OE             string
	Customer       string
	Serial         string
	DayDue         string
	DateDue        *time.Time // date only, nil when not set
	Status         string
	Qty            int
	WhatIsIt       string
	PO             string
	WhatAreWeDoing string
	Parts          string
	Shaft          string
	Priority       string
	LastUser       string
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// New returns a blank work order with a fresh ID.
func New() *WorkOrder {
	return &WorkOrder{ID: NewID()}
}

// Clone returns a copy of the record, ID included. Callers that need a new
// identity (the copy-row operation) assign a fresh one afterwards.
func (o *WorkOrder) Clone() *WorkOrder {
	c := *o
	if o.DateDue != nil {
		d := *o.DateDue
		c.DateDue = &d
	}
	return &c
}

// IsClosingStatus reports whether status moves a record to the Closed
// partition. Matching is case-insensitive and ignores surrounding space.
func IsClosingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "picked up", "cancelled":
		return true
	}
	return false
}

// IsPaintShopStatus reports whether status puts a record in the
// paint-shop priority group, which sorts ahead of everything else in the
// Open partition.
func IsPaintShopStatus(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "paint shop")
}

// DayShortName returns the workshop's abbreviation for the weekday of t.
// Weekends have no abbreviation and return the empty string.
func DayShortName(t time.Time) string {
	switch t.Weekday() {
	case time.Monday:
		return "Mon"
	case time.Tuesday:
		return "Tues"
	case time.Wednesday:
		return "Wed"
	case time.Thursday:
		return "Thur"
	case time.Friday:
		return "Fri"
	default:
		return ""
	}
}

// Matches reports whether any field of the record contains query,
// case-insensitively. An empty query matches everything.
func (o *WorkOrder) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}

	contains := func(s string) bool {
		return s != "" && strings.Contains(strings.ToLower(s), query)
	}

	return contains(o.Retail) ||
		contains(o.OE) ||
		contains(o.Customer) ||
		contains(o.Serial) ||
		contains(o.DayDue) ||
		contains(FormatDate(o.DateDue)) ||
		contains(o.Status) ||
		strings.Contains(strconv.Itoa(o.Qty), query) ||
		contains(o.WhatIsIt) ||
		contains(o.PO) ||
		contains(o.WhatAreWeDoing) ||
		contains(o.Parts) ||
		contains(o.Shaft) ||
		contains(o.Priority) ||
		contains(o.LastUser)
}
