// Package view computes the derived presentation state of a branch: which
// partition each record belongs to and the arranged, divider-interleaved
// order each partition is displayed (and persisted) in. Everything here is
// a pure function of the record set; no state is stored between calls.
package view

import (
	"sort"
	"time"

	"github.com/isaacbax/workshoptracker/internal/record"
)

// Entry is one row of an arranged partition: either a real work order or a
// synthetic date divider. Dividers exist only in arranged output; they are
// never persisted, counted or migrated.
type Entry interface {
	isEntry()
}

// RecordEntry wraps a real work order.
type RecordEntry struct {
	Order *record.WorkOrder
}

// DividerEntry is a synthetic grouping row announcing the due date of the
// records that follow it.
type DividerEntry struct {
	Date    time.Time
	Caption string
}

func (RecordEntry) isEntry()  {}
func (DividerEntry) isEntry() {}

// ArrangeOpen computes the display order of the Open partition:
// paint-shop records first, then everything else, each group sorted by due
// date ascending with undated records last, and one divider per run of
// equal dates. Undated records never emit a divider.
func ArrangeOpen(orders []*record.WorkOrder) []Entry {
	var paint, other []*record.WorkOrder
	for _, o := range orders {
		if record.IsPaintShopStatus(o.Status) {
			paint = append(paint, o)
		} else {
			other = append(other, o)
		}
	}

	sortByDue(paint)
	sortByDue(other)

	ordered := make([]*record.WorkOrder, 0, len(orders))
	ordered = append(ordered, paint...)
	ordered = append(ordered, other...)

	return withDividers(ordered)
}

// ArrangeClosed computes the display order of the Closed partition: the
// same date-ascending, undated-last sort and divider rule as Open, without
// the paint-shop carve-out.
func ArrangeClosed(orders []*record.WorkOrder) []Entry {
	ordered := make([]*record.WorkOrder, len(orders))
	copy(ordered, orders)
	sortByDue(ordered)
	return withDividers(ordered)
}

// Records strips dividers from an arranged sequence, yielding the order
// records are persisted in.
func Records(entries []Entry) []*record.WorkOrder {
	var orders []*record.WorkOrder
	for _, e := range entries {
		if re, ok := e.(RecordEntry); ok {
			orders = append(orders, re.Order)
		}
	}
	return orders
}

// sortByDue sorts by due date ascending, undated records after all dated
// ones. The sort is stable so same-date records keep their relative order,
// which is what lets a manual reorder within a date group stick.
func sortByDue(orders []*record.WorkOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i].DateDue, orders[j].DateDue
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// withDividers walks an ordered sequence and inserts a divider whenever
// the due date differs from the previous divider's date. Undated records
// never trigger one, even at the head of the sequence.
func withDividers(ordered []*record.WorkOrder) []Entry {
	entries := make([]Entry, 0, len(ordered))
	var current *time.Time

	for _, o := range ordered {
		if o.DateDue != nil && (current == nil || !o.DateDue.Equal(*current)) {
			d := *o.DateDue
			current = &d
			entries = append(entries, DividerEntry{
				Date:    d,
				Caption: record.FormatDate(&d),
			})
		}
		entries = append(entries, RecordEntry{Order: o})
	}

	return entries
}
