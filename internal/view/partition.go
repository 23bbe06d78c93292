package view

import "github.com/isaacbax/workshoptracker/internal/record"

// Normalize moves every misfiled record to the partition its status
// demands: closing statuses belong in Closed, everything else in Open.
// It runs after local status edits and after every reload, since another
// process may have moved a record across the boundary by editing the
// files directly. Movers are appended to the end of the receiving
// partition; arrangement re-sorts them afterwards.
func Normalize(open, closed []*record.WorkOrder) (openOut, closedOut []*record.WorkOrder) {
	for _, o := range open {
		if record.IsClosingStatus(o.Status) {
			closedOut = append(closedOut, o)
		} else {
			openOut = append(openOut, o)
		}
	}
	var stay []*record.WorkOrder
	for _, o := range closed {
		if record.IsClosingStatus(o.Status) {
			stay = append(stay, o)
		} else {
			openOut = append(openOut, o)
		}
	}
	closedOut = append(stay, closedOut...)
	return openOut, closedOut
}

// ApplyStatus sets the record's status and migrates it between partitions
// when the change crosses the closing boundary. A status change that does
// not cross the boundary leaves both partitions untouched apart from the
// field itself.
func ApplyStatus(o *record.WorkOrder, newStatus string, open, closed []*record.WorkOrder) (openOut, closedOut []*record.WorkOrder) {
	o.Status = newStatus
	return Normalize(open, closed)
}
