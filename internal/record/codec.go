package record

import (
	"strconv"
	"strings"
	"time"
)

// Header is the fixed 15-column header line written at the top of every
// workshop CSV file. Column order is load-bearing: other tools read these
// files by position.
const Header = "RETAIL,OE,CUSTOMER,SERIAL,DAY DUE,DATE DUE,STATUS,QTY,WHAT IS IT,PO,WHAT ARE WE DOING,PARTS,SHAFT,PRIORITY,LAST USER"

// DateLayout is the canonical on-disk date format.
const DateLayout = "02/01/2006"

// dateLayouts are the accepted input formats, tried in order. Older files
// were written by hand and are loose about zero-padding.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"2/01/2006",
	"02/1/2006",
}

// minColumns is the smallest row we accept. Legacy files predate the
// LAST USER column and carry 14 fields.
const minColumns = 14

// SplitLine splits a CSV line on commas, honoring double-quote-enclosed
// fields. A doubled quote inside a quoted field is a literal quote.
func SplitLine(line string) []string {
	if line == "" {
		return []string{""}
	}

	var (
		fields  []string
		current strings.Builder
		quoted  bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if quoted && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				quoted = !quoted
			}
		case c == ',' && !quoted:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}

	fields = append(fields, current.String())
	return fields
}

// ParseLine parses one CSV data line into a work order. The second return
// is false when the row is malformed (fewer than 14 fields) and should be
// skipped; malformed rows are never an error. Bad quantities default to 0
// and unparseable dates to nil, matching how the legacy files are read.
func ParseLine(line string) (*WorkOrder, bool) {
	parts := SplitLine(line)
	if len(parts) < minColumns {
		return nil, false
	}

	part := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	o := &WorkOrder{
		ID:             NewID(),
		Retail:         part(0),
		OE:             part(1),
		Customer:       part(2),
		Serial:         part(3),
		DayDue:         part(4),
		DateDue:        ParseDate(part(5)),
		Status:         part(6),
		Qty:            parseQty(part(7)),
		WhatIsIt:       part(8),
		PO:             part(9),
		WhatAreWeDoing: part(10),
		Parts:          part(11),
		Shaft:          part(12),
		Priority:       part(13),
		LastUser:       part(14),
	}

	// Derive DAY DUE from DATE DUE when the file left it blank.
	if strings.TrimSpace(o.DayDue) == "" && o.DateDue != nil {
		o.DayDue = DayShortName(*o.DateDue)
	}

	return o, true
}

// FormatLine serializes a work order as one CSV data line in the fixed
// 15-column order. Fields containing commas or quotes are quoted with
// internal quotes doubled.
func FormatLine(o *WorkOrder) string {
	fields := []string{
		escapeField(o.Retail),
		escapeField(o.OE),
		escapeField(o.Customer),
		escapeField(o.Serial),
		escapeField(o.DayDue),
		FormatDate(o.DateDue),
		escapeField(o.Status),
		strconv.Itoa(o.Qty),
		escapeField(o.WhatIsIt),
		escapeField(o.PO),
		escapeField(o.WhatAreWeDoing),
		escapeField(o.Parts),
		escapeField(o.Shaft),
		escapeField(o.Priority),
		escapeField(o.LastUser),
	}
	return strings.Join(fields, ",")
}

// ParseDate parses a due date against the accepted layouts, first success
// wins. Returns nil when nothing matches; a bad date is not an error.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := t.Truncate(24 * time.Hour)
			return &d
		}
	}
	return nil
}

// FormatDate renders a due date as dd/MM/yyyy, or "" when nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func parseQty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func escapeField(s string) string {
	if strings.ContainsAny(s, ",\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
