package record

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// ignoreID compares records by content; IDs are fresh on every parse.
var ignoreID = cmpopts.IgnoreFields(WorkOrder{}, "ID")

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"empty line", "", []string{""}},
		{"empty fields", ",,", []string{"", "", ""}},
		{"quoted comma", `a,"b,c",d`, []string{"a", "b,c", "d"}},
		{"escaped quote", `a,"say ""hi""",b`, []string{"a", `say "hi"`, "b"}},
		{"quote opens mid-field", `a"b,c`, []string{"ab,c"}},
		{"unterminated quote", `a,"b,c`, []string{"a", "b,c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitLine(tt.line)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SplitLine(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestParseLine_FifteenColumns(t *testing.T) {
	line := "R1,O1,Smith,SN9,Mon,01/01/2024,Open,3,Door,PO7,Respray,Yes,No,High,alice"
	got, ok := ParseLine(line)
	if !ok {
		t.Fatalf("ParseLine(%q) skipped a valid row", line)
	}

	want := &WorkOrder{
		Retail: "R1", OE: "O1", Customer: "Smith", Serial: "SN9",
		DayDue: "Mon", DateDue: date(2024, time.January, 1),
		Status: "Open", Qty: 3, WhatIsIt: "Door", PO: "PO7",
		WhatAreWeDoing: "Respray", Parts: "Yes", Shaft: "No",
		Priority: "High", LastUser: "alice",
	}
	if diff := cmp.Diff(want, got, ignoreID); diff != "" {
		t.Errorf("ParseLine mismatch (-want +got):\n%s", diff)
	}
	if got.ID == "" {
		t.Error("ParseLine should assign an ID")
	}
}

func TestParseLine_LegacyFourteenColumns(t *testing.T) {
	line := "R1,O1,Smith,SN9,Mon,01/01/2024,Open,3,Door,PO7,Respray,Yes,No,High"
	got, ok := ParseLine(line)
	if !ok {
		t.Fatalf("legacy 14-column row should parse")
	}
	if got.LastUser != "" {
		t.Errorf("LastUser = %q, want empty for legacy rows", got.LastUser)
	}
	if got.Priority != "High" {
		t.Errorf("Priority = %q, want High", got.Priority)
	}
}

func TestParseLine_TooFewColumns(t *testing.T) {
	if _, ok := ParseLine("a,b,c"); ok {
		t.Error("rows with fewer than 14 fields should be skipped")
	}
}

func TestParseLine_BadQtyDefaultsToZero(t *testing.T) {
	for _, qty := range []string{"", "abc", "3.5", "-2"} {
		line := fmt.Sprintf("R,O,C,S,Mon,01/01/2024,Open,%s,W,P,D,Pa,Sh,Pr,u", qty)
		got, ok := ParseLine(line)
		if !ok {
			t.Fatalf("row with qty %q should still parse", qty)
		}
		if got.Qty != 0 {
			t.Errorf("Qty(%q) = %d, want 0", qty, got.Qty)
		}
	}
}

func TestParseDate_AcceptedFormats(t *testing.T) {
	want := date(2024, time.March, 5)
	for _, s := range []string{"05/03/2024", "5/3/2024", "5/03/2024", "05/3/2024"} {
		got := ParseDate(s)
		if got == nil || !got.Equal(*want) {
			t.Errorf("ParseDate(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestParseDate_BadInputIsNil(t *testing.T) {
	for _, s := range []string{"", "not a date", "2024-03-05", "32/01/2024"} {
		if got := ParseDate(s); got != nil {
			t.Errorf("ParseDate(%q) = %v, want nil", s, got)
		}
	}
}

func TestParseLine_DerivesDayDue(t *testing.T) {
	// 01/01/2024 is a Monday.
	tests := []struct {
		date string
		want string
	}{
		{"01/01/2024", "Mon"},
		{"02/01/2024", "Tues"},
		{"03/01/2024", "Wed"},
		{"04/01/2024", "Thur"},
		{"05/01/2024", "Fri"},
		{"06/01/2024", ""}, // Saturday
		{"07/01/2024", ""}, // Sunday
	}
	for _, tt := range tests {
		line := fmt.Sprintf("R,O,C,S,,%s,Open,1,W,P,D,Pa,Sh,Pr,u", tt.date)
		got, ok := ParseLine(line)
		if !ok {
			t.Fatalf("row should parse")
		}
		if got.DayDue != tt.want {
			t.Errorf("DayDue for %s = %q, want %q", tt.date, got.DayDue, tt.want)
		}
	}
}

func TestParseLine_KeepsExplicitDayDue(t *testing.T) {
	line := "R,O,C,S,Weds?,01/01/2024,Open,1,W,P,D,Pa,Sh,Pr,u"
	got, _ := ParseLine(line)
	if got.DayDue != "Weds?" {
		t.Errorf("DayDue = %q, want the file's own value kept", got.DayDue)
	}
}

func TestFormatLine_QuotesCommasAndQuotes(t *testing.T) {
	o := &WorkOrder{
		Customer: `Smith, "Jim"`,
		Status:   "Open",
		Qty:      2,
	}
	line := FormatLine(o)
	if !strings.Contains(line, `"Smith, ""Jim"""`) {
		t.Errorf("FormatLine did not quote the customer field: %s", line)
	}
}

func TestFormatLine_DividerCannotExist(t *testing.T) {
	// Dividers live in the view layer as a separate type; nothing of
	// divider shape can reach FormatLine. This test just pins the header
	// column count against the serialized field count.
	o := &WorkOrder{}
	if got, want := len(SplitLine(FormatLine(o))), len(strings.Split(Header, ",")); got != want {
		t.Errorf("serialized field count %d != header column count %d", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	records := []*WorkOrder{
		{
			Retail: "R1", OE: "OE,2", Customer: `A "B" C`, Serial: "SN",
			DayDue: "Fri", DateDue: date(2024, time.June, 7),
			Status: "Paint Shop", Qty: 12, WhatIsIt: "Gate, steel",
			PO: "PO-1", WhatAreWeDoing: `Respray "full"`, Parts: "ordered",
			Shaft: "n/a", Priority: "urgent", LastUser: "bob",
		},
		{}, // all zero values
		{Customer: "no due date", Status: "waiting"},
	}

	for _, want := range records {
		got, ok := ParseLine(FormatLine(want))
		if !ok {
			t.Fatalf("round-trip parse failed for %+v", want)
		}
		if diff := cmp.Diff(want, got, ignoreID); diff != "" {
			t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
		}
	}
}
