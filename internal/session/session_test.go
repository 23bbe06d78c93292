package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isaacbax/workshoptracker/internal/record"
	"github.com/isaacbax/workshoptracker/internal/view"
)

func writeCSV(t *testing.T, path string, rows ...string) {
	t.Helper()
	content := record.Header + "\n" + strings.Join(rows, "\n")
	if len(rows) > 0 {
		content += "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// row builds a CSV line with the given customer, date and status; the
// remaining columns are filled with placeholders.
func row(customer, date, status string) string {
	return fmt.Sprintf("R,O,%s,S,,%s,%s,1,W,P,D,Pa,Sh,Pr,old-user", customer, date, status)
}

func newTestSession(t *testing.T, openRows, closedRows []string) *Session {
	t.Helper()
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "mainopen.csv"), openRows...)
	writeCSV(t, filepath.Join(dir, "mainclosed.csv"), closedRows...)

	s, err := New(Config{
		BaseFolder: dir,
		Branch:     "main",
		User:       "tester",
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func findByCustomer(t *testing.T, s *Session, p Partition, customer string) *record.WorkOrder {
	t.Helper()
	for _, o := range s.Records(p) {
		if o.Customer == customer {
			return o
		}
	}
	t.Fatalf("no record with customer %q in %s", customer, p)
	return nil
}

func customers(orders []*record.WorkOrder) []string {
	var out []string
	for _, o := range orders {
		out = append(out, o.Customer)
	}
	return out
}

func TestNew_RequiresBranch(t *testing.T) {
	_, err := New(Config{BaseFolder: t.TempDir()})
	require.Error(t, err)
}

func TestNew_MissingFilesAreEmptyPartitions(t *testing.T) {
	s, err := New(Config{BaseFolder: t.TempDir(), Branch: "main", User: "tester"})
	require.NoError(t, err)
	defer s.Close()
	require.Empty(t, s.Records(Open))
	require.Empty(t, s.Records(Closed))
}

func TestSetStatus_ClosingMovesRecord(t *testing.T) {
	s := newTestSession(t,
		[]string{row("Smith", "01/01/2024", "Open")},
		nil,
	)
	target := findByCustomer(t, s, Open, "Smith")

	require.NoError(t, s.SetStatus(target.ID, "Picked Up"))

	require.Empty(t, s.Records(Open))
	closed := s.Records(Closed)
	require.Equal(t, []string{"Smith"}, customers(closed))
	require.Equal(t, "Picked Up", closed[0].Status)
	require.Equal(t, "tester", closed[0].LastUser)

	// The migration is persisted to both files.
	fresh := newSessionOver(t, s)
	require.Empty(t, fresh.Records(Open))
	require.Equal(t, []string{"Smith"}, customers(fresh.Records(Closed)))
}

// newSessionOver opens a second session against the same files, to observe
// what actually landed on disk.
func newSessionOver(t *testing.T, s *Session) *Session {
	t.Helper()
	fresh, err := New(Config{
		BaseFolder: s.cfg.BaseFolder,
		Branch:     s.cfg.Branch,
		User:       "observer",
	})
	require.NoError(t, err)
	t.Cleanup(fresh.Close)
	return fresh
}

func TestSetStatus_ReopeningMovesRecordBack(t *testing.T) {
	s := newTestSession(t,
		nil,
		[]string{row("Jones", "01/01/2024", "cancelled")},
	)
	target := findByCustomer(t, s, Closed, "Jones")

	require.NoError(t, s.SetStatus(target.ID, "waiting on parts"))

	require.Empty(t, s.Records(Closed))
	require.Equal(t, []string{"Jones"}, customers(s.Records(Open)))
}

func TestSetField_StampsLastUser(t *testing.T) {
	s := newTestSession(t, []string{row("Smith", "01/01/2024", "Open")}, nil)
	target := findByCustomer(t, s, Open, "Smith")

	require.NoError(t, s.SetField(target.ID, "customer", "Smith & Son"))

	got := s.Records(Open)[0]
	require.Equal(t, "Smith & Son", got.Customer)
	require.Equal(t, "tester", got.LastUser)
}

func TestSetField_DateDueRederivesDayDue(t *testing.T) {
	s := newTestSession(t, []string{row("Smith", "01/01/2024", "Open")}, nil)
	target := findByCustomer(t, s, Open, "Smith")

	// 05/01/2024 is a Friday.
	require.NoError(t, s.SetField(target.ID, "DATE DUE", "05/01/2024"))
	require.Equal(t, "Fri", s.Records(Open)[0].DayDue)

	// Clearing the date clears the day too.
	require.NoError(t, s.SetField(target.ID, "DATE DUE", ""))
	got := s.Records(Open)[0]
	require.Nil(t, got.DateDue)
	require.Equal(t, "", got.DayDue)
}

func TestSetField_UnknownField(t *testing.T) {
	s := newTestSession(t, []string{row("Smith", "01/01/2024", "Open")}, nil)
	target := findByCustomer(t, s, Open, "Smith")

	err := s.SetField(target.ID, "COLOUR", "red")
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestSetField_UnknownID(t *testing.T) {
	s := newTestSession(t, nil, nil)
	err := s.SetField("no-such-id", "CUSTOMER", "x")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInsertBlank_DueToday(t *testing.T) {
	s := newTestSession(t, nil, nil)

	o, err := s.InsertBlank(Open)
	require.NoError(t, err)

	y, m, d := time.Now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	require.NotNil(t, o.DateDue)
	require.True(t, o.DateDue.Equal(today), "DateDue = %v, want %v", o.DateDue, today)
	require.Equal(t, record.DayShortName(today), o.DayDue)
	require.Equal(t, "tester", o.LastUser)
	require.Len(t, s.Records(Open), 1)
}

func TestInsertAboveAndBelow(t *testing.T) {
	s := newTestSession(t, []string{row("Anchor", "01/01/2024", "Open")}, nil)
	anchor := findByCustomer(t, s, Open, "Anchor")

	below, err := s.InsertBelow(anchor.ID)
	require.NoError(t, err)
	above, err := s.InsertAbove(anchor.ID)
	require.NoError(t, err)

	ids := func() []string {
		var out []string
		for _, o := range s.Records(Open) {
			out = append(out, o.ID)
		}
		return out
	}()
	require.Len(t, ids, 3)
	// Blanks are due today, so they land after the 2024 anchor once
	// arranged; their relative order still reflects where they were put.
	require.Equal(t, anchor.ID, ids[0])
	require.Equal(t, above.ID, ids[1])
	require.Equal(t, below.ID, ids[2])
}

func TestCopy_FreshIdentity(t *testing.T) {
	s := newTestSession(t, []string{row("Smith", "01/01/2024", "Open")}, nil)
	orig := findByCustomer(t, s, Open, "Smith")

	cp, err := s.Copy(orig.ID)
	require.NoError(t, err)

	require.NotEqual(t, orig.ID, cp.ID)
	require.Equal(t, "Smith", cp.Customer)
	require.Equal(t, "tester", cp.LastUser)

	got := s.Records(Open)
	require.Len(t, got, 2)
	require.Equal(t, orig.ID, got[0].ID)
	require.Equal(t, cp.ID, got[1].ID)
}

func TestDelete(t *testing.T) {
	s := newTestSession(t,
		[]string{row("Keep", "01/01/2024", "Open"), row("Drop", "01/01/2024", "Open")},
		nil,
	)
	target := findByCustomer(t, s, Open, "Drop")

	require.NoError(t, s.Delete(target.ID))
	require.Equal(t, []string{"Keep"}, customers(s.Records(Open)))

	require.ErrorIs(t, s.Delete(target.ID), ErrNotFound)
}

func TestMove_WithinDateGroupPersists(t *testing.T) {
	s := newTestSession(t,
		[]string{
			row("A", "01/01/2024", "Open"),
			row("B", "01/01/2024", "Open"),
			row("C", "01/01/2024", "Open"),
		},
		nil,
	)
	c := findByCustomer(t, s, Open, "C")

	require.NoError(t, s.Move(c.ID, 0))
	require.Equal(t, []string{"C", "A", "B"}, customers(s.Records(Open)))

	// Same-date records keep a manual order across a save/load cycle.
	fresh := newSessionOver(t, s)
	require.Equal(t, []string{"C", "A", "B"}, customers(fresh.Records(Open)))
}

func TestMove_IndexClamped(t *testing.T) {
	s := newTestSession(t,
		[]string{row("A", "01/01/2024", "Open"), row("B", "01/01/2024", "Open")},
		nil,
	)
	a := findByCustomer(t, s, Open, "A")

	require.NoError(t, s.Move(a.ID, 99))
	require.Equal(t, []string{"B", "A"}, customers(s.Records(Open)))

	require.NoError(t, s.Move(a.ID, -5))
	require.Equal(t, []string{"A", "B"}, customers(s.Records(Open)))
}

func TestFilterOpen(t *testing.T) {
	s := newTestSession(t,
		[]string{
			row("Smith", "01/01/2024", "Open"),
			row("Jones", "01/01/2024", "Open"),
		},
		nil,
	)

	entries := s.FilterOpen("smith")
	var got []string
	dividers := 0
	for _, e := range entries {
		switch v := e.(type) {
		case view.RecordEntry:
			got = append(got, v.Order.Customer)
		case view.DividerEntry:
			dividers++
		}
	}
	require.Equal(t, []string{"Smith"}, got)
	require.Equal(t, 1, dividers, "dividers always pass the filter")
}

func TestReloadNow_PicksUpExternalEditAndNormalizes(t *testing.T) {
	s := newTestSession(t, []string{row("Smith", "01/01/2024", "Open")}, nil)

	// Another machine closes the record by editing the open file directly.
	writeCSV(t, filepath.Join(s.cfg.BaseFolder, "mainopen.csv"),
		row("Smith", "01/01/2024", "Picked Up"))

	require.NoError(t, s.ReloadNow())
	require.Empty(t, s.Records(Open))
	require.Equal(t, []string{"Smith"}, customers(s.Records(Closed)))
}

func TestReloadNow_FailureKeepsState(t *testing.T) {
	s := newTestSession(t, []string{row("Smith", "01/01/2024", "Open")}, nil)

	// Make the open file unreadable by replacing it with a directory.
	openPath := filepath.Join(s.cfg.BaseFolder, "mainopen.csv")
	require.NoError(t, os.Remove(openPath))
	require.NoError(t, os.Mkdir(openPath, 0o755))

	err := s.ReloadNow()
	require.Error(t, err)
	require.Equal(t, []string{"Smith"}, customers(s.Records(Open)))
	require.True(t, strings.HasPrefix(s.Status(), "Error loading"), "status = %q", s.Status())
}

func TestViewSnapshotsAreCopies(t *testing.T) {
	s := newTestSession(t, []string{row("Smith", "01/01/2024", "Open")}, nil)

	entries := s.OpenView()
	for _, e := range entries {
		if re, ok := e.(view.RecordEntry); ok {
			re.Order.Customer = "Mutated"
		}
	}
	require.Equal(t, "Smith", s.Records(Open)[0].Customer)
}

func TestPartitionString(t *testing.T) {
	require.Equal(t, "open", Open.String())
	require.Equal(t, "closed", Closed.String())
}

func TestErrNotFoundWrapsCleanly(t *testing.T) {
	s := newTestSession(t, nil, nil)
	err := s.Delete("missing")
	require.True(t, errors.Is(err, ErrNotFound))
	require.Contains(t, err.Error(), "missing")
}
