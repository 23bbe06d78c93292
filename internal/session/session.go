// Package session ties the store, partitioner, ordering engine and reload
// coordinator together into one consistency boundary per branch. The
// display layer talks only to the Session: it reads arranged views and
// requests mutations; everything else happens behind the façade.
package session

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/isaacbax/workshoptracker/internal/record"
	"github.com/isaacbax/workshoptracker/internal/store"
	"github.com/isaacbax/workshoptracker/internal/view"
)

// Partition identifies one of a branch's two record sets.
type Partition int

const (
	// Open holds records still being worked on.
	Open Partition = iota
	// Closed holds records with a closing status.
	Closed
)

// String returns a human-readable partition name.
func (p Partition) String() string {
	if p == Closed {
		return "closed"
	}
	return "open"
}

// Config holds everything a branch session needs.
type Config struct {
	// BaseFolder is the shared folder holding the branch CSV files.
	BaseFolder string

	// Branch selects which pair of CSV files this session owns.
	Branch string

	// User is stamped into LAST USER on every committed mutation.
	User string

	// Watch enables live refresh on external file changes. One-shot
	// callers leave it off and rely on the load performed by New.
	Watch bool

	// Debounce overrides the reload debounce window; zero means the
	// coordinator default.
	Debounce time.Duration

	// Logger for session activity.
	Logger *log.Logger
}

// Session is the mutation and reload boundary for one branch. All methods
// are safe for concurrent use; mutations and reloads never interleave.
type Session struct {
	cfg    Config
	store  *store.Store
	coord  *Coordinator
	logger *log.Logger

	openPath   string
	closedPath string

	// mu is the branch coordination point: every mutation and every
	// reload runs under it, so no two ever interleave.
	mu         sync.Mutex
	open       []*record.WorkOrder
	closed     []*record.WorkOrder
	openView   []view.Entry
	closedView []view.Entry
	status     string
}

// New opens a branch session: it loads both partitions from disk,
// normalizes and arranges them, and (when cfg.Watch is set) starts the
// reload coordinator. A missing file is an empty partition, not an error.
func New(cfg Config) (*Session, error) {
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[session] ", log.LstdFlags)
	}

	s := &Session{
		cfg:        cfg,
		store:      store.New(cfg.Logger),
		logger:     cfg.Logger,
		openPath:   filepath.Join(cfg.BaseFolder, cfg.Branch+"open.csv"),
		closedPath: filepath.Join(cfg.BaseFolder, cfg.Branch+"closed.csv"),
	}

	s.mu.Lock()
	err := s.reloadLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if cfg.Watch {
		ccfg := DefaultCoordinatorConfig()
		ccfg.Logger = cfg.Logger
		if cfg.Debounce > 0 {
			ccfg.Debounce = cfg.Debounce
		}
		s.coord = NewCoordinator(
			cfg.BaseFolder,
			[]string{s.openPath, s.closedPath},
			s.autoReload,
			ccfg,
		)
		s.syncCoordinator()
	}

	return s, nil
}

// Close stops the reload coordinator, if any.
func (s *Session) Close() {
	if s.coord != nil {
		s.coord.Stop()
	}
}

// Watching reports whether live refresh is active.
func (s *Session) Watching() bool {
	return s.coord != nil && s.coord.Watching()
}

// Status returns a human-readable description of the last load or save
// outcome.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// OpenView returns a snapshot of the arranged Open partition. Entries are
// copies; mutating them does not affect the session.
func (s *Session) OpenView() []view.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEntries(s.openView)
}

// ClosedView returns a snapshot of the arranged Closed partition.
func (s *Session) ClosedView() []view.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEntries(s.closedView)
}

// FilterOpen returns the Open view with records not matching query
// removed. Dividers always pass, mirroring how the grid filters.
func (s *Session) FilterOpen(query string) []view.Entry {
	return filterEntries(s.OpenView(), query)
}

// FilterClosed returns the Closed view filtered by query.
func (s *Session) FilterClosed(query string) []view.Entry {
	return filterEntries(s.ClosedView(), query)
}

// Records returns copies of a partition's real records in persisted
// order. Display layers use the slice index as the position argument for
// Move and the insert operations.
func (s *Session) Records(p Partition) []*record.WorkOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.partition(p)
	out := make([]*record.WorkOrder, len(src))
	for i, o := range src {
		out[i] = o.Clone()
	}
	return out
}

// BeginEdit marks the start of an interactive edit. External reloads are
// deferred until EndEdit so an in-flight edit is never clobbered.
func (s *Session) BeginEdit() {
	if s.coord != nil {
		s.coord.BeginEdit()
	}
}

// EndEdit marks the end of an interactive edit and releases any deferred
// reload.
func (s *Session) EndEdit() {
	if s.coord != nil {
		s.coord.EndEdit()
	}
}

// ReloadNow unconditionally reloads both partitions from disk, bypassing
// the debounce window.
func (s *Session) ReloadNow() error {
	s.mu.Lock()
	err := s.reloadLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.syncCoordinator()
	return nil
}

// SetField applies a field edit to the record with the given ID. Field is
// a CSV column header name, case-insensitive. Editing STATUS applies the
// partition migration rules; editing DATE DUE re-derives DAY DUE.
func (s *Session) SetField(id, field, value string) error {
	return s.mutate(id, func(o *record.WorkOrder) error {
		switch strings.ToUpper(strings.TrimSpace(field)) {
		case "RETAIL":
			o.Retail = value
		case "OE":
			o.OE = value
		case "CUSTOMER":
			o.Customer = value
		case "SERIAL":
			o.Serial = value
		case "DAY DUE":
			o.DayDue = value
		case "DATE DUE":
			s.setDateDue(o, record.ParseDate(value))
		case "STATUS":
			s.applyStatus(o, value)
		case "QTY":
			o.Qty = parseQty(value)
		case "WHAT IS IT":
			o.WhatIsIt = value
		case "PO":
			o.PO = value
		case "WHAT ARE WE DOING":
			o.WhatAreWeDoing = value
		case "PARTS":
			o.Parts = value
		case "SHAFT":
			o.Shaft = value
		case "PRIORITY":
			o.Priority = value
		case "LAST USER":
			// Stamped from the session user below; an explicit edit is
			// a no-op.
		default:
			return fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		return nil
	})
}

// SetStatus changes a record's status, migrating it between partitions
// when the change crosses the closing boundary.
func (s *Session) SetStatus(id, status string) error {
	return s.mutate(id, func(o *record.WorkOrder) error {
		s.applyStatus(o, strings.TrimSpace(status))
		return nil
	})
}

// SetDateDue changes a record's due date and re-derives DAY DUE.
func (s *Session) SetDateDue(id string, due *time.Time) error {
	return s.mutate(id, func(o *record.WorkOrder) error {
		s.setDateDue(o, due)
		return nil
	})
}

// InsertAbove inserts a blank record immediately before the record with
// the given ID and returns it. The blank record is due today.
func (s *Session) InsertAbove(id string) (*record.WorkOrder, error) {
	return s.insertAt(id, 0)
}

// InsertBelow inserts a blank record immediately after the record with
// the given ID and returns it.
func (s *Session) InsertBelow(id string) (*record.WorkOrder, error) {
	return s.insertAt(id, 1)
}

// InsertBlank appends a blank record, due today, to the given partition
// and returns it.
func (s *Session) InsertBlank(p Partition) (*record.WorkOrder, error) {
	s.mu.Lock()
	o := s.newBlank()
	s.setPartition(p, append(s.partition(p), o))
	err := s.commitLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

// Copy duplicates the record with the given ID, inserting the copy right
// after the original with a fresh identity and the acting user stamped.
func (s *Session) Copy(id string) (*record.WorkOrder, error) {
	s.mu.Lock()
	p, i, o := s.findLocked(id)
	if o == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	c := o.Clone()
	c.ID = record.NewID()
	c.LastUser = s.cfg.User

	part := s.partition(p)
	part = append(part, nil)
	copy(part[i+2:], part[i+1:])
	part[i+1] = c
	s.setPartition(p, part)

	err := s.commitLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// Delete removes the record with the given ID from its partition.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, i, o := s.findLocked(id)
	if o == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	part := s.partition(p)
	s.setPartition(p, append(part[:i], part[i+1:]...))
	return s.commitLocked()
}

// Move repositions the record with the given ID to index within its
// partition's real-record order. Dividers are recomputed afterwards and
// cannot be moved themselves: they carry no ID, so no Move can address
// one. The index is clamped to the partition bounds.
func (s *Session) Move(id string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, i, o := s.findLocked(id)
	if o == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	part := s.partition(p)
	if index < 0 {
		index = 0
	}
	if index > len(part)-1 {
		index = len(part) - 1
	}
	if index == i {
		return nil
	}

	part = append(part[:i], part[i+1:]...)
	part = append(part, nil)
	copy(part[index+1:], part[index:])
	part[index] = o
	s.setPartition(p, part)

	o.LastUser = s.cfg.User
	return s.saveLocked()
}

// ---- internals ----

// mutate runs fn against the record with the given ID, stamps the acting
// user and commits: normalize, re-arrange, save both files, record the
// own-write timestamps.
func (s *Session) mutate(id string, fn func(*record.WorkOrder) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _, o := s.findLocked(id)
	if o == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := fn(o); err != nil {
		return err
	}
	o.LastUser = s.cfg.User
	return s.commitLocked()
}

func (s *Session) applyStatus(o *record.WorkOrder, status string) {
	s.open, s.closed = view.ApplyStatus(o, status, s.open, s.closed)
}

func (s *Session) setDateDue(o *record.WorkOrder, due *time.Time) {
	o.DateDue = due
	if due != nil {
		o.DayDue = record.DayShortName(*due)
	} else {
		o.DayDue = ""
	}
}

func (s *Session) newBlank() *record.WorkOrder {
	o := record.New()
	y, m, d := time.Now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	s.setDateDue(o, &today)
	o.LastUser = s.cfg.User
	return o
}

func (s *Session) insertAt(id string, offset int) (*record.WorkOrder, error) {
	s.mu.Lock()
	p, i, ref := s.findLocked(id)
	if ref == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	o := s.newBlank()
	part := s.partition(p)
	at := i + offset
	part = append(part, nil)
	copy(part[at+1:], part[at:])
	part[at] = o
	s.setPartition(p, part)

	err := s.commitLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

func (s *Session) partition(p Partition) []*record.WorkOrder {
	if p == Closed {
		return s.closed
	}
	return s.open
}

func (s *Session) setPartition(p Partition, orders []*record.WorkOrder) {
	if p == Closed {
		s.closed = orders
	} else {
		s.open = orders
	}
}

func (s *Session) findLocked(id string) (Partition, int, *record.WorkOrder) {
	for i, o := range s.open {
		if o.ID == id {
			return Open, i, o
		}
	}
	for i, o := range s.closed {
		if o.ID == id {
			return Closed, i, o
		}
	}
	return Open, -1, nil
}

// commitLocked re-establishes every invariant after a mutation and
// persists the result: misfiled records migrate, both partitions are
// re-arranged (the arranged order is also the persisted order) and both
// files are saved.
func (s *Session) commitLocked() error {
	s.open, s.closed = view.Normalize(s.open, s.closed)
	return s.saveLocked()
}

// rebuildViewsLocked recomputes both arranged views and re-orders the
// backing slices to match, so saves persist the arranged order.
func (s *Session) rebuildViewsLocked() {
	s.openView = view.ArrangeOpen(s.open)
	s.closedView = view.ArrangeClosed(s.closed)
	s.open = view.Records(s.openView)
	s.closed = view.Records(s.closedView)
}

// saveLocked writes both partition files and records the own-write
// timestamps with the coordinator. A failed save leaves the previous
// on-disk content intact (writes are atomic) and is reported via the
// status text as well as the returned error.
func (s *Session) saveLocked() error {
	s.rebuildViewsLocked()

	if err := s.store.Save(s.openPath, s.open); err != nil {
		s.status = fmt.Sprintf("Error saving CSVs: %v", err)
		return err
	}
	if err := s.store.Save(s.closedPath, s.closed); err != nil {
		s.status = fmt.Sprintf("Error saving CSVs: %v", err)
		return err
	}

	if s.coord != nil {
		for _, path := range []string{s.openPath, s.closedPath} {
			if mtime, ok := s.store.OwnWrite(path); ok {
				s.coord.MarkOwnWrite(path, mtime)
			}
		}
	}

	s.status = fmt.Sprintf("Saved at %s", time.Now().Format("15:04:05"))
	return nil
}

// reloadLocked replaces the in-memory state with the current file
// contents. On a load failure the previous state is kept untouched.
func (s *Session) reloadLocked() error {
	open, err := s.store.Load(s.openPath)
	if err != nil {
		s.status = fmt.Sprintf("Error loading CSVs: %v", err)
		return err
	}
	closed, err := s.store.Load(s.closedPath)
	if err != nil {
		s.status = fmt.Sprintf("Error loading CSVs: %v", err)
		return err
	}

	s.open, s.closed = view.Normalize(open, closed)
	s.rebuildViewsLocked()
	s.status = fmt.Sprintf("Loaded open=%d, closed=%d", len(s.open), len(s.closed))
	return nil
}

// autoReload is the coordinator's reload callback. It runs on the
// coordinator goroutine, inside the same lock every mutation takes.
func (s *Session) autoReload() {
	s.mu.Lock()
	err := s.reloadLocked()
	if err == nil {
		s.status = fmt.Sprintf("Auto-reloaded at %s", time.Now().Format("15:04:05"))
		s.logger.Printf("Auto-reloaded open=%d, closed=%d", len(s.open), len(s.closed))
	} else {
		s.logger.Printf("Auto-reload error: %v", err)
	}
	s.mu.Unlock()
}

// syncCoordinator aligns the coordinator's known timestamps with the
// files as they are right now, after a load that bypassed it.
func (s *Session) syncCoordinator() {
	if s.coord == nil {
		return
	}
	for _, path := range []string{s.openPath, s.closedPath} {
		if info, err := os.Stat(path); err == nil {
			s.coord.MarkOwnWrite(path, info.ModTime())
		}
	}
}

func copyEntries(entries []view.Entry) []view.Entry {
	out := make([]view.Entry, len(entries))
	for i, e := range entries {
		if re, ok := e.(view.RecordEntry); ok {
			out[i] = view.RecordEntry{Order: re.Order.Clone()}
		} else {
			out[i] = e
		}
	}
	return out
}

func filterEntries(entries []view.Entry, query string) []view.Entry {
	if strings.TrimSpace(query) == "" {
		return entries
	}
	var out []view.Entry
	for _, e := range entries {
		if re, ok := e.(view.RecordEntry); ok && !re.Order.Matches(query) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// parseQty mirrors the codec's tolerance: a bad or negative quantity is 0.
func parseQty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
