package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound      = errors.New("entry not found")
	ErrRefreshFailed = errors.New("cache refresh failed")
)

// FetchPageFunc fetches one page of records from the remote platform. An
// empty cursor requests the first page; a non-empty returned cursor means
// more pages follow.
type FetchPageFunc[T any] func(ctx context.Context, cursor string) (records []T, nextCursor string, err error)

// Options configures a Table. ID and Key extract the primary key and the
// display name feeding the inverse index from a record.
type Options[T any] struct {
	Name  string // table label used in logs and snapshot errors
	ID    func(T) string
	Key   func(T) string
	TTL   time.Duration // <= 0 disables expiry
	Path  string        // snapshot file, empty disables persistence
	Fetch FetchPageFunc[T]
}

// Table holds one entity kind: a forward map (id -> record), an inverse map
// (normalized name -> id) and a load timestamp. Both maps are only ever
// replaced together in a single swap, never patched in place, so readers
// always observe a consistent pair.
type Table[T any] struct {
	opts Options[T]
	now  func() time.Time

	mu       sync.RWMutex
	entries  map[string]T
	order    []string
	names    map[string]string
	loadedAt time.Time
}

func NewTable[T any](opts Options[T]) *Table[T] {
	return &Table[T]{opts: opts, now: time.Now}
}

// Normalize folds a lookup name to its index form: lowercased with a single
// leading # or @ sigil removed.
func Normalize(name string) string {
	name = strings.ToLower(name)
	if strings.HasPrefix(name, "#") || strings.HasPrefix(name, "@") {
		name = name[1:]
	}
	return name
}

// GetByID returns the record for id, refreshing the table first if it is
// stale. A ErrNotFound after a fresh load means the id genuinely does not
// exist upstream.
func (t *Table[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T
	if err := t.ensureFresh(ctx); err != nil {
		return zero, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[id]
	if !ok {
		return zero, ErrNotFound
	}
	return v, nil
}

// GetByName resolves a human-readable name through the inverse index. The
// name is normalized first, so "#general", "general" and "General" are
// equivalent.
func (t *Table[T]) GetByName(ctx context.Context, name string) (T, error) {
	var zero T
	if err := t.ensureFresh(ctx); err != nil {
		return zero, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.names[Normalize(name)]
	if !ok {
		return zero, ErrNotFound
	}
	return t.entries[id], nil
}

// List returns all records in stable load order. The sequence is built over
// the table state at call time and is re-enumerable; a later refresh does
// not affect an already obtained sequence.
func (t *Table[T]) List(ctx context.Context) (iter.Seq[T], error) {
	if err := t.ensureFresh(ctx); err != nil {
		return nil, err
	}

	t.mu.RLock()
	entries, order := t.entries, t.order
	t.mu.RUnlock()

	return func(yield func(T) bool) {
		for _, id := range order {
			if !yield(entries[id]) {
				return
			}
		}
	}, nil
}

// Peek looks up id without triggering a refresh. Used by consumers that
// tolerate missing entries and must not suspend.
func (t *Table[T]) Peek(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[id]
	return v, ok
}

// Len reports the number of entries without triggering a refresh.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// LoadedAt reports the timestamp of the last successful population.
func (t *Table[T]) LoadedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loadedAt
}

// Refresh forces a remote fetch regardless of TTL, rebuilds both maps and
// persists the new snapshot. Unlike a TTL-triggered reload a forced refresh
// propagates fetch errors even when a previous snapshot exists, since the
// caller explicitly asked for current data. The previous snapshot stays
// servable on failure.
func (t *Table[T]) Refresh(ctx context.Context) error {
	records, err := t.fetchAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRefreshFailed, t.opts.Name, err)
	}
	t.adopt(records, t.now())
	t.saveSnapshot()
	return nil
}

// EnsureFresh reloads the table if it has never been populated or its age
// exceeds the TTL.
func (t *Table[T]) EnsureFresh(ctx context.Context) error {
	return t.ensureFresh(ctx)
}

// Warm populates the table for startup. Unlike EnsureFresh, a disk
// snapshot is adopted even when stale so lookups are servable immediately;
// the stale adoption triggers an asynchronous forced refresh.
func (t *Table[T]) Warm(ctx context.Context) error {
	records, loadedAt, ok := t.loadSnapshot()
	if !ok {
		return t.reload(ctx)
	}

	t.adopt(records, loadedAt)
	logrus.WithFields(logrus.Fields{"table": t.opts.Name, "entries": len(records)}).Info("cache loaded from disk")

	if t.expired(t.now().Sub(loadedAt)) {
		go func() {
			if err := t.Refresh(ctx); err != nil {
				logrus.WithError(err).WithField("table", t.opts.Name).Warn("background refresh failed, serving the stale snapshot")
			}
		}()
	}
	return nil
}

func (t *Table[T]) ensureFresh(ctx context.Context) error {
	t.mu.RLock()
	loadedAt := t.loadedAt
	t.mu.RUnlock()

	if !loadedAt.IsZero() && !t.expired(t.now().Sub(loadedAt)) {
		return nil
	}
	return t.reload(ctx)
}

// Staleness is strict: a table of age exactly TTL is still fresh.
func (t *Table[T]) expired(age time.Duration) bool {
	return t.opts.TTL > 0 && age > t.opts.TTL
}

// reload repopulates the table, preferring a fresh disk snapshot over a
// remote round-trip. The previous in-memory state stays fully servable
// until the replacement is completely built.
func (t *Table[T]) reload(ctx context.Context) error {
	if records, loadedAt, ok := t.loadSnapshot(); ok && !t.expired(t.now().Sub(loadedAt)) {
		t.adopt(records, loadedAt)
		logrus.WithFields(logrus.Fields{"table": t.opts.Name, "entries": len(records)}).Info("cache loaded from disk")
		return nil
	}

	records, err := t.fetchAll(ctx)
	if err != nil {
		// Bounded staleness beats hard failure for reference data: fall
		// back to the in-memory snapshot, then to a stale disk snapshot.
		t.mu.RLock()
		hasPrior := !t.loadedAt.IsZero()
		t.mu.RUnlock()
		if hasPrior {
			logrus.WithError(err).WithField("table", t.opts.Name).Warn("refresh failed, serving stale cache")
			return nil
		}
		if records, loadedAt, ok := t.loadSnapshot(); ok {
			logrus.WithError(err).WithField("table", t.opts.Name).Warn("refresh failed, adopting stale disk snapshot")
			t.adopt(records, loadedAt)
			return nil
		}
		return fmt.Errorf("%w: %s: %v", ErrRefreshFailed, t.opts.Name, err)
	}

	t.adopt(records, t.now())
	t.saveSnapshot()
	logrus.WithFields(logrus.Fields{"table": t.opts.Name, "entries": len(records)}).Info("cache refreshed")
	return nil
}

// fetchAll drains the remote pagination loop and returns the merged record
// set. A page with zero records stops the loop even if a cursor was
// returned, guarding against a misbehaving collaborator.
func (t *Table[T]) fetchAll(ctx context.Context) ([]T, error) {
	var all []T
	cursor := ""
	for {
		records, next, err := t.opts.Fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if next == "" || len(records) == 0 {
			break
		}
		cursor = next
	}
	return all, nil
}

// adopt builds a fresh map pair from records and swaps it in atomically.
// The only mutator of table state.
func (t *Table[T]) adopt(records []T, loadedAt time.Time) {
	entries := make(map[string]T, len(records))
	order := make([]string, 0, len(records))
	names := make(map[string]string, len(records))

	for _, r := range records {
		id := t.opts.ID(r)
		if id == "" {
			continue
		}
		if _, dup := entries[id]; !dup {
			order = append(order, id)
		}
		entries[id] = r
		if name := Normalize(t.opts.Key(r)); name != "" {
			names[name] = id
		}
	}

	t.mu.Lock()
	t.entries = entries
	t.order = order
	t.names = names
	t.loadedAt = loadedAt
	t.mu.Unlock()
}

// snapshot is the on-disk form of a table: the fetch timestamp plus the raw
// record list. The maps are rebuilt on load, never persisted.
type snapshot[T any] struct {
	LoadedAt time.Time `json:"loaded_at"`
	Records  []T       `json:"records"`
}

// loadSnapshot reads the snapshot file. Any read or parse failure is a
// cache miss, never an error: a corrupt or half-written file just means a
// remote fetch.
func (t *Table[T]) loadSnapshot() ([]T, time.Time, bool) {
	if t.opts.Path == "" {
		return nil, time.Time{}, false
	}

	data, err := os.ReadFile(t.opts.Path)
	if err != nil {
		return nil, time.Time{}, false
	}

	var snap snapshot[T]
	if err := json.Unmarshal(data, &snap); err != nil {
		logrus.WithError(err).WithField("path", t.opts.Path).Debug("unreadable cache snapshot")
		return nil, time.Time{}, false
	}
	if snap.LoadedAt.IsZero() {
		return nil, time.Time{}, false
	}
	return snap.Records, snap.LoadedAt, true
}

// saveSnapshot persists the current table. Writes go to a temporary file
// renamed into place so a crash mid-write never leaves a half-written
// snapshot. Failures are logged, never fatal.
func (t *Table[T]) saveSnapshot() {
	if t.opts.Path == "" {
		return
	}

	t.mu.RLock()
	snap := snapshot[T]{LoadedAt: t.loadedAt, Records: make([]T, 0, len(t.order))}
	for _, id := range t.order {
		snap.Records = append(snap.Records, t.entries[id])
	}
	t.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		logrus.WithError(err).WithField("table", t.opts.Name).Warn("could not encode cache snapshot")
		return
	}

	if err := os.MkdirAll(filepath.Dir(t.opts.Path), 0o755); err != nil {
		logrus.WithError(err).WithField("path", t.opts.Path).Warn("could not create cache directory")
		return
	}

	tmp := t.opts.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		logrus.WithError(err).WithField("path", tmp).Warn("could not write cache snapshot")
		return
	}
	if err := os.Rename(tmp, t.opts.Path); err != nil {
		logrus.WithError(err).WithField("path", t.opts.Path).Warn("could not replace cache snapshot")
	}
}
