package kb

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/signalsfoundry/powermix/model"
)

var (
	// ErrDatasetExists indicates a dataset with the same code is already stored.
	ErrDatasetExists = errors.New("dataset already exists")
	// ErrDatasetNotFound indicates a requested dataset was not found.
	ErrDatasetNotFound = errors.New("dataset not found")
)

// EventType indicates what kind of change happened in the inventory.
type EventType int

const (
	EventDatasetAdded EventType = iota
	EventDatasetRemoved
)

// Event is emitted to subscribers when the dataset set changes.
type Event struct {
	Type    EventType
	Dataset *model.Dataset
}

// Inventory is the shared, single-owner store of inventory datasets. It keeps
// insertion order and secondary indices by name and by location so supplier
// lookups and relinking avoid scanning the whole database.
//
// Datasets are stored by pointer: components mutate them in place. Name and
// location of a stored dataset must not change; the indices are not refreshed.
type Inventory struct {
	mu sync.RWMutex

	seq        uint64
	datasets   map[string]*entry
	byName     map[string]map[string]*entry
	byLocation map[string]map[string]*entry

	subs    map[uint64]func(Event)
	nextSub uint64
}

type entry struct {
	seq uint64
	ds  *model.Dataset
}

// NewInventory constructs an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{
		datasets:   make(map[string]*entry),
		byName:     make(map[string]map[string]*entry),
		byLocation: make(map[string]map[string]*entry),
		subs:       make(map[uint64]func(Event)),
	}
}

// Add validates and appends a dataset. It returns an error if the code
// already exists.
func (inv *Inventory) Add(ds *model.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	inv.mu.Lock()
	if _, exists := inv.datasets[ds.Code]; exists {
		inv.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDatasetExists, ds.Code)
	}
	inv.seq++
	e := &entry{seq: inv.seq, ds: ds}
	inv.datasets[ds.Code] = e
	inv.indexLocked(e)
	subs := inv.subscribersLocked()
	inv.mu.Unlock()

	for _, sub := range subs {
		sub(Event{Type: EventDatasetAdded, Dataset: ds})
	}
	return nil
}

// Get returns the dataset with the given code, or nil if not found.
func (inv *Inventory) Get(code string) *model.Dataset {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	if e, ok := inv.datasets[code]; ok {
		return e.ds
	}
	return nil
}

// Len returns the number of stored datasets.
func (inv *Inventory) Len() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.datasets)
}

// Datasets returns a snapshot slice of all datasets in insertion order.
func (inv *Inventory) Datasets() []*model.Dataset {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	entries := make([]*entry, 0, len(inv.datasets))
	for _, e := range inv.datasets {
		entries = append(entries, e)
	}
	return ordered(entries)
}

// ByName returns datasets with exactly the given name in insertion order.
func (inv *Inventory) ByName(name string) []*model.Dataset {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return ordered(values(inv.byName[name]))
}

// ByLocation returns datasets at exactly the given location in insertion order.
func (inv *Inventory) ByLocation(location string) []*model.Dataset {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return ordered(values(inv.byLocation[location]))
}

// Lookup returns datasets whose name is one of names and whose location is
// one of locations, in insertion order. It drives off the name index.
func (inv *Inventory) Lookup(names, locations []string) []*model.Dataset {
	locs := make(map[string]struct{}, len(locations))
	for _, l := range locations {
		locs[l] = struct{}{}
	}

	inv.mu.RLock()
	defer inv.mu.RUnlock()

	seen := make(map[string]struct{})
	var entries []*entry
	for _, name := range names {
		for code, e := range inv.byName[name] {
			if _, ok := locs[e.ds.Location]; !ok {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			entries = append(entries, e)
		}
	}
	return ordered(entries)
}

// Select returns datasets matching every filter, in insertion order.
func (inv *Inventory) Select(filters ...Filter) []*model.Dataset {
	var out []*model.Dataset
	for _, ds := range inv.Datasets() {
		if MatchAll(ds, filters...) {
			out = append(out, ds)
		}
	}
	return out
}

// DatabaseTag returns the owning-database tag of the oldest dataset.
func (inv *Inventory) DatabaseTag() string {
	all := inv.Datasets()
	if len(all) == 0 {
		return ""
	}
	return all[0].Database
}

// Remove deletes a single dataset by code.
func (inv *Inventory) Remove(code string) error {
	inv.mu.Lock()
	e, ok := inv.datasets[code]
	if !ok {
		inv.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDatasetNotFound, code)
	}
	inv.removeLocked(e)
	subs := inv.subscribersLocked()
	inv.mu.Unlock()

	for _, sub := range subs {
		sub(Event{Type: EventDatasetRemoved, Dataset: e.ds})
	}
	return nil
}

// RemoveNameContaining deletes every dataset whose name contains any of the
// given fragments and returns the removed datasets in insertion order.
func (inv *Inventory) RemoveNameContaining(fragments ...string) []*model.Dataset {
	var removed []*model.Dataset
	for _, ds := range inv.Datasets() {
		for _, f := range fragments {
			if strings.Contains(ds.Name, f) {
				removed = append(removed, ds)
				break
			}
		}
	}
	for _, ds := range removed {
		_ = inv.Remove(ds.Code)
	}
	return removed
}

// Subscribe registers a callback for datasets being added or removed and
// returns a function that cancels it. Callbacks run after the store lock is
// released, in no particular order.
func (inv *Inventory) Subscribe(fn func(Event)) (unsubscribe func()) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.nextSub++
	id := inv.nextSub
	inv.subs[id] = fn

	return func() {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		delete(inv.subs, id)
	}
}

func (inv *Inventory) subscribersLocked() []func(Event) {
	out := make([]func(Event), 0, len(inv.subs))
	for _, fn := range inv.subs {
		out = append(out, fn)
	}
	return out
}

func (inv *Inventory) indexLocked(e *entry) {
	addIndex(inv.byName, e.ds.Name, e)
	addIndex(inv.byLocation, e.ds.Location, e)
}

func (inv *Inventory) removeLocked(e *entry) {
	code := e.ds.Code
	delete(inv.datasets, code)
	dropIndex(inv.byName, e.ds.Name, code)
	dropIndex(inv.byLocation, e.ds.Location, code)
}

func addIndex(idx map[string]map[string]*entry, key string, e *entry) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]*entry)
		idx[key] = set
	}
	set[e.ds.Code] = e
}

func dropIndex(idx map[string]map[string]*entry, key, code string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, code)
	if len(set) == 0 {
		delete(idx, key)
	}
}

func values(set map[string]*entry) []*entry {
	out := make([]*entry, 0, len(set))
	for _, e := range set {
		out = append(out, e)
	}
	return out
}

func ordered(entries []*entry) []*model.Dataset {
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]*model.Dataset, len(entries))
	for i, e := range entries {
		out[i] = e.ds
	}
	return out
}
