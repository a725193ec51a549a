package domain

import (
	"context"
	"sync"
	"time"
)

// ItemStatus is the outcome of the most recent completed lookup for a list.
type ItemStatus int

const (
	// StatusUnresolved means no lookup has completed for the list yet.
	StatusUnresolved ItemStatus = iota
	// StatusResolved means the current item was fetched (or set locally).
	StatusResolved
	// StatusNoItem means the list has no current item configured.
	StatusNoItem
	// StatusFailed means the last completed fetch returned an error.
	StatusFailed
)

func (s ItemStatus) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusResolved:
		return "resolved"
	case StatusNoItem:
		return "no-item"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ItemState is the tagged view of one Today entry.
type ItemState struct {
	Status  ItemStatus
	Item    *ListItem // set only when Status is StatusResolved
	Err     error     // set only when Status is StatusFailed
	Pending bool      // a fetch is in flight
}

type todayEntry struct {
	state    ItemState
	epoch    uint64 // epoch of the newest fetch issued for this list
	inFlight int
}

// TodayOption configures a TodayInfo.
type TodayOption func(*TodayInfo)

// WithSupersededDiscard drops results of fetches that were overtaken by a
// newer refresh (or a local override) for the same list. Without it, the
// fetch that completes last wins.
func WithSupersededDiscard() TodayOption {
	return func(t *TodayInfo) { t.discardSuperseded = true }
}

// WithFetchTimeout bounds each per-list fetch. Zero means no bound.
func WithFetchTimeout(d time.Duration) TodayOption {
	return func(t *TodayInfo) { t.fetchTimeout = d }
}

// WithFetchErrorHook is called, outside any lock, for every failed fetch.
func WithFetchErrorHook(hook func(listID, itemID string, err error)) TodayOption {
	return func(t *TodayInfo) { t.onFetchError = hook }
}

// TodayInfo tracks the lists flagged for Today and caches each list's
// current item. Reads are synchronous; lookups run in the background and
// their errors never reach the caller, a failed list just shows no item.
//
// TodayInfo is safe for concurrent use. The List objects it tracks are
// only read, when a refresh is issued.
type TodayInfo struct {
	gw                ItemGateway
	discardSuperseded bool
	fetchTimeout      time.Duration
	onFetchError      func(listID, itemID string, err error)

	mu      sync.Mutex
	lists   []*List
	entries map[string]*todayEntry
	noItem  map[string]bool
	epoch   uint64

	wg sync.WaitGroup
}

// NewTodayInfo tracks lists and immediately starts resolving their current items.
func NewTodayInfo(ctx context.Context, gw ItemGateway, lists []*List, opts ...TodayOption) *TodayInfo {
	t := &TodayInfo{
		gw:      gw,
		lists:   append([]*List(nil), lists...),
		entries: make(map[string]*todayEntry),
		noItem:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.RefreshTodayItems(ctx)
	return t
}

type todayFetch struct {
	listID string
	itemID string
}

// RefreshTodayItems issues one fetch per tracked list that has a current
// item and returns without waiting. Lists without a current item are not
// queried and lose any cached entry. Fetches outlive ctx cancellation;
// use WithFetchTimeout to bound them.
func (t *TodayInfo) RefreshTodayItems(ctx context.Context) {
	t.mu.Lock()
	t.epoch++
	epoch := t.epoch
	t.noItem = make(map[string]bool, len(t.lists))

	fetches := make([]todayFetch, 0, len(t.lists))
	for _, l := range t.lists {
		cur := l.CurrentItem()
		if cur == nil {
			delete(t.entries, l.ID())
			t.noItem[l.ID()] = true
			continue
		}
		e := t.entries[l.ID()]
		if e == nil {
			e = &todayEntry{}
			t.entries[l.ID()] = e
		}
		e.epoch = epoch
		e.inFlight++
		fetches = append(fetches, todayFetch{listID: l.ID(), itemID: *cur})
	}
	t.wg.Add(len(fetches))
	t.mu.Unlock()

	base := context.WithoutCancel(ctx)
	for _, f := range fetches {
		go t.fetch(base, f, epoch)
	}
}

func (t *TodayInfo) fetch(ctx context.Context, f todayFetch, epoch uint64) {
	defer t.wg.Done()

	if t.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.fetchTimeout)
		defer cancel()
	}
	item, err := ListItemFromID(ctx, t.gw, f.itemID)

	t.mu.Lock()
	e, tracked := t.entries[f.listID]
	if tracked {
		if e.inFlight > 0 {
			e.inFlight--
		}
		if !t.discardSuperseded || e.epoch == epoch {
			if err != nil {
				e.state = ItemState{Status: StatusFailed, Err: err}
			} else {
				e.state = ItemState{Status: StatusResolved, Item: item}
			}
		}
	}
	t.mu.Unlock()

	if err != nil && t.onFetchError != nil {
		t.onFetchError(f.listID, f.itemID, err)
	}
}

// UpdateTodayLists replaces the tracked lists and refreshes. Entries of
// lists that stay tracked keep their last value until the new fetch lands.
func (t *TodayInfo) UpdateTodayLists(ctx context.Context, lists []*List) {
	t.mu.Lock()
	t.lists = append([]*List(nil), lists...)
	keep := make(map[string]bool, len(lists))
	for _, l := range lists {
		keep[l.ID()] = true
	}
	for id := range t.entries {
		if !keep[id] {
			delete(t.entries, id)
		}
	}
	t.mu.Unlock()

	t.RefreshTodayItems(ctx)
}

// ChangeTodayItemForList overrides the cached item for listID locally.
// Nothing is written to the Gateway; persisting the list's CurrentItem is
// the caller's job.
func (t *TodayInfo) ChangeTodayItemForList(listID string, item *ListItem) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[listID]
	if e == nil {
		e = &todayEntry{}
		t.entries[listID] = e
	}
	if t.discardSuperseded {
		t.epoch++
		e.epoch = t.epoch
	}
	if item == nil {
		e.state = ItemState{Status: StatusNoItem}
	} else {
		e.state = ItemState{Status: StatusResolved, Item: item}
		delete(t.noItem, listID)
	}
}

// GetItemForList returns the cached item, or nil when the list has no
// current item, has not resolved yet, or its fetch failed.
func (t *TodayInfo) GetItemForList(listID string) *ListItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.entries[listID]; e != nil {
		return e.state.Item
	}
	return nil
}

// Lookup returns the tagged state for listID, telling apart the cases
// GetItemForList folds into nil.
func (t *TodayInfo) Lookup(listID string) ItemState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.entries[listID]; e != nil {
		st := e.state
		st.Pending = e.inFlight > 0
		return st
	}
	if t.noItem[listID] {
		return ItemState{Status: StatusNoItem}
	}
	return ItemState{Status: StatusUnresolved}
}

// Lists returns the tracked lists.
func (t *TodayInfo) Lists() []*List {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*List(nil), t.lists...)
}

// Wait blocks until every fetch issued so far has completed.
func (t *TodayInfo) Wait() {
	t.wg.Wait()
}
