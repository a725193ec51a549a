package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// List wraps one canonical list row and, when the list sits in a user's
// library, that user's library configuration. The two halves are persisted
// and loaded independently.
type List struct {
	gw Gateway

	// ─────────────────────────────
	// Canonical (owner-editable)
	// ─────────────────────────────
	id            string
	ownerID       string
	title         string
	description   *string
	coverImageURL *string
	isPublic      bool
	createdAt     time.Time
	updatedAt     time.Time

	// ─────────────────────────────
	// Library configuration
	// ─────────────────────────────
	currentUserID *string
	folderID      *string
	sortOrder     SortOrder
	today         bool
	currentItem   *string
	notifyOnNew   bool
	notifyTime    *string
	notifyDays    *Weekday
	orderIndex    *int
	libUpdatedAt  time.Time
}

// NewList builds a list that does not exist remotely yet; call Create to store it.
func NewList(gw Gateway, ownerID, title string) *List {
	ts := now()
	return &List{
		gw:        gw,
		id:        uuid.NewString(),
		ownerID:   ownerID,
		title:     title,
		createdAt: ts,
		updatedAt: ts,
		sortOrder: SortDateFirst,
	}
}

// ListFromID fetches the canonical row only.
func ListFromID(ctx context.Context, gw Gateway, id string) (*List, error) {
	rec, err := gw.RetrieveList(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load list: %w", err)
	}
	return ListFromRaw(gw, rec, nil)
}

// LibraryListFromID fetches the canonical row and userID's library
// configuration for it. A missing configuration leaves the list unplaced.
func LibraryListFromID(ctx context.Context, gw Gateway, userID, listID string) (*List, error) {
	rec, err := gw.RetrieveList(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("load list: %w", err)
	}
	lib, err := gw.RetrieveLibraryListConfig(ctx, userID, listID)
	switch {
	case IsNotFound(err):
		l, err := ListFromRaw(gw, rec, nil)
		if err != nil {
			return nil, err
		}
		l.currentUserID = &userID
		return l, nil
	case err != nil:
		return nil, fmt.Errorf("load library config: %w", err)
	}
	return ListFromRaw(gw, rec, &lib)
}

// ListFromRaw wraps already-fetched rows. lib may be nil.
func ListFromRaw(gw Gateway, rec ListRecord, lib *LibraryListRecord) (*List, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	l := &List{gw: gw, sortOrder: SortDateFirst}
	l.apply(rec)
	if lib != nil {
		if lib.ListID != rec.ID {
			return nil, &DecodeError{Entity: "library_list", Field: "list_id", Err: fmt.Errorf("belongs to %q, not %q", lib.ListID, rec.ID)}
		}
		if err := lib.Validate(); err != nil {
			return nil, err
		}
		l.applyLibrary(*lib)
	}
	return l, nil
}

func (l *List) apply(rec ListRecord) {
	l.id = rec.ID
	l.ownerID = rec.OwnerID
	l.title = rec.Title
	l.description = rec.Description
	l.coverImageURL = rec.CoverImageURL
	l.isPublic = rec.IsPublic
	l.createdAt, _ = parseTime(rec.CreatedAt)
	l.updatedAt, _ = parseTime(rec.UpdatedAt)
}

func (l *List) applyLibrary(lib LibraryListRecord) {
	userID := lib.UserID
	l.currentUserID = &userID
	l.folderID = lib.FolderID
	l.sortOrder = lib.SortOrder
	if l.sortOrder == "" {
		l.sortOrder = SortDateFirst
	}
	l.today = lib.Today
	l.currentItem = lib.CurrentItem
	l.notifyOnNew = lib.NotifyOnNew
	l.notifyTime = lib.NotifyTime
	l.notifyDays = lib.NotifyDays
	l.orderIndex = lib.OrderIndex
	l.libUpdatedAt, _ = parseTime(lib.UpdatedAt)
}

func (l *List) ID() string             { return l.id }
func (l *List) OwnerID() string        { return l.ownerID }
func (l *List) Title() string          { return l.title }
func (l *List) Description() *string   { return l.description }
func (l *List) CoverImageURL() *string { return l.coverImageURL }
func (l *List) IsPublic() bool         { return l.isPublic }
func (l *List) CreatedAt() time.Time   { return l.createdAt }
func (l *List) UpdatedAt() time.Time   { return l.updatedAt }

func (l *List) SetTitle(title string)          { l.title = title }
func (l *List) SetDescription(desc *string)    { l.description = desc }
func (l *List) SetCoverImageURL(url *string)   { l.coverImageURL = url }
func (l *List) SetIsPublic(public bool)        { l.isPublic = public }
func (l *List) CurrentUserID() *string         { return l.currentUserID }
func (l *List) FolderID() *string              { return l.folderID }
func (l *List) SortOrder() SortOrder           { return l.sortOrder }
func (l *List) Today() bool                    { return l.today }
func (l *List) CurrentItem() *string           { return l.currentItem }
func (l *List) NotifyOnNew() bool              { return l.notifyOnNew }
func (l *List) NotifyTime() *string            { return l.notifyTime }
func (l *List) NotifyDays() *Weekday           { return l.notifyDays }
func (l *List) OrderIndex() *int               { return l.orderIndex }
func (l *List) LibraryUpdatedAt() time.Time    { return l.libUpdatedAt }
func (l *List) SetCurrentUserID(id *string)    { l.currentUserID = id }
func (l *List) SetFolderID(id *string)         { l.folderID = id }
func (l *List) SetSortOrder(order SortOrder)   { l.sortOrder = order }
func (l *List) SetToday(today bool)            { l.today = today }
func (l *List) SetCurrentItem(itemID *string)  { l.currentItem = itemID }
func (l *List) SetNotifyOnNew(notify bool)     { l.notifyOnNew = notify }
func (l *List) SetNotifyTime(hhmm *string)     { l.notifyTime = hhmm }
func (l *List) SetNotifyDays(day *Weekday)     { l.notifyDays = day }
func (l *List) SetOrderIndex(index *int)       { l.orderIndex = index }

// Snapshot captures every field of the wrapper. Calling restore puts them
// back, for callers that must undo local edits a failed Save did not persist.
func (l *List) Snapshot() (restore func()) {
	saved := *l
	return func() { *l = saved }
}

// IsOwner reports whether the viewing library user authored the list.
func (l *List) IsOwner() bool {
	return l.currentUserID != nil && *l.currentUserID == l.ownerID
}

// InLibrary reports whether the list is placed in a library folder.
func (l *List) InLibrary() bool {
	return l.currentUserID != nil && l.folderID != nil
}

func (l *List) Record() ListRecord {
	return ListRecord{
		ID:            l.id,
		OwnerID:       l.ownerID,
		Title:         l.title,
		Description:   l.description,
		CoverImageURL: l.coverImageURL,
		IsPublic:      l.isPublic,
		CreatedAt:     FormatTime(l.createdAt),
		UpdatedAt:     FormatTime(l.updatedAt),
	}
}

// LibraryRecord renders the library half, or nil when no viewer is set.
func (l *List) LibraryRecord() *LibraryListRecord {
	if l.currentUserID == nil {
		return nil
	}
	var updatedAt string
	if !l.libUpdatedAt.IsZero() {
		updatedAt = FormatTime(l.libUpdatedAt)
	}
	return &LibraryListRecord{
		UserID:      *l.currentUserID,
		ListID:      l.id,
		FolderID:    l.folderID,
		SortOrder:   l.sortOrder,
		Today:       l.today,
		CurrentItem: l.currentItem,
		NotifyOnNew: l.notifyOnNew,
		NotifyTime:  l.notifyTime,
		NotifyDays:  l.notifyDays,
		OrderIndex:  l.orderIndex,
		UpdatedAt:   updatedAt,
	}
}

func (l *List) libraryUpdate(ts time.Time) LibraryListUpdate {
	return LibraryListUpdate{
		SortOrder:   l.sortOrder,
		Today:       l.today,
		CurrentItem: l.currentItem,
		NotifyOnNew: l.notifyOnNew,
		NotifyTime:  l.notifyTime,
		NotifyDays:  l.notifyDays,
		OrderIndex:  l.orderIndex,
		UpdatedAt:   FormatTime(ts),
	}
}

func (l *List) Create(ctx context.Context) error {
	if err := l.gw.StoreNewList(ctx, l.Record()); err != nil {
		return fmt.Errorf("create list %s: %w", l.id, err)
	}
	return nil
}

// Save writes the canonical fields, then the library configuration when the
// list is placed (viewer and folder both set). The two writes are separate
// calls; a failure of the second leaves the first applied.
//
// The canonical row is only written when there is no viewer or the viewer
// owns the list. A non-owner's copy of those fields may be stale.
func (l *List) Save(ctx context.Context) error {
	ts := now()
	writeCanonical := l.currentUserID == nil || l.IsOwner()
	if writeCanonical {
		upd := ListUpdate{
			Title:         l.title,
			Description:   l.description,
			CoverImageURL: l.coverImageURL,
			IsPublic:      l.isPublic,
			UpdatedAt:     FormatTime(ts),
		}
		if err := l.gw.UpdateList(ctx, l.id, upd); err != nil {
			return fmt.Errorf("save list %s: %w", l.id, err)
		}
		l.updatedAt = ts
	}
	if l.InLibrary() {
		if err := l.gw.UpdateLibraryListConfig(ctx, *l.currentUserID, *l.folderID, l.id, l.libraryUpdate(ts)); err != nil {
			return fmt.Errorf("save library config for list %s: %w", l.id, err)
		}
		l.libUpdatedAt = ts
	}
	return nil
}

// Refresh re-reads the canonical row and, for a viewer, the library row.
// Library fields are only overwritten when the fetched configuration has a
// folder placement.
func (l *List) Refresh(ctx context.Context) error {
	rec, err := l.gw.RetrieveList(ctx, l.id)
	if err != nil {
		return fmt.Errorf("refresh list %s: %w", l.id, err)
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	l.apply(rec)

	if l.currentUserID == nil {
		return nil
	}
	lib, err := l.gw.RetrieveLibraryListConfig(ctx, *l.currentUserID, l.id)
	switch {
	case IsNotFound(err):
		return nil
	case err != nil:
		return fmt.Errorf("refresh library config for list %s: %w", l.id, err)
	}
	if err := lib.Validate(); err != nil {
		return err
	}
	if lib.FolderID != nil {
		l.applyLibrary(lib)
	}
	return nil
}

func (l *List) Delete(ctx context.Context) error {
	if err := l.gw.DeleteList(ctx, l.id); err != nil {
		return fmt.Errorf("delete list %s: %w", l.id, err)
	}
	return nil
}

// AddToLibrary stores a placement of the list in userID's folder and makes
// this wrapper that user's view of it.
func (l *List) AddToLibrary(ctx context.Context, userID, folderID string) error {
	prevUser, prevFolder, prevTS := l.currentUserID, l.folderID, l.libUpdatedAt
	l.currentUserID, l.folderID, l.libUpdatedAt = &userID, &folderID, now()
	if err := l.gw.StoreNewLibraryList(ctx, *l.LibraryRecord()); err != nil {
		l.currentUserID, l.folderID, l.libUpdatedAt = prevUser, prevFolder, prevTS
		return fmt.Errorf("add list %s to library: %w", l.id, err)
	}
	return nil
}

// RemoveFromLibrary deletes the viewer's placement and clears the library fields.
func (l *List) RemoveFromLibrary(ctx context.Context) error {
	if l.currentUserID == nil {
		return nil
	}
	if err := l.gw.DeleteLibraryList(ctx, *l.currentUserID, l.id); err != nil {
		return fmt.Errorf("remove list %s from library: %w", l.id, err)
	}
	l.folderID = nil
	l.today = false
	l.currentItem = nil
	l.orderIndex = nil
	return nil
}

// Items fetches the list's items and orders them by the list's sort order.
func (l *List) Items(ctx context.Context) ([]*ListItem, error) {
	recs, err := l.gw.QueryListItems(ctx, l.id)
	if err != nil {
		return nil, fmt.Errorf("load items of list %s: %w", l.id, err)
	}
	items := make([]*ListItem, 0, len(recs))
	for _, rec := range recs {
		item, err := ListItemFromRaw(l.gw, rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	SortItems(items, l.sortOrder)
	return items, nil
}

// SortItems orders items in place. Manual order puts items without an
// OrderIndex last; ties fall back to creation time, then id.
func SortItems(items []*ListItem, order SortOrder) {
	less := func(a, b *ListItem) bool {
		if !a.createdAt.Equal(b.createdAt) {
			return a.createdAt.After(b.createdAt)
		}
		return a.id < b.id
	}
	switch order {
	case SortDateLast:
		less = func(a, b *ListItem) bool {
			if !a.createdAt.Equal(b.createdAt) {
				return a.createdAt.Before(b.createdAt)
			}
			return a.id < b.id
		}
	case SortAlphabetical:
		less = func(a, b *ListItem) bool {
			ka, kb := strings.ToLower(a.sortKey()), strings.ToLower(b.sortKey())
			if ka != kb {
				return ka < kb
			}
			return a.id < b.id
		}
	case SortManual:
		less = func(a, b *ListItem) bool {
			switch {
			case a.orderIndex != nil && b.orderIndex != nil && *a.orderIndex != *b.orderIndex:
				return *a.orderIndex < *b.orderIndex
			case a.orderIndex != nil && b.orderIndex == nil:
				return true
			case a.orderIndex == nil && b.orderIndex != nil:
				return false
			}
			return a.createdAt.Before(b.createdAt)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}
