package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// now is the clock wrappers stamp UpdatedAt with after a successful Save.
var now = time.Now

// ListResolver resolves a list id to the canonical in-memory List.
// Folders and views hold ids only and go through this capability.
type ListResolver interface {
	GetList(id string) (*List, bool)
}

// User is the signed-in account and the container for its library:
// the root folder tree and the canonical map of List objects.
//
// A User is not safe for concurrent use; callers serialize Save/Refresh
// and collection mutations.
type User struct {
	gw UserGateway

	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────
	id        string
	username  string
	email     string
	avatarURL *string
	createdAt time.Time
	updatedAt time.Time

	// ─────────────────────────────
	// Mutable
	// ─────────────────────────────
	notificationsEnabled bool

	// ─────────────────────────────
	// Library working set
	// ─────────────────────────────
	rootFolders []*Folder
	lists       map[string]*List
	listOrder   []string // insertion order of lists
}

// NewUser builds a user that does not exist remotely yet; call Create to store it.
func NewUser(gw UserGateway, username, email string) *User {
	ts := now()
	return &User{
		gw:        gw,
		id:        uuid.NewString(),
		username:  username,
		email:     email,
		createdAt: ts,
		updatedAt: ts,
		lists:     make(map[string]*List),
	}
}

// UserFromID fetches the user row and wraps it.
func UserFromID(ctx context.Context, gw UserGateway, id string) (*User, error) {
	rec, err := gw.RetrieveUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return UserFromRaw(gw, rec)
}

// UserFromRaw wraps an already-fetched row without touching the Gateway.
func UserFromRaw(gw UserGateway, rec UserRecord) (*User, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	u := &User{gw: gw, lists: make(map[string]*List)}
	u.apply(rec)
	return u, nil
}

// apply copies every field of rec; rec must already be validated.
func (u *User) apply(rec UserRecord) {
	u.id = rec.ID
	u.username = rec.Username
	u.email = rec.Email
	u.avatarURL = rec.AvatarURL
	u.notificationsEnabled = rec.NotificationsEnabled
	u.createdAt, _ = parseTime(rec.CreatedAt)
	u.updatedAt, _ = parseTime(rec.UpdatedAt)
}

func (u *User) ID() string                 { return u.id }
func (u *User) Username() string           { return u.username }
func (u *User) Email() string              { return u.email }
func (u *User) AvatarURL() *string         { return u.avatarURL }
func (u *User) CreatedAt() time.Time       { return u.createdAt }
func (u *User) UpdatedAt() time.Time       { return u.updatedAt }
func (u *User) NotificationsEnabled() bool { return u.notificationsEnabled }

func (u *User) SetNotificationsEnabled(enabled bool) { u.notificationsEnabled = enabled }

// Record renders the wrapper back into its row shape.
func (u *User) Record() UserRecord {
	return UserRecord{
		ID:                   u.id,
		Username:             u.username,
		Email:                u.email,
		AvatarURL:            u.avatarURL,
		NotificationsEnabled: u.notificationsEnabled,
		CreatedAt:            FormatTime(u.createdAt),
		UpdatedAt:            FormatTime(u.updatedAt),
	}
}

// Create stores a user built with NewUser.
func (u *User) Create(ctx context.Context) error {
	if err := u.gw.StoreNewUser(ctx, u.Record()); err != nil {
		return fmt.Errorf("create user %s: %w", u.id, err)
	}
	return nil
}

// Save pushes the mutable fields. UpdatedAt advances only when the call succeeds.
func (u *User) Save(ctx context.Context) error {
	ts := now()
	upd := UserUpdate{
		NotificationsEnabled: u.notificationsEnabled,
		UpdatedAt:            FormatTime(ts),
	}
	if err := u.gw.UpdateUser(ctx, u.id, upd); err != nil {
		return fmt.Errorf("save user %s: %w", u.id, err)
	}
	u.updatedAt = ts
	return nil
}

// Refresh re-reads the row and overwrites the in-memory copy.
// The library working set is left untouched.
func (u *User) Refresh(ctx context.Context) error {
	rec, err := u.gw.RetrieveUser(ctx, u.id)
	if err != nil {
		return fmt.Errorf("refresh user %s: %w", u.id, err)
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	u.apply(rec)
	return nil
}

// Delete removes the remote row.
func (u *User) Delete(ctx context.Context) error {
	if err := u.gw.DeleteUser(ctx, u.id); err != nil {
		return fmt.Errorf("delete user %s: %w", u.id, err)
	}
	return nil
}

// ─────────────────────────────
// Root folders
// ─────────────────────────────

func (u *User) RootFolders() []*Folder {
	out := make([]*Folder, len(u.rootFolders))
	copy(out, u.rootFolders)
	return out
}

// AddRootFolder appends f unless a root folder with the same id is present.
func (u *User) AddRootFolder(f *Folder) {
	for _, existing := range u.rootFolders {
		if existing.ID() == f.ID() {
			return
		}
	}
	u.rootFolders = append(u.rootFolders, f)
}

// RemoveRootFolder drops the root folder with id; absent ids are a no-op.
func (u *User) RemoveRootFolder(id string) {
	for i, f := range u.rootFolders {
		if f.ID() == id {
			u.rootFolders = append(u.rootFolders[:i], u.rootFolders[i+1:]...)
			return
		}
	}
}

// FindFolder searches the whole tree for id.
func (u *User) FindFolder(id string) (*Folder, bool) {
	for _, root := range u.rootFolders {
		if f, ok := root.Find(id); ok {
			return f, true
		}
	}
	return nil, false
}

// ─────────────────────────────
// List map
// ─────────────────────────────

// AddList stores l as the canonical object for its id, replacing any previous one.
func (u *User) AddList(l *List) {
	if _, ok := u.lists[l.ID()]; !ok {
		u.listOrder = append(u.listOrder, l.ID())
	}
	u.lists[l.ID()] = l
}

func (u *User) RemoveList(id string) {
	if _, ok := u.lists[id]; !ok {
		return
	}
	delete(u.lists, id)
	for i, lid := range u.listOrder {
		if lid == id {
			u.listOrder = append(u.listOrder[:i], u.listOrder[i+1:]...)
			break
		}
	}
}

func (u *User) GetList(id string) (*List, bool) {
	l, ok := u.lists[id]
	return l, ok
}

// Lists returns every list in insertion order.
func (u *User) Lists() []*List {
	out := make([]*List, 0, len(u.listOrder))
	for _, id := range u.listOrder {
		out = append(out, u.lists[id])
	}
	return out
}

// TodayLists returns the lists flagged for the Today view, in insertion order.
// Display ordering belongs to OrderIndex, not to this slice.
func (u *User) TodayLists() []*List {
	var out []*List
	for _, id := range u.listOrder {
		if l := u.lists[id]; l.Today() {
			out = append(out, l)
		}
	}
	return out
}
