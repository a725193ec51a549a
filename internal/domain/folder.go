package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Folder is one node of a user's folder tree. It owns its child folders and
// records list membership by id only; the List objects live in User.
type Folder struct {
	gw FolderGateway

	id        string
	ownerID   string
	createdAt time.Time
	updatedAt time.Time

	parentFolderID *string
	name           string

	children []*Folder
	listIDs  []string
}

// NewFolder builds a folder that does not exist remotely yet; call Create to store it.
func NewFolder(gw FolderGateway, ownerID, name string, parentFolderID *string) *Folder {
	ts := now()
	return &Folder{
		gw:             gw,
		id:             uuid.NewString(),
		ownerID:        ownerID,
		parentFolderID: parentFolderID,
		name:           name,
		createdAt:      ts,
		updatedAt:      ts,
	}
}

func FolderFromID(ctx context.Context, gw FolderGateway, id string) (*Folder, error) {
	rec, err := gw.RetrieveFolder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load folder: %w", err)
	}
	return FolderFromRaw(gw, rec)
}

func FolderFromRaw(gw FolderGateway, rec FolderRecord) (*Folder, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	f := &Folder{gw: gw}
	f.apply(rec)
	return f, nil
}

func (f *Folder) apply(rec FolderRecord) {
	f.id = rec.ID
	f.ownerID = rec.OwnerID
	f.parentFolderID = rec.ParentFolderID
	f.name = rec.Name
	f.createdAt, _ = parseTime(rec.CreatedAt)
	f.updatedAt, _ = parseTime(rec.UpdatedAt)
}

func (f *Folder) ID() string              { return f.id }
func (f *Folder) OwnerID() string         { return f.ownerID }
func (f *Folder) ParentFolderID() *string { return f.parentFolderID }
func (f *Folder) Name() string            { return f.name }
func (f *Folder) CreatedAt() time.Time    { return f.createdAt }
func (f *Folder) UpdatedAt() time.Time    { return f.updatedAt }

// IsRoot reports whether the folder has no parent.
func (f *Folder) IsRoot() bool { return f.parentFolderID == nil }

func (f *Folder) SetName(name string)          { f.name = name }
func (f *Folder) SetParentFolderID(id *string) { f.parentFolderID = id }

func (f *Folder) Record() FolderRecord {
	return FolderRecord{
		ID:             f.id,
		OwnerID:        f.ownerID,
		ParentFolderID: f.parentFolderID,
		Name:           f.name,
		CreatedAt:      FormatTime(f.createdAt),
		UpdatedAt:      FormatTime(f.updatedAt),
	}
}

func (f *Folder) Create(ctx context.Context) error {
	if err := f.gw.StoreNewFolder(ctx, f.Record()); err != nil {
		return fmt.Errorf("create folder %s: %w", f.id, err)
	}
	return nil
}

func (f *Folder) Save(ctx context.Context) error {
	ts := now()
	upd := FolderUpdate{
		Name:           f.name,
		ParentFolderID: f.parentFolderID,
		UpdatedAt:      FormatTime(ts),
	}
	if err := f.gw.UpdateFolder(ctx, f.id, upd); err != nil {
		return fmt.Errorf("save folder %s: %w", f.id, err)
	}
	f.updatedAt = ts
	return nil
}

// Refresh overwrites the row fields; children and list ids are kept.
func (f *Folder) Refresh(ctx context.Context) error {
	rec, err := f.gw.RetrieveFolder(ctx, f.id)
	if err != nil {
		return fmt.Errorf("refresh folder %s: %w", f.id, err)
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	f.apply(rec)
	return nil
}

func (f *Folder) Delete(ctx context.Context) error {
	if err := f.gw.DeleteFolder(ctx, f.id); err != nil {
		return fmt.Errorf("delete folder %s: %w", f.id, err)
	}
	return nil
}

// ─────────────────────────────
// Tree and membership
// ─────────────────────────────

// IsEmpty holds iff the folder has no child folders and no lists.
func (f *Folder) IsEmpty() bool {
	return len(f.children) == 0 && len(f.listIDs) == 0
}

func (f *Folder) Folders() []*Folder {
	out := make([]*Folder, len(f.children))
	copy(out, f.children)
	return out
}

// AddFolder attaches child unless a child with the same id is present.
func (f *Folder) AddFolder(child *Folder) {
	for _, c := range f.children {
		if c.ID() == child.ID() {
			return
		}
	}
	f.children = append(f.children, child)
}

func (f *Folder) RemoveFolder(id string) {
	for i, c := range f.children {
		if c.ID() == id {
			f.children = append(f.children[:i], f.children[i+1:]...)
			return
		}
	}
}

func (f *Folder) ListIDs() []string {
	out := make([]string, len(f.listIDs))
	copy(out, f.listIDs)
	return out
}

func (f *Folder) HasList(listID string) bool {
	for _, id := range f.listIDs {
		if id == listID {
			return true
		}
	}
	return false
}

// AddList records membership of listID; adding the same id twice is a no-op.
func (f *Folder) AddList(listID string) {
	if f.HasList(listID) {
		return
	}
	f.listIDs = append(f.listIDs, listID)
}

func (f *Folder) RemoveList(listID string) {
	for i, id := range f.listIDs {
		if id == listID {
			f.listIDs = append(f.listIDs[:i], f.listIDs[i+1:]...)
			return
		}
	}
}

// Lists resolves the member ids through r, skipping ids r does not know.
func (f *Folder) Lists(r ListResolver) []*List {
	out := make([]*List, 0, len(f.listIDs))
	for _, id := range f.listIDs {
		if l, ok := r.GetList(id); ok {
			out = append(out, l)
		}
	}
	return out
}

// Find returns f or a descendant with the given id.
func (f *Folder) Find(id string) (*Folder, bool) {
	if f.id == id {
		return f, true
	}
	for _, c := range f.children {
		if found, ok := c.Find(id); ok {
			return found, true
		}
	}
	return nil, false
}
