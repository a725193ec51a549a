// Package memory is an in-process Gateway. It backs development runs and
// every test that needs a fake remote store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/domain"
)

type libraryKey struct {
	userID string
	listID string
}

// Store keeps every row in maps guarded by one RWMutex.
type Store struct {
	mu          sync.RWMutex
	users       map[string]domain.UserRecord
	folders     map[string]domain.FolderRecord
	lists       map[string]domain.ListRecord
	library     map[libraryKey]domain.LibraryListRecord
	items       map[string]domain.ListItemRecord
	credentials map[string]auth.Credential // username -> credential
}

var (
	_ domain.Gateway       = (*Store)(nil)
	_ domain.HealthChecker = (*Store)(nil)
	_ auth.CredentialStore = (*Store)(nil)
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.UserRecord),
		folders:     make(map[string]domain.FolderRecord),
		lists:       make(map[string]domain.ListRecord),
		library:     make(map[libraryKey]domain.LibraryListRecord),
		items:       make(map[string]domain.ListItemRecord),
		credentials: make(map[string]auth.Credential),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func exists(entity string) error {
	return &domain.ValidationError{Entity: entity, Field: "id", Reason: "already exists"}
}

// ─────────────────────────────
// Users
// ─────────────────────────────

func (s *Store) RetrieveUser(ctx context.Context, id string) (domain.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[id]
	if !ok {
		return domain.UserRecord{}, domain.NotFound("user", id)
	}
	return rec, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return domain.NotFound("user", id)
	}
	rec.NotificationsEnabled = upd.NotificationsEnabled
	rec.UpdatedAt = upd.UpdatedAt
	s.users[id] = rec
	return nil
}

func (s *Store) StoreNewUser(ctx context.Context, rec domain.UserRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[rec.ID]; ok {
		return exists("user")
	}
	s.users[rec.ID] = rec
	return nil
}

// DeleteUser removes the user row and the user's library placements.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return domain.NotFound("user", id)
	}
	delete(s.users, id)
	for k := range s.library {
		if k.userID == id {
			delete(s.library, k)
		}
	}
	return nil
}

// ─────────────────────────────
// Folders
// ─────────────────────────────

func (s *Store) RetrieveFolder(ctx context.Context, id string) (domain.FolderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.folders[id]
	if !ok {
		return domain.FolderRecord{}, domain.NotFound("folder", id)
	}
	return rec, nil
}

func (s *Store) UpdateFolder(ctx context.Context, id string, upd domain.FolderUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.folders[id]
	if !ok {
		return domain.NotFound("folder", id)
	}
	rec.Name = upd.Name
	rec.ParentFolderID = upd.ParentFolderID
	rec.UpdatedAt = upd.UpdatedAt
	s.folders[id] = rec
	return nil
}

func (s *Store) StoreNewFolder(ctx context.Context, rec domain.FolderRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.folders[rec.ID]; ok {
		return exists("folder")
	}
	s.folders[rec.ID] = rec
	return nil
}

// DeleteFolder removes the folder and its descendants. Placements in a
// removed folder stay in the library without a folder.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.folders[id]; !ok {
		return domain.NotFound("folder", id)
	}
	removed := map[string]bool{id: true}
	for grew := true; grew; {
		grew = false
		for fid, rec := range s.folders {
			if rec.ParentFolderID != nil && removed[*rec.ParentFolderID] && !removed[fid] {
				removed[fid] = true
				grew = true
			}
		}
	}
	for fid := range removed {
		delete(s.folders, fid)
	}
	for k, lib := range s.library {
		if lib.FolderID != nil && removed[*lib.FolderID] {
			lib.FolderID = nil
			s.library[k] = lib
		}
	}
	return nil
}

func (s *Store) QueryFolders(ctx context.Context, ownerID string) ([]domain.FolderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FolderRecord, 0)
	for _, rec := range s.folders {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ─────────────────────────────
// Lists
// ─────────────────────────────

func (s *Store) RetrieveList(ctx context.Context, id string) (domain.ListRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.lists[id]
	if !ok {
		return domain.ListRecord{}, domain.NotFound("list", id)
	}
	return rec, nil
}

func (s *Store) UpdateList(ctx context.Context, id string, upd domain.ListUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lists[id]
	if !ok {
		return domain.NotFound("list", id)
	}
	rec.Title = upd.Title
	rec.Description = upd.Description
	rec.CoverImageURL = upd.CoverImageURL
	rec.IsPublic = upd.IsPublic
	rec.UpdatedAt = upd.UpdatedAt
	s.lists[id] = rec
	return nil
}

func (s *Store) StoreNewList(ctx context.Context, rec domain.ListRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[rec.ID]; ok {
		return exists("list")
	}
	s.lists[rec.ID] = rec
	return nil
}

// DeleteList removes the list, its items and every placement of it.
func (s *Store) DeleteList(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[id]; !ok {
		return domain.NotFound("list", id)
	}
	delete(s.lists, id)
	for iid, it := range s.items {
		if it.ListID == id {
			delete(s.items, iid)
		}
	}
	for k := range s.library {
		if k.listID == id {
			delete(s.library, k)
		}
	}
	return nil
}

func (s *Store) RetrieveLibraryListConfig(ctx context.Context, userID, listID string) (domain.LibraryListRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.library[libraryKey{userID, listID}]
	if !ok {
		return domain.LibraryListRecord{}, domain.NotFound("library list", userID+"/"+listID)
	}
	return rec, nil
}

func (s *Store) UpdateLibraryListConfig(ctx context.Context, userID, folderID, listID string, upd domain.LibraryListUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := libraryKey{userID, listID}
	rec, ok := s.library[k]
	if !ok {
		return domain.NotFound("library list", userID+"/"+listID)
	}
	rec.FolderID = &folderID
	rec.SortOrder = upd.SortOrder
	rec.Today = upd.Today
	rec.CurrentItem = upd.CurrentItem
	rec.NotifyOnNew = upd.NotifyOnNew
	rec.NotifyTime = upd.NotifyTime
	rec.NotifyDays = upd.NotifyDays
	rec.OrderIndex = upd.OrderIndex
	rec.UpdatedAt = upd.UpdatedAt
	s.library[k] = rec
	return nil
}

func (s *Store) StoreNewLibraryList(ctx context.Context, rec domain.LibraryListRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := libraryKey{rec.UserID, rec.ListID}
	if _, ok := s.library[k]; ok {
		return exists("library_list")
	}
	s.library[k] = rec
	return nil
}

func (s *Store) DeleteLibraryList(ctx context.Context, userID, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := libraryKey{userID, listID}
	if _, ok := s.library[k]; !ok {
		return domain.NotFound("library list", userID+"/"+listID)
	}
	delete(s.library, k)
	return nil
}

func (s *Store) QueryLibraryLists(ctx context.Context, userID string) ([]domain.LibraryListRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LibraryListRecord, 0)
	for k, rec := range s.library {
		if k.userID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ListID < out[j].ListID })
	return out, nil
}

// ─────────────────────────────
// Items
// ─────────────────────────────

func (s *Store) RetrieveListItem(ctx context.Context, id string) (domain.ListItemRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[id]
	if !ok {
		return domain.ListItemRecord{}, domain.NotFound("list item", id)
	}
	return cloneItem(rec), nil
}

func (s *Store) UpdateListItem(ctx context.Context, id string, upd domain.ListItemUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return domain.NotFound("list item", id)
	}
	rec.Title = upd.Title
	rec.Content = upd.Content
	rec.ImageURLs = append([]string(nil), upd.ImageURLs...)
	rec.OrderIndex = upd.OrderIndex
	rec.UpdatedAt = upd.UpdatedAt
	s.items[id] = rec
	return nil
}

func (s *Store) StoreNewListItem(ctx context.Context, rec domain.ListItemRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[rec.ID]; ok {
		return exists("list_item")
	}
	if _, ok := s.lists[rec.ListID]; !ok {
		return &domain.ValidationError{Entity: "list_item", Field: "list_id", Reason: "unknown list"}
	}
	s.items[rec.ID] = cloneItem(rec)
	return nil
}

func (s *Store) DeleteListItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.NotFound("list item", id)
	}
	delete(s.items, id)
	return nil
}

func (s *Store) QueryListItems(ctx context.Context, listID string) ([]domain.ListItemRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ListItemRecord, 0)
	for _, rec := range s.items {
		if rec.ListID == listID {
			out = append(out, cloneItem(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneItem(rec domain.ListItemRecord) domain.ListItemRecord {
	if rec.ImageURLs != nil {
		rec.ImageURLs = append([]string(nil), rec.ImageURLs...)
	}
	return rec
}

// ─────────────────────────────
// Credentials
// ─────────────────────────────

func (s *Store) SaveCredential(ctx context.Context, c auth.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[c.Username]; ok {
		return auth.ErrUsernameTaken
	}
	s.credentials[c.Username] = c
	return nil
}

func (s *Store) GetCredential(ctx context.Context, username string) (auth.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[username]
	if !ok {
		return auth.Credential{}, domain.NotFound("credential", username)
	}
	return c, nil
}
