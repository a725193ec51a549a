// Package redis is a Gateway storing one JSON value per row plus index sets.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic-lock retries of a single update.
const maxTxRetries = 3

// Store handles Redis operations for every row kind.
type Store struct {
	client *redis.Client
}

var (
	_ domain.Gateway       = (*Store)(nil)
	_ domain.HealthChecker = (*Store)(nil)
	_ auth.CredentialStore = (*Store)(nil)
)

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return domain.NewTransportError("ping", err)
	}
	return nil
}

// ─────────────────────────────
// Generic helpers
// ─────────────────────────────

// classify passes domain errors through and wraps the rest as transport failures.
func classify(op string, err error) error {
	if err == nil || domain.IsNotFound(err) || domain.IsValidation(err) || domain.IsDecode(err) || domain.IsTransport(err) {
		return err
	}
	return domain.NewTransportError(op, err)
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRecord[T any](ctx context.Context, c getter, op, entity, id, key string, decode func([]byte) (T, error)) (T, error) {
	var zero T
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, domain.NotFound(entity, id)
	}
	if err != nil {
		return zero, domain.NewTransportError(op, err)
	}
	return decode(data)
}

// updateRecord applies mutate to the stored row under WATCH, retrying when
// another client wrote the key in between.
func updateRecord[T any](ctx context.Context, s *Store, op, entity, id, key string, decode func([]byte) (T, error), mutate func(*T)) error {
	txf := func(tx *redis.Tx) error {
		rec, err := getRecord(ctx, tx, op, entity, id, key, decode)
		if err != nil {
			return err
		}
		mutate(&rec)
		data, err := json.Marshal(rec)
		if err != nil {
			return domain.NewTransportError(op, err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return classify(op, err)
	}
	return domain.NewTransportError(op, redis.TxFailedErr)
}

type setMember struct {
	key    string
	member string
}

// storeNew writes rec under key only if the key is free, then indexes it.
func (s *Store) storeNew(ctx context.Context, op, entity, key string, rec any, index ...setMember) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return domain.NewTransportError(op, err)
	}
	ok, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return domain.NewTransportError(op, err)
	}
	if !ok {
		return &domain.ValidationError{Entity: entity, Field: "id", Reason: "already exists"}
	}
	if len(index) == 0 {
		return nil
	}
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, m := range index {
			p.SAdd(ctx, m.key, m.member)
		}
		return nil
	})
	return classify(op, err)
}

// queryIndex loads every row referenced by the set at setKey. Ids whose row
// is gone are skipped.
func queryIndex[T any](ctx context.Context, s *Store, op, setKey string, rowKey func(string) string, decode func([]byte) (T, error)) ([]T, error) {
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, domain.NewTransportError(op, err)
	}
	out := make([]T, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = rowKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.NewTransportError(op, err)
	}
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		rec, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ─────────────────────────────
// Users
// ─────────────────────────────

func (s *Store) RetrieveUser(ctx context.Context, id string) (domain.UserRecord, error) {
	return getRecord(ctx, s.client, "retrieve user", "user", id, UserKey(id), domain.DecodeUserRecord)
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) error {
	return updateRecord(ctx, s, "update user", "user", id, UserKey(id), domain.DecodeUserRecord, func(r *domain.UserRecord) {
		r.NotificationsEnabled = upd.NotificationsEnabled
		r.UpdatedAt = upd.UpdatedAt
	})
}

func (s *Store) StoreNewUser(ctx context.Context, rec domain.UserRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return s.storeNew(ctx, "store user", "user", UserKey(rec.ID), rec)
}

// DeleteUser removes the user row and the user's library placements.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, UserKey(id)).Result()
	if err != nil {
		return domain.NewTransportError("delete user", err)
	}
	if n == 0 {
		return domain.NotFound("user", id)
	}
	listIDs, err := s.client.SMembers(ctx, UserLibraryKey(id)).Result()
	if err != nil {
		return domain.NewTransportError("delete user", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, listID := range listIDs {
			p.Del(ctx, LibraryKey(id, listID))
			p.SRem(ctx, ListPlacementsKey(listID), id)
		}
		p.Del(ctx, UserLibraryKey(id))
		return nil
	})
	return classify("delete user", err)
}

// ─────────────────────────────
// Folders
// ─────────────────────────────

func (s *Store) RetrieveFolder(ctx context.Context, id string) (domain.FolderRecord, error) {
	return getRecord(ctx, s.client, "retrieve folder", "folder", id, FolderKey(id), domain.DecodeFolderRecord)
}

func (s *Store) UpdateFolder(ctx context.Context, id string, upd domain.FolderUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	return updateRecord(ctx, s, "update folder", "folder", id, FolderKey(id), domain.DecodeFolderRecord, func(r *domain.FolderRecord) {
		r.Name = upd.Name
		r.ParentFolderID = upd.ParentFolderID
		r.UpdatedAt = upd.UpdatedAt
	})
}

func (s *Store) StoreNewFolder(ctx context.Context, rec domain.FolderRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return s.storeNew(ctx, "store folder", "folder", FolderKey(rec.ID), rec,
		setMember{UserFoldersKey(rec.OwnerID), rec.ID})
}

// DeleteFolder removes the folder and its descendants. Placements in a
// removed folder stay in the library without a folder.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	const op = "delete folder"
	root, err := s.RetrieveFolder(ctx, id)
	if err != nil {
		return err
	}
	all, err := s.QueryFolders(ctx, root.OwnerID)
	if err != nil {
		return err
	}
	removed := subtree(id, all)

	libs, err := s.QueryLibraryLists(ctx, root.OwnerID)
	if err != nil {
		return err
	}
	var orphaned [][]byte
	var orphanKeys []string
	for _, lib := range libs {
		if lib.FolderID == nil || !removed[*lib.FolderID] {
			continue
		}
		lib.FolderID = nil
		data, err := json.Marshal(lib)
		if err != nil {
			return domain.NewTransportError(op, err)
		}
		orphaned = append(orphaned, data)
		orphanKeys = append(orphanKeys, LibraryKey(lib.UserID, lib.ListID))
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for fid := range removed {
			p.Del(ctx, FolderKey(fid))
			p.SRem(ctx, UserFoldersKey(root.OwnerID), fid)
		}
		for i, key := range orphanKeys {
			p.Set(ctx, key, orphaned[i], 0)
		}
		return nil
	})
	return classify(op, err)
}

// subtree returns id and every folder below it.
func subtree(id string, folders []domain.FolderRecord) map[string]bool {
	removed := map[string]bool{id: true}
	for grew := true; grew; {
		grew = false
		for _, f := range folders {
			if f.ParentFolderID != nil && removed[*f.ParentFolderID] && !removed[f.ID] {
				removed[f.ID] = true
				grew = true
			}
		}
	}
	return removed
}

func (s *Store) QueryFolders(ctx context.Context, ownerID string) ([]domain.FolderRecord, error) {
	out, err := queryIndex(ctx, s, "query folders", UserFoldersKey(ownerID), FolderKey, domain.DecodeFolderRecord)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// ─────────────────────────────
// Lists and library placements
// ─────────────────────────────

func (s *Store) RetrieveList(ctx context.Context, id string) (domain.ListRecord, error) {
	return getRecord(ctx, s.client, "retrieve list", "list", id, ListKey(id), domain.DecodeListRecord)
}

func (s *Store) UpdateList(ctx context.Context, id string, upd domain.ListUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	return updateRecord(ctx, s, "update list", "list", id, ListKey(id), domain.DecodeListRecord, func(r *domain.ListRecord) {
		r.Title = upd.Title
		r.Description = upd.Description
		r.CoverImageURL = upd.CoverImageURL
		r.IsPublic = upd.IsPublic
		r.UpdatedAt = upd.UpdatedAt
	})
}

func (s *Store) StoreNewList(ctx context.Context, rec domain.ListRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return s.storeNew(ctx, "store list", "list", ListKey(rec.ID), rec)
}

// DeleteList removes the list, its items and every placement of it.
func (s *Store) DeleteList(ctx context.Context, id string) error {
	const op = "delete list"
	n, err := s.client.Exists(ctx, ListKey(id)).Result()
	if err != nil {
		return domain.NewTransportError(op, err)
	}
	if n == 0 {
		return domain.NotFound("list", id)
	}
	itemIDs, err := s.client.SMembers(ctx, ListItemsKey(id)).Result()
	if err != nil {
		return domain.NewTransportError(op, err)
	}
	userIDs, err := s.client.SMembers(ctx, ListPlacementsKey(id)).Result()
	if err != nil {
		return domain.NewTransportError(op, err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, ListKey(id), ListItemsKey(id), ListPlacementsKey(id))
		for _, itemID := range itemIDs {
			p.Del(ctx, ItemKey(itemID))
		}
		for _, userID := range userIDs {
			p.Del(ctx, LibraryKey(userID, id))
			p.SRem(ctx, UserLibraryKey(userID), id)
		}
		return nil
	})
	return classify(op, err)
}

func (s *Store) RetrieveLibraryListConfig(ctx context.Context, userID, listID string) (domain.LibraryListRecord, error) {
	return getRecord(ctx, s.client, "retrieve library list", "library list", userID+"/"+listID,
		LibraryKey(userID, listID), domain.DecodeLibraryListRecord)
}

func (s *Store) UpdateLibraryListConfig(ctx context.Context, userID, folderID, listID string, upd domain.LibraryListUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	return updateRecord(ctx, s, "update library list", "library list", userID+"/"+listID,
		LibraryKey(userID, listID), domain.DecodeLibraryListRecord, func(r *domain.LibraryListRecord) {
			r.FolderID = &folderID
			r.SortOrder = upd.SortOrder
			r.Today = upd.Today
			r.CurrentItem = upd.CurrentItem
			r.NotifyOnNew = upd.NotifyOnNew
			r.NotifyTime = upd.NotifyTime
			r.NotifyDays = upd.NotifyDays
			r.OrderIndex = upd.OrderIndex
			r.UpdatedAt = upd.UpdatedAt
		})
}

func (s *Store) StoreNewLibraryList(ctx context.Context, rec domain.LibraryListRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return s.storeNew(ctx, "store library list", "library_list", LibraryKey(rec.UserID, rec.ListID), rec,
		setMember{UserLibraryKey(rec.UserID), rec.ListID},
		setMember{ListPlacementsKey(rec.ListID), rec.UserID})
}

func (s *Store) DeleteLibraryList(ctx context.Context, userID, listID string) error {
	const op = "delete library list"
	n, err := s.client.Del(ctx, LibraryKey(userID, listID)).Result()
	if err != nil {
		return domain.NewTransportError(op, err)
	}
	if n == 0 {
		return domain.NotFound("library list", userID+"/"+listID)
	}
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.SRem(ctx, UserLibraryKey(userID), listID)
		p.SRem(ctx, ListPlacementsKey(listID), userID)
		return nil
	})
	return classify(op, err)
}

func (s *Store) QueryLibraryLists(ctx context.Context, userID string) ([]domain.LibraryListRecord, error) {
	rowKey := func(listID string) string { return LibraryKey(userID, listID) }
	return queryIndex(ctx, s, "query library lists", UserLibraryKey(userID), rowKey, domain.DecodeLibraryListRecord)
}

// ─────────────────────────────
// Items
// ─────────────────────────────

func (s *Store) RetrieveListItem(ctx context.Context, id string) (domain.ListItemRecord, error) {
	return getRecord(ctx, s.client, "retrieve list item", "list item", id, ItemKey(id), domain.DecodeListItemRecord)
}

func (s *Store) UpdateListItem(ctx context.Context, id string, upd domain.ListItemUpdate) error {
	return updateRecord(ctx, s, "update list item", "list item", id, ItemKey(id), domain.DecodeListItemRecord, func(r *domain.ListItemRecord) {
		r.Title = upd.Title
		r.Content = upd.Content
		r.ImageURLs = upd.ImageURLs
		r.OrderIndex = upd.OrderIndex
		r.UpdatedAt = upd.UpdatedAt
	})
}

func (s *Store) StoreNewListItem(ctx context.Context, rec domain.ListItemRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	n, err := s.client.Exists(ctx, ListKey(rec.ListID)).Result()
	if err != nil {
		return domain.NewTransportError("store list item", err)
	}
	if n == 0 {
		return &domain.ValidationError{Entity: "list_item", Field: "list_id", Reason: "unknown list"}
	}
	return s.storeNew(ctx, "store list item", "list_item", ItemKey(rec.ID), rec,
		setMember{ListItemsKey(rec.ListID), rec.ID})
}

func (s *Store) DeleteListItem(ctx context.Context, id string) error {
	rec, err := s.RetrieveListItem(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, ItemKey(id))
		p.SRem(ctx, ListItemsKey(rec.ListID), id)
		return nil
	})
	return classify("delete list item", err)
}

func (s *Store) QueryListItems(ctx context.Context, listID string) ([]domain.ListItemRecord, error) {
	return queryIndex(ctx, s, "query list items", ListItemsKey(listID), ItemKey, domain.DecodeListItemRecord)
}

// ─────────────────────────────
// Credentials
// ─────────────────────────────

func (s *Store) SaveCredential(ctx context.Context, c auth.Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return domain.NewTransportError("save credential", err)
	}
	ok, err := s.client.SetNX(ctx, CredentialKey(c.Username), data, 0).Result()
	if err != nil {
		return domain.NewTransportError("save credential", err)
	}
	if !ok {
		return auth.ErrUsernameTaken
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, username string) (auth.Credential, error) {
	return getRecord(ctx, s.client, "get credential", "credential", username, CredentialKey(username),
		func(data []byte) (auth.Credential, error) {
			var c auth.Credential
			if err := json.Unmarshal(data, &c); err != nil {
				return c, &domain.DecodeError{Entity: "credential", Err: err}
			}
			return c, nil
		})
}
