package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// ─────────────────────────────
// Folders
// ─────────────────────────────

const folderColumns = `id, owner_id, parent_folder_id, name, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFolder(row scanner) (domain.FolderRecord, error) {
	var r domain.FolderRecord
	err := row.Scan(&r.ID, &r.OwnerID, &r.ParentFolderID, &r.Name, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) RetrieveFolder(ctx context.Context, id string) (domain.FolderRecord, error) {
	r, err := scanFolder(s.db.QueryRowContext(ctx, `SELECT `+folderColumns+` FROM folders WHERE id = ?`, id))
	if err != nil {
		return domain.FolderRecord{}, readErr("retrieve folder", "folder", id, err)
	}
	return r, nil
}

func (s *Store) UpdateFolder(ctx context.Context, id string, upd domain.FolderUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE folders SET name = ?, parent_folder_id = ?, updated_at = ? WHERE id = ?`,
		upd.Name, upd.ParentFolderID, upd.UpdatedAt, id)
	return affected("update folder", "folder", id, res, err)
}

func (s *Store) StoreNewFolder(ctx context.Context, rec domain.FolderRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO folders (`+folderColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.ParentFolderID, rec.Name, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return writeErr("store folder", "folder", err)
	}
	return nil
}

// subtree selects a folder id and all of its descendants.
const subtree = `
	WITH RECURSIVE sub(id) AS (
		SELECT ?
		UNION
		SELECT f.id FROM folders f JOIN sub ON f.parent_folder_id = sub.id
	)`

// DeleteFolder removes the folder and its descendants. Placements in a
// removed folder stay in the library without a folder.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	return s.inTx(ctx, "delete folder", func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM folders WHERE id = ?`, id).Scan(&n); err != nil {
			return domain.NewTransportError("delete folder", err)
		}
		if n == 0 {
			return domain.NotFound("folder", id)
		}
		if _, err := tx.ExecContext(ctx, subtree+`
			UPDATE library_lists SET folder_id = NULL WHERE folder_id IN (SELECT id FROM sub)`, id); err != nil {
			return domain.NewTransportError("delete folder", err)
		}
		if _, err := tx.ExecContext(ctx, subtree+`
			DELETE FROM folders WHERE id IN (SELECT id FROM sub)`, id); err != nil {
			return domain.NewTransportError("delete folder", err)
		}
		return nil
	})
}

func (s *Store) QueryFolders(ctx context.Context, ownerID string) ([]domain.FolderRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, domain.NewTransportError("query folders", err)
	}
	defer rows.Close()

	out := make([]domain.FolderRecord, 0)
	for rows.Next() {
		r, err := scanFolder(rows)
		if err != nil {
			return nil, domain.NewTransportError("query folders", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewTransportError("query folders", err)
	}
	return out, nil
}

// ─────────────────────────────
// Lists
// ─────────────────────────────

func (s *Store) RetrieveList(ctx context.Context, id string) (domain.ListRecord, error) {
	var r domain.ListRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, cover_image_url, is_public, created_at, updated_at
		FROM lists WHERE id = ?`, id,
	).Scan(&r.ID, &r.OwnerID, &r.Title, &r.Description, &r.CoverImageURL, &r.IsPublic, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.ListRecord{}, readErr("retrieve list", "list", id, err)
	}
	return r, nil
}

func (s *Store) UpdateList(ctx context.Context, id string, upd domain.ListUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE lists SET title = ?, description = ?, cover_image_url = ?, is_public = ?, updated_at = ?
		WHERE id = ?`,
		upd.Title, upd.Description, upd.CoverImageURL, upd.IsPublic, upd.UpdatedAt, id)
	return affected("update list", "list", id, res, err)
}

func (s *Store) StoreNewList(ctx context.Context, rec domain.ListRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lists (id, owner_id, title, description, cover_image_url, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.Title, rec.Description, rec.CoverImageURL, rec.IsPublic, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return writeErr("store list", "list", err)
	}
	return nil
}

// DeleteList removes the list, its items (by cascade) and every placement of it.
func (s *Store) DeleteList(ctx context.Context, id string) error {
	return s.inTx(ctx, "delete list", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
		if err := affected("delete list", "list", id, res, err); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM library_lists WHERE list_id = ?`, id); err != nil {
			return domain.NewTransportError("delete list", err)
		}
		return nil
	})
}

const libraryColumns = `user_id, list_id, folder_id, sort_order, today, current_item,
	notify_on_new, notify_time, notify_days, order_index, updated_at`

func scanLibrary(row scanner) (domain.LibraryListRecord, error) {
	var r domain.LibraryListRecord
	err := row.Scan(&r.UserID, &r.ListID, &r.FolderID, &r.SortOrder, &r.Today, &r.CurrentItem,
		&r.NotifyOnNew, &r.NotifyTime, &r.NotifyDays, &r.OrderIndex, &r.UpdatedAt)
	return r, err
}

func (s *Store) RetrieveLibraryListConfig(ctx context.Context, userID, listID string) (domain.LibraryListRecord, error) {
	r, err := scanLibrary(s.db.QueryRowContext(ctx,
		`SELECT `+libraryColumns+` FROM library_lists WHERE user_id = ? AND list_id = ?`, userID, listID))
	if err != nil {
		return domain.LibraryListRecord{}, readErr("retrieve library list", "library list", userID+"/"+listID, err)
	}
	return r, nil
}

func (s *Store) UpdateLibraryListConfig(ctx context.Context, userID, folderID, listID string, upd domain.LibraryListUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE library_lists SET folder_id = ?, sort_order = ?, today = ?, current_item = ?,
			notify_on_new = ?, notify_time = ?, notify_days = ?, order_index = ?, updated_at = ?
		WHERE user_id = ? AND list_id = ?`,
		folderID, upd.SortOrder, upd.Today, upd.CurrentItem,
		upd.NotifyOnNew, upd.NotifyTime, upd.NotifyDays, upd.OrderIndex, upd.UpdatedAt,
		userID, listID)
	return affected("update library list", "library list", userID+"/"+listID, res, err)
}

func (s *Store) StoreNewLibraryList(ctx context.Context, rec domain.LibraryListRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO library_lists (`+libraryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.ListID, rec.FolderID, rec.SortOrder, rec.Today, rec.CurrentItem,
		rec.NotifyOnNew, rec.NotifyTime, rec.NotifyDays, rec.OrderIndex, rec.UpdatedAt)
	if err != nil {
		return writeErr("store library list", "library_list", err)
	}
	return nil
}

func (s *Store) DeleteLibraryList(ctx context.Context, userID, listID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM library_lists WHERE user_id = ? AND list_id = ?`, userID, listID)
	return affected("delete library list", "library list", userID+"/"+listID, res, err)
}

func (s *Store) QueryLibraryLists(ctx context.Context, userID string) ([]domain.LibraryListRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+libraryColumns+` FROM library_lists WHERE user_id = ? ORDER BY list_id`, userID)
	if err != nil {
		return nil, domain.NewTransportError("query library lists", err)
	}
	defer rows.Close()

	out := make([]domain.LibraryListRecord, 0)
	for rows.Next() {
		r, err := scanLibrary(rows)
		if err != nil {
			return nil, domain.NewTransportError("query library lists", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewTransportError("query library lists", err)
	}
	return out, nil
}

// ─────────────────────────────
// Items
// ─────────────────────────────

const itemColumns = `id, list_id, title, content, image_urls, order_index, created_at, updated_at`

func scanItem(row scanner) (domain.ListItemRecord, error) {
	var (
		r    domain.ListItemRecord
		urls sql.NullString
	)
	if err := row.Scan(&r.ID, &r.ListID, &r.Title, &r.Content, &urls, &r.OrderIndex, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return r, err
	}
	if urls.Valid && urls.String != "" {
		if err := json.Unmarshal([]byte(urls.String), &r.ImageURLs); err != nil {
			return r, &domain.DecodeError{Entity: "list_item", Field: "image_urls", Err: err}
		}
	}
	return r, nil
}

// encodeURLs stores nil as NULL and anything else as a JSON array.
func encodeURLs(urls []string) (any, error) {
	if urls == nil {
		return nil, nil
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Store) RetrieveListItem(ctx context.Context, id string) (domain.ListItemRecord, error) {
	r, err := scanItem(s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if domain.IsDecode(err) {
		return domain.ListItemRecord{}, err
	}
	if err != nil {
		return domain.ListItemRecord{}, readErr("retrieve list item", "list item", id, err)
	}
	return r, nil
}

func (s *Store) UpdateListItem(ctx context.Context, id string, upd domain.ListItemUpdate) error {
	urls, err := encodeURLs(upd.ImageURLs)
	if err != nil {
		return &domain.ValidationError{Entity: "list_item", Field: "image_urls", Reason: err.Error()}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET title = ?, content = ?, image_urls = ?, order_index = ?, updated_at = ?
		WHERE id = ?`,
		upd.Title, upd.Content, urls, upd.OrderIndex, upd.UpdatedAt, id)
	return affected("update list item", "list item", id, res, err)
}

func (s *Store) StoreNewListItem(ctx context.Context, rec domain.ListItemRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	urls, err := encodeURLs(rec.ImageURLs)
	if err != nil {
		return &domain.ValidationError{Entity: "list_item", Field: "image_urls", Reason: err.Error()}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ListID, rec.Title, rec.Content, urls, rec.OrderIndex, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return writeErr("store list item", "list_item", err)
	}
	return nil
}

func (s *Store) DeleteListItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	return affected("delete list item", "list item", id, res, err)
}

func (s *Store) QueryListItems(ctx context.Context, listID string) ([]domain.ListItemRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE list_id = ? ORDER BY id`, listID)
	if err != nil {
		return nil, domain.NewTransportError("query list items", err)
	}
	defer rows.Close()

	out := make([]domain.ListItemRecord, 0)
	for rows.Next() {
		r, err := scanItem(rows)
		if domain.IsDecode(err) {
			return nil, err
		}
		if err != nil {
			return nil, domain.NewTransportError("query list items", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewTransportError("query list items", err)
	}
	return out, nil
}
