package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type libraryResponse struct {
	User    userView     `json:"user"`
	Folders []folderView `json:"folders"`
}

// Library returns the folder tree of the signed-in user with the lists
// placed in each folder.
func Library(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var resp libraryResponse
		err := d.Session.View(func(u *domain.User, _ *domain.TodayInfo) error {
			resp.User = newUserView(u)
			resp.Folders = []folderView{}
			for _, f := range u.RootFolders() {
				resp.Folders = append(resp.Folders, newFolderView(f, u))
			}
			return nil
		})
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func GetList(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var view listView
		err := d.Session.View(func(u *domain.User, _ *domain.TodayInfo) error {
			l, ok := u.GetList(id)
			if !ok {
				return domain.NotFound("list", id)
			}
			view = newListView(l)
			return nil
		})
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// ListItems returns the items of a list in the viewer's sort order.
func ListItems(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		views := []*itemView{}
		err := d.Session.View(func(u *domain.User, _ *domain.TodayInfo) error {
			l, ok := u.GetList(id)
			if !ok {
				return domain.NotFound("list", id)
			}
			items, err := l.Items(r.Context())
			if err != nil {
				return err
			}
			for _, it := range items {
				views = append(views, newItemView(it))
			}
			return nil
		})
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// listPatch changes a list. Absent fields are left alone; an empty string
// clears an optional text field.
type listPatch struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	CoverImageURL *string `json:"cover_image_url"`
	IsPublic      *bool   `json:"is_public"`

	FolderID    *string `json:"folder_id"`
	SortOrder   *string `json:"sort_order"`
	Today       *bool   `json:"today"`
	NotifyOnNew *bool   `json:"notify_on_new"`
	NotifyTime  *string `json:"notify_time"`
	NotifyDays  *string `json:"notify_days"`
	OrderIndex  *int    `json:"order_index"`
}

func (p listPatch) touchesCanonical() bool {
	return p.Title != nil || p.Description != nil || p.CoverImageURL != nil || p.IsPublic != nil
}

func (p listPatch) touchesLibrary() bool {
	return p.FolderID != nil || p.SortOrder != nil || p.Today != nil || p.NotifyOnNew != nil ||
		p.NotifyTime != nil || p.NotifyDays != nil || p.OrderIndex != nil
}

func (p listPatch) validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &domain.ValidationError{Entity: "list", Field: "title", Reason: "must not be empty"}
	}
	if p.SortOrder != nil && !domain.SortOrder(*p.SortOrder).Valid() {
		return &domain.ValidationError{Entity: "library_list", Field: "sort_order", Reason: fmt.Sprintf("unknown sort order %q", *p.SortOrder)}
	}
	if p.NotifyDays != nil && *p.NotifyDays != "" && !domain.Weekday(*p.NotifyDays).Valid() {
		return &domain.ValidationError{Entity: "library_list", Field: "notify_days", Reason: fmt.Sprintf("unknown weekday %q", *p.NotifyDays)}
	}
	if p.FolderID != nil && *p.FolderID == "" {
		return &domain.ValidationError{Entity: "library_list", Field: "folder_id", Reason: "must not be empty"}
	}
	return nil
}

func (p listPatch) apply(l *domain.List) {
	if p.Title != nil {
		l.SetTitle(strings.TrimSpace(*p.Title))
	}
	if p.Description != nil {
		l.SetDescription(clearable(*p.Description))
	}
	if p.CoverImageURL != nil {
		l.SetCoverImageURL(clearable(*p.CoverImageURL))
	}
	if p.IsPublic != nil {
		l.SetIsPublic(*p.IsPublic)
	}
	if p.FolderID != nil {
		l.SetFolderID(p.FolderID)
	}
	if p.SortOrder != nil {
		l.SetSortOrder(domain.SortOrder(*p.SortOrder))
	}
	if p.Today != nil {
		l.SetToday(*p.Today)
	}
	if p.NotifyOnNew != nil {
		l.SetNotifyOnNew(*p.NotifyOnNew)
	}
	if p.NotifyTime != nil {
		l.SetNotifyTime(clearable(*p.NotifyTime))
	}
	if p.NotifyDays != nil {
		if *p.NotifyDays == "" {
			l.SetNotifyDays(nil)
		} else {
			day := domain.Weekday(*p.NotifyDays)
			l.SetNotifyDays(&day)
		}
	}
	if p.OrderIndex != nil {
		l.SetOrderIndex(p.OrderIndex)
	}
}

// PatchList edits a list in the signed-in user's library. Only the owner
// may change the canonical fields; library fields need a placement.
func PatchList(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req listPatch
		if err := decodeJSON(r, &req); err != nil {
			writeError(d, w, r, err)
			return
		}
		if err := req.validate(); err != nil {
			writeError(d, w, r, err)
			return
		}

		ctx := r.Context()
		var view listView
		err := d.Session.Update(ctx, func(u *domain.User, _ *domain.TodayInfo) error {
			l, ok := u.GetList(id)
			if !ok {
				return domain.NotFound("list", id)
			}
			if req.touchesCanonical() && !l.IsOwner() {
				return &domain.ValidationError{Entity: "list", Field: "owner_id", Reason: "only the owner may edit the list"}
			}
			if req.touchesLibrary() && !l.InLibrary() {
				return &domain.ValidationError{Entity: "library_list", Field: "folder_id", Reason: "list is not placed in a folder"}
			}

			prevFolder := l.FolderID()
			var target *domain.Folder
			if req.FolderID != nil {
				f, ok := u.FindFolder(*req.FolderID)
				if !ok {
					return domain.NotFound("folder", *req.FolderID)
				}
				target = f
			}

			restore := l.Snapshot()
			req.apply(l)
			if err := l.Save(ctx); err != nil {
				// Put the wrapper back in line with whatever the backend kept.
				if rerr := l.Refresh(ctx); rerr != nil {
					restore()
				}
				return err
			}

			if target != nil && (prevFolder == nil || *prevFolder != target.ID()) {
				if prevFolder != nil {
					if old, ok := u.FindFolder(*prevFolder); ok {
						old.RemoveList(l.ID())
					}
				}
				target.AddList(l.ID())
			}
			view = newListView(l)
			return nil
		})
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func clearable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
