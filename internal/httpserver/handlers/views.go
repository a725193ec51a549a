package handlers

import (
	"sort"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

type userView struct {
	ID                   string    `json:"id"`
	Username             string    `json:"username"`
	Email                string    `json:"email,omitempty"`
	AvatarURL            *string   `json:"avatar_url,omitempty"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func newUserView(u *domain.User) userView {
	return userView{
		ID:                   u.ID(),
		Username:             u.Username(),
		Email:                u.Email(),
		AvatarURL:            u.AvatarURL(),
		NotificationsEnabled: u.NotificationsEnabled(),
		CreatedAt:            u.CreatedAt(),
		UpdatedAt:            u.UpdatedAt(),
	}
}

// libraryView is the viewer's configuration of a list.
type libraryView struct {
	FolderID    *string          `json:"folder_id,omitempty"`
	SortOrder   domain.SortOrder `json:"sort_order"`
	Today       bool             `json:"today"`
	CurrentItem *string          `json:"current_item,omitempty"`
	NotifyOnNew bool             `json:"notify_on_new"`
	NotifyTime  *string          `json:"notify_time,omitempty"`
	NotifyDays  *domain.Weekday  `json:"notify_days,omitempty"`
	OrderIndex  *int             `json:"order_index,omitempty"`
}

type listView struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"owner_id"`
	Title         string       `json:"title"`
	Description   *string      `json:"description,omitempty"`
	CoverImageURL *string      `json:"cover_image_url,omitempty"`
	IsPublic      bool         `json:"is_public"`
	IsOwner       bool         `json:"is_owner"`
	Library       *libraryView `json:"library,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func newListView(l *domain.List) listView {
	v := listView{
		ID:            l.ID(),
		OwnerID:       l.OwnerID(),
		Title:         l.Title(),
		Description:   l.Description(),
		CoverImageURL: l.CoverImageURL(),
		IsPublic:      l.IsPublic(),
		IsOwner:       l.IsOwner(),
		CreatedAt:     l.CreatedAt(),
		UpdatedAt:     l.UpdatedAt(),
	}
	if l.CurrentUserID() != nil {
		v.Library = &libraryView{
			FolderID:    l.FolderID(),
			SortOrder:   l.SortOrder(),
			Today:       l.Today(),
			CurrentItem: l.CurrentItem(),
			NotifyOnNew: l.NotifyOnNew(),
			NotifyTime:  l.NotifyTime(),
			NotifyDays:  l.NotifyDays(),
			OrderIndex:  l.OrderIndex(),
		}
	}
	return v
}

type itemView struct {
	ID         string    `json:"id"`
	ListID     string    `json:"list_id"`
	Title      *string   `json:"title,omitempty"`
	Content    string    `json:"content"`
	ImageURLs  []string  `json:"image_urls,omitempty"`
	OrderIndex *int      `json:"order_index,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newItemView(it *domain.ListItem) *itemView {
	if it == nil {
		return nil
	}
	return &itemView{
		ID:         it.ID(),
		ListID:     it.ListID(),
		Title:      it.Title(),
		Content:    it.Content(),
		ImageURLs:  it.ImageURLs(),
		OrderIndex: it.OrderIndex(),
		CreatedAt:  it.CreatedAt(),
		UpdatedAt:  it.UpdatedAt(),
	}
}

type folderView struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	ParentFolderID *string      `json:"parent_folder_id,omitempty"`
	Folders        []folderView `json:"folders"`
	Lists          []listView   `json:"lists"`
}

func newFolderView(f *domain.Folder, r domain.ListResolver) folderView {
	v := folderView{
		ID:             f.ID(),
		Name:           f.Name(),
		ParentFolderID: f.ParentFolderID(),
		Folders:        []folderView{},
		Lists:          []listView{},
	}
	for _, c := range f.Folders() {
		v.Folders = append(v.Folders, newFolderView(c, r))
	}
	lists := f.Lists(r)
	sortByOrderIndex(lists)
	for _, l := range lists {
		v.Lists = append(v.Lists, newListView(l))
	}
	return v
}

type todayEntryView struct {
	ListID  string    `json:"list_id"`
	Title   string    `json:"title"`
	Status  string    `json:"status"`
	Pending bool      `json:"pending"`
	Item    *itemView `json:"item,omitempty"`
	Error   string    `json:"error,omitempty"`
}

func newTodayEntryView(l *domain.List, st domain.ItemState) todayEntryView {
	v := todayEntryView{
		ListID:  l.ID(),
		Title:   l.Title(),
		Status:  st.Status.String(),
		Pending: st.Pending,
		Item:    newItemView(st.Item),
	}
	if st.Err != nil {
		v.Error = st.Err.Error()
	}
	return v
}

// sortByOrderIndex orders lists by OrderIndex, unindexed last, keeping the
// incoming order among equals.
func sortByOrderIndex(lists []*domain.List) {
	sort.SliceStable(lists, func(i, j int) bool {
		a, b := lists[i].OrderIndex(), lists[j].OrderIndex()
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}
