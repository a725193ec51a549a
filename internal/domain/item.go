package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListItem wraps one item row. It belongs to exactly one list.
type ListItem struct {
	gw ItemGateway

	id        string
	listID    string
	createdAt time.Time
	updatedAt time.Time

	title      *string
	content    string
	imageURLs  []string
	orderIndex *int
}

// NewListItem builds an item that does not exist remotely yet; call Create to store it.
func NewListItem(gw ItemGateway, listID, content string) *ListItem {
	ts := now()
	return &ListItem{
		gw:        gw,
		id:        uuid.NewString(),
		listID:    listID,
		content:   content,
		createdAt: ts,
		updatedAt: ts,
	}
}

func ListItemFromID(ctx context.Context, gw ItemGateway, id string) (*ListItem, error) {
	rec, err := gw.RetrieveListItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load list item: %w", err)
	}
	return ListItemFromRaw(gw, rec)
}

func ListItemFromRaw(gw ItemGateway, rec ListItemRecord) (*ListItem, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	it := &ListItem{gw: gw}
	it.apply(rec)
	return it, nil
}

func (it *ListItem) apply(rec ListItemRecord) {
	it.id = rec.ID
	it.listID = rec.ListID
	it.title = rec.Title
	it.content = rec.Content
	it.imageURLs = rec.ImageURLs
	it.orderIndex = rec.OrderIndex
	it.createdAt, _ = parseTime(rec.CreatedAt)
	it.updatedAt, _ = parseTime(rec.UpdatedAt)
}

func (it *ListItem) ID() string           { return it.id }
func (it *ListItem) ListID() string       { return it.listID }
func (it *ListItem) Title() *string       { return it.title }
func (it *ListItem) Content() string      { return it.content }
func (it *ListItem) ImageURLs() []string  { return it.imageURLs }
func (it *ListItem) OrderIndex() *int     { return it.orderIndex }
func (it *ListItem) CreatedAt() time.Time { return it.createdAt }
func (it *ListItem) UpdatedAt() time.Time { return it.updatedAt }

func (it *ListItem) SetTitle(title *string)     { it.title = title }
func (it *ListItem) SetContent(content string)  { it.content = content }
func (it *ListItem) SetImageURLs(urls []string) { it.imageURLs = urls }
func (it *ListItem) SetOrderIndex(index *int)   { it.orderIndex = index }

func (it *ListItem) sortKey() string {
	if it.title != nil {
		return *it.title
	}
	return it.content
}

func (it *ListItem) Record() ListItemRecord {
	return ListItemRecord{
		ID:         it.id,
		ListID:     it.listID,
		Title:      it.title,
		Content:    it.content,
		ImageURLs:  it.imageURLs,
		OrderIndex: it.orderIndex,
		CreatedAt:  FormatTime(it.createdAt),
		UpdatedAt:  FormatTime(it.updatedAt),
	}
}

func (it *ListItem) Create(ctx context.Context) error {
	if err := it.gw.StoreNewListItem(ctx, it.Record()); err != nil {
		return fmt.Errorf("create list item %s: %w", it.id, err)
	}
	return nil
}

func (it *ListItem) Save(ctx context.Context) error {
	ts := now()
	upd := ListItemUpdate{
		Title:      it.title,
		Content:    it.content,
		ImageURLs:  it.imageURLs,
		OrderIndex: it.orderIndex,
		UpdatedAt:  FormatTime(ts),
	}
	if err := it.gw.UpdateListItem(ctx, it.id, upd); err != nil {
		return fmt.Errorf("save list item %s: %w", it.id, err)
	}
	it.updatedAt = ts
	return nil
}

func (it *ListItem) Refresh(ctx context.Context) error {
	rec, err := it.gw.RetrieveListItem(ctx, it.id)
	if err != nil {
		return fmt.Errorf("refresh list item %s: %w", it.id, err)
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	it.apply(rec)
	return nil
}

func (it *ListItem) Delete(ctx context.Context) error {
	if err := it.gw.DeleteListItem(ctx, it.id); err != nil {
		return fmt.Errorf("delete list item %s: %w", it.id, err)
	}
	return nil
}
