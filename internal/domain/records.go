package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Raw rows as the Gateway stores them. Timestamps are RFC 3339 strings;
// wrappers parse them on construction, which is the only transformation
// between a record and the getters of the wrapper built from it.

// SortOrder selects how a library list displays its items.
type SortOrder string

const (
	SortDateFirst    SortOrder = "date-first"
	SortDateLast     SortOrder = "date-last"
	SortAlphabetical SortOrder = "alphabetical"
	SortManual       SortOrder = "manual"
)

func (s SortOrder) Valid() bool {
	switch s {
	case SortDateFirst, SortDateLast, SortAlphabetical, SortManual:
		return true
	}
	return false
}

// Weekday is the single day a library list notifies on.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

func (d Weekday) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// NotifyTimeLayout is the wall-clock layout of LibraryListRecord.NotifyTime.
const NotifyTimeLayout = "15:04"

type UserRecord struct {
	ID                   string  `json:"id"`
	Username             string  `json:"username"`
	Email                string  `json:"email"`
	AvatarURL            *string `json:"avatar_url,omitempty"`
	NotificationsEnabled bool    `json:"notifications_enabled"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}

// UserUpdate carries the full mutable subset of a user row.
type UserUpdate struct {
	NotificationsEnabled bool   `json:"notifications_enabled"`
	UpdatedAt            string `json:"updated_at"`
}

type FolderRecord struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"owner_id"`
	ParentFolderID *string `json:"parent_folder_id,omitempty"`
	Name           string  `json:"name"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type FolderUpdate struct {
	Name           string  `json:"name"`
	ParentFolderID *string `json:"parent_folder_id,omitempty"`
	UpdatedAt      string  `json:"updated_at"`
}

type ListRecord struct {
	ID            string  `json:"id"`
	OwnerID       string  `json:"owner_id"`
	Title         string  `json:"title"`
	Description   *string `json:"description,omitempty"`
	CoverImageURL *string `json:"cover_image_url,omitempty"`
	IsPublic      bool    `json:"is_public"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

type ListUpdate struct {
	Title         string  `json:"title"`
	Description   *string `json:"description,omitempty"`
	CoverImageURL *string `json:"cover_image_url,omitempty"`
	IsPublic      bool    `json:"is_public"`
	UpdatedAt     string  `json:"updated_at"`
}

// LibraryListRecord is one user's placement and settings for a list.
type LibraryListRecord struct {
	UserID      string    `json:"user_id"`
	ListID      string    `json:"list_id"`
	FolderID    *string   `json:"folder_id,omitempty"`
	SortOrder   SortOrder `json:"sort_order"`
	Today       bool      `json:"today"`
	CurrentItem *string   `json:"current_item,omitempty"`
	NotifyOnNew bool      `json:"notify_on_new"`
	NotifyTime  *string   `json:"notify_time,omitempty"`
	NotifyDays  *Weekday  `json:"notify_days,omitempty"`
	OrderIndex  *int      `json:"order_index,omitempty"`
	UpdatedAt   string    `json:"updated_at"`
}

type LibraryListUpdate struct {
	SortOrder   SortOrder `json:"sort_order"`
	Today       bool      `json:"today"`
	CurrentItem *string   `json:"current_item,omitempty"`
	NotifyOnNew bool      `json:"notify_on_new"`
	NotifyTime  *string   `json:"notify_time,omitempty"`
	NotifyDays  *Weekday  `json:"notify_days,omitempty"`
	OrderIndex  *int      `json:"order_index,omitempty"`
	UpdatedAt   string    `json:"updated_at"`
}

type ListItemRecord struct {
	ID         string   `json:"id"`
	ListID     string   `json:"list_id"`
	Title      *string  `json:"title,omitempty"`
	Content    string   `json:"content"`
	ImageURLs  []string `json:"image_urls,omitempty"`
	OrderIndex *int     `json:"order_index,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

type ListItemUpdate struct {
	Title      *string  `json:"title,omitempty"`
	Content    string   `json:"content"`
	ImageURLs  []string `json:"image_urls,omitempty"`
	OrderIndex *int     `json:"order_index,omitempty"`
	UpdatedAt  string   `json:"updated_at"`
}

// ─────────────────────────────
// Validation
// ─────────────────────────────

func (r UserRecord) Validate() error {
	if err := required("user", "id", r.ID); err != nil {
		return err
	}
	if err := required("user", "username", r.Username); err != nil {
		return err
	}
	return timestamps("user", r.CreatedAt, r.UpdatedAt)
}

func (r FolderRecord) Validate() error {
	if err := required("folder", "id", r.ID); err != nil {
		return err
	}
	if err := required("folder", "owner_id", r.OwnerID); err != nil {
		return err
	}
	if r.ParentFolderID != nil && *r.ParentFolderID == r.ID {
		return &DecodeError{Entity: "folder", Field: "parent_folder_id", Err: errors.New("folder is its own parent")}
	}
	return timestamps("folder", r.CreatedAt, r.UpdatedAt)
}

func (r ListRecord) Validate() error {
	if err := required("list", "id", r.ID); err != nil {
		return err
	}
	if err := required("list", "owner_id", r.OwnerID); err != nil {
		return err
	}
	return timestamps("list", r.CreatedAt, r.UpdatedAt)
}

func (r LibraryListRecord) Validate() error {
	if err := required("library_list", "user_id", r.UserID); err != nil {
		return err
	}
	if err := required("library_list", "list_id", r.ListID); err != nil {
		return err
	}
	if r.SortOrder != "" && !r.SortOrder.Valid() {
		return &DecodeError{Entity: "library_list", Field: "sort_order", Err: fmt.Errorf("unknown sort order %q", r.SortOrder)}
	}
	if r.NotifyDays != nil && !r.NotifyDays.Valid() {
		return &DecodeError{Entity: "library_list", Field: "notify_days", Err: fmt.Errorf("unknown weekday %q", *r.NotifyDays)}
	}
	if r.NotifyTime != nil {
		if _, err := time.Parse(NotifyTimeLayout, *r.NotifyTime); err != nil {
			return &DecodeError{Entity: "library_list", Field: "notify_time", Err: err}
		}
	}
	if r.UpdatedAt != "" {
		if _, err := parseTime(r.UpdatedAt); err != nil {
			return &DecodeError{Entity: "library_list", Field: "updated_at", Err: err}
		}
	}
	return nil
}

func (r ListItemRecord) Validate() error {
	if err := required("list_item", "id", r.ID); err != nil {
		return err
	}
	if err := required("list_item", "list_id", r.ListID); err != nil {
		return err
	}
	return timestamps("list_item", r.CreatedAt, r.UpdatedAt)
}

// Validate rejects library writes a backend must refuse.
func (u LibraryListUpdate) Validate() error {
	if !u.SortOrder.Valid() {
		return &ValidationError{Entity: "library_list", Field: "sort_order", Reason: fmt.Sprintf("unknown sort order %q", u.SortOrder)}
	}
	if u.NotifyDays != nil && !u.NotifyDays.Valid() {
		return &ValidationError{Entity: "library_list", Field: "notify_days", Reason: fmt.Sprintf("unknown weekday %q", *u.NotifyDays)}
	}
	if u.NotifyTime != nil {
		if _, err := time.Parse(NotifyTimeLayout, *u.NotifyTime); err != nil {
			return &ValidationError{Entity: "library_list", Field: "notify_time", Reason: "expected HH:MM"}
		}
	}
	return nil
}

func (u ListUpdate) Validate() error {
	if strings.TrimSpace(u.Title) == "" {
		return &ValidationError{Entity: "list", Field: "title", Reason: "must not be empty"}
	}
	return nil
}

func (u FolderUpdate) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return &ValidationError{Entity: "folder", Field: "name", Reason: "must not be empty"}
	}
	return nil
}

func required(entity, field, v string) error {
	if v == "" {
		return &DecodeError{Entity: entity, Field: field, Err: errors.New("missing")}
	}
	return nil
}

func timestamps(entity, created, updated string) error {
	if _, err := parseTime(created); err != nil {
		return &DecodeError{Entity: entity, Field: "created_at", Err: err}
	}
	if _, err := parseTime(updated); err != nil {
		return &DecodeError{Entity: entity, Field: "updated_at", Err: err}
	}
	return nil
}

// ─────────────────────────────
// Decoding from the wire
// ─────────────────────────────

// DecodeUserRecord parses and validates one JSON user row.
func DecodeUserRecord(data []byte) (UserRecord, error) {
	var r UserRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return r, &DecodeError{Entity: "user", Err: err}
	}
	return r, r.Validate()
}

func DecodeFolderRecord(data []byte) (FolderRecord, error) {
	var r FolderRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return r, &DecodeError{Entity: "folder", Err: err}
	}
	return r, r.Validate()
}

func DecodeListRecord(data []byte) (ListRecord, error) {
	var r ListRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return r, &DecodeError{Entity: "list", Err: err}
	}
	return r, r.Validate()
}

func DecodeLibraryListRecord(data []byte) (LibraryListRecord, error) {
	var r LibraryListRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return r, &DecodeError{Entity: "library_list", Err: err}
	}
	return r, r.Validate()
}

func DecodeListItemRecord(data []byte) (ListItemRecord, error) {
	var r ListItemRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return r, &DecodeError{Entity: "list_item", Err: err}
	}
	return r, r.Validate()
}

// ─────────────────────────────
// Time helpers
// ─────────────────────────────

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	return time.Parse(time.RFC3339Nano, s)
}

// FormatTime renders t the way records carry timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
