package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/domain"
)

const ts = "2024-03-01T10:00:00Z"

func strp(s string) *string { return &s }

func seeded(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := NewStore()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.StoreNewUser(ctx, domain.UserRecord{ID: "u1", Username: "ada", CreatedAt: ts, UpdatedAt: ts}))
	must(s.StoreNewFolder(ctx, domain.FolderRecord{ID: "f1", OwnerID: "u1", Name: "Root", CreatedAt: ts, UpdatedAt: ts}))
	must(s.StoreNewFolder(ctx, domain.FolderRecord{ID: "f2", OwnerID: "u1", ParentFolderID: strp("f1"), Name: "Child", CreatedAt: ts, UpdatedAt: ts}))
	must(s.StoreNewList(ctx, domain.ListRecord{ID: "l1", OwnerID: "u1", Title: "Books", CreatedAt: ts, UpdatedAt: ts}))
	must(s.StoreNewLibraryList(ctx, domain.LibraryListRecord{UserID: "u1", ListID: "l1", FolderID: strp("f2"), SortOrder: domain.SortManual}))
	must(s.StoreNewListItem(ctx, domain.ListItemRecord{ID: "i1", ListID: "l1", Content: "Dune", ImageURLs: []string{"a.png"}, CreatedAt: ts, UpdatedAt: ts}))
	return s
}

func TestStoreNewRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	tests := []struct {
		name string
		fn   func() error
	}{
		{"user", func() error {
			return s.StoreNewUser(ctx, domain.UserRecord{ID: "u1", Username: "x", CreatedAt: ts, UpdatedAt: ts})
		}},
		{"list", func() error {
			return s.StoreNewList(ctx, domain.ListRecord{ID: "l1", OwnerID: "u1", CreatedAt: ts, UpdatedAt: ts})
		}},
		{"library", func() error {
			return s.StoreNewLibraryList(ctx, domain.LibraryListRecord{UserID: "u1", ListID: "l1"})
		}},
		{"item for unknown list", func() error {
			return s.StoreNewListItem(ctx, domain.ListItemRecord{ID: "i9", ListID: "nope", CreatedAt: ts, UpdatedAt: ts})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !domain.IsValidation(err) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestMissingRowsAreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"retrieve user", func() error { _, err := s.RetrieveUser(ctx, "x"); return err }},
		{"update folder", func() error { return s.UpdateFolder(ctx, "x", domain.FolderUpdate{Name: "n"}) }},
		{"delete list", func() error { return s.DeleteList(ctx, "x") }},
		{"library config", func() error { _, err := s.RetrieveLibraryListConfig(ctx, "u", "l"); return err }},
		{"update library", func() error {
			return s.UpdateLibraryListConfig(ctx, "u", "f", "l", domain.LibraryListUpdate{SortOrder: domain.SortManual})
		}},
		{"item", func() error { _, err := s.RetrieveListItem(ctx, "x"); return err }},
		{"credential", func() error { _, err := s.GetCredential(ctx, "x"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !domain.IsNotFound(err) {
				t.Errorf("err = %v, want NotFound", err)
			}
		})
	}
}

func TestUpdateLibraryListConfigMovesFolder(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	err := s.UpdateLibraryListConfig(ctx, "u1", "f1", "l1", domain.LibraryListUpdate{
		SortOrder:   domain.SortAlphabetical,
		Today:       true,
		CurrentItem: strp("i1"),
		UpdatedAt:   ts,
	})
	if err != nil {
		t.Fatalf("UpdateLibraryListConfig: %v", err)
	}
	got, err := s.RetrieveLibraryListConfig(ctx, "u1", "l1")
	if err != nil {
		t.Fatal(err)
	}
	if got.FolderID == nil || *got.FolderID != "f1" || !got.Today || got.SortOrder != domain.SortAlphabetical {
		t.Errorf("library config = %+v", got)
	}

	bad := domain.LibraryListUpdate{SortOrder: "random"}
	if err := s.UpdateLibraryListConfig(ctx, "u1", "f1", "l1", bad); !domain.IsValidation(err) {
		t.Errorf("bad sort order err = %v, want ValidationError", err)
	}
}

func TestDeleteFolderCascades(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	if err := s.DeleteFolder(ctx, "f1"); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if _, err := s.RetrieveFolder(ctx, "f2"); !domain.IsNotFound(err) {
		t.Errorf("child folder survived: %v", err)
	}
	lib, err := s.RetrieveLibraryListConfig(ctx, "u1", "l1")
	if err != nil {
		t.Fatalf("placement removed: %v", err)
	}
	if lib.FolderID != nil {
		t.Errorf("placement folder = %s, want nil", *lib.FolderID)
	}
}

func TestDeleteListCascades(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	if err := s.DeleteList(ctx, "l1"); err != nil {
		t.Fatalf("DeleteList: %v", err)
	}
	items, _ := s.QueryListItems(ctx, "l1")
	if len(items) != 0 {
		t.Errorf("items left: %d", len(items))
	}
	libs, _ := s.QueryLibraryLists(ctx, "u1")
	if len(libs) != 0 {
		t.Errorf("placements left: %d", len(libs))
	}
}

func TestItemImageURLsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	rec, err := s.RetrieveListItem(ctx, "i1")
	if err != nil {
		t.Fatal(err)
	}
	rec.ImageURLs[0] = "mutated.png"

	again, _ := s.RetrieveListItem(ctx, "i1")
	if again.ImageURLs[0] != "a.png" {
		t.Errorf("stored row aliased caller slice: %v", again.ImageURLs)
	}
}

func TestQueryFoldersByOwner(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	got, err := s.QueryFolders(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "f1" || got[1].ID != "f2" {
		t.Errorf("QueryFolders = %+v", got)
	}
	other, _ := s.QueryFolders(ctx, "u2")
	if len(other) != 0 {
		t.Errorf("foreign folders = %+v", other)
	}
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c := auth.Credential{UserID: "u1", Username: "ada", PasswordHash: "h"}
	if err := s.SaveCredential(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCredential(ctx, c); !errors.Is(err, auth.ErrUsernameTaken) {
		t.Errorf("duplicate err = %v", err)
	}
	got, err := s.GetCredential(ctx, "ada")
	if err != nil || got.UserID != "u1" {
		t.Errorf("GetCredential = %+v, %v", got, err)
	}
}
