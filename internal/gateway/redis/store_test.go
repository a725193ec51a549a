package redis

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const ts = "2024-03-01T10:00:00Z"

func strp(s string) *string { return &s }

func TestKeys(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{UserKey("u1"), "shelf:user:u1"},
		{FolderKey("f1"), "shelf:folder:f1"},
		{ListKey("l1"), "shelf:list:l1"},
		{ItemKey("i1"), "shelf:item:i1"},
		{CredentialKey("ada"), "shelf:credential:ada"},
		{LibraryKey("u1", "l1"), "shelf:library:u1:l1"},
		{UserFoldersKey("u1"), "shelf:user:u1:folders"},
		{UserLibraryKey("u1"), "shelf:user:u1:library"},
		{ListPlacementsKey("l1"), "shelf:list:l1:placements"},
		{ListItemsKey("l1"), "shelf:list:l1:items"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestSubtree(t *testing.T) {
	folders := []domain.FolderRecord{
		{ID: "a"},
		{ID: "b", ParentFolderID: strp("a")},
		{ID: "c", ParentFolderID: strp("b")},
		{ID: "d"},
	}
	got := subtree("a", folders)
	if len(got) != 3 || !got["a"] || !got["b"] || !got["c"] || got["d"] {
		t.Errorf("subtree(a) = %v", got)
	}
}

func TestClassify(t *testing.T) {
	nf := domain.NotFound("list", "l1")
	if got := classify("op", nf); got != nf {
		t.Errorf("classify changed a NotFound: %v", got)
	}
	if got := classify("op", errors.New("io")); !domain.IsTransport(got) {
		t.Errorf("classify(io) = %v, want TransportError", got)
	}
	if classify("op", nil) != nil {
		t.Error("classify(nil) != nil")
	}
}

// liveStore connects to SHELF_TEST_REDIS_ADDR or skips.
func liveStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("SHELF_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SHELF_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}
	return NewStore(client)
}

func TestStoreAgainstRedis(t *testing.T) {
	ctx := context.Background()
	s := liveStore(t)

	userID, listID, itemID, folderID := uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString()
	t.Cleanup(func() {
		s.client.Del(ctx, UserKey(userID), CredentialKey(userID), UserFoldersKey(userID), UserLibraryKey(userID), FolderKey(folderID))
		s.DeleteList(ctx, listID)
	})

	if err := s.StoreNewUser(ctx, domain.UserRecord{ID: userID, Username: "ada", CreatedAt: ts, UpdatedAt: ts}); err != nil {
		t.Fatalf("StoreNewUser: %v", err)
	}
	if err := s.StoreNewUser(ctx, domain.UserRecord{ID: userID, Username: "ada", CreatedAt: ts, UpdatedAt: ts}); !domain.IsValidation(err) {
		t.Errorf("duplicate user err = %v", err)
	}
	if err := s.UpdateUser(ctx, userID, domain.UserUpdate{NotificationsEnabled: true, UpdatedAt: ts}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	u, err := s.RetrieveUser(ctx, userID)
	if err != nil || !u.NotificationsEnabled {
		t.Errorf("RetrieveUser = %+v, %v", u, err)
	}

	if err := s.StoreNewFolder(ctx, domain.FolderRecord{ID: folderID, OwnerID: userID, Name: "Root", CreatedAt: ts, UpdatedAt: ts}); err != nil {
		t.Fatal(err)
	}
	if err := s.StoreNewList(ctx, domain.ListRecord{ID: listID, OwnerID: userID, Title: "Books", CreatedAt: ts, UpdatedAt: ts}); err != nil {
		t.Fatal(err)
	}
	if err := s.StoreNewLibraryList(ctx, domain.LibraryListRecord{UserID: userID, ListID: listID, FolderID: strp(folderID)}); err != nil {
		t.Fatal(err)
	}
	if err := s.StoreNewListItem(ctx, domain.ListItemRecord{ID: itemID, ListID: listID, Content: "Dune", CreatedAt: ts, UpdatedAt: ts}); err != nil {
		t.Fatal(err)
	}

	items, err := s.QueryListItems(ctx, listID)
	if err != nil || len(items) != 1 {
		t.Errorf("QueryListItems = %v, %v", items, err)
	}
	folders, err := s.QueryFolders(ctx, userID)
	if err != nil || len(folders) != 1 {
		t.Errorf("QueryFolders = %v, %v", folders, err)
	}

	if err := s.DeleteFolder(ctx, folderID); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	lib, err := s.RetrieveLibraryListConfig(ctx, userID, listID)
	if err != nil || lib.FolderID != nil {
		t.Errorf("placement after folder delete = %+v, %v", lib, err)
	}

	if err := s.DeleteList(ctx, listID); err != nil {
		t.Fatalf("DeleteList: %v", err)
	}
	if _, err := s.RetrieveListItem(ctx, itemID); !domain.IsNotFound(err) {
		t.Errorf("item after list delete: %v", err)
	}
	if libs, _ := s.QueryLibraryLists(ctx, userID); len(libs) != 0 {
		t.Errorf("placements after list delete: %v", libs)
	}

	cred := auth.Credential{UserID: userID, Username: userID, PasswordHash: "h", CreatedAt: ts}
	if err := s.SaveCredential(ctx, cred); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCredential(ctx, cred); !errors.Is(err, auth.ErrUsernameTaken) {
		t.Errorf("duplicate credential err = %v", err)
	}
}
