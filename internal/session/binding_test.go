package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/gateway/memory"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/session"
)

const ts = "2024-03-01T10:00:00Z"

func strp(s string) *string { return &s }

type fixture struct {
	store   *memory.Store
	auth    *auth.Provider
	binding *session.Binding
	userID  string
}

// newFixture registers a user whose library holds two lists, one flagged
// for Today with a current item.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	p := auth.NewProvider(store, store, logger.Nop())

	user, err := p.Register(ctx, "ada", "a@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	p.SignOut()

	uid := user.ID()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(store.StoreNewFolder(ctx, domain.FolderRecord{ID: "f1", OwnerID: uid, Name: "Root", CreatedAt: ts, UpdatedAt: ts}))
	must(store.StoreNewList(ctx, domain.ListRecord{ID: "l1", OwnerID: uid, Title: "Books", CreatedAt: ts, UpdatedAt: ts}))
	must(store.StoreNewList(ctx, domain.ListRecord{ID: "l2", OwnerID: uid, Title: "Films", CreatedAt: ts, UpdatedAt: ts}))
	must(store.StoreNewListItem(ctx, domain.ListItemRecord{ID: "i1", ListID: "l1", Content: "Dune", CreatedAt: ts, UpdatedAt: ts}))
	must(store.StoreNewListItem(ctx, domain.ListItemRecord{ID: "i2", ListID: "l1", Content: "Hyperion", CreatedAt: ts, UpdatedAt: ts}))
	must(store.StoreNewListItem(ctx, domain.ListItemRecord{ID: "i3", ListID: "l2", Content: "Alien", CreatedAt: ts, UpdatedAt: ts}))
	must(store.StoreNewLibraryList(ctx, domain.LibraryListRecord{UserID: uid, ListID: "l1", FolderID: strp("f1"), SortOrder: domain.SortManual, Today: true, CurrentItem: strp("i1")}))
	must(store.StoreNewLibraryList(ctx, domain.LibraryListRecord{UserID: uid, ListID: "l2", FolderID: strp("f1"), SortOrder: domain.SortManual}))

	b := session.New(p, store, logger.Nop(), session.Options{})
	b.Start(ctx)
	t.Cleanup(b.Stop)
	return &fixture{store: store, auth: p, binding: b, userID: uid}
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	if _, err := f.auth.SignIn(context.Background(), "ada", "correct horse"); err != nil {
		t.Fatal(err)
	}
}

func TestBindingFollowsAuth(t *testing.T) {
	f := newFixture(t)
	if f.binding.Current() != nil || f.binding.Today() != nil {
		t.Fatal("library loaded before sign-in")
	}
	if err := f.binding.View(func(*domain.User, *domain.TodayInfo) error { return nil }); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("View err = %v, want ErrNoSession", err)
	}

	f.signIn(t)
	u := f.binding.Current()
	if u == nil || u.ID() != f.userID {
		t.Fatalf("Current = %v after sign-in", u)
	}
	if len(u.Lists()) != 2 {
		t.Errorf("Lists = %d, want 2", len(u.Lists()))
	}
	today := f.binding.Today()
	today.Wait()
	if it := today.GetItemForList("l1"); it == nil || it.ID() != "i1" {
		t.Errorf("today item = %v", it)
	}

	f.auth.SignOut()
	if f.binding.Current() != nil || f.binding.Today() != nil {
		t.Error("library kept after sign-out")
	}
	if f.binding.RefreshToday(context.Background()) {
		t.Error("RefreshToday reported work without a session")
	}
}

func TestBindingLoadsExistingSession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p := auth.NewProvider(store, store, logger.Nop())
	if _, err := p.Register(ctx, "ada", "a@example.com", "correct horse"); err != nil {
		t.Fatal(err)
	}

	b := session.New(p, store, logger.Nop(), session.Options{})
	b.Start(ctx)
	defer b.Stop()
	if b.Current() == nil {
		t.Error("Start did not load the signed-in user")
	}
}

func TestSetTodayItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signIn(t)
	f.binding.Today().Wait()

	if err := f.binding.SetTodayItem(ctx, "l1", strp("i2")); err != nil {
		t.Fatalf("SetTodayItem: %v", err)
	}
	if it := f.binding.Today().GetItemForList("l1"); it == nil || it.ID() != "i2" {
		t.Errorf("today item = %v, want i2", it)
	}
	lib, err := f.store.RetrieveLibraryListConfig(ctx, f.userID, "l1")
	if err != nil || lib.CurrentItem == nil || *lib.CurrentItem != "i2" {
		t.Errorf("persisted current item = %+v, %v", lib, err)
	}

	tests := []struct {
		name   string
		listID string
		itemID *string
		check  func(error) bool
	}{
		{"unknown list", "nope", strp("i1"), domain.IsNotFound},
		{"unknown item", "l1", strp("nope"), domain.IsNotFound},
		{"foreign item", "l1", strp("i3"), domain.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.binding.SetTodayItem(ctx, tt.listID, tt.itemID); !tt.check(err) {
				t.Errorf("err = %v", err)
			}
		})
	}

	if err := f.binding.SetTodayItem(ctx, "l1", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if st := f.binding.Today().Lookup("l1"); st.Status != domain.StatusNoItem {
		t.Errorf("cleared status = %s", st.Status)
	}
}

func TestUpdateFollowsTodayFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signIn(t)
	f.binding.Today().Wait()

	err := f.binding.Update(ctx, func(u *domain.User, _ *domain.TodayInfo) error {
		l, _ := u.GetList("l2")
		l.SetToday(true)
		l.SetCurrentItem(strp("i3"))
		return l.Save(ctx)
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	today := f.binding.Today()
	today.Wait()
	if len(today.Lists()) != 2 {
		t.Errorf("today lists = %d, want 2", len(today.Lists()))
	}
	if it := today.GetItemForList("l2"); it == nil || it.ID() != "i3" {
		t.Errorf("l2 today item = %v", it)
	}
	if !f.binding.RefreshToday(ctx) {
		t.Error("RefreshToday reported no session")
	}
	today.Wait()
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if err := f.binding.Reload(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("Reload without session = %v", err)
	}

	f.signIn(t)
	if err := f.store.StoreNewList(ctx, domain.ListRecord{ID: "l3", OwnerID: f.userID, Title: "Music", CreatedAt: ts, UpdatedAt: ts}); err != nil {
		t.Fatal(err)
	}
	if err := f.store.StoreNewLibraryList(ctx, domain.LibraryListRecord{UserID: f.userID, ListID: "l3", FolderID: strp("f1")}); err != nil {
		t.Fatal(err)
	}
	if err := f.binding.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, ok := f.binding.Current().GetList("l3"); !ok {
		t.Error("reloaded library misses l3")
	}
}
