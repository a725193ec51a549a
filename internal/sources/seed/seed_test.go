package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/gateway/memory"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

const fixture = `---
users:
  - id: u1
    username: ada
    email: ada@example.com
    password: ${SEED_TEST_PASSWORD}
    folders:
      - id: f1
        name: Reading
        folders:
          - id: f2
            name: Sci-fi
    lists:
      - id: l1
        title: Books
        folder: f2
        today: true
        current_item: i1
        sort_order: alphabetical
        notify_days: monday
        items:
          - id: i1
            content: Dune
          - id: i2
            title: Second
            content: Hyperion
            image_urls: [https://img.example/h.png]
  - id: u2
    username: bob
    folders:
      - id: f3
        name: Shared
    library:
      - list: l1
        folder: f3
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	t.Setenv("SEED_TEST_PASSWORD", "correct horse")

	doc, err := NewLoader(writeFixture(t, fixture)).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc.Users) != 2 {
		t.Fatalf("users = %d, want 2", len(doc.Users))
	}
	ada := doc.Users[0]
	if ada.Password != "correct horse" {
		t.Errorf("password = %q, env reference not expanded", ada.Password)
	}
	if len(ada.Folders) != 1 || len(ada.Folders[0].Folders) != 1 {
		t.Errorf("nested folders = %+v", ada.Folders)
	}
	l := ada.Lists[0]
	if l.Folder != "f2" || !l.Today || l.CurrentItem != "i1" || len(l.Items) != 2 {
		t.Errorf("list = %+v", l)
	}
	if p := doc.Users[1].Library; len(p) != 1 || p[0].List != "l1" || p[0].Folder != "f3" {
		t.Errorf("library = %+v", p)
	}
}

func TestLoaderErrors(t *testing.T) {
	if _, err := NewLoader("/nonexistent/path/seed.yaml").Load(); err == nil {
		t.Error("Load() with non-existent file should return error")
	}
	if _, err := NewLoader(writeFixture(t, "users: [")).Load(); err == nil {
		t.Error("Load() with broken yaml should return error")
	}
}

func TestExpandEnv(t *testing.T) {
	env := map[string]string{"A": "x", "B_2": "y"}
	getenv := func(k string) string { return env[k] }

	tests := []struct {
		input, want string
	}{
		{"plain", "plain"},
		{"${A}", "x"},
		{"${A}-${B_2}", "x-y"},
		{"${MISSING}", ""},
		{"$A {A}", "$A {A}"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := string(expandEnv([]byte(tt.input), getenv)); got != tt.want {
				t.Errorf("expandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSeedWritesEverything(t *testing.T) {
	ctx := context.Background()
	t.Setenv("SEED_TEST_PASSWORD", "correct horse")
	doc, err := NewLoader(writeFixture(t, fixture)).Load()
	if err != nil {
		t.Fatal(err)
	}

	store := memory.NewStore()
	st, err := NewSeeder(store, logger.Nop()).Seed(ctx, doc)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	// 2 users, 1 credential, 3 folders, 1 list, 2 items, 2 placements
	if st.Created != 11 || st.Skipped != 0 {
		t.Errorf("stats = %+v", st)
	}

	f2, err := store.RetrieveFolder(ctx, "f2")
	if err != nil || f2.ParentFolderID == nil || *f2.ParentFolderID != "f1" {
		t.Errorf("f2 = %+v, %v", f2, err)
	}
	lib, err := store.RetrieveLibraryListConfig(ctx, "u1", "l1")
	if err != nil {
		t.Fatal(err)
	}
	if lib.SortOrder != domain.SortAlphabetical || !lib.Today || lib.NotifyDays == nil || *lib.NotifyDays != domain.Monday {
		t.Errorf("placement = %+v", lib)
	}
	shared, err := store.RetrieveLibraryListConfig(ctx, "u2", "l1")
	if err != nil || shared.SortOrder != domain.SortManual {
		t.Errorf("shared placement = %+v, %v", shared, err)
	}

	p := auth.NewProvider(store, store, logger.Nop())
	if id, err := p.SignIn(ctx, "ada", "correct horse"); err != nil || id != "u1" {
		t.Errorf("SignIn = %q, %v", id, err)
	}
	if _, err := store.GetCredential(ctx, "bob"); !domain.IsNotFound(err) {
		t.Errorf("bob has a credential without a password: %v", err)
	}

	user, err := domain.LoadLibrary(ctx, store, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(user.TodayLists()) != 1 {
		t.Errorf("today lists = %d, want 1", len(user.TodayLists()))
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	t.Setenv("SEED_TEST_PASSWORD", "correct horse")
	doc, err := NewLoader(writeFixture(t, fixture)).Load()
	if err != nil {
		t.Fatal(err)
	}

	store := memory.NewStore()
	s := NewSeeder(store, logger.Nop())
	first, err := s.Seed(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Seed(ctx, doc)
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if second.Created != 0 || second.Skipped != first.Created {
		t.Errorf("second run = %+v, first = %+v", second, first)
	}
}

func TestSeedRejectsBadRows(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{
			name: "list without placement",
			doc: Document{Users: []User{{ID: "u1", Username: "ada", Lists: []List{{ID: "l1", Title: "Books"}}}}},
		},
		{
			name: "bad sort order",
			doc: Document{Users: []User{{ID: "u1", Username: "ada",
				Folders: []Folder{{ID: "f1", Name: "A"}},
				Lists:   []List{{ID: "l1", Title: "Books", Settings: Settings{Folder: "f1", SortOrder: "random"}}},
			}}},
			want: "library u1/l1",
		},
		{
			name: "user without id",
			doc:  Document{Users: []User{{Username: "ada"}}},
			want: "user ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSeeder(memory.NewStore(), logger.Nop()).Seed(context.Background(), tt.doc)
			if tt.want == "" {
				if err != nil {
					t.Errorf("Seed = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Seed = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}
