package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// Store is a Gateway that also keeps credentials. Every backend is one.
type Store interface {
	domain.Gateway
	auth.CredentialStore
}

// Stats counts rows written and rows that already existed.
type Stats struct {
	Created int
	Skipped int
}

// Seeder writes a Document through the Gateway. Running it twice over the
// same store writes nothing the second time.
type Seeder struct {
	store Store
	log   logger.Logger
	now   func() time.Time
}

func NewSeeder(store Store, log logger.Logger) *Seeder {
	return &Seeder{store: store, log: log, now: time.Now}
}

// Seed writes users, folders, lists and items first, then every library
// placement, so a user may place a list another user owns.
func (s *Seeder) Seed(ctx context.Context, doc Document) (Stats, error) {
	var st Stats
	ts := domain.FormatTime(s.now())

	for _, u := range doc.Users {
		if err := s.seedUser(ctx, &st, u, ts); err != nil {
			return st, err
		}
	}
	for _, u := range doc.Users {
		for _, l := range u.Lists {
			if l.Folder == "" {
				continue
			}
			if err := s.place(ctx, &st, u.ID, l.ID, l.Settings, ts); err != nil {
				return st, err
			}
		}
		for _, p := range u.Library {
			if err := s.place(ctx, &st, u.ID, p.List, p.Settings, ts); err != nil {
				return st, err
			}
		}
	}

	s.log.Info("seed applied", logger.Int("created", st.Created), logger.Int("skipped", st.Skipped))
	return st, nil
}

func (s *Seeder) seedUser(ctx context.Context, st *Stats, u User, ts string) error {
	rec := domain.UserRecord{
		ID:                   u.ID,
		Username:             u.Username,
		Email:                u.Email,
		AvatarURL:            optional(u.AvatarURL),
		NotificationsEnabled: u.NotificationsEnabled,
		CreatedAt:            ts,
		UpdatedAt:            ts,
	}
	if err := s.record(st, "user "+u.ID, s.store.StoreNewUser(ctx, rec)); err != nil {
		return err
	}

	if u.Password != "" {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		err = s.store.SaveCredential(ctx, auth.Credential{
			UserID:       u.ID,
			Username:     u.Username,
			PasswordHash: hash,
			CreatedAt:    ts,
		})
		if errors.Is(err, auth.ErrUsernameTaken) {
			st.Skipped++
		} else if err := s.record(st, "credential "+u.Username, err); err != nil {
			return err
		}
	}

	if err := s.seedFolders(ctx, st, u.ID, nil, u.Folders, ts); err != nil {
		return err
	}

	for _, l := range u.Lists {
		rec := domain.ListRecord{
			ID:            l.ID,
			OwnerID:       u.ID,
			Title:         l.Title,
			Description:   optional(l.Description),
			CoverImageURL: optional(l.CoverImageURL),
			IsPublic:      l.Public,
			CreatedAt:     ts,
			UpdatedAt:     ts,
		}
		if err := s.record(st, "list "+l.ID, s.store.StoreNewList(ctx, rec)); err != nil {
			return err
		}
		for _, it := range l.Items {
			rec := domain.ListItemRecord{
				ID:         it.ID,
				ListID:     l.ID,
				Title:      optional(it.Title),
				Content:    it.Content,
				ImageURLs:  it.ImageURLs,
				OrderIndex: it.OrderIndex,
				CreatedAt:  ts,
				UpdatedAt:  ts,
			}
			if err := s.record(st, "item "+it.ID, s.store.StoreNewListItem(ctx, rec)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedFolders(ctx context.Context, st *Stats, ownerID string, parent *string, folders []Folder, ts string) error {
	for _, f := range folders {
		rec := domain.FolderRecord{
			ID:             f.ID,
			OwnerID:        ownerID,
			ParentFolderID: parent,
			Name:           f.Name,
			CreatedAt:      ts,
			UpdatedAt:      ts,
		}
		if err := s.record(st, "folder "+f.ID, s.store.StoreNewFolder(ctx, rec)); err != nil {
			return err
		}
		id := f.ID
		if err := s.seedFolders(ctx, st, ownerID, &id, f.Folders, ts); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) place(ctx context.Context, st *Stats, userID, listID string, set Settings, ts string) error {
	order := domain.SortOrder(set.SortOrder)
	if order == "" {
		order = domain.SortManual
	}
	rec := domain.LibraryListRecord{
		UserID:      userID,
		ListID:      listID,
		FolderID:    optional(set.Folder),
		SortOrder:   order,
		Today:       set.Today,
		CurrentItem: optional(set.CurrentItem),
		NotifyOnNew: set.NotifyOnNew,
		NotifyTime:  optional(set.NotifyTime),
		OrderIndex:  set.OrderIndex,
		UpdatedAt:   ts,
	}
	if set.NotifyDays != "" {
		d := domain.Weekday(set.NotifyDays)
		rec.NotifyDays = &d
	}
	return s.record(st, "library "+userID+"/"+listID, s.store.StoreNewLibraryList(ctx, rec))
}

// record counts the outcome of one write. Rows that already exist are
// skipped; anything else aborts the seed.
func (s *Seeder) record(st *Stats, what string, err error) error {
	switch {
	case err == nil:
		st.Created++
		return nil
	case alreadyExists(err):
		st.Skipped++
		s.log.Debug("seed row exists", logger.String("row", what))
		return nil
	default:
		return fmt.Errorf("seed %s: %w", what, err)
	}
}

func alreadyExists(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve) && ve.Field == "id" && ve.Reason == "already exists"
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
