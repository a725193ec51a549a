// Package session keeps the signed-in user's library loaded in memory and
// follows sign-in and sign-out.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// ErrNoSession is returned when nobody is signed in or the library is not loaded.
var ErrNoSession = errors.New("no active session")

// AuthSource is the part of auth.Provider a Binding listens to.
type AuthSource interface {
	SubscribeToAuthChanges(fn func(userID *string)) *auth.Subscription
}

type Options struct {
	LoadTimeout  time.Duration // bound for LoadLibrary on sign-in; zero means none
	TodayOptions []domain.TodayOption
}

// Binding owns the aggregate of the signed-in user and its TodayInfo.
// Every access to the aggregate goes through View or Update, which
// serialize readers against writers.
type Binding struct {
	auth AuthSource
	gw   domain.Gateway
	log  logger.Logger
	opts Options

	base context.Context
	sub  *auth.Subscription

	mu     sync.RWMutex
	userID *string
	user   *domain.User
	today  *domain.TodayInfo
	gen    uint64 // bumped on every auth event; stale loads are dropped
}

func New(src AuthSource, gw domain.Gateway, log logger.Logger, opts Options) *Binding {
	if log == nil {
		log = logger.Nop()
	}
	return &Binding{
		auth: src,
		gw:   gw,
		log:  log.With(logger.String("component", "session")),
		opts: opts,
		base: context.Background(),
	}
}

// Start subscribes to auth changes. If a user is already signed in their
// library is loaded before Start returns.
func (b *Binding) Start(ctx context.Context) {
	b.base = context.WithoutCancel(ctx)
	b.sub = b.auth.SubscribeToAuthChanges(b.onAuthChange)
}

// Stop unsubscribes and drops the loaded library.
func (b *Binding) Stop() {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	b.mu.Lock()
	b.gen++
	b.userID, b.user, b.today = nil, nil, nil
	b.mu.Unlock()
}

func (b *Binding) onAuthChange(userID *string) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.userID = userID
	b.user, b.today = nil, nil
	b.mu.Unlock()

	if userID == nil {
		b.log.Info("session cleared")
		return
	}
	if err := b.load(b.base, *userID, gen); err != nil {
		b.log.Error("load library failed", logger.String("user_id", *userID), logger.Error(err))
	}
}

// load fetches the aggregate outside the lock and installs it only if no
// auth event happened meanwhile.
func (b *Binding) load(ctx context.Context, userID string, gen uint64) error {
	if b.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.LoadTimeout)
		defer cancel()
	}

	start := time.Now()
	user, err := domain.LoadLibrary(ctx, b.gw, userID)
	if err != nil {
		return err
	}

	opts := append([]domain.TodayOption{domain.WithFetchErrorHook(b.logFetchError)}, b.opts.TodayOptions...)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen {
		b.log.Debug("discarding library load overtaken by auth change", logger.String("user_id", userID))
		return nil
	}
	b.user = user
	b.today = domain.NewTodayInfo(b.base, b.gw, user.TodayLists(), opts...)
	b.log.Info("library loaded",
		logger.String("user_id", userID),
		logger.Int("lists", len(user.Lists())),
		logger.Int("today", len(user.TodayLists())),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func (b *Binding) logFetchError(listID, itemID string, err error) {
	b.log.Warn("today item fetch failed",
		logger.String("list_id", listID),
		logger.String("item_id", itemID),
		logger.Error(err))
}

// Reload re-reads the whole library of the signed-in user.
func (b *Binding) Reload(ctx context.Context) error {
	b.mu.Lock()
	if b.userID == nil {
		b.mu.Unlock()
		return ErrNoSession
	}
	userID := *b.userID
	gen := b.gen
	b.mu.Unlock()

	if err := b.load(ctx, userID, gen); err != nil {
		return fmt.Errorf("reload library: %w", err)
	}
	return nil
}

// Current returns the loaded user, or nil. Callers touching its lists
// should prefer View or Update.
func (b *Binding) Current() *domain.User {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.user
}

// Today returns the TodayInfo of the loaded user, or nil.
func (b *Binding) Today() *domain.TodayInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.today
}

// View runs fn with the aggregate under a read lock.
func (b *Binding) View(fn func(u *domain.User, t *domain.TodayInfo) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.user == nil {
		return ErrNoSession
	}
	return fn(b.user, b.today)
}

// Update runs fn with the aggregate under the write lock. When fn changes
// which lists are flagged for Today, the TodayInfo follows.
func (b *Binding) Update(ctx context.Context, fn func(u *domain.User, t *domain.TodayInfo) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.user == nil {
		return ErrNoSession
	}
	if err := fn(b.user, b.today); err != nil {
		return err
	}
	if lists := b.user.TodayLists(); !sameLists(lists, b.today.Lists()) {
		b.today.UpdateTodayLists(ctx, lists)
	}
	return nil
}

// RefreshToday re-fetches every Today item. It reports false when no
// library is loaded.
func (b *Binding) RefreshToday(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.today == nil {
		return false
	}
	b.today.RefreshTodayItems(ctx)
	return true
}

// SetTodayItem persists itemID as the current item of listID and shows it
// in Today right away. A nil itemID clears the current item.
func (b *Binding) SetTodayItem(ctx context.Context, listID string, itemID *string) error {
	return b.Update(ctx, func(u *domain.User, t *domain.TodayInfo) error {
		l, ok := u.GetList(listID)
		if !ok {
			return domain.NotFound("list", listID)
		}
		if !l.InLibrary() {
			return &domain.ValidationError{Entity: "library_list", Field: "folder_id", Reason: "list is not placed in a folder"}
		}

		var item *domain.ListItem
		if itemID != nil {
			var err error
			item, err = domain.ListItemFromID(ctx, b.gw, *itemID)
			if err != nil {
				return err
			}
			if item.ListID() != listID {
				return &domain.ValidationError{Entity: "library_list", Field: "current_item", Reason: "item belongs to another list"}
			}
		}

		prev := l.CurrentItem()
		l.SetCurrentItem(itemID)
		if err := l.Save(ctx); err != nil {
			l.SetCurrentItem(prev)
			return err
		}
		if l.Today() {
			t.ChangeTodayItemForList(listID, item)
		}
		return nil
	})
}

func sameLists(a, b []*domain.List) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
