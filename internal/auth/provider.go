// Package auth holds the process-wide sign-in state and the credential
// rows backing it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

var (
	// ErrInvalidCredentials is returned for an unknown username or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already taken")
)

const minPasswordLen = 8

// Credential is the stored secret of one user.
type Credential struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    string `json:"created_at"`
}

// CredentialStore persists credentials keyed by username.
//
// SaveCredential returns ErrUsernameTaken when the username exists.
// GetCredential returns an error wrapping domain.ErrNotFound when it does not.
type CredentialStore interface {
	SaveCredential(ctx context.Context, c Credential) error
	GetCredential(ctx context.Context, username string) (Credential, error)
}

// Provider is the authentication state of the process. At most one user is
// signed in at a time.
type Provider struct {
	users domain.UserGateway
	creds CredentialStore
	log   logger.Logger

	mu      sync.Mutex
	current *string
	subs    map[uint64]func(userID *string)
	nextID  uint64
}

func NewProvider(users domain.UserGateway, creds CredentialStore, log logger.Logger) *Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &Provider{
		users: users,
		creds: creds,
		log:   log,
		subs:  make(map[uint64]func(*string)),
	}
}

// Register creates the user row and its credential, then signs the new
// user in.
func (p *Provider) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &domain.ValidationError{Entity: "user", Field: "username", Reason: "must not be empty"}
	}
	if len(password) < minPasswordLen {
		return nil, &domain.ValidationError{Entity: "user", Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}

	_, err := p.creds.GetCredential(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !domain.IsNotFound(err):
		return nil, fmt.Errorf("register %s: %w", username, err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", username, err)
	}

	user := domain.NewUser(p.users, username, email)
	if err := user.Create(ctx); err != nil {
		return nil, err
	}
	cred := Credential{
		UserID:       user.ID(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    domain.FormatTime(user.CreatedAt()),
	}
	if err := p.creds.SaveCredential(ctx, cred); err != nil {
		// Lost a race on the username; drop the orphan user row.
		if derr := user.Delete(ctx); derr != nil {
			p.log.Warn("orphan user row left after failed register", logger.String("user_id", user.ID()), logger.Error(derr))
		}
		return nil, err
	}

	p.log.Info("user registered", logger.String("user_id", user.ID()), logger.String("username", username))
	p.setCurrent(user.ID())
	return user, nil
}

// SignIn checks the password and makes the user current. It returns the user id.
func (p *Provider) SignIn(ctx context.Context, username, password string) (string, error) {
	cred, err := p.creds.GetCredential(ctx, strings.TrimSpace(username))
	switch {
	case domain.IsNotFound(err):
		return "", ErrInvalidCredentials
	case err != nil:
		return "", fmt.Errorf("sign in: %w", err)
	}
	if !CheckPassword(password, cred.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	p.setCurrent(cred.UserID)
	p.log.Info("signed in", logger.String("user_id", cred.UserID))
	return cred.UserID, nil
}

// SignOut clears the current user. Signing out with nobody signed in is a no-op.
func (p *Provider) SignOut() {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	prev := *p.current
	p.current = nil
	subs := p.snapshot()
	p.mu.Unlock()

	p.log.Info("signed out", logger.String("user_id", prev))
	notify(subs, nil)
}

// CurrentUserID returns the signed-in user id, or nil.
func (p *Provider) CurrentUserID() *string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyID(p.current)
}

// SubscribeToAuthChanges registers fn for every sign-in and sign-out. fn is
// called once right away with the current state. Callbacks run on the
// goroutine that changed the state, never under the provider's lock.
func (p *Provider) SubscribeToAuthChanges(fn func(userID *string)) *Subscription {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs[id] = fn
	cur := copyID(p.current)
	p.mu.Unlock()

	fn(cur)
	return &Subscription{p: p, id: id}
}

func (p *Provider) setCurrent(userID string) {
	p.mu.Lock()
	p.current = &userID
	subs := p.snapshot()
	p.mu.Unlock()

	notify(subs, &userID)
}

// snapshot must be called with mu held.
func (p *Provider) snapshot() []func(*string) {
	out := make([]func(*string), 0, len(p.subs))
	for _, fn := range p.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(*string), userID *string) {
	for _, fn := range subs {
		fn(copyID(userID))
	}
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Subscription is returned by SubscribeToAuthChanges.
type Subscription struct {
	p    *Provider
	id   uint64
	once sync.Once
}

// Unsubscribe stops further callbacks. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.p.mu.Lock()
		delete(s.p.subs, s.id)
		s.p.mu.Unlock()
	})
}
