package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/session"
)

// Authenticator is the part of auth.Provider the handlers call.
type Authenticator interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	SignIn(ctx context.Context, username, password string) (string, error)
	SignOut()
	CurrentUserID() *string
}

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	Backend string               // name of the Gateway backend, reported by /healthz
	Health  domain.HealthChecker // pinged by /readyz
	Auth    Authenticator
	Session *session.Binding

	RefreshTrigger chan struct{} // manual Today refresh, buffered with capacity 1

	AllowedHosts   []string // Host headers allowed to reach /readyz
	AllowedCIDRS   []string // networks allowed to reach /readyz
	TrustProxy     bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)
	AuthRateBurst  int
	AuthRatePerMin int
}
