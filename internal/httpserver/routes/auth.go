package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/mw"
)

func init() { Register(registerAuth, authRateLimit) }

func authRateLimit(d deps.Deps) Middleware {
	return mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.AuthRateBurst,
		RefillPerIPPerMin: d.AuthRatePerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
	})
}

func registerAuth(r chi.Router, d deps.Deps) {
	r.Post("/api/auth/register", handlers.Register(d))
	r.Post("/api/auth/signin", handlers.SignIn(d))
	r.Post("/api/auth/signout", handlers.SignOut(d))
}
