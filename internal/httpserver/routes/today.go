package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

func init() { Register(registerToday) }

func registerToday(r chi.Router, d deps.Deps) {
	r.Get("/api/today", handlers.Today(d))
	r.Post("/api/today/refresh", handlers.RefreshToday(d))
	r.Put("/api/today/{listID}", handlers.SetTodayItem(d))
}
