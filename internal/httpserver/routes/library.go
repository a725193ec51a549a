package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

func init() { Register(registerLibrary) }

func registerLibrary(r chi.Router, d deps.Deps) {
	r.Get("/api/me", handlers.Me(d))
	r.Patch("/api/me", handlers.PatchMe(d))
	r.Get("/api/library", handlers.Library(d))
	r.Get("/api/lists/{id}", handlers.GetList(d))
	r.Patch("/api/lists/{id}", handlers.PatchList(d))
	r.Get("/api/lists/{id}/items", handlers.ListItems(d))
}
