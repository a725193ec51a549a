package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type mePatch struct {
	NotificationsEnabled *bool `json:"notifications_enabled"`
}

func Me(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var view userView
		err := d.Session.View(func(u *domain.User, _ *domain.TodayInfo) error {
			view = newUserView(u)
			return nil
		})
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func PatchMe(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req mePatch
		if err := decodeJSON(r, &req); err != nil {
			writeError(d, w, r, err)
			return
		}

		var view userView
		err := d.Session.Update(r.Context(), func(u *domain.User, _ *domain.TodayInfo) error {
			if req.NotificationsEnabled != nil {
				prev := u.NotificationsEnabled()
				u.SetNotificationsEnabled(*req.NotificationsEnabled)
				if err := u.Save(r.Context()); err != nil {
					u.SetNotificationsEnabled(prev)
					return err
				}
			}
			view = newUserView(u)
			return nil
		})
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
