package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/scheduler"
	"github.com/MrSnakeDoc/shelf/internal/session"
)

// Today lists every Today list with the state of its current item.
func Today(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := []todayEntryView{}
		err := d.Session.View(func(_ *domain.User, t *domain.TodayInfo) error {
			lists := t.Lists()
			sortByOrderIndex(lists)
			for _, l := range lists {
				entries = append(entries, newTodayEntryView(l, t.Lookup(l.ID())))
			}
			return nil
		})
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

type todayItemRequest struct {
	ItemID *string `json:"item_id"`
}

// SetTodayItem stores the current item of a list and shows it at once. A
// null item_id clears it.
func SetTodayItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listID := chi.URLParam(r, "listID")
		var req todayItemRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(d, w, r, err)
			return
		}
		if err := d.Session.SetTodayItem(r.Context(), listID, req.ItemID); err != nil {
			writeError(d, w, r, err)
			return
		}

		var entry todayEntryView
		err := d.Session.View(func(u *domain.User, t *domain.TodayInfo) error {
			l, ok := u.GetList(listID)
			if !ok {
				return domain.NotFound("list", listID)
			}
			entry = newTodayEntryView(l, t.Lookup(listID))
			return nil
		})
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

type refreshResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// RefreshToday queues a re-fetch of every Today item: 202 when queued,
// 429 while a request is already waiting.
func RefreshToday(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Session.Today() == nil {
			writeError(d, w, r, session.ErrNoSession)
			return
		}
		if !scheduler.Trigger(d.RefreshTrigger) {
			d.Logger.Warn("today refresh already queued", logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, refreshResponse{Message: "refresh already queued, please wait"})
			return
		}
		d.Logger.Info("manual today refresh triggered via endpoint", logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, refreshResponse{Accepted: true, Message: "refresh triggered"})
	}
}
