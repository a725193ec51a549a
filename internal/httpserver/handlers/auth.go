package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type signInResponse struct {
	UserID string `json:"user_id"`
}

// Register creates an account and signs it in.
func Register(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(d, w, r, err)
			return
		}
		user, err := d.Auth.Register(r.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newUserView(user))
	}
}

func SignIn(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(d, w, r, err)
			return
		}
		id, err := d.Auth.SignIn(r.Context(), req.Username, req.Password)
		if err != nil {
			d.Logger.Info("sign-in rejected", logger.String("username", req.Username), logger.String("remote_ip", r.RemoteAddr))
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, signInResponse{UserID: id})
	}
}

func SignOut(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Auth.SignOut()
		w.WriteHeader(http.StatusNoContent)
	}
}
