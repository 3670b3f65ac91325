package api

import (
	"net/http"
	"time"

	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/model"
)

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

type loginResponse struct {
	Message      string `json:"message"`
	UserID       int64  `json:"user_id"`
	UserType     string `json:"user_type"`
	Name         string `json:"name"`
	SessionToken string `json:"session_token"`
	ExpiresAt    string `json:"expires_at"`
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.authn.Login(r.Context(), body.Username, body.Password, body.UserType, middleware.ClientFromHTTP(r))
	if err != nil {
		s.logins.LoginFailed(model.AsError(err).Code)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Message:      res.Message,
		UserID:       res.UserID,
		UserType:     res.Role.String(),
		Name:         res.Name,
		SessionToken: res.SessionToken,
		ExpiresAt:    res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if err := s.authn.Logout(r.Context(), r.Header.Get("Authorization")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
