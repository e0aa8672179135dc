package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/auth"
)

const (
	authCookie = "auth_token"
	guestName  = "Convidado"
	maxNameLen = 40
)

// requestToken returns the session token from the auth_token cookie or a
// bearer Authorization header.
func requestToken(r *http.Request) string {
	if c, err := r.Cookie(authCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// identify authenticates the request. Room endpoints never mint identities.
func (rs *RoomServer) identify(r *http.Request) (auth.Identity, error) {
	token := requestToken(r)
	if token == "" {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return rs.Issuer.Authenticate(token)
}

// requireIdentity writes 401 and returns false when the request is anonymous.
func (rs *RoomServer) requireIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	who, err := rs.identify(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, apiError{Code: "invalid_token", Message: "missing or invalid auth_token"})
		return auth.Identity{}, false
	}
	return who, true
}

type guestRequest struct {
	Name string `json:"name"`
}

// GuestHandler issues a guest identity and sets it as the auth_token cookie.
// A caller that already holds a valid token keeps its id; a new name renames it.
func GuestHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req guestRequest
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, "invalid guest payload")
			return
		}
		name := strings.TrimSpace(req.Name)
		if len([]rune(name)) > maxNameLen {
			badRequest(w, "name too long")
			return
		}

		who, err := rs.identify(r)
		if err != nil {
			who = auth.Identity{UserID: uuid.NewString(), Name: guestName}
		}
		if name != "" {
			who.Name = name
		}

		token, err := rs.Issuer.CreateJWT(who)
		if err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     authCookie,
			Value:    token,
			HttpOnly: true,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		})
		rs.Logger.WithField("user", who.UserID).Debug("guest session issued")
		writeJSON(w, http.StatusOK, map[string]any{"user": who, "token": token})
	}
}

// MeHandler returns the caller's identity.
func MeHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := rs.requireIdentity(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, who)
	}
}
