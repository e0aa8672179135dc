package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/assets"
	"github.com/jason-s-yu/taverna/internal/auth"
	"github.com/jason-s-yu/taverna/internal/game"
	"github.com/jason-s-yu/taverna/internal/store"
	"github.com/sirupsen/logrus"
)

// apiError is the body of every non-2xx JSON response.
type apiError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

// errorStatus maps a service error onto an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrTurnViolation):
		return http.StatusConflict, "turn_violation"
	case errors.Is(err, game.ErrAiBusy):
		return http.StatusConflict, "ai_busy"
	case errors.Is(err, game.ErrNotYourTurn):
		return http.StatusConflict, "not_your_turn"
	case errors.Is(err, game.ErrInvalidPhase):
		return http.StatusConflict, "invalid_phase"
	case errors.Is(err, game.ErrChecklistIncomplete):
		return http.StatusConflict, "checklist_incomplete"
	case errors.Is(err, store.ErrCodeTaken):
		return http.StatusConflict, "code_taken"
	case errors.Is(err, game.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, game.ErrNotParticipant):
		return http.StatusForbidden, "not_participant"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, assets.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, game.ErrValidation), errors.Is(err, assets.ErrInvalidName):
		return http.StatusBadRequest, "validation"
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as JSON. Internal errors are logged and their text hidden.
func writeError(w http.ResponseWriter, logger *logrus.Logger, r *http.Request, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, apiError{Code: code, Message: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, apiError{Code: "validation", Message: msg})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}
