// internal/handlers/game.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/auth"
	"github.com/jason-s-yu/taverna/internal/game"
	"github.com/jason-s-yu/taverna/internal/models"
)

// roomAction authenticates the caller, parses {roomId} and runs fn.
// fn returns the response body, or nil for 204.
func roomAction(rs *RoomServer, fn func(r *http.Request, who auth.Identity, roomID uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := rs.requireIdentity(w, r)
		if !ok {
			return
		}
		roomID, ok := pathUUID(r, "roomId")
		if !ok {
			badRequest(w, "invalid room id")
			return
		}
		out, err := fn(r, who, roomID)
		if err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		if out == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func decodeOrFail(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil {
		return fmt.Errorf("%w: bad request payload", game.ErrValidation)
	}
	return nil
}

type readyRequest struct {
	Ready  *bool  `json:"ready"`
	Target string `json:"target"`
}

// ReadyHandler sets the caller's readiness, or a simulated participant's when
// the host names one in target.
func ReadyHandler(rs *RoomServer) http.HandlerFunc {
	return roomAction(rs, func(r *http.Request, who auth.Identity, roomID uuid.UUID) (any, error) {
		var req readyRequest
		if err := decodeOrFail(r, &req); err != nil {
			return nil, err
		}
		ready := req.Ready == nil || *req.Ready
		return nil, rs.Rooms.SetReady(r.Context(), roomID, who.UserID, req.Target, ready)
	})
}

// AddSimulatedHandler seats a "Jogador Teste" participant. Host only.
func AddSimulatedHandler(rs *RoomServer) http.HandlerFunc {
	return roomAction(rs, func(r *http.Request, who auth.Identity, roomID uuid.UUID) (any, error) {
		p, err := rs.Rooms.AddSimulated(r.Context(), roomID, who.UserID)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// ToggleSimulatedHandler flips a simulated participant's readiness. Host only.
func ToggleSimulatedHandler(rs *RoomServer) http.HandlerFunc {
	return roomAction(rs, func(r *http.Request, who auth.Identity, roomID uuid.UUID) (any, error) {
		return nil, rs.Rooms.ToggleSimulatedReady(r.Context(), roomID, who.UserID, r.PathValue("participantId"))
	})
}

// StartCampaignHandler runs the lobby to refinement transition. The response
// is sent once refinement is open.
func StartCampaignHandler(rs *RoomServer) http.HandlerFunc {
	return roomAction(rs, func(r *http.Request, who auth.Identity, roomID uuid.UUID) (any, error) {
		return nil, rs.Rooms.StartCampaign(r.Context(), roomID, who.UserID)
	})
}

type refinementAnswerRequest struct {
	Index  int    `json:"index"`
	Answer string `json:"answer"`
}

func RefinementAnswerHandler(rs *RoomServer) http.HandlerFunc {
	return roomAction(rs, func(r *http.Request, who auth.Identity, roomID uuid.UUID) (any, error) {
		var req refinementAnswerRequest
		if err := decodeOrFail(r, &req); err != nil {
			return nil, err
		}
		return nil, rs.Rooms.SetRefinementAnswer(r.Context(), roomID, who.UserID, req.Index, req.Answer)
	})
}

// ConfirmRefinementHandler starts play. Host only.
func ConfirmRefinementHandler(rs *RoomServer) http.HandlerFunc {
	return roomAction(rs, func(r *http.Request, who auth.Identity, roomID uuid.UUID) (any, error) {
		msg, err := rs.Rooms.ConfirmRefinement(r.Context(), roomID, who.UserID)
		if err != nil {
			return nil, err
		}
		return msg, nil
	})
}

type submitRequest struct {
	Kind    models.MessageKind `json:"kind"`
	Content string             `json:"content"`
}

// SubmitMessageHandler appends an action, consult or interact message from the turn holder.
func SubmitMessageHandler(rs *RoomServer) http.HandlerFunc {
	return roomAction(rs, func(r *http.Request, who auth.Identity, roomID uuid.UUID) (any, error) {
		var req submitRequest
		if err := decodeOrFail(r, &req); err != nil {
			return nil, err
		}
		msg, err := rs.Rooms.Submit(r.Context(), roomID, who.UserID, req.Kind, req.Content)
		if err != nil {
			return nil, err
		}
		return msg, nil
	})
}

type finalizeRequest struct {
	APIKey string `json:"apiKey"`
}

// FinalizeTurnHandler hands the turn to the narrator and responds with the
// narration and the next turn holder.
func FinalizeTurnHandler(rs *RoomServer) http.HandlerFunc {
	return roomAction(rs, func(r *http.Request, who auth.Identity, roomID uuid.UUID) (any, error) {
		var req finalizeRequest
		if err := decodeOrFail(r, &req); err != nil {
			return nil, err
		}
		res, err := rs.Rooms.FinalizeTurn(r.Context(), roomID, who.UserID, req.APIKey)
		if err != nil {
			return nil, err
		}
		return res, nil
	})
}

type passRequest struct {
	Target string `json:"target"`
}

// PassTurnHandler is the host override for the turn holder.
func PassTurnHandler(rs *RoomServer) http.HandlerFunc {
	return roomAction(rs, func(r *http.Request, who auth.Identity, roomID uuid.UUID) (any, error) {
		var req passRequest
		if err := decodeOrFail(r, &req); err != nil {
			return nil, err
		}
		return nil, rs.Rooms.PassTurn(r.Context(), roomID, who.UserID, req.Target)
	})
}
