// internal/handlers/lobby.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/taverna/internal/game"
	"github.com/jason-s-yu/taverna/internal/provider"
)

type createRoomRequest struct {
	Name string `json:"name"`
}

// CreateRoomHandler creates a room hosted by the caller.
func CreateRoomHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := rs.requireIdentity(w, r)
		if !ok {
			return
		}
		var req createRoomRequest
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, "bad room request payload")
			return
		}
		room, err := rs.Rooms.CreateRoom(r.Context(), who, req.Name)
		if err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, room)
	}
}

// ListRoomsHandler lists the rooms the caller hosts.
func ListRoomsHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := rs.requireIdentity(w, r)
		if !ok {
			return
		}
		rooms, err := rs.Rooms.ListHostedRooms(r.Context(), who.UserID)
		if err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

type joinRoomRequest struct {
	Code string `json:"code"`
}

// JoinRoomHandler seats the caller in the room with the given join code.
func JoinRoomHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := rs.requireIdentity(w, r)
		if !ok {
			return
		}
		var req joinRoomRequest
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, "bad join payload")
			return
		}
		room, err := rs.Rooms.JoinByCode(r.Context(), req.Code, who)
		if err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

// GetRoomHandler returns the room as seen by the caller. Only seated
// participants and the host may read it.
func GetRoomHandler(rs *RoomServer) http.HandlerFunc {
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
		view, err := rs.Rooms.Snapshot(r.Context(), roomID, who.UserID)
		if err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		if _, seated := view.State.Participant(who.UserID); !seated && !view.IsHost {
			writeError(w, rs.Logger, r, game.ErrNotParticipant)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// DeleteRoomHandler removes the room. Host only.
func DeleteRoomHandler(rs *RoomServer) http.HandlerFunc {
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
		if err := rs.Rooms.DeleteRoom(r.Context(), roomID, who.UserID); err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// LeaveRoomHandler removes the caller from the room's participants.
func LeaveRoomHandler(rs *RoomServer) http.HandlerFunc {
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
		if err := rs.Rooms.Leave(r.Context(), roomID, who.UserID); err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ProvidersHandler lists the narrator vendors and their models.
func ProvidersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"providers":       provider.Catalog(),
			"defaultProvider": provider.DefaultProvider,
		})
	}
}
