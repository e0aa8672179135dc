// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/taverna/internal/auth"
	"github.com/jason-s-yu/taverna/internal/middleware"
	"github.com/jason-s-yu/taverna/internal/room"
	"github.com/sirupsen/logrus"
)

// DefaultMaxUpload bounds campaign and character file uploads.
const DefaultMaxUpload = 32 << 20

// RoomServer holds what the HTTP and WebSocket handlers share.
type RoomServer struct {
	Rooms     *room.Service
	Issuer    *auth.Issuer
	Logger    *logrus.Logger
	MaxUpload int64
}

func NewRoomServer(rooms *room.Service, issuer *auth.Issuer, logger *logrus.Logger) *RoomServer {
	return &RoomServer{Rooms: rooms, Issuer: issuer, Logger: logger, MaxUpload: DefaultMaxUpload}
}

// Routes registers every endpoint on mux.
func (rs *RoomServer) Routes(mux *http.ServeMux) {
	// identity
	mux.HandleFunc("POST /auth/guest", GuestHandler(rs))
	mux.HandleFunc("GET /auth/me", MeHandler(rs))

	// narrator vendors
	mux.HandleFunc("GET /providers", ProvidersHandler())

	// rooms
	mux.HandleFunc("POST /rooms", CreateRoomHandler(rs))
	mux.HandleFunc("GET /rooms", ListRoomsHandler(rs))
	mux.HandleFunc("POST /rooms/join", JoinRoomHandler(rs))
	mux.HandleFunc("GET /rooms/{roomId}", GetRoomHandler(rs))
	mux.HandleFunc("DELETE /rooms/{roomId}", DeleteRoomHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/leave", LeaveRoomHandler(rs))

	// campaign and characters
	mux.HandleFunc("PATCH /rooms/{roomId}/campaign", UpdateCampaignHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/campaign/file", UploadCampaignHandler(rs))
	mux.HandleFunc("PUT /rooms/{roomId}/apikey", SetAPIKeyHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/characters", SubmitCharacterHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/characters/{characterId}/approve", ApproveCharacterHandler(rs))

	// lobby and play
	mux.HandleFunc("POST /rooms/{roomId}/ready", ReadyHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/sims", AddSimulatedHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/sims/{participantId}/toggle", ToggleSimulatedHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/start", StartCampaignHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/refinement/answers", RefinementAnswerHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/refinement/confirm", ConfirmRefinementHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/messages", SubmitMessageHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/finalize", FinalizeTurnHandler(rs))
	mux.HandleFunc("POST /rooms/{roomId}/pass", PassTurnHandler(rs))

	// live feed
	mux.HandleFunc("GET /rooms/ws/{roomId}", RoomWSHandler(rs))
}

// Handler returns the routed mux wrapped in request logging.
func (rs *RoomServer) Handler() http.Handler {
	mux := http.NewServeMux()
	rs.Routes(mux)
	return middleware.LogMiddleware(rs.Logger)(mux)
}
