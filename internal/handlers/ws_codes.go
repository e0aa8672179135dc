// internal/handlers/ws_codes.go
package handlers

// Close codes for the room WebSocket, in the private 3000-3999 range.
const (
	BadSubprotocolError   = 3000 // client did not negotiate the room subprotocol
	InvalidAuthTokenError = 3001
	NotParticipantError   = 3002 // caller is not seated in the room
	InvalidRoomIDError    = 3003
	RoomDeletedCode       = 3004 // the host deleted the room
)
