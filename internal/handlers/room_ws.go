// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/auth"
	"github.com/jason-s-yu/taverna/internal/middleware"
	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/jason-s-yu/taverna/internal/room"
	"github.com/sirupsen/logrus"
)

const (
	roomSubprotocol = "room"
	pingInterval    = 30 * time.Second
	writeTimeout    = 5 * time.Second
)

// command is a client frame on the room socket.
type command struct {
	Type          string `json:"type"`
	Content       string `json:"content,omitempty"`
	Target        string `json:"target,omitempty"`
	ParticipantID string `json:"participantId,omitempty"`
	Index         int    `json:"index,omitempty"`
	Answer        string `json:"answer,omitempty"`
	APIKey        string `json:"apiKey,omitempty"`
}

// stateFrame is pushed after every room event.
type stateFrame struct {
	Type  string               `json:"type"`
	Event models.RoomEventType `json:"event,omitempty"`
	View  *room.View           `json:"state"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// roomConn is one participant's socket.
type roomConn struct {
	rs     *RoomServer
	roomID uuid.UUID
	who    auth.Identity
	out    chan any
	log    *logrus.Entry
}

// send queues a frame without blocking the caller.
func (c *roomConn) send(ctx context.Context, frame any) {
	select {
	case c.out <- frame:
	case <-ctx.Done():
	default:
		c.log.Warn("outbound queue full, frame dropped")
	}
}

func (c *roomConn) sendError(ctx context.Context, cmd string, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		c.log.WithError(err).WithField("command", cmd).Error("room command failed")
		msg = "internal error"
	}
	c.send(ctx, errorFrame{Type: "error", Command: cmd, Code: code, Message: msg})
}

func (c *roomConn) sendState(ctx context.Context, event models.RoomEventType) {
	view, err := c.rs.Rooms.Snapshot(ctx, c.roomID, c.who.UserID)
	if err != nil {
		c.sendError(ctx, "", err)
		return
	}
	c.send(ctx, stateFrame{Type: "room_state", Event: event, View: view})
}

// RoomWSHandler serves /rooms/ws/{roomId}. Only seated participants may
// connect; they receive a room_state frame on connect and after every event.
func RoomWSHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := pathUUID(r, "roomId")
		if !ok {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}
		who, err := rs.identify(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{roomSubprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			rs.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != roomSubprotocol {
			c.Close(BadSubprotocolError, "client must speak the room subprotocol")
			return
		}

		view, err := rs.Rooms.Snapshot(r.Context(), roomID, who.UserID)
		if err != nil {
			c.Close(InvalidRoomIDError, "room does not exist")
			return
		}
		if _, seated := view.State.Participant(who.UserID); !seated {
			c.Close(NotParticipantError, "join the room before opening its feed")
			return
		}

		middleware.LogWebSocketConnect(rs.Logger, r.RemoteAddr, r.URL.Path, who.UserID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := &roomConn{
			rs:     rs,
			roomID: roomID,
			who:    who,
			out:    make(chan any, 16),
			log:    rs.Logger.WithFields(logrus.Fields{"room": roomID, "user": who.UserID}),
		}
		sub := rs.Rooms.Subscribe(roomID)
		defer rs.Rooms.Unsubscribe(sub)

		conn.send(ctx, stateFrame{Type: "room_state", View: view})

		go writePump(ctx, cancel, c, conn, sub)
		err = readPump(ctx, c, conn)

		middleware.LogWebSocketDisconnect(rs.Logger, r.RemoteAddr, r.URL.Path, who.UserID, err)
	}
}

// readPump dispatches client commands until the socket closes.
func readPump(ctx context.Context, c *websocket.Conn, conn *roomConn) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			conn.log.Warnf("ignoring non-text frame type %d", typ)
			continue
		}

		var cmd command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			conn.send(ctx, errorFrame{Type: "error", Code: "validation", Message: "invalid JSON format"})
			continue
		}
		handleRoomCommand(ctx, conn, cmd)
	}
}

// handleRoomCommand runs one command. Commands that wait on the narrator or
// the settle delay run in their own goroutine so the socket keeps reading.
func handleRoomCommand(ctx context.Context, conn *roomConn, cmd command) {
	rooms := conn.rs.Rooms
	roomID, userID := conn.roomID, conn.who.UserID

	var err error
	switch cmd.Type {
	case "ready", "unready":
		err = rooms.SetReady(ctx, roomID, userID, cmd.Target, cmd.Type == "ready")
	case "toggle_sim_ready":
		err = rooms.ToggleSimulatedReady(ctx, roomID, userID, cmd.ParticipantID)
	case "add_sim":
		_, err = rooms.AddSimulated(ctx, roomID, userID)
	case string(models.KindAction), string(models.KindConsult), string(models.KindInteract):
		_, err = rooms.Submit(ctx, roomID, userID, models.MessageKind(cmd.Type), cmd.Content)
	case "pass_turn":
		err = rooms.PassTurn(ctx, roomID, userID, cmd.Target)
	case "refinement_answer":
		err = rooms.SetRefinementAnswer(ctx, roomID, userID, cmd.Index, cmd.Answer)
	case "confirm_refinement":
		_, err = rooms.ConfirmRefinement(ctx, roomID, userID)
	case "start_campaign":
		go func() {
			if err := rooms.StartCampaign(ctx, roomID, userID); err != nil {
				conn.sendError(ctx, cmd.Type, err)
			}
		}()
	case "finalize_turn":
		go func() {
			if _, err := rooms.FinalizeTurn(ctx, roomID, userID, cmd.APIKey); err != nil {
				conn.sendError(ctx, cmd.Type, err)
			}
		}()
	default:
		err = fmt.Errorf("unknown command type %q", cmd.Type)
		conn.send(ctx, errorFrame{Type: "error", Command: cmd.Type, Code: "unknown_command", Message: err.Error()})
		return
	}
	if err != nil {
		conn.sendError(ctx, cmd.Type, err)
	}
}

// writePump turns room events into state frames, flushes queued frames and
// keeps the connection alive with pings.
func writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, conn *roomConn, sub *room.Subscription) {
	defer cancel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.C:
			if ev.Type == models.EventRoomDeleted {
				c.Close(RoomDeletedCode, "room deleted")
				return
			}
			conn.sendState(ctx, ev.Type)
		case frame := <-conn.out:
			data, err := json.Marshal(frame)
			if err != nil {
				conn.log.WithError(err).Warn("failed to marshal outgoing frame")
				continue
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				conn.log.WithError(err).Warn("failed to write to websocket")
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				conn.log.WithError(err).Warn("ping failed, assuming disconnect")
				return
			}
		}
	}
}
