package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/room"
)

// UpdateCampaignHandler applies a partial campaign edit. Host only.
func UpdateCampaignHandler(rs *RoomServer) http.HandlerFunc {
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
		var upd room.CampaignUpdate
		if err := decodeJSON(r, &upd); err != nil {
			badRequest(w, "bad campaign payload")
			return
		}
		cfg, err := rs.Rooms.UpdateCampaign(r.Context(), roomID, who.UserID, upd)
		if err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

// formFile reads one multipart file field, bounded by the server's upload limit.
func (rs *RoomServer) formFile(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, rs.MaxUpload)
	file, header, err := r.FormFile(field)
	if err != nil {
		badRequest(w, "missing or oversized "+field+" upload")
		return nil, nil, false
	}
	return file, header, true
}

// UploadCampaignHandler stores the campaign rulebook from the "file" form field. Host only.
func UploadCampaignHandler(rs *RoomServer) http.HandlerFunc {
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
		file, header, ok := rs.formFile(w, r, "file")
		if !ok {
			return
		}
		defer file.Close()

		cfg, err := rs.Rooms.UploadCampaignFile(r.Context(), roomID, who.UserID, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
		if err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

type apiKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// SetAPIKeyHandler registers the room's model key. The key is never echoed back.
func SetAPIKeyHandler(rs *RoomServer) http.HandlerFunc {
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
		var req apiKeyRequest
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, "bad api key payload")
			return
		}
		if err := rs.Rooms.SetAPIKey(r.Context(), roomID, who.UserID, req.APIKey); err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"hasApiKey": strings.TrimSpace(req.APIKey) != ""})
	}
}

type characterRequest struct {
	FileName string `json:"fileName"`
}

// SubmitCharacterHandler records the caller's character sheet. A multipart
// request uploads the "sheet" field; a JSON request only names the file.
func SubmitCharacterHandler(rs *RoomServer) http.HandlerFunc {
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

		var (
			name        string
			body        io.Reader
			size        int64
			contentType string
		)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			file, header, ok := rs.formFile(w, r, "sheet")
			if !ok {
				return
			}
			defer file.Close()
			name, body, size, contentType = header.Filename, file, header.Size, header.Header.Get("Content-Type")
		} else {
			var req characterRequest
			if err := decodeJSON(r, &req); err != nil {
				badRequest(w, "bad character payload")
				return
			}
			name = req.FileName
		}

		c, err := rs.Rooms.SubmitCharacter(r.Context(), roomID, who, name, body, size, contentType)
		if err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

type approveRequest struct {
	Approved *bool `json:"approved"`
}

// ApproveCharacterHandler approves or rejects a sheet. Host only; an empty body approves.
func ApproveCharacterHandler(rs *RoomServer) http.HandlerFunc {
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
		characterID, err := uuid.Parse(r.PathValue("characterId"))
		if err != nil {
			badRequest(w, "invalid character id")
			return
		}
		var req approveRequest
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, "bad approval payload")
			return
		}
		approved := req.Approved == nil || *req.Approved

		c, err := rs.Rooms.ApproveCharacter(r.Context(), roomID, who.UserID, characterID, approved)
		if err != nil {
			writeError(w, rs.Logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}
