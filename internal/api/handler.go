package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/shuaib-ai/shuaib/internal/capture"
	"github.com/shuaib-ai/shuaib/internal/chat"
	"github.com/shuaib-ai/shuaib/internal/models"
	"github.com/shuaib-ai/shuaib/internal/store"
)

type Handler struct {
	chat     *chat.Service
	store    *store.Store
	camera   *capture.CameraFlow
	recorder *capture.Recorder
	logger   *zap.Logger
}

func NewHandler(chatSvc *chat.Service, st *store.Store, camera *capture.CameraFlow, recorder *capture.Recorder, logger *zap.Logger) *Handler {
	return &Handler{
		chat:     chatSvc,
		store:    st,
		camera:   camera,
		recorder: recorder,
		logger:   logger,
	}
}

type chatRequest struct {
	Content string `json:"content"`
}

type selectRequest struct {
	SessionID string `json:"session_id"`
}

type cancelRequest struct {
	Denied bool `json:"denied"`
}

type sessionSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Subject      string `json:"subject"`
	LastModified string `json:"lastModified"`
	MessageCount int    `json:"messageCount"`
}

// attachmentView is what the UI needs for its preview; the base64 payload
// stays server-side.
type attachmentView struct {
	Kind       string `json:"type"`
	MimeType   string `json:"mimeType"`
	DisplayRef string `json:"url"`
}

// HandleChat submits one turn and streams response fragments back as
// server-sent events, one event per fragment, terminated by a done or
// error event.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// SSE headers go out lazily: the no-op cases below still need to pick
	// their own status codes.
	started := false
	event := func(name string, payload any) {
		if !started {
			started = true
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		if name != "" {
			fmt.Fprintf(w, "event: %s\n", name)
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	err := h.chat.Send(r.Context(), req.Content, func(fragment string) {
		event("", map[string]string{"text": fragment})
	})

	switch {
	case errors.Is(err, chat.ErrEmptyTurn):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, chat.ErrTurnInFlight):
		http.Error(w, "A turn is already in flight", http.StatusConflict)
	case errors.Is(err, chat.ErrStreamFailed):
		event("error", map[string]string{"message": chat.FallbackMessage})
	case err != nil:
		h.logger.Error("failed to process turn", zap.Error(err))
		if started {
			event("error", map[string]string{"message": chat.FallbackMessage})
		} else {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	default:
		event("done", map[string]string{})
	}
}

func (h *Handler) GetSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions := h.store.Sessions()
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, sessionSummary{
			ID:           s.ID,
			Title:        s.Title,
			Subject:      s.Subject,
			LastModified: s.LastModified.UTC().Format("2006-01-02T15:04:05.000Z"),
			MessageCount: len(s.Messages),
		})
	}

	h.writeJSON(w, map[string]any{
		"sessions":  summaries,
		"currentId": h.store.CurrentID(),
	})
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := h.store.Get(r.URL.Query().Get("session_id"))
	if errors.Is(err, store.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, session.Messages)
}

func (h *Handler) SelectSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.chat.SelectSession(req.SessionID); err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) NewSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.chat.NewSession()
	w.WriteHeader(http.StatusOK)
}

// DeleteSession removes a session. The confirm query parameter carries the
// explicit user confirmation; without it nothing is deleted.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	confirmed := r.URL.Query().Get("confirm") == "true"

	err := h.chat.DeleteSession(sessionID, confirmed)
	switch {
	case errors.Is(err, chat.ErrNotConfirmed):
		http.Error(w, "Deletion requires confirmation", http.StatusBadRequest)
	case errors.Is(err, store.ErrSessionNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case err != nil:
		h.logger.Error("failed to delete session", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// HandleAttachment ingests one selected file as the pending attachment
// (POST) or discards the pending attachment (DELETE). Ingestion failure is
// logged only; the client may simply retry.
func (h *Handler) HandleAttachment(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		att := capture.FromReader(header.Filename, file, h.logger)
		if att == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.chat.SetPendingAttachment(att)
		h.writeJSON(w, viewOf(att))

	case http.MethodDelete:
		h.chat.ClearPendingAttachment()
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) CameraStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.camera.Activate(nil); err != nil {
		http.Error(w, "Camera already active", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) CameraFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Invalid frame", http.StatusBadRequest)
		return
	}
	if err := h.camera.SubmitFrame(data); err != nil {
		http.Error(w, "Camera not active", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) CameraCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	att, err := h.camera.Capture()
	if err != nil {
		h.logger.Error("failed to capture photo", zap.Error(err))
		http.Error(w, "Capture failed", http.StatusUnprocessableEntity)
		return
	}
	h.chat.SetPendingAttachment(att)
	h.writeJSON(w, viewOf(att))
}

// CameraCancel aborts the camera flow. When the client reports a denied
// hardware request it receives the localized alert text.
func (h *Handler) CameraCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	h.camera.Cancel()
	if req.Denied {
		h.writeJSON(w, map[string]string{"message": capture.CameraDeniedMessage})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AudioStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		MimeType string `json:"mimeType"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.recorder.Start(req.MimeType, nil); err != nil {
		http.Error(w, "Recording already active", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) AudioChunk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Invalid chunk", http.StatusBadRequest)
		return
	}
	if err := h.recorder.Chunk(data); err != nil {
		http.Error(w, "Not recording", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// AudioStop finalizes the recording into the pending attachment. Stopping
// when nothing is recording is a no-op.
func (h *Handler) AudioStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	att := h.recorder.Stop()
	if att == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.chat.SetPendingAttachment(att)
	h.writeJSON(w, viewOf(att))
}

// AudioCancel discards an in-progress recording; a reported device denial
// gets the localized alert text.
func (h *Handler) AudioCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	h.recorder.Cancel()
	if req.Denied {
		h.writeJSON(w, map[string]string{"message": capture.MicrophoneDeniedMessage})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func viewOf(att *models.Attachment) attachmentView {
	return attachmentView{
		Kind:       att.Kind,
		MimeType:   att.MimeType,
		DisplayRef: att.DisplayRef,
	}
}
