package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/errors"
	"github.com/sageql/sage/pkg/models"
)

// SessionHandler serves session lifecycle and message endpoints.
type SessionHandler interface {
	CreateSession(w http.ResponseWriter, r *http.Request)
	GetSession(w http.ResponseWriter, r *http.Request)
	GetHistory(w http.ResponseWriter, r *http.Request)
	PostMessage(w http.ResponseWriter, r *http.Request)
}

type sessionHandler struct {
	store        SessionStore
	conversation ConversationService
	logger       zerolog.Logger
}

// NewSessionHandler creates the session endpoints handler.
func NewSessionHandler(store SessionStore, conversation ConversationService, logger zerolog.Logger) SessionHandler {
	return &sessionHandler{
		store:        store,
		conversation: conversation,
		logger:       logger,
	}
}

type createSessionRequest struct {
	Name     string `json:"session_name"`
	UserType string `json:"user_type"`
}

// CreateSession handles POST /api/v1/sessions.
func (h *sessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New(errors.CodeInvalidRequest, "malformed request body"))
		return
	}

	meta := models.SessionMetadata{
		ID:        uuid.NewString(),
		Name:      req.Name,
		UserType:  models.UserType(req.UserType),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.Create(meta); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info().
		Str("session_id", meta.ID).
		Str("session_name", meta.Name).
		Str("user_type", string(meta.UserType)).
		Msg("Session created")

	writeJSON(w, http.StatusCreated, meta)
}

// GetSession handles GET /api/v1/sessions/{id}.
func (h *sessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.Metadata(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

type historyResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []models.Message `json:"messages"`
}

// GetHistory handles GET /api/v1/sessions/{id}/history.
func (h *sessionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	history, err := h.store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: id, Messages: history})
}

type postMessageRequest struct {
	Content string `json:"content"`
}

// PostMessage handles POST /api/v1/sessions/{id}/messages. The response
// body is the turn's decision payload.
func (h *sessionHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New(errors.CodeInvalidRequest, "malformed request body"))
		return
	}

	decision, err := h.conversation.HandleMessage(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}
