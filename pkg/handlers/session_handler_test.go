package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sageql/sage/pkg/errors"
	"github.com/sageql/sage/pkg/models"
)

type fakeStore struct {
	sessions map[string]models.SessionMetadata
	history  map[string][]models.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]models.SessionMetadata),
		history:  make(map[string][]models.Message),
	}
}

func (s *fakeStore) Create(meta models.SessionMetadata) error {
	if meta.Name == "" || !meta.UserType.Valid() {
		return errors.New(errors.CodeInvalidRequest, "invalid session")
	}
	if _, ok := s.sessions[meta.ID]; ok {
		return errors.New(errors.CodeAlreadyExists, "session already exists")
	}
	s.sessions[meta.ID] = meta
	return nil
}

func (s *fakeStore) Metadata(id string) (*models.SessionMetadata, error) {
	meta, ok := s.sessions[id]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	return &meta, nil
}

func (s *fakeStore) Get(id string) ([]models.Message, error) {
	if _, ok := s.sessions[id]; !ok {
		return nil, errors.ErrSessionNotFound
	}
	return s.history[id], nil
}

type fakeConversation struct {
	decision models.Decision
	err      error
	lastID   string
	lastMsg  string
}

func (f *fakeConversation) HandleMessage(ctx context.Context, sessionID, content string) (models.Decision, error) {
	f.lastID = sessionID
	f.lastMsg = content
	if f.err != nil {
		return models.Decision{}, f.err
	}
	return f.decision, nil
}

func newTestHandler(store SessionStore, conv ConversationService) SessionHandler {
	return NewSessionHandler(store, conv, zerolog.Nop())
}

func serve(t *testing.T, h SessionHandler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(h, NewCatalogHandler(&fakeCatalog{}, zerolog.Nop()),
		NewHealthHandler(nil, 0, zerolog.Nop()))
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateSession(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store, &fakeConversation{})

	rec := serve(t, h, http.MethodPost, "/api/v1/sessions",
		`{"session_name":"analytics","user_type":"user"}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var meta models.SessionMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, "analytics", meta.Name)
	assert.Equal(t, models.UserTypeUser, meta.UserType)
	assert.False(t, meta.CreatedAt.IsZero())

	_, ok := store.sessions[meta.ID]
	assert.True(t, ok)
}

func TestCreateSession_InvalidBody(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakeConversation{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{not json`, http.StatusBadRequest},
		{"missing name", `{"user_type":"user"}`, http.StatusBadRequest},
		{"bad user type", `{"session_name":"x","user_type":"root"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, http.MethodPost, "/api/v1/sessions", tt.body)
			assert.Equal(t, tt.want, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, errors.CodeInvalidRequest, resp.Code)
		})
	}
}

func TestGetSession(t *testing.T) {
	store := newFakeStore()
	store.sessions["s1"] = models.SessionMetadata{
		ID: "s1", Name: "analytics", UserType: models.UserTypeAdmin,
		CreatedAt: time.Now().UTC(),
	}
	h := newTestHandler(store, &fakeConversation{})

	rec := serve(t, h, http.MethodGet, "/api/v1/sessions/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var meta models.SessionMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, "s1", meta.ID)
	assert.Equal(t, models.UserTypeAdmin, meta.UserType)
}

func TestGetSession_NotFound(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakeConversation{})

	rec := serve(t, h, http.MethodGet, "/api/v1/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHistory(t *testing.T) {
	store := newFakeStore()
	store.sessions["s1"] = models.SessionMetadata{ID: "s1", Name: "x", UserType: models.UserTypeUser}
	store.history["s1"] = []models.Message{
		{Role: models.RoleUser, Content: "show me customers"},
		{Role: models.RoleAssistant, Content: `{"type":"accept","sql":"SELECT 1"}`},
	}
	h := newTestHandler(store, &fakeConversation{})

	rec := serve(t, h, http.MethodGet, "/api/v1/sessions/s1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, models.RoleAssistant, resp.Messages[1].Role)
}

func TestPostMessage(t *testing.T) {
	store := newFakeStore()
	store.sessions["s1"] = models.SessionMetadata{ID: "s1", Name: "x", UserType: models.UserTypeUser}
	conv := &fakeConversation{
		decision: models.AcceptDecision("SELECT * FROM customers", "ok", []models.Row{{"id": 1}}),
	}
	h := newTestHandler(store, conv)

	rec := serve(t, h, http.MethodPost, "/api/v1/sessions/s1/messages",
		`{"content":"show me all customers"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "s1", conv.lastID)
	assert.Equal(t, "show me all customers", conv.lastMsg)

	var decision models.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, models.DecisionAccept, decision.Kind)
	assert.Equal(t, "SELECT * FROM customers", decision.SQL)
	assert.Equal(t, 1, decision.RowCount)
}

func TestPostMessage_UnknownSession(t *testing.T) {
	conv := &fakeConversation{err: errors.ErrSessionNotFound}
	h := newTestHandler(newFakeStore(), conv)

	rec := serve(t, h, http.MethodPost, "/api/v1/sessions/missing/messages",
		`{"content":"hello"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMessage_MalformedBody(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakeConversation{})

	rec := serve(t, h, http.MethodPost, "/api/v1/sessions/s1/messages", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakeConversation{})

	rec := serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}
