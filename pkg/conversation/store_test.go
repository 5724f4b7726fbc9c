package conversation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sageql/sage/pkg/errors"
	"github.com/sageql/sage/pkg/models"
)

func newTestStore() Store {
	return NewStore(time.Hour, time.Hour, zerolog.Nop())
}

func testMeta() models.SessionMetadata {
	return models.SessionMetadata{
		ID:        uuid.NewString(),
		Name:      "analytics",
		UserType:  models.UserTypeUser,
		CreatedAt: time.Now().UTC(),
	}
}

func TestStore_CreateAndMetadata(t *testing.T) {
	store := newTestStore()
	meta := testMeta()

	require.NoError(t, store.Create(meta))

	got, err := store.Metadata(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.ID, got.ID)
	assert.Equal(t, models.UserTypeUser, got.UserType)
}

func TestStore_CreateValidation(t *testing.T) {
	store := newTestStore()

	tests := []struct {
		name string
		meta models.SessionMetadata
	}{
		{"missing id", models.SessionMetadata{Name: "x", UserType: models.UserTypeUser}},
		{"missing name", models.SessionMetadata{ID: uuid.NewString(), UserType: models.UserTypeUser}},
		{"invalid user type", models.SessionMetadata{ID: uuid.NewString(), Name: "x", UserType: "root"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Create(tt.meta)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidRequest, errors.GetCode(err))
		})
	}
}

func TestStore_CreateDuplicate(t *testing.T) {
	store := newTestStore()
	meta := testMeta()

	require.NoError(t, store.Create(meta))
	err := store.Create(meta)
	require.Error(t, err)
	assert.Equal(t, errors.CodeAlreadyExists, errors.GetCode(err))
}

func TestStore_AppendAndGet(t *testing.T) {
	store := newTestStore()
	meta := testMeta()
	require.NoError(t, store.Create(meta))

	require.NoError(t, store.Append(meta.ID, models.Message{Role: models.RoleUser, Content: "show customers"}))
	require.NoError(t, store.Append(meta.ID, models.Message{Role: models.RoleAssistant, Content: "{}"}))

	history, err := store.Get(meta.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.False(t, history[0].Timestamp.IsZero())

	// Get returns a copy; mutating it must not affect the store.
	history[0].Content = "mutated"
	again, err := store.Get(meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "show customers", again[0].Content)
}

func TestStore_UnknownSession(t *testing.T) {
	store := newTestStore()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)

	_, err = store.Metadata("missing")
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)

	err = store.Append("missing", models.Message{Role: models.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestStore_Expiry(t *testing.T) {
	store := NewStore(20*time.Millisecond, time.Millisecond, zerolog.Nop())
	meta := testMeta()
	require.NoError(t, store.Create(meta))

	time.Sleep(60 * time.Millisecond)

	_, err := store.Get(meta.ID)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}
