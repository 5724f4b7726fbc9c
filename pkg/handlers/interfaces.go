// Package handlers contains the HTTP API handlers.
package handlers

import (
	"context"

	"github.com/sageql/sage/pkg/models"
)

// ConversationService processes one user message for a session and
// returns the turn's decision.
type ConversationService interface {
	HandleMessage(ctx context.Context, sessionID, content string) (models.Decision, error)
}

// SessionStore is the slice of the conversation store the HTTP layer
// needs: creation and read access. Appends happen inside the
// conversation service, never from the handlers.
type SessionStore interface {
	Create(meta models.SessionMetadata) error
	Metadata(id string) (*models.SessionMetadata, error)
	Get(id string) ([]models.Message, error)
}

// CatalogService exposes live schema introspection.
type CatalogService interface {
	ListTables(ctx context.Context) ([]models.TableRef, error)
	ListColumns(ctx context.Context, table, schema string) ([]models.Column, error)
}

// Pinger reports backend liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}
