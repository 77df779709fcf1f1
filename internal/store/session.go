package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
)

// SessionStore defines the interface for diagnostic session persistence.
//
// A session row and its per-domain estimates are written together, so Create
// and Update MUST run within a transaction.
type SessionStore interface {
	// Create saves a new session with its domain estimates.
	// Returns validation errors from the domain DiagnosticSession if data is invalid.
	Create(ctx context.Context, session *domain.DiagnosticSession) error

	// GetByID retrieves a session with its domain estimates.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DiagnosticSession, error)

	// GetForUpdate retrieves a session and locks its row until the surrounding
	// transaction ends (SELECT ... FOR UPDATE). Concurrent answers to the same
	// session are serialized on this lock.
	// Returns ErrSessionNotFound if the session does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.DiagnosticSession, error)

	// Update writes the session and its domain estimates if the stored version
	// still equals session.Version, then increments session.Version.
	// Returns ErrVersionConflict if the session was changed concurrently and
	// ErrSessionNotFound if it does not exist.
	Update(ctx context.Context, session *domain.DiagnosticSession) error

	// ListTimedOut returns the IDs of active sessions whose time limit expired
	// before now and whose last activity is older than now minus grace.
	ListTimedOut(ctx context.Context, now time.Time, grace time.Duration) ([]uuid.UUID, error)

	// WithTx returns a new SessionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SessionStore
}

// ResponseStore defines the interface for diagnostic response persistence.
// Responses are append-only.
type ResponseStore interface {
	// Create appends a response.
	// Returns ErrDuplicate if the session already has a response for the item
	// or for the sequence number.
	Create(ctx context.Context, response *domain.DiagnosticResponse) error

	// ListBySession returns a session's responses in sequence order.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.DiagnosticResponse, error)

	// WithTx returns a new ResponseStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ResponseStore
}
