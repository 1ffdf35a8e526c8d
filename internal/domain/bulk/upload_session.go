package bulk

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bizlink/backend/internal/domain/partner"
)

// ErrSessionNotFound is returned when a session does not exist, has
// expired, or was already consumed by a previous confirm.
var ErrSessionNotFound = errors.New("upload session not found")

// UploadSession is the staged state between the validate and confirm
// phases of a bulk upload. It is created once by validate, never mutated
// afterwards, and consumed at most once via SessionStore.Take.
//
// Existing is the snapshot of customers keyed by cleaned business number
// taken at validation time; NextCodeSeq is the first free sequence number
// for code assignment. Confirm works entirely from this snapshot so both
// phases see the same world.
type UploadSession struct {
	ID          string                      `json:"id"`
	FileName    string                      `json:"file_name"`
	Rows        []partner.CustomerRow       `json:"rows"`
	Existing    map[string]partner.Customer `json:"existing"`
	NextCodeSeq int64                       `json:"next_code_seq"`
	CreatedBy   string                      `json:"created_by"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// NewUploadSession creates a staged session with a fresh identifier
func NewUploadSession(fileName string, rows []partner.CustomerRow, existing map[string]partner.Customer, nextCodeSeq int64, actor string) *UploadSession {
	return &UploadSession{
		ID:          newSessionID(),
		FileName:    fileName,
		Rows:        rows,
		Existing:    existing,
		NextCodeSeq: nextCodeSeq,
		CreatedBy:   actor,
		CreatedAt:   time.Now(),
	}
}

// Age returns how long ago the session was created
func (s *UploadSession) Age() time.Duration {
	return time.Since(s.CreatedAt)
}

// newSessionID builds a sortable identifier: timestamp prefix plus a
// random hex suffix.
func newSessionID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// nanosecond fallback if crypto/rand is unavailable
		return time.Now().Format("20060102150405.000000000")
	}
	return time.Now().Format("20060102150405") + "-" + hex.EncodeToString(buf)
}

// SessionStore stages upload sessions between validate and confirm.
// Take is the single-use consumption path: it must look up and remove
// the session atomically so two concurrent confirms can never both win.
type SessionStore interface {
	// Create stores a new session
	Create(ctx context.Context, session *UploadSession) error

	// Get returns a session without consuming it, or ErrSessionNotFound
	Get(ctx context.Context, id string) (*UploadSession, error)

	// Take atomically retrieves and removes a session. At most one caller
	// succeeds per session; everyone else gets ErrSessionNotFound.
	Take(ctx context.Context, id string) (*UploadSession, error)

	// Delete removes a session if present
	Delete(ctx context.Context, id string) error

	// SweepExpired removes sessions older than maxAge and returns how
	// many were removed
	SweepExpired(ctx context.Context, maxAge time.Duration) (int, error)
}
