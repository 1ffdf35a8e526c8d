package dto

import (
	"time"

	importapp "github.com/bizlink/backend/internal/application/import"
	"github.com/bizlink/backend/internal/domain/bulk"
)

// CustomerUploadConfirmRequest is the body of the confirm call. Mode must
// be one of the two commit modes; the custom "commitmode" rule enforces it
// at binding time.
type CustomerUploadConfirmRequest struct {
	ValidationID string `json:"validation_id" binding:"required"`
	Mode         string `json:"mode" binding:"required,commitmode"`
}

// CustomerUploadValidateResponse is the payload of a successful validate
type CustomerUploadValidateResponse struct {
	Message   string                      `json:"message"`
	SessionID string                      `json:"session_id"`
	Result    *importapp.ValidationReport `json:"result"`
}

// CustomerUploadConfirmResponse is the payload of a successful confirm
type CustomerUploadConfirmResponse struct {
	Message string                   `json:"message"`
	Result  *importapp.ConfirmResult `json:"result"`
}

// SessionSweepResponse reports how many staged sessions a sweep removed
type SessionSweepResponse struct {
	Removed int `json:"removed"`
}

// ImportHistoryItem is one import run in the history listing
type ImportHistoryItem struct {
	ID           string     `json:"id"`
	FileName     string     `json:"file_name"`
	Mode         string     `json:"mode"`
	Status       string     `json:"status"`
	TotalCount   int        `json:"total_count"`
	CreatedCount int        `json:"created_count"`
	UpdatedCount int        `json:"updated_count"`
	ErrorCount   int        `json:"error_count"`
	FailReason   string     `json:"fail_reason,omitempty"`
	CreatedBy    string     `json:"created_by"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewImportHistoryItem maps a domain history record to its listing shape
func NewImportHistoryItem(h bulk.ImportHistory) ImportHistoryItem {
	return ImportHistoryItem{
		ID:           h.ID.String(),
		FileName:     h.FileName,
		Mode:         h.Mode,
		Status:       string(h.Status),
		TotalCount:   h.TotalCount,
		CreatedCount: h.CreatedCount,
		UpdatedCount: h.UpdatedCount,
		ErrorCount:   h.ErrorCount,
		FailReason:   h.FailReason,
		CreatedBy:    h.CreatedBy,
		StartedAt:    h.StartedAt,
		CompletedAt:  h.CompletedAt,
	}
}
