package bulk

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bizlink/backend/internal/domain/shared"
)

// ImportStatus represents the lifecycle state of an import run
type ImportStatus string

const (
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// ImportHistory is the audit record of one confirmed bulk upload.
// Per-row error details are stored as a JSON document so the run can be
// reviewed later without replaying the file.
type ImportHistory struct {
	shared.BaseEntity
	FileName     string       `gorm:"type:varchar(255);not null" json:"file_name"`
	Mode         string       `gorm:"type:varchar(20);not null" json:"mode"`
	Status       ImportStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalCount   int          `gorm:"not null;default:0" json:"total_count"`
	CreatedCount int          `gorm:"not null;default:0" json:"created_count"`
	UpdatedCount int          `gorm:"not null;default:0" json:"updated_count"`
	ErrorCount   int          `gorm:"not null;default:0" json:"error_count"`
	ErrorDetails string       `gorm:"type:jsonb" json:"error_details,omitempty"`
	FailReason   string       `gorm:"type:varchar(500)" json:"fail_reason,omitempty"`
	StartedAt    time.Time    `gorm:"not null" json:"started_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// TableName returns the table name for GORM
func (ImportHistory) TableName() string {
	return "import_histories"
}

// NewImportHistory starts an audit record for a confirm run
func NewImportHistory(fileName, mode, actor string) *ImportHistory {
	return &ImportHistory{
		BaseEntity: shared.NewBaseEntity(actor),
		FileName:   fileName,
		Mode:       mode,
		Status:     ImportStatusProcessing,
		StartedAt:  time.Now(),
	}
}

// Complete marks the run finished with its final counts. errorDetails may
// be any JSON-serializable value describing the per-row failures.
func (h *ImportHistory) Complete(total, created, updated, errorCount int, errorDetails any) {
	h.Status = ImportStatusCompleted
	h.TotalCount = total
	h.CreatedCount = created
	h.UpdatedCount = updated
	h.ErrorCount = errorCount
	if errorDetails != nil {
		if data, err := json.Marshal(errorDetails); err == nil {
			h.ErrorDetails = string(data)
		}
	}
	now := time.Now()
	h.CompletedAt = &now
	h.Touch(h.CreatedBy)
}

// Fail marks the run as aborted before any rows were committed
func (h *ImportHistory) Fail(reason string) {
	h.Status = ImportStatusFailed
	h.FailReason = reason
	now := time.Now()
	h.CompletedAt = &now
	h.Touch(h.CreatedBy)
}

// ImportHistoryRepository persists import audit records
type ImportHistoryRepository interface {
	Save(ctx context.Context, history *ImportHistory) error

	// FindPage returns a page of records, newest first by default. The
	// filter's Search term narrows by file name.
	FindPage(ctx context.Context, filter shared.Filter) (shared.Paginated[ImportHistory], error)
}
