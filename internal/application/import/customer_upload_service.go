package importapp

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bizlink/backend/internal/domain/bulk"
	"github.com/bizlink/backend/internal/domain/partner"
	"github.com/bizlink/backend/internal/domain/shared"
	"github.com/bizlink/backend/internal/infrastructure/logger"
)

// DefaultSessionMaxAge is how old a staged session may grow before a
// sweep removes it.
const DefaultSessionMaxAge = 24 * time.Hour

// RowParser turns uploaded workbook bytes into typed rows
type RowParser interface {
	Parse(data []byte) ([]partner.CustomerRow, error)
}

// ValidateResult is the outcome of the validate phase
type ValidateResult struct {
	SessionID string            `json:"session_id"`
	Report    *ValidationReport `json:"report"`
}

// ConfirmSummary breaks a confirm run down by what happened to each row.
// Skipped is reserved for future skip policies and is always zero today;
// failed rows are reported through FailCount and Errors.
type ConfirmSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ConfirmResult is the outcome of the confirm phase
type ConfirmResult struct {
	SuccessCount int            `json:"success_count"`
	FailCount    int            `json:"fail_count"`
	TotalCount   int            `json:"total_count"`
	Errors       []RowError     `json:"errors"`
	Summary      ConfirmSummary `json:"summary"`
}

// CustomerUploadService orchestrates the two-phase customer bulk upload:
// validate stages a classified batch, confirm consumes it and persists
// the outcome. A session is consumed at most once; the store's atomic
// Take guarantees a second confirm on the same id fails.
type CustomerUploadService struct {
	customerRepo partner.CustomerRepository
	historyRepo  bulk.ImportHistoryRepository
	sessions     bulk.SessionStore
	parser       RowParser
	validator    *RowValidator
	processor    *BatchProcessor
	log          *zap.Logger

	codePrefix string
	codeWidth  int
	maxErrors  int
}

// UploadOption configures a CustomerUploadService
type UploadOption func(*CustomerUploadService)

// WithLogger sets the service logger
func WithLogger(log *zap.Logger) UploadOption {
	return func(s *CustomerUploadService) { s.log = log }
}

// WithCodeFormat sets the business-code prefix and zero-pad width
func WithCodeFormat(prefix string, width int) UploadOption {
	return func(s *CustomerUploadService) {
		s.codePrefix = prefix
		s.codeWidth = width
	}
}

// WithMaxErrors caps how many row errors reports carry in full detail
func WithMaxErrors(maxErrors int) UploadOption {
	return func(s *CustomerUploadService) { s.maxErrors = maxErrors }
}

// NewCustomerUploadService creates the upload orchestrator
func NewCustomerUploadService(
	customerRepo partner.CustomerRepository,
	historyRepo bulk.ImportHistoryRepository,
	sessions bulk.SessionStore,
	parser RowParser,
	opts ...UploadOption,
) *CustomerUploadService {
	s := &CustomerUploadService{
		customerRepo: customerRepo,
		historyRepo:  historyRepo,
		sessions:     sessions,
		parser:       parser,
		log:          zap.NewNop(),
		codePrefix:   "C",
		codeWidth:    5,
		maxErrors:    100,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = NewRowValidator(s.maxErrors)
	s.processor = NewBatchProcessor(s.codePrefix, s.codeWidth, s.maxErrors)
	return s
}

// Validate parses the uploaded workbook, classifies every row against a
// snapshot of the current customer table, and stages the batch for a
// later Confirm. The returned report is complete even when every row is
// bad; only an unreadable workbook fails the call.
func (s *CustomerUploadService) Validate(ctx context.Context, fileName string, data []byte) (*ValidateResult, error) {
	rows, err := s.parser.Parse(data)
	if err != nil {
		return nil, err
	}

	existing, err := s.snapshotExisting(ctx)
	if err != nil {
		return nil, err
	}

	latestCode, err := s.customerRepo.LatestCode(ctx)
	if err != nil {
		return nil, err
	}

	report := s.validator.Validate(rows, existing)

	session := bulk.NewUploadSession(fileName, rows, existing, NextSeqFromCode(latestCode), logger.GetActor(ctx))
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info("upload validated",
		zap.String("session_id", session.ID),
		zap.String("file_name", fileName),
		zap.Int("total", report.TotalCount),
		zap.Int("new", report.NewCount),
		zap.Int("duplicates", report.DuplicateCount),
		zap.Int("errors", report.ErrorCount),
	)

	return &ValidateResult{SessionID: session.ID, Report: report}, nil
}

// Confirm consumes a staged session and persists its outcome under the
// given mode. The session is taken atomically, so a concurrent or
// repeated confirm on the same id fails with an invalid-session error.
// Persistence is all-or-nothing: a failed batch write leaves the customer
// table untouched and the run recorded as failed.
func (s *CustomerUploadService) Confirm(ctx context.Context, sessionID string, mode Mode) (*ConfirmResult, error) {
	if !mode.IsValid() {
		return nil, shared.NewDomainError("INVALID_MODE", "mode must be \"add\" or \"overwrite\"")
	}

	session, err := s.sessions.Take(ctx, sessionID)
	if err != nil {
		if errors.Is(err, bulk.ErrSessionNotFound) {
			return nil, shared.ErrInvalidSession
		}
		return nil, err
	}

	// Audit stamps prefer a real request identity; the anonymous system
	// actor defers to whoever staged the session.
	actor := logger.GetActor(ctx)
	if actor == "" || actor == logger.DefaultActor {
		if session.CreatedBy != "" {
			actor = session.CreatedBy
		}
	}
	if actor == "" {
		actor = logger.DefaultActor
	}

	history := bulk.NewImportHistory(session.FileName, mode.String(), actor)
	batch := s.processor.Process(session.Rows, session.Existing, session.NextCodeSeq, mode, actor)

	if err := s.customerRepo.ApplyBatch(ctx, batch.ToCreate, batch.ToUpdate); err != nil {
		s.log.Error("batch persistence failed",
			zap.String("session_id", sessionID),
			zap.String("mode", mode.String()),
			zap.Error(err),
		)
		history.Fail(shared.ErrSaveFailed.Message)
		s.recordHistory(ctx, history)
		return nil, shared.ErrSaveFailed
	}

	history.Complete(batch.TotalCount, batch.CreatedCount, batch.UpdatedCount, batch.FailCount, batch.Errors)
	s.recordHistory(ctx, history)

	s.log.Info("upload confirmed",
		zap.String("session_id", sessionID),
		zap.String("mode", mode.String()),
		zap.Int("created", batch.CreatedCount),
		zap.Int("updated", batch.UpdatedCount),
		zap.Int("failed", batch.FailCount),
	)

	return &ConfirmResult{
		SuccessCount: batch.SuccessCount,
		FailCount:    batch.FailCount,
		TotalCount:   batch.TotalCount,
		Errors:       batch.Errors,
		Summary: ConfirmSummary{
			Created: batch.CreatedCount,
			Updated: batch.UpdatedCount,
			Skipped: batch.SkippedCount,
		},
	}, nil
}

// SweepSessions removes staged sessions older than maxAge and returns how
// many were removed. maxAge zero or negative falls back to the default.
func (s *CustomerUploadService) SweepSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	removed, err := s.sessions.SweepExpired(ctx, maxAge)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("swept expired upload sessions", zap.Int("removed", removed))
	}
	return removed, nil
}

// ListHistory returns a page of import runs, newest first
func (s *CustomerUploadService) ListHistory(ctx context.Context, filter shared.Filter) (shared.Paginated[bulk.ImportHistory], error) {
	if s.historyRepo == nil {
		return shared.Paginated[bulk.ImportHistory]{Page: filter.Page, PageSize: filter.PageSize}, nil
	}
	return s.historyRepo.FindPage(ctx, filter)
}

// snapshotExisting indexes the whole customer table by cleaned business
// number. Validate and Confirm both work from this snapshot so the two
// phases agree on what exists.
func (s *CustomerUploadService) snapshotExisting(ctx context.Context) (map[string]partner.Customer, error) {
	customers, err := s.customerRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]partner.Customer, len(customers))
	for _, c := range customers {
		existing[partner.DigitsOnly(c.BusinessNumber)] = c
	}
	return existing, nil
}

// recordHistory persists the audit record; failures are logged, never
// surfaced, because the import outcome itself is already decided.
func (s *CustomerUploadService) recordHistory(ctx context.Context, history *bulk.ImportHistory) {
	if s.historyRepo == nil {
		return
	}
	if err := s.historyRepo.Save(ctx, history); err != nil {
		s.log.Error("failed to record import history", zap.Error(err))
	}
}
