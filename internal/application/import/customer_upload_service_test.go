package importapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizlink/backend/internal/domain/bulk"
	"github.com/bizlink/backend/internal/domain/partner"
	"github.com/bizlink/backend/internal/domain/shared"
	"github.com/bizlink/backend/internal/infrastructure/logger"
	"github.com/bizlink/backend/internal/infrastructure/staging"
)

// fakeCustomerRepo is an in-memory partner.CustomerRepository keyed by
// business number.
type fakeCustomerRepo struct {
	customers  map[string]partner.Customer
	latestCode string
	applyErr   error
	applied    int
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]partner.Customer)}
}

func (r *fakeCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	for _, c := range r.customers {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeCustomerRepo) FindAll(ctx context.Context) ([]partner.Customer, error) {
	out := make([]partner.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCustomerRepo) FindByBusinessNumber(ctx context.Context, businessNumber string) (*partner.Customer, error) {
	if c, ok := r.customers[businessNumber]; ok {
		return &c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeCustomerRepo) ExistsByBusinessNumber(ctx context.Context, businessNumber string) (bool, error) {
	_, ok := r.customers[businessNumber]
	return ok, nil
}

func (r *fakeCustomerRepo) LatestCode(ctx context.Context) (string, error) {
	return r.latestCode, nil
}

func (r *fakeCustomerRepo) Save(ctx context.Context, customer *partner.Customer) error {
	r.customers[customer.BusinessNumber] = *customer
	return nil
}

func (r *fakeCustomerRepo) ApplyBatch(ctx context.Context, creates []*partner.Customer, updates []*partner.Customer) error {
	if r.applyErr != nil {
		return r.applyErr
	}
	for _, c := range creates {
		r.customers[c.BusinessNumber] = *c
	}
	for _, c := range updates {
		r.customers[c.BusinessNumber] = *c
	}
	r.applied++
	return nil
}

func (r *fakeCustomerRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.customers)), nil
}

// fakeHistoryRepo records import histories in memory
type fakeHistoryRepo struct {
	saved []*bulk.ImportHistory
}

func (r *fakeHistoryRepo) Save(ctx context.Context, history *bulk.ImportHistory) error {
	r.saved = append(r.saved, history)
	return nil
}

func (r *fakeHistoryRepo) FindPage(ctx context.Context, filter shared.Filter) (shared.Paginated[bulk.ImportHistory], error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	out := make([]bulk.ImportHistory, 0, len(r.saved))
	for i := len(r.saved) - 1; i >= 0; i-- {
		out = append(out, *r.saved[i])
	}
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

// fakeParser returns preset rows regardless of input bytes
type fakeParser struct {
	rows []partner.CustomerRow
	err  error
}

func (p *fakeParser) Parse(data []byte) ([]partner.CustomerRow, error) {
	return p.rows, p.err
}

type serviceFixture struct {
	service  *CustomerUploadService
	repo     *fakeCustomerRepo
	history  *fakeHistoryRepo
	sessions *staging.MemoryStore
}

func newServiceFixture(t *testing.T, rows []partner.CustomerRow) *serviceFixture {
	t.Helper()
	repo := newFakeCustomerRepo()
	history := &fakeHistoryRepo{}
	sessions := staging.NewMemoryStore(time.Hour, 0)
	t.Cleanup(sessions.Stop)

	service := NewCustomerUploadService(repo, history, sessions, &fakeParser{rows: rows})
	return &serviceFixture{service: service, repo: repo, history: history, sessions: sessions}
}

func TestUploadService_ValidateThenConfirmAdd(t *testing.T) {
	rows := []partner.CustomerRow{
		{Line: 1, BusinessNumber: "1111111111", CompanyName: "X", CeoName: "Y"},
	}
	f := newServiceFixture(t, rows)
	ctx := context.Background()

	validated, err := f.service.Validate(ctx, "customers.xlsx", []byte("workbook"))
	require.NoError(t, err)
	assert.NotEmpty(t, validated.SessionID)
	assert.Equal(t, 1, validated.Report.NewCount)
	assert.Equal(t, 0, validated.Report.DuplicateCount)
	assert.Equal(t, 0, validated.Report.ErrorCount)

	confirmed, err := f.service.Confirm(ctx, validated.SessionID, ModeAdd)
	require.NoError(t, err)
	assert.Equal(t, 1, confirmed.SuccessCount)
	assert.Equal(t, 1, confirmed.Summary.Created)
	assert.Equal(t, 0, confirmed.Summary.Updated)
	assert.Equal(t, 0, confirmed.Summary.Skipped, "skipped is reserved and stays zero")

	saved, err := f.repo.FindByBusinessNumber(ctx, "1111111111")
	require.NoError(t, err)
	assert.Equal(t, "C00001", saved.Code)
}

func TestUploadService_DuplicateAddVersusOverwrite(t *testing.T) {
	rows := []partner.CustomerRow{
		{Line: 1, BusinessNumber: "1234567890", CompanyName: "New Corp", CeoName: "Lee"},
	}

	t.Run("add mode fails the row", func(t *testing.T) {
		f := newServiceFixture(t, rows)
		ctx := context.Background()
		seed := existingCustomer(t, "C00001", "1234567890", "Old Corp")
		require.NoError(t, f.repo.Save(ctx, &seed))
		f.repo.latestCode = "C00001"

		validated, err := f.service.Validate(ctx, "customers.xlsx", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, validated.Report.DuplicateCount)

		confirmed, err := f.service.Confirm(ctx, validated.SessionID, ModeAdd)
		require.NoError(t, err)
		assert.Equal(t, 1, confirmed.FailCount)
		require.Len(t, confirmed.Errors, 1)
		assert.Equal(t, MsgBusinessNumberExists, confirmed.Errors[0].Message)
	})

	t.Run("overwrite mode updates the record", func(t *testing.T) {
		f := newServiceFixture(t, rows)
		ctx := context.Background()
		seed := existingCustomer(t, "C00001", "1234567890", "Old Corp")
		require.NoError(t, f.repo.Save(ctx, &seed))
		f.repo.latestCode = "C00001"

		validated, err := f.service.Validate(ctx, "customers.xlsx", nil)
		require.NoError(t, err)

		confirmed, err := f.service.Confirm(ctx, validated.SessionID, ModeOverwrite)
		require.NoError(t, err)
		assert.Equal(t, 1, confirmed.Summary.Updated)
		assert.Equal(t, 0, confirmed.FailCount)

		updated, err := f.repo.FindByBusinessNumber(ctx, "1234567890")
		require.NoError(t, err)
		assert.Equal(t, "New Corp", updated.CompanyName)
		assert.Equal(t, "C00001", updated.Code)
	})
}

func TestUploadService_ConfirmIsSingleUse(t *testing.T) {
	rows := []partner.CustomerRow{
		{Line: 1, BusinessNumber: "1111111111", CompanyName: "X", CeoName: "Y"},
	}
	f := newServiceFixture(t, rows)
	ctx := context.Background()

	validated, err := f.service.Validate(ctx, "customers.xlsx", nil)
	require.NoError(t, err)

	_, err = f.service.Confirm(ctx, validated.SessionID, ModeAdd)
	require.NoError(t, err)

	_, err = f.service.Confirm(ctx, validated.SessionID, ModeAdd)
	assert.ErrorIs(t, err, shared.ErrInvalidSession)
}

func TestUploadService_ConfirmUnknownSession(t *testing.T) {
	f := newServiceFixture(t, nil)

	_, err := f.service.Confirm(context.Background(), "never-existed", ModeAdd)
	assert.ErrorIs(t, err, shared.ErrInvalidSession)
}

func TestUploadService_ConfirmInvalidMode(t *testing.T) {
	f := newServiceFixture(t, nil)

	_, err := f.service.Confirm(context.Background(), "whatever", Mode("merge"))
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_MODE", domainErr.Code)
}

func TestUploadService_PersistenceFailureSurfacesSaveFailed(t *testing.T) {
	rows := []partner.CustomerRow{
		{Line: 1, BusinessNumber: "1111111111", CompanyName: "X", CeoName: "Y"},
	}
	f := newServiceFixture(t, rows)
	ctx := context.Background()
	f.repo.applyErr = errors.New("connection reset")

	validated, err := f.service.Validate(ctx, "customers.xlsx", nil)
	require.NoError(t, err)

	_, err = f.service.Confirm(ctx, validated.SessionID, ModeAdd)
	assert.ErrorIs(t, err, shared.ErrSaveFailed)

	require.Len(t, f.history.saved, 1)
	assert.Equal(t, bulk.ImportStatusFailed, f.history.saved[0].Status)
}

func TestUploadService_ValidateIdempotentModuloSessionID(t *testing.T) {
	rows := []partner.CustomerRow{
		{Line: 1, BusinessNumber: "1111111111", CompanyName: "X", CeoName: "Y"},
		{Line: 2, BusinessNumber: "", CompanyName: "Bad", CeoName: "Z"},
	}
	f := newServiceFixture(t, rows)
	ctx := context.Background()

	first, err := f.service.Validate(ctx, "customers.xlsx", nil)
	require.NoError(t, err)
	second, err := f.service.Validate(ctx, "customers.xlsx", nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, first.Report, second.Report)
}

func TestUploadService_SequentialCodesAcrossOneConfirm(t *testing.T) {
	rows := []partner.CustomerRow{
		{Line: 1, BusinessNumber: "1111111111", CompanyName: "A", CeoName: "Y"},
		{Line: 2, BusinessNumber: "2222222222", CompanyName: "B", CeoName: "Y"},
	}
	f := newServiceFixture(t, rows)
	ctx := context.Background()
	f.repo.latestCode = "C00007"

	validated, err := f.service.Validate(ctx, "customers.xlsx", nil)
	require.NoError(t, err)
	_, err = f.service.Confirm(ctx, validated.SessionID, ModeAdd)
	require.NoError(t, err)

	a, err := f.repo.FindByBusinessNumber(ctx, "1111111111")
	require.NoError(t, err)
	b, err := f.repo.FindByBusinessNumber(ctx, "2222222222")
	require.NoError(t, err)
	codes := map[string]bool{a.Code: true, b.Code: true}
	assert.True(t, codes["C00008"])
	assert.True(t, codes["C00009"])
}

func TestUploadService_ParserFailureAbortsValidate(t *testing.T) {
	repo := newFakeCustomerRepo()
	sessions := staging.NewMemoryStore(time.Hour, 0)
	defer sessions.Stop()
	parseErr := errors.New("not a workbook")
	service := NewCustomerUploadService(repo, &fakeHistoryRepo{}, sessions, &fakeParser{err: parseErr})

	_, err := service.Validate(context.Background(), "bad.bin", []byte{0x00})
	assert.ErrorIs(t, err, parseErr)
}

func TestUploadService_SweepSessions(t *testing.T) {
	f := newServiceFixture(t, []partner.CustomerRow{
		{Line: 1, BusinessNumber: "1111111111", CompanyName: "X", CeoName: "Y"},
	})
	ctx := context.Background()

	validated, err := f.service.Validate(ctx, "customers.xlsx", nil)
	require.NoError(t, err)

	session, err := f.sessions.Get(ctx, validated.SessionID)
	require.NoError(t, err)
	session.CreatedAt = time.Now().Add(-25 * time.Hour)

	removed, err := f.service.SweepSessions(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = f.service.Confirm(ctx, validated.SessionID, ModeAdd)
	assert.ErrorIs(t, err, shared.ErrInvalidSession)
}

func TestUploadService_ConfirmRecordsHistory(t *testing.T) {
	rows := []partner.CustomerRow{
		{Line: 1, BusinessNumber: "1111111111", CompanyName: "X", CeoName: "Y"},
		{Line: 2, BusinessNumber: "", CompanyName: "Bad", CeoName: "Z"},
	}
	f := newServiceFixture(t, rows)
	ctx := context.Background()

	validated, err := f.service.Validate(ctx, "customers.xlsx", nil)
	require.NoError(t, err)
	_, err = f.service.Confirm(ctx, validated.SessionID, ModeAdd)
	require.NoError(t, err)

	require.Len(t, f.history.saved, 1)
	record := f.history.saved[0]
	assert.Equal(t, bulk.ImportStatusCompleted, record.Status)
	assert.Equal(t, "customers.xlsx", record.FileName)
	assert.Equal(t, "add", record.Mode)
	assert.Equal(t, 2, record.TotalCount)
	assert.Equal(t, 1, record.CreatedCount)
	assert.Equal(t, 1, record.ErrorCount)

	page, err := f.service.ListHistory(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
}

func TestUploadService_ConfirmActorPrefersRealIdentity(t *testing.T) {
	rows := []partner.CustomerRow{
		{Line: 1, BusinessNumber: "1111111111", CompanyName: "X", CeoName: "Y"},
	}

	t.Run("system actor defers to whoever validated", func(t *testing.T) {
		f := newServiceFixture(t, rows)
		validateCtx, _ := logger.WithActor(context.Background(), zap.NewNop(), "alice")

		validated, err := f.service.Validate(validateCtx, "customers.xlsx", nil)
		require.NoError(t, err)

		confirmCtx, _ := logger.WithActor(context.Background(), zap.NewNop(), logger.DefaultActor)
		_, err = f.service.Confirm(confirmCtx, validated.SessionID, ModeAdd)
		require.NoError(t, err)

		require.Len(t, f.history.saved, 1)
		assert.Equal(t, "alice", f.history.saved[0].CreatedBy)
	})

	t.Run("confirming user wins over the validating one", func(t *testing.T) {
		f := newServiceFixture(t, rows)
		validateCtx, _ := logger.WithActor(context.Background(), zap.NewNop(), "alice")

		validated, err := f.service.Validate(validateCtx, "customers.xlsx", nil)
		require.NoError(t, err)

		confirmCtx, _ := logger.WithActor(context.Background(), zap.NewNop(), "bob")
		_, err = f.service.Confirm(confirmCtx, validated.SessionID, ModeAdd)
		require.NoError(t, err)

		require.Len(t, f.history.saved, 1)
		assert.Equal(t, "bob", f.history.saved[0].CreatedBy)
	})

	t.Run("no identity anywhere falls back to the system actor", func(t *testing.T) {
		f := newServiceFixture(t, rows)
		ctx := context.Background()

		validated, err := f.service.Validate(ctx, "customers.xlsx", nil)
		require.NoError(t, err)

		_, err = f.service.Confirm(ctx, validated.SessionID, ModeAdd)
		require.NoError(t, err)

		require.Len(t, f.history.saved, 1)
		assert.Equal(t, logger.DefaultActor, f.history.saved[0].CreatedBy)
	})
}
