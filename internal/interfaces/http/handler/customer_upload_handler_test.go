package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	importapp "github.com/bizlink/backend/internal/application/import"
	"github.com/bizlink/backend/internal/domain/bulk"
	"github.com/bizlink/backend/internal/domain/shared"
)

// stubUploadService implements UploadService with canned outcomes
type stubUploadService struct {
	validateResult *importapp.ValidateResult
	validateErr    error
	confirmResult  *importapp.ConfirmResult
	confirmErr     error
	sweepRemoved   int
	histories      []bulk.ImportHistory

	confirmedID   string
	confirmedMode importapp.Mode
	historyFilter shared.Filter
}

func (s *stubUploadService) Validate(ctx context.Context, fileName string, data []byte) (*importapp.ValidateResult, error) {
	return s.validateResult, s.validateErr
}

func (s *stubUploadService) Confirm(ctx context.Context, sessionID string, mode importapp.Mode) (*importapp.ConfirmResult, error) {
	s.confirmedID = sessionID
	s.confirmedMode = mode
	return s.confirmResult, s.confirmErr
}

func (s *stubUploadService) SweepSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	return s.sweepRemoved, nil
}

func (s *stubUploadService) ListHistory(ctx context.Context, filter shared.Filter) (shared.Paginated[bulk.ImportHistory], error) {
	s.historyFilter = filter
	return shared.NewPaginated(s.histories, int64(len(s.histories)), filter.Page, filter.PageSize), nil
}

func setupUploadRouter(service UploadService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewCustomerUploadHandler(service, 0).RegisterRoutes(api)
	return engine
}

func multipartFile(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestCustomerUploadHandler_Validate(t *testing.T) {
	stub := &stubUploadService{
		validateResult: &importapp.ValidateResult{
			SessionID: "20260827120000-abcdef",
			Report: &importapp.ValidationReport{
				TotalCount: 1,
				NewCount:   1,
			},
		},
	}
	engine := setupUploadRouter(stub)

	body, contentType := multipartFile(t, "file", "customers.xlsx", []byte("workbook"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/customers/validate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			SessionID string `json:"session_id"`
			Result    struct {
				TotalCount int `json:"total_count"`
				NewCount   int `json:"new_count"`
			} `json:"result"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "20260827120000-abcdef", resp.Data.SessionID)
	assert.Equal(t, 1, resp.Data.Result.NewCount)
}

func TestCustomerUploadHandler_ValidateMissingFile(t *testing.T) {
	engine := setupUploadRouter(&stubUploadService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/customers/validate", strings.NewReader(""))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomerUploadHandler_ValidateFileTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewCustomerUploadHandler(&stubUploadService{}, 4).RegisterRoutes(api)

	body, contentType := multipartFile(t, "file", "big.xlsx", []byte("more than four bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/customers/validate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCustomerUploadHandler_Confirm(t *testing.T) {
	stub := &stubUploadService{
		confirmResult: &importapp.ConfirmResult{
			SuccessCount: 2,
			TotalCount:   2,
			Summary:      importapp.ConfirmSummary{Created: 2},
		},
	}
	engine := setupUploadRouter(stub)

	payload := `{"validation_id":"session-1","mode":"add"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/customers", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "session-1", stub.confirmedID)
	assert.Equal(t, importapp.ModeAdd, stub.confirmedMode)
}

func TestCustomerUploadHandler_ConfirmBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty body", ``},
		{"missing validation_id", `{"mode":"add"}`},
		{"missing mode", `{"validation_id":"session-1"}`},
		{"unknown mode", `{"validation_id":"session-1","mode":"merge"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := setupUploadRouter(&stubUploadService{})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/import/customers", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCustomerUploadHandler_ConfirmInvalidSession(t *testing.T) {
	stub := &stubUploadService{confirmErr: shared.ErrInvalidSession}
	engine := setupUploadRouter(stub)

	payload := `{"validation_id":"gone","mode":"add"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/customers", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ERR_INVALID_SESSION", resp.Error.Code)
	assert.Equal(t, "invalid session", resp.Error.Message)
}

func TestCustomerUploadHandler_ConfirmSaveFailed(t *testing.T) {
	stub := &stubUploadService{confirmErr: shared.ErrSaveFailed}
	engine := setupUploadRouter(stub)

	payload := `{"validation_id":"session-1","mode":"overwrite"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/customers", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ERR_SAVE_FAILED", resp.Error.Code)
	assert.Equal(t, "save failed", resp.Error.Message)
}

func TestCustomerUploadHandler_SweepSessions(t *testing.T) {
	stub := &stubUploadService{sweepRemoved: 3}
	engine := setupUploadRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/customers/sessions/sweep", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			Removed int `json:"removed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data.Removed)
}

func TestCustomerUploadHandler_SweepBadMaxAge(t *testing.T) {
	engine := setupUploadRouter(&stubUploadService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/customers/sessions/sweep?max_age_hours=-1", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomerUploadHandler_History(t *testing.T) {
	record := bulk.NewImportHistory("customers.xlsx", "add", "tester")
	record.Complete(3, 2, 0, 1, nil)
	stub := &stubUploadService{histories: []bulk.ImportHistory{*record}}
	engine := setupUploadRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/import/history?page=1&page_size=10&search=customers", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []struct {
			FileName   string `json:"file_name"`
			Status     string `json:"status"`
			TotalCount int    `json:"total_count"`
		} `json:"data"`
		Meta struct {
			Total      int64 `json:"total"`
			Page       int   `json:"page"`
			PageSize   int   `json:"page_size"`
			TotalPages int   `json:"total_pages"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "customers.xlsx", resp.Data[0].FileName)
	assert.Equal(t, "completed", resp.Data[0].Status)
	assert.Equal(t, 3, resp.Data[0].TotalCount)
	assert.Equal(t, int64(1), resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.Page)
	assert.Equal(t, 10, resp.Meta.PageSize)
	assert.Equal(t, 1, resp.Meta.TotalPages)

	assert.Equal(t, 1, stub.historyFilter.Page)
	assert.Equal(t, 10, stub.historyFilter.PageSize)
	assert.Equal(t, "customers", stub.historyFilter.Search)
	assert.Equal(t, "started_at", stub.historyFilter.OrderBy)
}

func TestCustomerUploadHandler_HistoryBadPaging(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"zero page", "?page=0"},
		{"non-numeric page", "?page=abc"},
		{"zero page size", "?page_size=0"},
		{"oversized page size", "?page_size=500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := setupUploadRouter(&stubUploadService{})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/import/history"+tt.query, nil)
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
