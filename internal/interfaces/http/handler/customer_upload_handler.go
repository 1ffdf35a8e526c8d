package handler

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	importapp "github.com/bizlink/backend/internal/application/import"
	"github.com/bizlink/backend/internal/domain/bulk"
	"github.com/bizlink/backend/internal/domain/shared"
	"github.com/bizlink/backend/internal/infrastructure/excel"
	"github.com/bizlink/backend/internal/interfaces/http/dto"
)

// UploadService is the application surface the upload handler depends on
type UploadService interface {
	Validate(ctx context.Context, fileName string, data []byte) (*importapp.ValidateResult, error)
	Confirm(ctx context.Context, sessionID string, mode importapp.Mode) (*importapp.ConfirmResult, error)
	SweepSessions(ctx context.Context, maxAge time.Duration) (int, error)
	ListHistory(ctx context.Context, filter shared.Filter) (shared.Paginated[bulk.ImportHistory], error)
}

var registerCommitMode sync.Once

// CustomerUploadHandler exposes the two-phase customer bulk upload
type CustomerUploadHandler struct {
	BaseHandler
	service     UploadService
	maxFileSize int64
}

// NewCustomerUploadHandler creates a new CustomerUploadHandler. maxFileSize
// caps the uploaded workbook in bytes; zero disables the check.
func NewCustomerUploadHandler(service UploadService, maxFileSize int64) *CustomerUploadHandler {
	registerCommitMode.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterValidation("commitmode", func(fl validator.FieldLevel) bool {
				return importapp.Mode(fl.Field().String()).IsValid()
			})
		}
	})
	return &CustomerUploadHandler{service: service, maxFileSize: maxFileSize}
}

// RegisterRoutes registers the upload routes
func (h *CustomerUploadHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/import")
	{
		imports.POST("/customers/validate", h.Validate)
		imports.POST("/customers", h.Confirm)
		imports.POST("/customers/sessions/sweep", h.SweepSessions)
		imports.GET("/history", h.History)
	}
}

// Validate handles POST /import/customers/validate. The workbook arrives
// as multipart field "file"; the response is the full classification
// report plus the session id to confirm with.
func (h *CustomerUploadHandler) Validate(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		h.ErrorWithCode(c, dto.ErrCodeFileTooLarge, "uploaded file exceeds the maximum allowed size")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "uploaded file could not be read")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.BadRequest(c, "uploaded file could not be read")
		return
	}

	result, err := h.service.Validate(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		if isParseError(err) {
			h.ErrorWithCode(c, dto.ErrCodeInvalidFile, err.Error())
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.CustomerUploadValidateResponse{
		Message:   "validation complete",
		SessionID: result.SessionID,
		Result:    result.Report,
	})
}

// Confirm handles POST /import/customers. The body names a staged session
// and a commit mode; a session can be confirmed at most once.
func (h *CustomerUploadHandler) Confirm(c *gin.Context) {
	var req dto.CustomerUploadConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "validation_id and mode (\"add\" or \"overwrite\") are required")
		return
	}

	mode, err := importapp.ParseMode(req.Mode)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.service.Confirm(c.Request.Context(), req.ValidationID, mode)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.CustomerUploadConfirmResponse{
		Message: "import complete",
		Result:  result,
	})
}

// SweepSessions handles POST /import/customers/sessions/sweep. Optional
// query parameter max_age_hours overrides the default threshold.
func (h *CustomerUploadHandler) SweepSessions(c *gin.Context) {
	var maxAge time.Duration
	if raw := c.Query("max_age_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			h.BadRequest(c, "max_age_hours must be a positive integer")
			return
		}
		maxAge = time.Duration(hours) * time.Hour
	}

	removed, err := h.service.SweepSessions(c.Request.Context(), maxAge)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.SessionSweepResponse{Removed: removed})
}

// History handles GET /import/history. Runs are paged newest first;
// optional query parameters page, page_size (max 100), and search
// (matches the file name) narrow the listing.
func (h *CustomerUploadHandler) History(c *gin.Context) {
	filter := shared.DefaultFilter()
	filter.OrderBy = "started_at"
	filter.Search = c.Query("search")

	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "page must be a positive integer")
			return
		}
		filter.Page = parsed
	}
	if raw := c.Query("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			h.BadRequest(c, "page_size must be between 1 and 100")
			return
		}
		filter.PageSize = parsed
	}

	page, err := h.service.ListHistory(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]dto.ImportHistoryItem, len(page.Items))
	for i, record := range page.Items {
		items[i] = dto.NewImportHistoryItem(record)
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// isParseError reports whether the error came from workbook decoding
func isParseError(err error) bool {
	return errors.Is(err, excel.ErrInvalidWorkbook) ||
		errors.Is(err, excel.ErrEmptyWorkbook) ||
		errors.Is(err, excel.ErrMissingHeader) ||
		errors.Is(err, excel.ErrTooManyRows)
}
