package persistence

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/bizlink/backend/internal/domain/bulk"
	"github.com/bizlink/backend/internal/domain/shared"
)

// GormImportHistoryRepository implements bulk.ImportHistoryRepository
type GormImportHistoryRepository struct {
	db *gorm.DB
}

// NewGormImportHistoryRepository creates a new GormImportHistoryRepository
func NewGormImportHistoryRepository(db *gorm.DB) *GormImportHistoryRepository {
	return &GormImportHistoryRepository{db: db}
}

// Save creates or updates an import history record
func (r *GormImportHistoryRepository) Save(ctx context.Context, history *bulk.ImportHistory) error {
	return r.db.WithContext(ctx).Save(history).Error
}

// FindPage returns one page of import records, newest first by default.
// The filter's Search term narrows by file name.
func (r *GormImportHistoryRepository) FindPage(ctx context.Context, filter shared.Filter) (shared.Paginated[bulk.ImportHistory], error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&bulk.ImportHistory{})
	if filter.Search != "" {
		query = query.Where("file_name LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[bulk.ImportHistory]{}, err
	}

	var histories []bulk.ImportHistory
	if err := query.
		Order(orderClause(filter)).
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&histories).Error; err != nil {
		return shared.Paginated[bulk.ImportHistory]{}, err
	}

	return shared.NewPaginated(histories, total, filter.Page, filter.PageSize), nil
}

// orderClause whitelists the sortable columns; anything else falls back
// to started_at descending.
func orderClause(filter shared.Filter) string {
	column := "started_at"
	switch filter.OrderBy {
	case "started_at", "completed_at", "created_at", "file_name":
		column = filter.OrderBy
	}
	dir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		dir = "ASC"
	}
	return column + " " + dir
}

var _ bulk.ImportHistoryRepository = (*GormImportHistoryRepository)(nil)
