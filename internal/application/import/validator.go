package importapp

import (
	"github.com/bizlink/backend/internal/domain/partner"
)

// DuplicateRow describes an upload row whose business number matches an
// existing customer.
type DuplicateRow struct {
	Row            int    `json:"row"`
	Name           string `json:"name"`
	BusinessNumber string `json:"business_number"`
	ExistingName   string `json:"existing_name"`
}

// RowPreview is the create-candidate preview entry of a validation report
type RowPreview struct {
	Name           string `json:"name"`
	BusinessNumber string `json:"business_number"`
	CeoName        string `json:"ceo_name"`
}

// UpdatePreview is the update-candidate preview entry, carrying the name
// currently on record next to the incoming one.
type UpdatePreview struct {
	Name           string `json:"name"`
	BusinessNumber string `json:"business_number"`
	CeoName        string `json:"ceo_name"`
	ExistingName   string `json:"existing_name"`
}

// ValidationPreview groups the per-class previews of a report
type ValidationPreview struct {
	ToCreate []RowPreview    `json:"to_create"`
	ToUpdate []UpdatePreview `json:"to_update"`
}

// ValidationReport is the outcome of classifying an upload against a
// snapshot of existing customers. TotalCount always equals
// NewCount + DuplicateCount + ErrorCount.
type ValidationReport struct {
	TotalCount      int               `json:"total_count"`
	NewCount        int               `json:"new_count"`
	DuplicateCount  int               `json:"duplicate_count"`
	ErrorCount      int               `json:"error_count"`
	HasDuplicates   bool              `json:"has_duplicates"`
	HasErrors       bool              `json:"has_errors"`
	Duplicates      []DuplicateRow    `json:"duplicates"`
	Errors          []RowError        `json:"errors"`
	Preview         ValidationPreview `json:"preview"`
	ErrorsTruncated bool              `json:"errors_truncated,omitempty"`
}

// RowValidator classifies upload rows as new, duplicate-of-existing, or
// invalid. Validation is pure: it reads the rows and the snapshot and
// touches nothing else, so identical inputs always produce identical
// reports.
type RowValidator struct {
	maxErrors int
}

// NewRowValidator creates a validator. maxErrors caps how many row errors
// the report carries in full detail.
func NewRowValidator(maxErrors int) *RowValidator {
	return &RowValidator{maxErrors: maxErrors}
}

// Validate classifies every row against the existing-customer snapshot,
// keyed by cleaned business number.
//
// Required-field checks run in a fixed order and the first failure wins:
// business number, then company name, then ceo name. A row that fails a
// required check counts toward ErrorCount only, never toward new or
// duplicate.
func (v *RowValidator) Validate(rows []partner.CustomerRow, existing map[string]partner.Customer) *ValidationReport {
	report := &ValidationReport{
		Duplicates: make([]DuplicateRow, 0),
		Preview: ValidationPreview{
			ToCreate: make([]RowPreview, 0),
			ToUpdate: make([]UpdatePreview, 0),
		},
	}
	errs := NewErrorCollection(v.maxErrors)

	for _, raw := range rows {
		row := raw.Clean()
		report.TotalCount++

		if msg := CheckRequired(row); msg != "" {
			errs.Add(NewRowError(row.Line, row.BusinessNumber, row.CompanyName, msg))
			continue
		}

		if current, ok := existing[row.BusinessNumber]; ok {
			report.DuplicateCount++
			report.Duplicates = append(report.Duplicates, DuplicateRow{
				Row:            row.Line,
				Name:           row.CompanyName,
				BusinessNumber: row.BusinessNumber,
				ExistingName:   current.CompanyName,
			})
			report.Preview.ToUpdate = append(report.Preview.ToUpdate, UpdatePreview{
				Name:           row.CompanyName,
				BusinessNumber: row.BusinessNumber,
				CeoName:        row.CeoName,
				ExistingName:   current.CompanyName,
			})
			continue
		}

		report.NewCount++
		report.Preview.ToCreate = append(report.Preview.ToCreate, RowPreview{
			Name:           row.CompanyName,
			BusinessNumber: row.BusinessNumber,
			CeoName:        row.CeoName,
		})
	}

	report.ErrorCount = errs.TotalCount()
	report.Errors = errs.Errors()
	report.HasDuplicates = report.DuplicateCount > 0
	report.HasErrors = errs.HasErrors()
	report.ErrorsTruncated = errs.IsTruncated()
	return report
}

// CheckRequired runs the ordered required-field checks on a cleaned row
// and returns the first failure message, or empty when the row passes.
// The order is fixed: clients rely on which message a multi-fault row
// reports.
func CheckRequired(row partner.CustomerRow) string {
	if row.BusinessNumber == "" {
		return MsgBusinessNumberMissing
	}
	if row.CompanyName == "" {
		return MsgNameMissing
	}
	if row.CeoName == "" {
		return MsgCeoMissing
	}
	return ""
}
