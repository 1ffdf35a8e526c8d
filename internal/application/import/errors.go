package importapp

import "fmt"

// Row-level error messages. These are part of the API surface; clients
// match on them, so the wording is fixed.
const (
	MsgBusinessNumberMissing = "business number missing"
	MsgNameMissing           = "name missing"
	MsgCeoMissing            = "ceo missing"
	MsgBusinessNumberExists  = "business number already exists"
)

// RowError describes why a single upload row was rejected. Row is the
// 1-based data row number, header excluded.
type RowError struct {
	Row            int    `json:"row"`
	BusinessNumber string `json:"business_number,omitempty"`
	Name           string `json:"name,omitempty"`
	Message        string `json:"message"`
	Detail         string `json:"detail,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a RowError for a row identified by its business
// number and company name as far as they are known.
func NewRowError(row int, businessNumber, name, message string) RowError {
	return RowError{
		Row:            row,
		BusinessNumber: businessNumber,
		Name:           name,
		Message:        message,
	}
}

// ErrorCollection accumulates row errors up to a cap. The cap bounds
// response size for pathological files; TotalCount keeps counting past it
// so the report totals stay truthful.
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates an ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the total number of errors including those dropped
// by the cap
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if any error was recorded
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were dropped due to the cap
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}
