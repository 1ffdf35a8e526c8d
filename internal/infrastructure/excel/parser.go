package excel

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/bizlink/backend/internal/domain/partner"
	"github.com/xuri/excelize/v2"
)

// Parse errors. A workbook that cannot be decoded aborts the whole
// validate request; there is no partial parse.
var (
	ErrInvalidWorkbook = errors.New("workbook could not be parsed")
	ErrEmptyWorkbook   = errors.New("workbook contains no data rows")
	ErrMissingHeader   = errors.New("workbook is missing required header columns")
	ErrTooManyRows     = errors.New("workbook exceeds the maximum number of rows")
)

// Column header labels recognized in the first row. Matching is
// case-insensitive and order independent.
const (
	HeaderBusinessNumber   = "Business Number"
	HeaderCompanyName      = "Company Name"
	HeaderCeoName          = "CEO Name"
	HeaderCorporateNumber  = "Corporate ID"
	HeaderType             = "Type"
	HeaderBusinessCategory = "Business Category"
	HeaderBusinessItem     = "Business Item"
	HeaderPhone            = "Phone"
	HeaderMobile           = "Mobile"
	HeaderFax              = "Fax"
	HeaderEmail            = "Email"
	HeaderInvoiceEmail     = "Invoice Email"
	HeaderPostalCode       = "Postal Code"
	HeaderAddress          = "Address"
	HeaderAddressDetail    = "Address Detail"
)

// requiredHeaders must all be present for a workbook to be accepted
var requiredHeaders = []string{HeaderBusinessNumber, HeaderCompanyName, HeaderCeoName}

// Parser decodes customer upload workbooks into typed rows
type Parser struct {
	maxRows int
}

// NewParser creates a parser. maxRows caps the number of data rows; zero
// means no cap.
func NewParser(maxRows int) *Parser {
	return &Parser{maxRows: maxRows}
}

// Parse decodes the first sheet of an xlsx workbook. The first row is the
// header; every following non-empty row becomes one CustomerRow with a
// 1-based line number. Cells are used raw here; cleaning happens in the
// domain layer.
func (p *Parser) Parse(data []byte) ([]partner.CustomerRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}

	rawRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	if len(rawRows) < 2 {
		return nil, ErrEmptyWorkbook
	}

	columns, err := mapHeader(rawRows[0])
	if err != nil {
		return nil, err
	}

	rows := make([]partner.CustomerRow, 0, len(rawRows)-1)
	line := 0
	for _, raw := range rawRows[1:] {
		line++
		row := buildRow(line, raw, columns)
		if row.IsEmpty() {
			// blank rows keep their physical line number but are skipped
			continue
		}
		rows = append(rows, row)
		if p.maxRows > 0 && len(rows) > p.maxRows {
			return nil, fmt.Errorf("%w (limit %d)", ErrTooManyRows, p.maxRows)
		}
	}

	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return rows, nil
}

// mapHeader resolves each known header label to its column index
func mapHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, cell := range header {
		label := normalizeLabel(cell)
		if label == "" {
			continue
		}
		if _, exists := columns[label]; !exists {
			columns[label] = i
		}
	}

	for _, required := range requiredHeaders {
		if _, ok := columns[normalizeLabel(required)]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingHeader, required)
		}
	}
	return columns, nil
}

func buildRow(line int, raw []string, columns map[string]int) partner.CustomerRow {
	get := func(label string) string {
		idx, ok := columns[normalizeLabel(label)]
		if !ok || idx >= len(raw) {
			return ""
		}
		return strings.TrimSpace(raw[idx])
	}

	return partner.CustomerRow{
		Line:             line,
		BusinessNumber:   get(HeaderBusinessNumber),
		CompanyName:      get(HeaderCompanyName),
		CeoName:          get(HeaderCeoName),
		CorporateNumber:  get(HeaderCorporateNumber),
		Type:             get(HeaderType),
		BusinessCategory: get(HeaderBusinessCategory),
		BusinessItem:     get(HeaderBusinessItem),
		Phone:            get(HeaderPhone),
		Mobile:           get(HeaderMobile),
		Fax:              get(HeaderFax),
		Email:            get(HeaderEmail),
		InvoiceEmail:     get(HeaderInvoiceEmail),
		PostalCode:       get(HeaderPostalCode),
		Address:          get(HeaderAddress),
		AddressDetail:    get(HeaderAddressDetail),
	}
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
