package partner

import "strings"

// CustomerRow is the typed schema of a single spreadsheet row in a
// customer bulk upload. Line is 1-based, counted from the first data row
// (the header row is line 0 and never appears here).
type CustomerRow struct {
	Line             int    `json:"line"`
	BusinessNumber   string `json:"business_number"`
	CompanyName      string `json:"company_name"`
	CeoName          string `json:"ceo_name"`
	CorporateNumber  string `json:"corporate_number"`
	Type             string `json:"type"`
	BusinessCategory string `json:"business_category"`
	BusinessItem     string `json:"business_item"`
	Phone            string `json:"phone"`
	Mobile           string `json:"mobile"`
	Fax              string `json:"fax"`
	Email            string `json:"email"`
	InvoiceEmail     string `json:"invoice_email"`
	PostalCode       string `json:"postal_code"`
	Address          string `json:"address"`
	AddressDetail    string `json:"address_detail"`
}

// Clean returns a copy of the row with every field trimmed and the
// number-like fields reduced to their digits. "123-45-67890" and
// "123 45 67890" both canonicalize to "1234567890", so formatting in the
// uploaded file never affects duplicate detection.
func (r CustomerRow) Clean() CustomerRow {
	out := r
	out.BusinessNumber = DigitsOnly(r.BusinessNumber)
	out.CorporateNumber = DigitsOnly(r.CorporateNumber)
	out.Phone = DigitsOnly(r.Phone)
	out.Mobile = DigitsOnly(r.Mobile)
	out.Fax = DigitsOnly(r.Fax)
	out.CompanyName = strings.TrimSpace(r.CompanyName)
	out.CeoName = strings.TrimSpace(r.CeoName)
	out.Type = strings.TrimSpace(r.Type)
	out.BusinessCategory = strings.TrimSpace(r.BusinessCategory)
	out.BusinessItem = strings.TrimSpace(r.BusinessItem)
	out.Email = strings.TrimSpace(r.Email)
	out.InvoiceEmail = strings.TrimSpace(r.InvoiceEmail)
	out.PostalCode = strings.TrimSpace(r.PostalCode)
	out.Address = strings.TrimSpace(r.Address)
	out.AddressDetail = strings.TrimSpace(r.AddressDetail)
	return out
}

// IsEmpty reports whether every cell in the row is blank
func (r CustomerRow) IsEmpty() bool {
	fields := []string{
		r.BusinessNumber, r.CompanyName, r.CeoName, r.CorporateNumber,
		r.Type, r.BusinessCategory, r.BusinessItem,
		r.Phone, r.Mobile, r.Fax, r.Email, r.InvoiceEmail,
		r.PostalCode, r.Address, r.AddressDetail,
	}
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// DigitsOnly strips every non-digit rune from s
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
