package partner

import (
	"strings"

	"github.com/bizlink/backend/internal/domain/shared"
)

// CustomerType distinguishes corporate customers from sole proprietors
type CustomerType string

const (
	CustomerTypeCorporation CustomerType = "corporation"
	CustomerTypeIndividual  CustomerType = "individual"
)

// Customer represents a trading partner record. It is the aggregate root
// for customer-related operations. BusinessNumber is the natural identity
// used for duplicate detection; Code is the internally assigned sequential
// business code. Both carry unique indexes, which remain the authoritative
// guard against concurrent collisions.
type Customer struct {
	shared.BaseEntity
	Code             string       `gorm:"type:varchar(30);not null;uniqueIndex" json:"code"`
	BusinessNumber   string       `gorm:"type:varchar(20);not null;uniqueIndex" json:"business_number"`
	CompanyName      string       `gorm:"type:varchar(200);not null" json:"company_name"`
	CeoName          string       `gorm:"type:varchar(100);not null" json:"ceo_name"`
	CorporateNumber  string       `gorm:"type:varchar(20)" json:"corporate_number"`
	Type             CustomerType `gorm:"type:varchar(20);not null;default:'corporation'" json:"type"`
	BusinessCategory string       `gorm:"type:varchar(100)" json:"business_category"`
	BusinessItem     string       `gorm:"type:varchar(100)" json:"business_item"`
	Phone            string       `gorm:"type:varchar(30)" json:"phone"`
	Mobile           string       `gorm:"type:varchar(30)" json:"mobile"`
	Fax              string       `gorm:"type:varchar(30)" json:"fax"`
	Email            string       `gorm:"type:varchar(200)" json:"email"`
	InvoiceEmail     string       `gorm:"type:varchar(200)" json:"invoice_email"`
	PostalCode       string       `gorm:"type:varchar(10)" json:"postal_code"`
	Address          string       `gorm:"type:varchar(300)" json:"address"`
	AddressDetail    string       `gorm:"type:varchar(300)" json:"address_detail"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomerFromRow builds a new customer from a cleaned upload row.
// The row must already have passed the required-field checks; code is the
// sequential business code assigned by the caller.
func NewCustomerFromRow(code string, row CustomerRow, actor string) (*Customer, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "customer code cannot be empty")
	}
	if row.BusinessNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "business number missing")
	}
	if row.CompanyName == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "name missing")
	}
	if row.CeoName == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "ceo missing")
	}

	return &Customer{
		BaseEntity:       shared.NewBaseEntity(actor),
		Code:             strings.ToUpper(code),
		BusinessNumber:   row.BusinessNumber,
		CompanyName:      row.CompanyName,
		CeoName:          row.CeoName,
		CorporateNumber:  row.CorporateNumber,
		Type:             parseCustomerType(row.Type),
		BusinessCategory: row.BusinessCategory,
		BusinessItem:     row.BusinessItem,
		Phone:            row.Phone,
		Mobile:           row.Mobile,
		Fax:              row.Fax,
		Email:            row.Email,
		InvoiceEmail:     row.InvoiceEmail,
		PostalCode:       row.PostalCode,
		Address:          row.Address,
		AddressDetail:    row.AddressDetail,
	}, nil
}

// ApplyRow merges a cleaned upload row into the customer, replacing only
// fields the row actually provides, and stamps the modifying actor.
// Code and BusinessNumber are never changed by a merge.
func (c *Customer) ApplyRow(row CustomerRow, actor string) {
	if row.CompanyName != "" {
		c.CompanyName = row.CompanyName
	}
	if row.CeoName != "" {
		c.CeoName = row.CeoName
	}
	if row.CorporateNumber != "" {
		c.CorporateNumber = row.CorporateNumber
	}
	if row.Type != "" {
		c.Type = parseCustomerType(row.Type)
	}
	if row.BusinessCategory != "" {
		c.BusinessCategory = row.BusinessCategory
	}
	if row.BusinessItem != "" {
		c.BusinessItem = row.BusinessItem
	}
	if row.Phone != "" {
		c.Phone = row.Phone
	}
	if row.Mobile != "" {
		c.Mobile = row.Mobile
	}
	if row.Fax != "" {
		c.Fax = row.Fax
	}
	if row.Email != "" {
		c.Email = row.Email
	}
	if row.InvoiceEmail != "" {
		c.InvoiceEmail = row.InvoiceEmail
	}
	if row.PostalCode != "" {
		c.PostalCode = row.PostalCode
	}
	if row.Address != "" {
		c.Address = row.Address
	}
	if row.AddressDetail != "" {
		c.AddressDetail = row.AddressDetail
	}
	c.Touch(actor)
}

// IsCorporation returns true if the customer is a corporate entity
func (c *Customer) IsCorporation() bool {
	return c.Type == CustomerTypeCorporation
}

func parseCustomerType(value string) CustomerType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "individual", "personal":
		return CustomerTypeIndividual
	default:
		return CustomerTypeCorporation
	}
}
