package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizlink/backend/internal/domain/partner"
	"github.com/bizlink/backend/internal/domain/shared"
)

// GormCustomerRepository implements partner.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	var customer partner.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// FindAll returns every customer ordered by code
func (r *GormCustomerRepository) FindAll(ctx context.Context) ([]partner.Customer, error) {
	var customers []partner.Customer
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// FindByBusinessNumber finds a customer by its cleaned business number
func (r *GormCustomerRepository) FindByBusinessNumber(ctx context.Context, businessNumber string) (*partner.Customer, error) {
	var customer partner.Customer
	if err := r.db.WithContext(ctx).
		Where("business_number = ?", businessNumber).
		First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// ExistsByBusinessNumber checks whether a business number is already taken
func (r *GormCustomerRepository) ExistsByBusinessNumber(ctx context.Context, businessNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&partner.Customer{}).
		Where("business_number = ?", businessNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// LatestCode returns the highest assigned business code, or empty string
// when the table is empty. Length sorts before the lexicographic tiebreak
// so codes that outgrow the zero-pad width still order numerically
// (C100000 beats C99999).
func (r *GormCustomerRepository) LatestCode(ctx context.Context) (string, error) {
	var customer partner.Customer
	err := r.db.WithContext(ctx).
		Select("code").
		Order("length(code) DESC, code DESC").
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return customer.Code, nil
}

// Save creates or updates a single customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// ApplyBatch persists all creates and updates of a confirmed upload in one
// transaction so the customer table never reflects half an upload.
func (r *GormCustomerRepository) ApplyBatch(ctx context.Context, creates []*partner.Customer, updates []*partner.Customer) error {
	if len(creates) == 0 && len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(creates) > 0 {
			if err := tx.CreateInBatches(creates, 200).Error; err != nil {
				return err
			}
		}
		for _, customer := range updates {
			if err := tx.Save(customer).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Count counts all customers
func (r *GormCustomerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&partner.Customer{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)
