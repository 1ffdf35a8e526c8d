package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	// FindByID finds a customer by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindAll returns every customer, ordered by code. Bulk validation
	// snapshots the whole table through this call.
	FindAll(ctx context.Context) ([]Customer, error)

	// FindByBusinessNumber finds a customer by its cleaned business number
	FindByBusinessNumber(ctx context.Context, businessNumber string) (*Customer, error)

	// ExistsByBusinessNumber checks whether a customer with the given
	// business number already exists
	ExistsByBusinessNumber(ctx context.Context, businessNumber string) (bool, error)

	// LatestCode returns the highest assigned business code, or empty
	// string when no customers exist yet
	LatestCode(ctx context.Context) (string, error)

	// Save creates or updates a single customer
	Save(ctx context.Context, customer *Customer) error

	// ApplyBatch persists the outcome of a confirmed upload: all creates
	// and all updates in one transaction. Either everything lands or
	// nothing does.
	ApplyBatch(ctx context.Context, creates []*Customer, updates []*Customer) error

	// Count counts all customers
	Count(ctx context.Context) (int64, error)
}
