package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("patient not found")

	// ErrDuplicatePhone means another patient already owns the phone number
	// (compared digits-only). The store enforces this, so concurrent
	// registrations of the same number cannot both succeed.
	ErrDuplicatePhone = errors.New("phone number already registered")
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// GetByPhone matches the stored phone string exactly as entered.
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	// ListAll returns every patient ordered by created_at then id, oldest
	// first, so normalized scans resolve ties deterministically.
	ListAll(ctx context.Context) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
}
