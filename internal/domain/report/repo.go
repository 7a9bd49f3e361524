package report

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("report not found")

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	// ListByPatient returns a patient's reports newest-first with the total
	// count for pagination.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error)
	// ListByLab returns reports attributed to a lab name, newest-first.
	ListByLab(ctx context.Context, lab string, limit, offset int) ([]*Report, int, error)
}
