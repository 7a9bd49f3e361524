package center

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("center not found")
	ErrLabNotFound  = errors.New("lab not found")
	ErrDuplicateLab = errors.New("lab name already exists")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Center, error)
	Update(ctx context.Context, c *Center) error

	// GetLabByName matches the lab name exactly, case-sensitively.
	GetLabByName(ctx context.Context, name string) (*Lab, error)
	CreateLab(ctx context.Context, lab *Lab) error
	ListLabs(ctx context.Context) ([]*Lab, error)
}
