package center

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrLabNameRequired = errors.New("lab name is required")
	ErrInvalidEmail    = errors.New("invalid email address")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FindOrCreateLab returns the lab with the given name, creating it on first
// use. A concurrent upload may create the lab between the lookup and the
// insert; the unique constraint turns that into ErrDuplicateLab and the
// second lookup returns the winner's row.
func (s *Service) FindOrCreateLab(ctx context.Context, name string) (*Lab, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrLabNameRequired
	}

	lab, err := s.repo.GetLabByName(ctx, name)
	if err == nil {
		return lab, nil
	}
	if !errors.Is(err, ErrLabNotFound) {
		return nil, fmt.Errorf("lab lookup: %w", err)
	}

	lab = &Lab{Name: name}
	err = s.repo.CreateLab(ctx, lab)
	if errors.Is(err, ErrDuplicateLab) {
		return s.repo.GetLabByName(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("create lab: %w", err)
	}
	return lab, nil
}

func (s *Service) ListLabs(ctx context.Context) ([]*Lab, error) {
	return s.repo.ListLabs(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Center, error) {
	return s.repo.GetByID(ctx, id)
}

type UpdateInput struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
}

// UpdateProfile applies the non-nil fields of in to a center profile.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateInput) (*Center, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			c.FullName = nil
		} else {
			c.FullName = &name
		}
	}
	if in.Phone != nil {
		number := strings.TrimSpace(*in.Phone)
		if number == "" {
			c.Phone = nil
		} else {
			c.Phone = &number
		}
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			c.Email = nil
		} else {
			if _, err := mail.ParseAddress(email); err != nil {
				return nil, ErrInvalidEmail
			}
			c.Email = &email
		}
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
