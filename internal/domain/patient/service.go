package patient

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/medivault/portal/pkg/phone"
)

var (
	ErrPhoneRequired = errors.New("phone must contain at least one digit")
	ErrNameRequired  = errors.New("full name is required")
	ErrInvalidEmail  = errors.New("invalid email address")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve looks up a patient by phone number. It first tries the number
// exactly as entered, then falls back to a digits-only comparison so
// "(555) 123-4567" finds a patient stored as "555-123-4567". Ties on the
// normalized form go to the oldest profile.
func (s *Service) Resolve(ctx context.Context, rawPhone string) (Resolution, error) {
	if phone.Normalize(rawPhone) == "" {
		return Resolution{}, ErrPhoneRequired
	}

	p, err := s.repo.GetByPhone(ctx, rawPhone)
	if err == nil {
		return Resolution{Found: true, PatientID: p.ID, FullName: p.Name()}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Resolution{}, fmt.Errorf("phone lookup: %w", err)
	}

	patients, err := s.repo.ListAll(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("phone scan: %w", err)
	}
	for _, p := range patients {
		if phone.Equal(p.Phone, rawPhone) {
			return Resolution{Found: true, PatientID: p.ID, FullName: p.Name()}, nil
		}
	}
	return Resolution{Found: false}, nil
}

type RegisterInput struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

// Register creates a new patient profile. The phone is stored as entered.
// If the number is already taken, Register returns the existing patient
// together with ErrDuplicatePhone so callers can link to it instead.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Patient, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)

	if in.FullName == "" {
		return nil, ErrNameRequired
	}
	if phone.Normalize(in.Phone) == "" {
		return nil, ErrPhoneRequired
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return nil, ErrInvalidEmail
		}
	}

	p := &Patient{FullName: &in.FullName, Phone: in.Phone}
	if in.Email != "" {
		p.Email = &in.Email
	}

	err := s.repo.Create(ctx, p)
	if errors.Is(err, ErrDuplicatePhone) {
		res, resolveErr := s.Resolve(ctx, in.Phone)
		if resolveErr == nil && res.Found {
			existing, getErr := s.repo.GetByID(ctx, res.PatientID)
			if getErr == nil {
				return existing, ErrDuplicatePhone
			}
		}
		return nil, ErrDuplicatePhone
	}
	if err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Exists reports whether a patient profile with the given id exists.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type UpdateInput struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
}

// UpdateProfile applies the non-nil fields of in to an existing profile.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateInput) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, ErrNameRequired
		}
		p.FullName = &name
	}
	if in.Phone != nil {
		number := strings.TrimSpace(*in.Phone)
		if phone.Normalize(number) == "" {
			return nil, ErrPhoneRequired
		}
		p.Phone = number
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			p.Email = nil
		} else {
			if _, err := mail.ParseAddress(email); err != nil {
				return nil, ErrInvalidEmail
			}
			p.Email = &email
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
