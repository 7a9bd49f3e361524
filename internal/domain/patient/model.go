// Package patient manages patient profiles: phone-based lookup for centers
// linking reports, and registration of patients who have never visited before.
package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the profiles table rows with user_type = 'patient'.
// Phone is stored exactly as entered; matching normalizes on the fly.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FullName  *string   `db:"full_name" json:"full_name,omitempty"`
	Phone     string    `db:"phone" json:"phone"`
	Email     *string   `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Name returns the display name, empty when the profile has none.
func (p *Patient) Name() string {
	if p.FullName == nil {
		return ""
	}
	return *p.FullName
}

// Resolution is the outcome of a phone lookup. When Found is false the other
// fields are zero.
type Resolution struct {
	Found     bool      `json:"found"`
	PatientID uuid.UUID `json:"patient_id,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
}
