// Package center manages diagnostic center profiles and the lab registry
// that report uploads attribute results to.
package center

import (
	"time"

	"github.com/google/uuid"
)

// Center maps to the profiles table rows with user_type = 'center'.
type Center struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FullName  *string   `db:"full_name" json:"full_name,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Lab is a diagnostic laboratory reports are attributed to. Labs are keyed
// by their display name: two uploads naming the same lab share one record.
type Lab struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
