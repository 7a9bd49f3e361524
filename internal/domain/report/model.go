// Package report links diagnostic reports to patients and serves the report
// feeds patients and centers read. A report record can exist without a file:
// the record is the source of truth, the artifact is best-effort.
package report

import (
	"time"

	"github.com/google/uuid"
)

// Report maps to the reports table. Lab is stored denormalized as the lab's
// display name so listings need no join. FileKey is nil when the artifact
// upload was skipped or failed.
type Report struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Type       string     `db:"type" json:"type"`
	Lab        string     `db:"lab" json:"lab"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	UploadedBy *uuid.UUID `db:"uploaded_by" json:"uploaded_by,omitempty"`
	FileKey    *string    `db:"file_key" json:"file_key,omitempty"`
	Date       time.Time  `db:"report_date" json:"date"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// HasFile reports whether an artifact was stored for this report.
func (r *Report) HasFile() bool {
	return r.FileKey != nil && *r.FileKey != ""
}
