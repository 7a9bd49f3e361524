package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medivault/portal/internal/domain/center"
	"github.com/medivault/portal/internal/platform/objstore"
	"github.com/medivault/portal/internal/platform/websocket"
)

var (
	ErrNameRequired    = errors.New("report name is required")
	ErrTypeRequired    = errors.New("report type is required")
	ErrLabRequired     = errors.New("lab name is required")
	ErrPatientRequired = errors.New("patient_id is required")
	ErrPatientNotFound = errors.New("patient does not exist")
	ErrNoFile          = errors.New("report has no stored file")
)

// insertAttempts bounds retries of the report insert after a successful
// artifact upload; giving up orphans the uploaded object.
const (
	insertAttempts = 3
	insertDelay    = 200 * time.Millisecond
)

// PatientDirectory is the slice of the patient service the linker needs.
type PatientDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// LabRegistry resolves lab names to registry records, creating on first use.
type LabRegistry interface {
	FindOrCreateLab(ctx context.Context, name string) (*center.Lab, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	labs     LabRegistry
	store    objstore.Store
	events   websocket.Publisher
	log      zerolog.Logger
}

func NewService(repo Repository, patients PatientDirectory, labs LabRegistry,
	store objstore.Store, events websocket.Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		labs:     labs,
		store:    store,
		events:   events,
		log:      log,
	}
}

type LinkInput struct {
	Name      string
	Type      string
	Lab       string
	PatientID uuid.UUID
	Date      time.Time
	// UploadedBy is the center operator linking the report.
	UploadedBy uuid.UUID
	// FileName and File describe the optional artifact. File nil means the
	// center linked a record without a document.
	FileName string
	File     io.Reader
}

// LinkResult carries the stored report and, when the artifact could not be
// stored, a warning the client should surface. The record itself succeeded.
type LinkResult struct {
	Report      *Report `json:"report"`
	FileWarning string  `json:"file_warning,omitempty"`
}

// Link validates the input, registers the lab on first use, stores the
// artifact if one was sent, inserts the report record, and notifies topic
// subscribers. An artifact failure downgrades to a warning; a record failure
// is an error even if the artifact is already stored.
func (s *Service) Link(ctx context.Context, in LinkInput) (*LinkResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	in.Lab = strings.TrimSpace(in.Lab)

	switch {
	case in.Name == "":
		return nil, ErrNameRequired
	case in.Type == "":
		return nil, ErrTypeRequired
	case in.Lab == "":
		return nil, ErrLabRequired
	case in.PatientID == uuid.Nil:
		return nil, ErrPatientRequired
	}

	ok, err := s.patients.Exists(ctx, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("patient check: %w", err)
	}
	if !ok {
		return nil, ErrPatientNotFound
	}

	lab, err := s.labs.FindOrCreateLab(ctx, in.Lab)
	if err != nil {
		return nil, fmt.Errorf("lab registry: %w", err)
	}

	rep := &Report{
		Name:      in.Name,
		Type:      in.Type,
		Lab:       lab.Name,
		PatientID: in.PatientID,
		Date:      in.Date,
	}
	if in.UploadedBy != uuid.Nil {
		rep.UploadedBy = &in.UploadedBy
	}
	if rep.Date.IsZero() {
		rep.Date = time.Now().UTC()
	}

	result := &LinkResult{Report: rep}
	if in.File != nil {
		key, err := s.store.Upload(ctx, in.FileName, in.File)
		if err != nil {
			if errors.Is(err, objstore.ErrFileTooLarge) {
				return nil, err
			}
			s.log.Warn().Err(err).Str("patient_id", in.PatientID.String()).
				Msg("report file upload failed, saving record without file")
			result.FileWarning = "report saved, but the file could not be stored"
		} else {
			rep.FileKey = &key
		}
	}

	err = retry.Do(
		func() error { return s.repo.Create(ctx, rep) },
		retry.Attempts(insertAttempts),
		retry.Delay(insertDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		if rep.HasFile() {
			// The object is orphaned; record the key for cleanup.
			s.log.Error().Str("file_key", *rep.FileKey).Msg("report insert failed after upload, object orphaned")
		}
		return nil, fmt.Errorf("insert report: %w", err)
	}

	s.publish(ctx, websocket.PatientTopic(rep.PatientID.String()), rep.ID)
	s.publish(ctx, websocket.LabTopic(rep.Lab), rep.ID)

	return result, nil
}

func (s *Service) publish(ctx context.Context, topic string, reportID uuid.UUID) {
	err := s.events.Publish(ctx, websocket.Event{
		Type:     websocket.EventReportCreated,
		Topic:    topic,
		ReportID: reportID.String(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Msg("report event not published")
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByLab(ctx context.Context, lab string, limit, offset int) ([]*Report, int, error) {
	return s.repo.ListByLab(ctx, strings.TrimSpace(lab), limit, offset)
}

// Recent returns the n newest reports for a patient, for dashboard views.
func (s *Service) Recent(ctx context.Context, patientID uuid.UUID, n int) ([]*Report, error) {
	reports, _, err := s.repo.ListByPatient(ctx, patientID, n, 0)
	return reports, err
}

// FileURL returns a URL for the report's artifact, valid for ttl when the
// bucket is private.
func (s *Service) FileURL(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, error) {
	rep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !rep.HasFile() {
		return "", ErrNoFile
	}
	return s.store.AccessURL(ctx, *rep.FileKey, ttl)
}
