package report

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const reportCols = `id, name, type, lab, patient_id, uploaded_by, file_key, report_date, created_at`

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO reports (id, name, type, lab, patient_id, uploaded_by, file_key, report_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		rep.ID, rep.Name, rep.Type, rep.Lab, rep.PatientID, rep.UploadedBy, rep.FileKey, rep.Date,
	).Scan(&rep.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	var rep Report
	err := r.pool.QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE id = $1`, id,
	).Scan(&rep.ID, &rep.Name, &rep.Type, &rep.Lab, &rep.PatientID, &rep.UploadedBy, &rep.FileKey, &rep.Date, &rep.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reports WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+reportCols+` FROM reports WHERE patient_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectReports(rows, total)
}

func (r *repoPG) ListByLab(ctx context.Context, lab string, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reports WHERE lab = $1`, lab).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+reportCols+` FROM reports WHERE lab = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		lab, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectReports(rows, total)
}

func collectReports(rows pgx.Rows, total int) ([]*Report, int, error) {
	var reports []*Report
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.Name, &rep.Type, &rep.Lab, &rep.PatientID,
			&rep.UploadedBy, &rep.FileKey, &rep.Date, &rep.CreatedAt); err != nil {
			return nil, 0, err
		}
		reports = append(reports, &rep)
	}
	return reports, total, rows.Err()
}
