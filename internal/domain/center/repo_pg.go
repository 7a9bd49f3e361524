package center

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Center, error) {
	var c Center
	err := r.pool.QueryRow(ctx, `
		SELECT id, full_name, phone, email, created_at, updated_at
		FROM profiles WHERE id = $1 AND user_type = 'center'`, id,
	).Scan(&c.ID, &c.FullName, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Update(ctx context.Context, c *Center) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles SET full_name = $2, phone = $3, email = $4, updated_at = NOW()
		WHERE id = $1 AND user_type = 'center'`,
		c.ID, c.FullName, c.Phone, c.Email,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) GetLabByName(ctx context.Context, name string) (*Lab, error) {
	var lab Lab
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM labs WHERE name = $1`, name,
	).Scan(&lab.ID, &lab.Name, &lab.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLabNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lab, nil
}

func (r *repoPG) CreateLab(ctx context.Context, lab *Lab) error {
	if lab.ID == uuid.Nil {
		lab.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO labs (id, name) VALUES ($1, $2) RETURNING created_at`,
		lab.ID, lab.Name,
	).Scan(&lab.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateLab
	}
	return err
}

func (r *repoPG) ListLabs(ctx context.Context) ([]*Lab, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM labs ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labs []*Lab
	for rows.Next() {
		var lab Lab
		if err := rows.Scan(&lab.ID, &lab.Name, &lab.CreatedAt); err != nil {
			return nil, err
		}
		labs = append(labs, &lab)
	}
	return labs, rows.Err()
}
