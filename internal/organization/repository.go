package organization

import (
	"context"
	"database/sql"
	"errors"

	"events_api/internal/db"

	"github.com/sirupsen/logrus"
)

type Repository struct{}

type RepositoryInterface interface {
	Create(ctx context.Context, tx *sql.Tx, in *Input) (*Organization, error)
	GetByID(ctx context.Context, db *sql.DB, id int) (*Organization, error)
	List(ctx context.Context, db *sql.DB, filter Filter, offset, limit int) ([]*Organization, int, error)
	Update(ctx context.Context, tx *sql.Tx, id int, in *Input) (*Organization, error)
	Delete(ctx context.Context, tx *sql.Tx, id int) (*Organization, error)
}

func NewRepository() RepositoryInterface {
	return &Repository{}
}

const columns = `id, name, created_at, code, category`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row scanner) (*Organization, error) {
	var o Organization
	err := row.Scan(
		&o.ID,
		&o.Name,
		&o.CreatedAt,
		&o.Code,
		&o.Category,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *Repository) Create(ctx context.Context, tx *sql.Tx, in *Input) (*Organization, error) {
	query := `
		INSERT INTO organizations (
			name, code, category, created_at
		)
		VALUES ($1, $2, $3, NOW())
		RETURNING ` + columns

	org, err := scanOrganization(tx.QueryRowContext(ctx, query, in.Name, in.Code, in.Category))
	if err != nil {
		logrus.WithError(err).Error("Failed to create organization")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"organization_id": org.ID,
		"name":            org.Name,
	}).Info("Organization created successfully")

	return org, nil
}

func (r *Repository) GetByID(ctx context.Context, db *sql.DB, id int) (*Organization, error) {
	query := `
		SELECT ` + columns + `
		FROM organizations
		WHERE id = $1
	`
	return scanOrganization(db.QueryRowContext(ctx, query, id))
}

// List returns one window of the organizations matching filter, ordered by
// id, together with the total number of matches.
func (r *Repository) List(ctx context.Context, conn *sql.DB, filter Filter, offset, limit int) ([]*Organization, int, error) {
	var cond db.Conditions
	cond.Contains("name", filter.Name)
	cond.Equals("category", filter.Category)
	cond.Equals("code", filter.Code)

	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM organizations`+cond.Where(), cond.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	// nothing to fetch past the last match
	if offset >= total {
		return []*Organization{}, total, nil
	}

	window, args := cond.Paginate(limit, offset)
	query := `SELECT ` + columns + ` FROM organizations` + cond.Where() + ` ORDER BY id` + window

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orgs := make([]*Organization, 0, limit)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return orgs, total, nil
}

func (r *Repository) Update(ctx context.Context, tx *sql.Tx, id int, in *Input) (*Organization, error) {
	query := `
		UPDATE organizations
		SET name = $1,
		    code = $2,
		    category = $3
		WHERE id = $4
		RETURNING ` + columns

	return scanOrganization(tx.QueryRowContext(ctx, query, in.Name, in.Code, in.Category, id))
}

func (r *Repository) Delete(ctx context.Context, tx *sql.Tx, id int) (*Organization, error) {
	query := `DELETE FROM organizations WHERE id = $1 RETURNING ` + columns

	org, err := scanOrganization(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	logrus.WithField("organization_id", id).Info("Organization deleted")
	return org, nil
}
