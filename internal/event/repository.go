package event

import (
	"context"
	"database/sql"
	"errors"

	"events_api/internal/db"

	"github.com/sirupsen/logrus"
)

type Repository struct{}

type RepositoryInterface interface {
	Create(ctx context.Context, tx *sql.Tx, in *Input) (*Event, error)
	GetByID(ctx context.Context, db *sql.DB, id int) (*Event, error)
	List(ctx context.Context, db *sql.DB, filter Filter, offset, limit int) ([]*Event, int, error)
	Update(ctx context.Context, tx *sql.Tx, id int, in *Input) (*Event, error)
	Delete(ctx context.Context, tx *sql.Tx, id int) (*Event, error)
}

func NewRepository() RepositoryInterface {
	return &Repository{}
}

const columns = `id, name, created_at, code, start_time, end_time, date, location`

func scanEvent(row interface{ Scan(dest ...any) error }) (*Event, error) {
	var e Event
	err := row.Scan(
		&e.ID,
		&e.Name,
		&e.CreatedAt,
		&e.Code,
		&e.StartTime,
		&e.EndTime,
		&e.Date,
		&e.Location,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *Repository) Create(ctx context.Context, tx *sql.Tx, in *Input) (*Event, error) {
	query := `
		INSERT INTO events (
			name, code, start_time, end_time, date, location, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + columns

	e, err := scanEvent(tx.QueryRowContext(ctx, query,
		in.Name,
		in.Code,
		in.StartTime,
		in.EndTime,
		in.Date,
		in.Location,
	))
	if err != nil {
		logrus.WithError(err).Error("Failed to create event")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"event_id": e.ID,
		"name":     e.Name,
	}).Info("Event created successfully")

	return e, nil
}

func (r *Repository) GetByID(ctx context.Context, db *sql.DB, id int) (*Event, error) {
	query := `
		SELECT ` + columns + `
		FROM events
		WHERE id = $1
	`
	return scanEvent(db.QueryRowContext(ctx, query, id))
}

func (r *Repository) List(ctx context.Context, conn *sql.DB, filter Filter, offset, limit int) ([]*Event, int, error) {
	var cond db.Conditions
	cond.Contains("name", filter.Name)
	cond.Equals("date", filter.Date)
	cond.Contains("location", filter.Location)

	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+cond.Where(), cond.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	// nothing to fetch past the last match
	if offset >= total {
		return []*Event{}, total, nil
	}

	window, args := cond.Paginate(limit, offset)
	rows, err := conn.QueryContext(ctx, `SELECT `+columns+` FROM events`+cond.Where()+` ORDER BY id`+window, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]*Event, 0, limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (r *Repository) Update(ctx context.Context, tx *sql.Tx, id int, in *Input) (*Event, error) {
	query := `
		UPDATE events
		SET name = $1,
		    code = $2,
		    start_time = $3,
		    end_time = $4,
		    date = $5,
		    location = $6
		WHERE id = $7
		RETURNING ` + columns

	return scanEvent(tx.QueryRowContext(ctx, query,
		in.Name,
		in.Code,
		in.StartTime,
		in.EndTime,
		in.Date,
		in.Location,
		id,
	))
}

func (r *Repository) Delete(ctx context.Context, tx *sql.Tx, id int) (*Event, error) {
	e, err := scanEvent(tx.QueryRowContext(ctx, `DELETE FROM events WHERE id = $1 RETURNING `+columns, id))
	if err != nil {
		return nil, err
	}

	logrus.WithField("event_id", id).Info("Event deleted")
	return e, nil
}
