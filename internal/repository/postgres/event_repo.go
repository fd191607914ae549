package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pickupsports/internal/domain"
)

const eventColumns = `id, type, location, latitude, longitude, start_time, end_time, skill_level, roster, player_count, version, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var roster pq.StringArray
	err := row.Scan(
		&e.ID, &e.Type, &e.Location, &e.Latitude, &e.Longitude, &e.StartTime, &e.EndTime,
		&e.SkillLevel, &roster, &e.PlayerCount, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Roster = []string(roster)
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `
		INSERT INTO events (id, type, location, latitude, longitude, start_time, end_time, skill_level, roster, player_count, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12)
	`
	_, err := r.DB.ExecContext(ctx, query,
		e.ID, e.Type, e.Location, e.Latitude, e.Longitude, e.StartTime, e.EndTime, e.SkillLevel,
		pq.Array(e.Roster), len(e.Roster), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	e.Version = 1
	e.PlayerCount = len(e.Roster)
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_time, id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) UpdateRoster(ctx context.Context, id string, expectedVersion int64, roster []string) (*domain.Event, error) {
	query := `
		UPDATE events
		SET roster = $1, player_count = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
		RETURNING ` + eventColumns
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, pq.Array(roster), len(roster), id, expectedVersion))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConcurrency
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) DeleteIfVersion(ctx context.Context, id string, expectedVersion int64) error {
	query := `DELETE FROM events WHERE id = $1 AND version = $2`
	result, err := r.DB.ExecContext(ctx, query, id, expectedVersion)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrConcurrency
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	_, err := r.DB.ExecContext(ctx, query, id)
	return err
}
