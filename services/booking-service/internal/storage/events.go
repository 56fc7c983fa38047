package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const eventColumns = `
	e.id::text, e.user_id::text, u.username, u.name, u.email,
	e.title, e.slug, e.description, e.duration, e.location_type, e.is_private`

func scanEvent(row pgx.Row) (model.Event, error) {
	var evt model.Event
	err := row.Scan(
		&evt.ID,
		&evt.UserID,
		&evt.Username,
		&evt.HostName,
		&evt.HostEmail,
		&evt.Title,
		&evt.Slug,
		&evt.Description,
		&evt.DurationMinutes,
		&evt.LocationType,
		&evt.IsPrivate,
	)
	return evt, err
}

// GetEvent loads an event regardless of visibility.
func (r *Repository) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	evt, err := scanEvent(r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE e.id = $1
	`, eventID))
	return evt, notFound(err)
}

// GetPublicEvent loads an event guests may book.
func (r *Repository) GetPublicEvent(ctx context.Context, eventID string) (model.Event, error) {
	evt, err := scanEvent(r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE e.id = $1 AND e.is_private = false
	`, eventID))
	return evt, notFound(err)
}

func (r *Repository) GetPublicEventBySlug(ctx context.Context, username, slug string) (model.Event, error) {
	evt, err := scanEvent(r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE u.username = $1 AND e.slug = $2 AND e.is_private = false
	`, username, slug))
	return evt, notFound(err)
}

// ListEventsByHost lists every event of a host, private ones included, newest first.
func (r *Repository) ListEventsByHost(ctx context.Context, userID string) ([]model.Event, error) {
	return r.listEvents(ctx, `e.user_id = $1`, userID)
}

// ListPublicEventsByUsername lists the events on a host's public booking page. An unknown
// username yields ErrNotFound; a known host with no public events yields an empty list.
func (r *Repository) ListPublicEventsByUsername(ctx context.Context, username string) ([]model.Event, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return r.listEvents(ctx, `u.username = $1 AND e.is_private = false`, username)
}

func (r *Repository) listEvents(ctx context.Context, where string, args ...any) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE `+where+`
		ORDER BY e.created_at DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}
