package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// MeetingFilter narrows a host's meeting list.
type MeetingFilter string

const (
	FilterAll       MeetingFilter = ""
	FilterUpcoming  MeetingFilter = "upcoming"
	FilterPast      MeetingFilter = "past"
	FilterCancelled MeetingFilter = "cancelled"
)

func ParseMeetingFilter(s string) (MeetingFilter, error) {
	switch f := MeetingFilter(s); f {
	case FilterAll, FilterUpcoming, FilterPast, FilterCancelled:
		return f, nil
	default:
		return "", fmt.Errorf("unknown meeting filter %q", s)
	}
}

const meetingColumns = `
	id::text, event_id::text, user_id::text, guest_name, guest_email, additional_info,
	start_time, end_time, meet_link, calendar_event_id, calendar_app_type, status, cancelled_at, created_at`

func scanMeeting(row pgx.Row) (model.Meeting, error) {
	var m model.Meeting
	var cancelledAt *time.Time
	err := row.Scan(
		&m.ID,
		&m.EventID,
		&m.UserID,
		&m.GuestName,
		&m.GuestEmail,
		&m.AdditionalInfo,
		&m.StartTime,
		&m.EndTime,
		&m.MeetLink,
		&m.CalendarEventID,
		&m.CalendarAppType,
		&m.Status,
		&cancelledAt,
		&m.CreatedAt,
	)
	if err != nil {
		return model.Meeting{}, err
	}
	m.CancelledAt = cancelledAt
	return m, nil
}

// CreateMeeting inserts a SCHEDULED meeting. An overlap with another scheduled meeting of the
// same host returns an error wrapping ErrSlotTaken.
func (r *Repository) CreateMeeting(ctx context.Context, tx pgx.Tx, m *model.Meeting) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO meetings
			(event_id, user_id, guest_name, guest_email, additional_info, start_time, end_time, calendar_app_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`, m.EventID, m.UserID, m.GuestName, m.GuestEmail, m.AdditionalInfo,
		m.StartTime, m.EndTime, m.CalendarAppType, model.MeetingScheduled).Scan(&id)
	if err != nil {
		if IsConflict(err) {
			return "", fmt.Errorf("%w: %v", ErrSlotTaken, err)
		}
		return "", err
	}
	return id, nil
}

// ListBookedIntervals returns the host's scheduled meetings overlapping [from, to).
// Cancelled meetings do not block.
func (r *Repository) ListBookedIntervals(ctx context.Context, userID string, from, to time.Time) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time
		FROM meetings
		WHERE user_id = $1
			AND status = 'SCHEDULED'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) ListMeetingsByHost(ctx context.Context, userID string, filter MeetingFilter, now time.Time, limit int) ([]model.Meeting, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE user_id = $1`
	args := []any{userID}
	switch filter {
	case FilterUpcoming:
		query += ` AND status = 'SCHEDULED' AND end_time > $2 ORDER BY start_time ASC`
		args = append(args, now)
	case FilterPast:
		query += ` AND status = 'SCHEDULED' AND end_time <= $2 ORDER BY start_time DESC`
		args = append(args, now)
	case FilterCancelled:
		query += ` AND status = 'CANCELLED' ORDER BY start_time DESC`
	default:
		query += ` ORDER BY start_time DESC`
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []model.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return meetings, nil
}

func (r *Repository) GetMeeting(ctx context.Context, meetingID string) (model.Meeting, error) {
	m, err := scanMeeting(r.pool.QueryRow(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings
		WHERE id = $1
	`, meetingID))
	return m, notFound(err)
}

func (r *Repository) GetMeetingForUpdate(ctx context.Context, tx pgx.Tx, userID, meetingID string) (model.Meeting, error) {
	m, err := scanMeeting(tx.QueryRow(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, meetingID, userID))
	return m, notFound(err)
}

func (r *Repository) CancelMeeting(ctx context.Context, tx pgx.Tx, userID, meetingID string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE meetings
		SET status = 'CANCELLED',
			cancelled_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING cancelled_at
	`, meetingID, userID).Scan(&cancelledAt)
	return cancelledAt, notFound(err)
}

// AttachConferenceLink stores the link minted by the conferencing integration.
func (r *Repository) AttachConferenceLink(ctx context.Context, meetingID, meetLink, calendarEventID string) error {
	return attachConferenceLink(ctx, r.pool, meetingID, meetLink, calendarEventID)
}

func attachConferenceLink(ctx context.Context, q querier, meetingID, meetLink, calendarEventID string) error {
	tag, err := q.Exec(ctx, `
		UPDATE meetings
		SET meet_link = $2,
			calendar_event_id = $3
		WHERE id = $1
	`, meetingID, meetLink, calendarEventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
