package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

type IdempotencyRecord struct {
	EventID         string
	IdempotencyKey  string
	MeetingID       string
	StatusCode      int
	ResponsePayload []byte
}

// Done reports whether a previous request with the same key already produced a response.
func (rec IdempotencyRecord) Done() bool {
	return rec.StatusCode > 0
}

// LockIdempotencyKey holds a row lock on (eventID, key) for the rest of tx. The bool is true when
// the key existed before this call.
func (r *Repository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, eventID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, eventID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (event_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (event_id, idempotency_key) DO NOTHING
	`, eventID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, eventID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

// FinalizeIdempotency stores the response. meetingID may be empty for error responses.
func (r *Repository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, eventID, key, meetingID string, statusCode int, response []byte) error {
	var meeting *string
	if meetingID != "" {
		meeting = &meetingID
	}
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET meeting_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE event_id = $1 AND idempotency_key = $2
	`, eventID, key, meeting, statusCode, response)
	return err
}

func (r *Repository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, eventID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT event_id::text,
			idempotency_key,
			COALESCE(meeting_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE event_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, eventID, key).Scan(
		&rec.EventID,
		&rec.IdempotencyKey,
		&rec.MeetingID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
