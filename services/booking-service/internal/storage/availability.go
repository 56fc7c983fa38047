package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
)

// HostAvailability is a host's saved week and reference timezone.
type HostAvailability struct {
	Week     availability.WeeklyAvailability
	Timezone string
}

// GetAvailability loads the host's week. A host without saved availability gets a closed week in
// UTC. Weekdays without a row are closed. When a stored time cannot be parsed the affected day is
// closed and the returned error wraps availability.ErrInvalidClock; the result is still usable.
func (r *Repository) GetAvailability(ctx context.Context, userID string) (HostAvailability, error) {
	out := HostAvailability{Week: availability.ClosedWeek(), Timezone: "UTC"}

	err := r.pool.QueryRow(ctx, `
		SELECT time_gap, timezone
		FROM availability
		WHERE user_id = $1
	`, userID).Scan(&out.Week.GapMinutes, &out.Timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, nil
		}
		return HostAvailability{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT day, start_time::text, end_time::text, is_available
		FROM day_availability
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return HostAvailability{}, err
	}
	defer rows.Close()

	snap := availability.ClosedWeek().Snapshot()
	snap.SlotGapMinutes = out.Week.GapMinutes
	for rows.Next() {
		var (
			dayName string
			rec     availability.DayRecord
		)
		if err := rows.Scan(&dayName, &rec.StartTime, &rec.EndTime, &rec.IsAvailable); err != nil {
			return HostAvailability{}, err
		}
		day, err := availability.ParseWeekday(dayName)
		if err != nil {
			continue
		}
		rec.Day = day
		snap.Days[day] = rec
	}
	if rows.Err() != nil {
		return HostAvailability{}, rows.Err()
	}

	week, err := snap.Week()
	out.Week = week
	if strings.TrimSpace(out.Timezone) == "" {
		out.Timezone = "UTC"
	}
	return out, err
}

// PutAvailability replaces the host's week. Callers validate the week first.
func (r *Repository) PutAvailability(ctx context.Context, userID string, in HostAvailability) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO availability (user_id, time_gap, timezone)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE
			SET time_gap = EXCLUDED.time_gap,
				timezone = EXCLUDED.timezone,
				updated_at = now()
		`, userID, in.Week.GapMinutes, in.Timezone); err != nil {
			return fmt.Errorf("upsert availability: %w", err)
		}

		batch := &pgx.Batch{}
		for _, rec := range in.Week.Snapshot().Days {
			batch.Queue(`
				INSERT INTO day_availability (user_id, day, start_time, end_time, is_available)
				VALUES ($1, $2, $3::time, $4::time, $5)
				ON CONFLICT (user_id, day) DO UPDATE
				SET start_time = EXCLUDED.start_time,
					end_time = EXCLUDED.end_time,
					is_available = EXCLUDED.is_available
			`, userID, rec.Day.String(), rec.StartTime, rec.EndTime, rec.IsAvailable)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert day availability: %w", err)
		}
		return nil
	})
}
