package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/display"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type Provider interface {
	Snapshot(ctx context.Context, eventID string, from, to time.Time) (Snapshot, error)
}

// Source is the read side of storage a Provider needs.
type Source interface {
	GetPublicEvent(ctx context.Context, eventID string) (model.Event, error)
	GetAvailability(ctx context.Context, userID string) (storage.HostAvailability, error)
	ListBookedIntervals(ctx context.Context, userID string, from, to time.Time) ([]availability.Interval, error)
}

type storeProvider struct {
	src       Source
	locations *display.Projector
	logger    *slog.Logger
}

func NewProvider(src Source, locations *display.Projector, logger *slog.Logger) Provider {
	return &storeProvider{src: src, locations: locations, logger: logger}
}

func (p *storeProvider) Snapshot(ctx context.Context, eventID string, from, to time.Time) (Snapshot, error) {
	evt, err := p.src.GetPublicEvent(ctx, eventID)
	if err != nil {
		return Snapshot{}, err
	}

	host, err := p.src.GetAvailability(ctx, evt.UserID)
	if err != nil {
		if !errors.Is(err, availability.ErrInvalidClock) {
			return Snapshot{}, fmt.Errorf("load availability: %w", err)
		}
		p.logger.Warn("stored availability has malformed times; affected days closed",
			"host_id", evt.UserID, "err", err)
	}

	loc, err := p.locations.Location(host.Timezone)
	if err != nil {
		p.logger.Warn("host timezone invalid; using UTC", "host_id", evt.UserID, "timezone", host.Timezone)
		loc = time.UTC
	}

	booked, err := p.src.ListBookedIntervals(ctx, evt.UserID, from, to)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load booked intervals: %w", err)
	}

	return Snapshot{
		Event:        evt,
		Week:         host.Week,
		HostLocation: loc,
		Booked:       booked,
	}, nil
}
