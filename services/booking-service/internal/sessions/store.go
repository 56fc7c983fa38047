// Package sessions persists booking selections between HTTP calls. A session that is not
// touched within its TTL is gone, which is how "leaving the page" resets a booking.
package sessions

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/bookingflow"
)

var ErrNotFound = errors.New("booking session not found")

type Store interface {
	Create(ctx context.Context, sel *bookingflow.Selection) (string, error)
	// Get returns the selection and extends the session's TTL.
	Get(ctx context.Context, id string) (*bookingflow.Selection, error)
	// Save overwrites an existing session; it fails with ErrNotFound once the session expired.
	Save(ctx context.Context, id string, sel *bookingflow.Selection) error
	Delete(ctx context.Context, id string) error
}
