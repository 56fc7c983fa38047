package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidClock = errors.New("invalid time of day")

// MinutesPerDay bounds the slot grid.
const MinutesPerDay = 24 * 60

// Clock is a wall-clock time of day in minutes since midnight, 0..1439.
type Clock int

// ParseClock accepts "HH:MM" and "HH:MM:SS". Seconds are truncated.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := clockField(parts[0], 1, 23)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := clockField(parts[1], 2, 59)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if len(parts) == 3 {
		if _, err := clockField(parts[2], 2, 59); err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	return Clock(h*60 + m), nil
}

// clockField parses a numeric field of at least minDigits and at most two digits.
func clockField(s string, minDigits, max int) (int, error) {
	if len(s) < minDigits || len(s) > 2 {
		return 0, ErrInvalidClock
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > max {
		return 0, ErrInvalidClock
	}
	return n, nil
}

// NormalizeClock renders s as "HH:MM", using "00:00" when s does not parse.
// Only display code should rely on the fallback.
func NormalizeClock(s string) string {
	c, err := ParseClock(s)
	if err != nil {
		return "00:00"
	}
	return c.String()
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) Valid() bool {
	return c >= 0 && c < MinutesPerDay
}

// String formats as zero-padded "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidClock, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
