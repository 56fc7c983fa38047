package availability

import "fmt"

// HourFormat selects 12 or 24 hour rendering.
type HourFormat string

const (
	Hour24 HourFormat = "24h"
	Hour12 HourFormat = "12h"
)

func ParseHourFormat(s string) (HourFormat, error) {
	switch HourFormat(s) {
	case Hour24, Hour12:
		return HourFormat(s), nil
	case "":
		return Hour24, nil
	default:
		return "", fmt.Errorf("unknown hour format %q", s)
	}
}

// Grid returns every time of day from 00:00 in steps of gapMinutes, stopping before 24:00.
// A non-positive gap yields nil.
func Grid(gapMinutes int) []Clock {
	if gapMinutes <= 0 {
		return nil
	}
	out := make([]Clock, 0, (MinutesPerDay+gapMinutes-1)/gapMinutes)
	for m := 0; m < MinutesPerDay; m += gapMinutes {
		out = append(out, Clock(m))
	}
	return out
}

// GenerateLabels renders Grid(gapMinutes) as labels: "HH:MM" for 24h,
// "H:MM AM" / "H:MM PM" for 12h with 12 standing in for hour 0.
func GenerateLabels(gapMinutes int, format HourFormat) []string {
	grid := Grid(gapMinutes)
	if grid == nil {
		return nil
	}
	out := make([]string, len(grid))
	for i, c := range grid {
		out[i] = Label(c, format)
	}
	return out
}

func Label(c Clock, format HourFormat) string {
	if format != Hour12 {
		return c.String()
	}
	period := "AM"
	if c.Hour() >= 12 {
		period = "PM"
	}
	h := c.Hour() % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, c.Minute(), period)
}
