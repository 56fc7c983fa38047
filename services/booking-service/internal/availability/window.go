package availability

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrInvalidGap    = errors.New("invalid slot gap")
	ErrInvalidWindow = errors.New("invalid availability window")
	ErrInvalidWeek   = errors.New("invalid weekly availability")
)

// AllowedGaps are the slot granularities a host may choose, in minutes.
var AllowedGaps = []int{15, 30, 45, 60, 120}

const DefaultGapMinutes = 30

// Window is one weekday's opening. When Available, Start and End are inclusive grid bounds.
type Window struct {
	Available bool
	Start     Clock
	End       Clock
}

// WindowFromStrings decodes a stored window. Unparseable times yield a closed window and an
// error wrapping ErrInvalidClock, so one bad record closes one day instead of the week.
func WindowFromStrings(available bool, start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	return Window{Available: available, Start: s, End: e}, nil
}

// Usable reports whether the window can produce any slot. Equal bounds cannot.
func (w Window) Usable() bool {
	return w.Available && w.Start.Valid() && w.End.Valid() && w.Start < w.End
}

// WeeklyAvailability holds exactly one window per weekday, indexed by Weekday.
type WeeklyAvailability struct {
	GapMinutes int
	Days       [7]Window
}

func (w WeeklyAvailability) Window(d Weekday) Window {
	if !d.Valid() {
		return Window{}
	}
	return w.Days[d]
}

// Validate is the edit-time check: the gap must be allowed and every open day must end
// strictly after it starts. Slot resolution never requires it.
func (w WeeklyAvailability) Validate() error {
	var errs []error
	if !slices.Contains(AllowedGaps, w.GapMinutes) {
		errs = append(errs, fmt.Errorf("%w: %d minutes (allowed %v)", ErrInvalidGap, w.GapMinutes, AllowedGaps))
	}
	for _, d := range AllWeekdays() {
		win := w.Days[d]
		if !win.Available {
			continue
		}
		if !win.Start.Valid() || !win.End.Valid() {
			errs = append(errs, fmt.Errorf("%w: %s has an out of range time", ErrInvalidWindow, d))
			continue
		}
		if win.End <= win.Start {
			errs = append(errs, fmt.Errorf("%w: %s end %s must be after start %s", ErrInvalidWindow, d, win.End, win.Start))
		}
	}
	return errors.Join(errs...)
}

// DayRecord is the wire form of one weekday.
type DayRecord struct {
	Day         Weekday `json:"day" yaml:"day"`
	StartTime   string  `json:"start_time" yaml:"start_time"`
	EndTime     string  `json:"end_time" yaml:"end_time"`
	IsAvailable bool    `json:"is_available" yaml:"is_available"`
}

// Snapshot is the wire form of a host's week.
type Snapshot struct {
	SlotGapMinutes int         `json:"slot_gap_minutes" yaml:"slot_gap_minutes"`
	Days           []DayRecord `json:"days" yaml:"days"`
}

// Week decodes the snapshot. Missing or duplicated weekdays fail with ErrInvalidWeek.
// Malformed times close the affected day and are reported through an error wrapping
// ErrInvalidClock; the returned week is still complete in that case.
func (s Snapshot) Week() (WeeklyAvailability, error) {
	if len(s.Days) != 7 {
		return WeeklyAvailability{}, fmt.Errorf("%w: expected 7 days, got %d", ErrInvalidWeek, len(s.Days))
	}
	var seen [7]bool
	for _, rec := range s.Days {
		if !rec.Day.Valid() {
			return WeeklyAvailability{}, fmt.Errorf("%w: %s", ErrInvalidWeek, rec.Day)
		}
		if seen[rec.Day] {
			return WeeklyAvailability{}, fmt.Errorf("%w: duplicate %s", ErrInvalidWeek, rec.Day)
		}
		seen[rec.Day] = true
	}

	week := WeeklyAvailability{GapMinutes: s.SlotGapMinutes}
	var errs []error
	for _, rec := range s.Days {
		win, err := WindowFromStrings(rec.IsAvailable, rec.StartTime, rec.EndTime)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Day, err))
		}
		week.Days[rec.Day] = win
	}
	return week, errors.Join(errs...)
}

// Snapshot renders the week Sunday first with "HH:MM" times.
func (w WeeklyAvailability) Snapshot() Snapshot {
	out := Snapshot{SlotGapMinutes: w.GapMinutes, Days: make([]DayRecord, 0, 7)}
	for _, d := range AllWeekdays() {
		win := w.Days[d]
		out.Days = append(out.Days, DayRecord{
			Day:         d,
			StartTime:   win.Start.String(),
			EndTime:     win.End.String(),
			IsAvailable: win.Available,
		})
	}
	return out
}

// ClosedWeek is what a host without saved availability exposes.
func ClosedWeek() WeeklyAvailability {
	return WeeklyAvailability{GapMinutes: DefaultGapMinutes}
}
