package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/display"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/scheduling"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slotctl",
		Short:         "Inspect availability slot computation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGridCmd(), newDayCmd())
	return root
}

func newGridCmd() *cobra.Command {
	var (
		gap    int
		format string
	)
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print the editor's time-of-day grid for a slot gap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := availability.ParseHourFormat(format)
			if err != nil {
				return err
			}
			for _, label := range availability.GenerateLabels(gap, f) {
				fmt.Fprintln(cmd.OutOrStdout(), label)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&gap, "gap", availability.DefaultGapMinutes, "slot gap in minutes")
	cmd.Flags().StringVar(&format, "format", string(availability.Hour24), "hour format (24h or 12h)")
	return cmd
}

type dayOptions struct {
	file     string
	date     string
	hostTZ   string
	guestTZ  string
	now      string
	duration int
	format   string
	booked   []string
}

func newDayCmd() *cobra.Command {
	var opts dayOptions
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Print the slots a guest would be offered on a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.file == "" {
				return errors.New("--file is required")
			}
			raw, err := os.ReadFile(opts.file)
			if err != nil {
				return err
			}
			return runDay(cmd.OutOrStdout(), raw, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.file, "file", "", "availability YAML file")
	f.StringVar(&opts.date, "date", "", "calendar date in the guest zone (YYYY-MM-DD)")
	f.StringVar(&opts.hostTZ, "host-tz", "UTC", "host IANA timezone")
	f.StringVar(&opts.guestTZ, "guest-tz", "UTC", "guest IANA timezone")
	f.StringVar(&opts.now, "now", "", "current instant (RFC 3339); defaults to the wall clock")
	f.IntVar(&opts.duration, "duration", 30, "meeting length in minutes")
	f.StringVar(&opts.format, "format", string(availability.Hour24), "hour format (24h or 12h)")
	f.StringArrayVar(&opts.booked, "booked", nil, "booked interval as start/end in RFC 3339, repeatable")
	return cmd
}

func runDay(out io.Writer, raw []byte, opts dayOptions) error {
	var snapWire availability.Snapshot
	if err := yaml.Unmarshal(raw, &snapWire); err != nil {
		return fmt.Errorf("parse availability: %w", err)
	}
	week, err := snapWire.Week()
	if err != nil {
		return err
	}
	if err := week.Validate(); err != nil {
		return err
	}

	date, err := civil.ParseDate(strings.TrimSpace(opts.date))
	if err != nil {
		return fmt.Errorf("invalid --date: %w", err)
	}
	format, err := availability.ParseHourFormat(opts.format)
	if err != nil {
		return err
	}
	now := time.Now()
	if opts.now != "" {
		if now, err = time.Parse(time.RFC3339, opts.now); err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
	}
	booked, err := parseBooked(opts.booked)
	if err != nil {
		return err
	}

	projector := display.NewProjector(4)
	host, err := projector.Location(opts.hostTZ)
	if err != nil {
		return err
	}
	guest, err := projector.Location(opts.guestTZ)
	if err != nil {
		return err
	}

	snap := scheduling.Snapshot{Week: week, HostLocation: host, Booked: booked}
	slots := scheduling.OfferedSlots(snap, date, guest, now)
	if len(slots) == 0 {
		fmt.Fprintln(out, "no slots offered")
		return nil
	}
	for _, s := range slots {
		label, err := projector.FormatRange(s, opts.duration, opts.guestTZ, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\n", display.EncodeSlot(s), label)
	}
	return nil
}

func parseBooked(values []string) ([]availability.Interval, error) {
	out := make([]availability.Interval, 0, len(values))
	for _, v := range values {
		startRaw, endRaw, ok := strings.Cut(v, "/")
		if !ok {
			return nil, fmt.Errorf("invalid --booked %q: want start/end", v)
		}
		start, err := time.Parse(time.RFC3339, strings.TrimSpace(startRaw))
		if err != nil {
			return nil, fmt.Errorf("invalid --booked start: %w", err)
		}
		end, err := time.Parse(time.RFC3339, strings.TrimSpace(endRaw))
		if err != nil {
			return nil, fmt.Errorf("invalid --booked end: %w", err)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("invalid --booked %q: end must be after start", v)
		}
		out = append(out, availability.Interval{Start: start, End: end})
	}
	return out, nil
}
