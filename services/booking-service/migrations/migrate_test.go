package migrations

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestNamesAreOrdered(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) < 3 {
		t.Fatalf("expected embedded migrations, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("migrations out of order: %v", names)
		}
	}
}

func TestMeetingsCarryExclusionConstraint(t *testing.T) {
	body, err := files.ReadFile("0001_init.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	sql := string(body)
	for _, want := range []string{"btree_gist", "EXCLUDE USING gist", "tstzrange(start_time, end_time) WITH &&", "status = 'SCHEDULED'"} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected %q in init migration", want)
		}
	}
}

func TestIgnorableMigrationError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: "42P07"}, true},
		{fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "42710"}), true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := isIgnorableMigrationError(tc.err); got != tc.want {
			t.Fatalf("isIgnorableMigrationError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestUpRequiresDB(t *testing.T) {
	if err := Up(t.Context(), nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}
