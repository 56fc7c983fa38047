package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStringFallsBack(t *testing.T) {
	t.Setenv("SLOTBOOK_TEST_NAME", "")
	if got := String("SLOTBOOK_TEST_NAME", "booking-service"); got != "booking-service" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("SLOTBOOK_TEST_NAME", "other")
	if got := String("SLOTBOOK_TEST_NAME", "booking-service"); got != "other" {
		t.Fatalf("expected env value, got %q", got)
	}
}

func TestPortValidation(t *testing.T) {
	t.Setenv("SLOTBOOK_TEST_PORT", "99999")
	if _, err := Port("SLOTBOOK_TEST_PORT", "8083"); err == nil {
		t.Fatal("expected error for out of range port")
	}
	t.Setenv("SLOTBOOK_TEST_PORT", "")
	p, err := Port("SLOTBOOK_TEST_PORT", "8083")
	if err != nil || p != "8083" {
		t.Fatalf("expected default port, got %q err=%v", p, err)
	}
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("SLOTBOOK_TEST_INT", "42")
	t.Setenv("SLOTBOOK_TEST_BOOL", "off")
	t.Setenv("SLOTBOOK_TEST_DUR", "15m")
	t.Setenv("SLOTBOOK_TEST_LIST", " a, ,b ")

	if n, err := Int("SLOTBOOK_TEST_INT", 1); err != nil || n != 42 {
		t.Fatalf("Int: got %d err=%v", n, err)
	}
	if Bool("SLOTBOOK_TEST_BOOL", true) {
		t.Fatal("Bool: expected false")
	}
	if d, err := Duration("SLOTBOOK_TEST_DUR", time.Second); err != nil || d != 15*time.Minute {
		t.Fatalf("Duration: got %s err=%v", d, err)
	}
	list := List("SLOTBOOK_TEST_LIST", "")
	if len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Fatalf("List: got %v", list)
	}

	t.Setenv("SLOTBOOK_TEST_INT", "nope")
	if _, err := Int("SLOTBOOK_TEST_INT", 1); err == nil {
		t.Fatal("Int: expected parse error")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "booking.yaml")
	if err := os.WriteFile(path, []byte("slotbook_test_file_key: from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := String("SLOTBOOK_TEST_FILE_KEY", ""); got != "from-file" {
		t.Fatalf("expected file value, got %q", got)
	}
	t.Setenv("SLOTBOOK_TEST_FILE_KEY", "from-env")
	if got := String("SLOTBOOK_TEST_FILE_KEY", ""); got != "from-env" {
		t.Fatalf("expected env to win, got %q", got)
	}
	if err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
