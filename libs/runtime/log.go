package runtime

import (
	"log/slog"
	"os"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/config"
)

// NewLogger builds the JSON logger every service uses. LOG_LEVEL selects the minimum level.
func NewLogger(service string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(config.String("LOG_LEVEL", "info")),
	})
	return slog.New(h).With("service", service)
}

// ParseLevel maps debug/info/warn/error to slog levels; anything else is info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
