package transport

import (
	"context"
	"log/slog"

	"github.com/fmaia/digesto/app/recipient"
)

// ConsoleSender logs digests instead of sending them. Used when no webhook
// URL is configured, which keeps local development working end to end.
type ConsoleSender struct{}

func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

func (s *ConsoleSender) Name() string {
	return "console"
}

func (s *ConsoleSender) Deliver(_ context.Context, pref *recipient.Preference, message string) error {
	slog.Info("Digest ready (no webhook configured)",
		"recipient", pref.ID, "name", pref.Name, "length", len(message))
	slog.Info(message)
	return nil
}
