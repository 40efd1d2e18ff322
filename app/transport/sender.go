package transport

import (
	"context"

	"github.com/fmaia/digesto/app/recipient"
)

// Sender delivers a formatted digest to a single recipient.
type Sender interface {
	Deliver(ctx context.Context, pref *recipient.Preference, message string) error
	Name() string
}
