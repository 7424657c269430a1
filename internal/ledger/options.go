package ledger

import (
	"time"

	"github.com/google/uuid"
)

type settings struct {
	now   func() time.Time
	newID func() string
}

func defaultSettings() settings {
	return settings{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Option configures the ledger services.
type Option func(*settings)

// WithClock overrides the time source used for dates and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithIDGenerator overrides how new ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *settings) { s.newID = newID }
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
