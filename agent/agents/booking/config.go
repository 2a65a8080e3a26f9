package booking

import (
	"fmt"
	"time"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
)

type Config struct {
	MaxIterations int           `envconfig:"MAX_ITERATIONS" split_words:"true" default:"8"`
	TurnTimeout   time.Duration `envconfig:"TURN_TIMEOUT" split_words:"true" default:"60s"`
	Timezone      string        `envconfig:"TIMEZONE" split_words:"true" default:"UTC"`
	Slots         []string      `envconfig:"SLOTS" split_words:"true" default:"09:00,10:00,11:00,13:00,14:00,15:00,16:00"`
	BusinessName  string        `envconfig:"BUSINESS_NAME" split_words:"true"`
}

func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive", contractx.ErrValidation)
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("%w: turn timeout must be positive", contractx.ErrValidation)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", contractx.ErrValidation, c.Timezone, err)
	}
	return loc, nil
}
