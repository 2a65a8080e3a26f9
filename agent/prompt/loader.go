package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
)

//go:embed template/booking.txt
var bookingRaw string

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Booking string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Booking: strings.TrimSpace(bookingRaw),
	}
}

func (p PromptSet) Validate() error {
	if strings.TrimSpace(p.Booking) == "" {
		return fmt.Errorf("%w: booking system prompt", contractx.ErrPromptMissing)
	}
	return nil
}
