package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

var availabilityInfo = &schema.ToolInfo{
	Name: ToolCheckAvailability,
	Desc: "List the open time slots for a service on a date.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"date":    {Type: schema.String, Desc: "Date in YYYY-MM-DD", Required: true},
		"service": {Type: schema.String, Desc: "Service name", Required: true},
	}),
}

type availabilityInput struct {
	Date    Text `json:"date" binding:"required,datetime=2006-01-02"`
	Service Text `json:"service"`
}

// checkAvailability lists the configured slots. It does not consult the
// calendar; the slot list is the same for every day.
func (h *handlers) checkAvailability(ctx context.Context, call Call, in availabilityInput) string {
	loc := h.deps.Location
	if h.deps.Profiles != nil {
		profile, err := h.deps.Profiles.Profile(ctx, h.deps.BusinessID)
		if err != nil {
			log.Warn().Err(err).Str("session_id", call.SessionID).Msg("availability: profile unavailable, using default timezone")
		} else {
			loc = h.location(profile)
		}
	}

	day, _ := time.ParseInLocation(dateLayout, in.Date.String(), loc)
	now := h.deps.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if day.Before(today) {
		return fmt.Sprintf("%s is in the past. Please choose today or a later date.", in.Date)
	}

	if len(h.deps.Slots) == 0 {
		return "No booking slots are configured. Please ask the customer for a preferred time."
	}

	service := firstNonEmpty(in.Service.String(), "any service")
	return fmt.Sprintf("Available times for %s on %s (%s): %s.",
		service, in.Date, day.Weekday(), strings.Join(h.deps.Slots, ", "))
}
