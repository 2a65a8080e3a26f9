package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
	"github.com/tanpawarit/whatsbot-agent/agent/state"
)

const defaultEventDuration = 60 * time.Minute

var bookAppointmentInfo = &schema.ToolInfo{
	Name: ToolBookAppointment,
	Desc: "Create the appointment from the confirmed booking details. Only works after the customer confirmed the booking summary; any argument given must match the confirmed details.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"date":      {Type: schema.String, Desc: "Date in YYYY-MM-DD"},
		"time":      {Type: schema.String, Desc: "Time in HH:MM, 24-hour"},
		"service":   {Type: schema.String, Desc: "Service to book"},
		"name":      {Type: schema.String, Desc: "Customer name"},
		"phone":     {Type: schema.String, Desc: "Customer phone number"},
		"barber_id": {Type: schema.String, Desc: "Preferred provider id"},
	}),
}

type bookInput struct {
	Date     Text `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Time     Text `json:"time" binding:"omitempty,datetime=15:04"`
	Service  Text `json:"service"`
	Name     Text `json:"name"`
	Phone    Text `json:"phone" binding:"omitempty,phone"`
	BarberID Text `json:"barber_id"`
}

func (in *bookInput) normalize() {
	if !in.Phone.Empty() {
		in.Phone = Text(normalizePhone(in.Phone.String()))
	}
}

// conflicts lists the arguments that differ from the confirmed state. Absent
// arguments never conflict.
func (in bookInput) conflicts(st state.BookingState) []string {
	args := map[string]Text{
		"name":      in.Name,
		"phone":     in.Phone,
		"service":   in.Service,
		"date":      in.Date,
		"time":      in.Time,
		"barber_id": in.BarberID,
	}
	var out []string
	for _, f := range append(append([]string{}, state.RequiredFields...), "barber_id") {
		v := args[f]
		if !v.Empty() && !strings.EqualFold(v.String(), st.Field(f)) {
			out = append(out, f)
		}
	}
	return out
}

func (h *handlers) bookAppointment(ctx context.Context, call Call, in bookInput) string {
	current, err := h.currentState(ctx, call.SessionID)
	if err != nil {
		h.logFailure(call, "book_appointment.get_state", err)
		return apology
	}
	if current.Status == state.StatusCompleted {
		return fmt.Sprintf("This booking is already booked: %s on %s at %s for %s. Do not book it again; "+
			"tell the customer it is confirmed.", current.Service, current.Date, current.Time, current.Name)
	}
	if !state.CanBook(current.Status) {
		return fmt.Sprintf("Cannot book: the booking is not yet confirmed (current status: %s). "+
			"Collect all details, show the summary and get the customer's confirmation first.", current.Status)
	}
	if diff := in.conflicts(current); len(diff) > 0 {
		return fmt.Sprintf("Cannot book: %s differ from the confirmed booking. Save the new details with %s "+
			"and confirm the new summary with the customer first.", strings.Join(diff, ", "), ToolUpdateBookingState)
	}

	b := current
	if missing := b.Missing(); len(missing) > 0 {
		return fmt.Sprintf("Cannot book: missing %s.", strings.Join(missing, ", "))
	}

	if h.deps.Profiles == nil || h.deps.Clients == nil || h.deps.Appointments == nil {
		h.logFailure(call, "book_appointment.collaborators", errors.New("booking collaborators not configured"))
		return apology
	}

	profile, err := h.deps.Profiles.Profile(ctx, h.deps.BusinessID)
	if err != nil {
		h.logFailure(call, "book_appointment.profile", err)
		return apology
	}
	if strings.TrimSpace(profile.OwnerUserID) == "" {
		h.logFailure(call, "book_appointment.owner", errors.New("business profile has no owner user"))
		return apology
	}

	start, err := time.ParseInLocation(dateLayout+" "+timeLayout, b.Date+" "+b.Time, h.location(profile))
	if err != nil {
		h.logFailure(call, "book_appointment.parse_time", err)
		return "Cannot book: the saved date or time is invalid. Please update the booking details."
	}

	duration, err := h.deps.Appointments.EventDuration(ctx, profile.OwnerUserID)
	if err != nil {
		h.logFailure(call, "book_appointment.event_duration", err)
		return apology
	}
	if duration <= 0 {
		duration = defaultEventDuration
	}

	client, err := h.findOrCreateClient(ctx, b.Name, b.Phone)
	if err != nil {
		h.logFailure(call, "book_appointment.client", err)
		return apology
	}

	provider := firstNonEmpty(b.BarberID, profile.OwnerUserID)
	event, err := h.deps.Appointments.CreateEvent(ctx, contractx.EventInput{
		BusinessID:  h.deps.BusinessID,
		StartTime:   start,
		EndTime:     start.Add(duration),
		ServiceType: b.Service,
		ProviderID:  provider,
		ClientID:    client.ID,
		OwnerUserID: profile.OwnerUserID,
	})
	if err != nil {
		h.logFailure(call, "book_appointment.create_event", err)
		return apology
	}

	patch := state.Patch{
		Name:          state.String(b.Name),
		Phone:         state.String(b.Phone),
		Service:       state.String(b.Service),
		Date:          state.String(b.Date),
		Time:          state.String(b.Time),
		BarberID:      state.String(b.BarberID),
		ClientExists:  state.Bool(true),
		MissingFields: []string{},
		Status:        state.StatusPtr(state.StatusCompleted),
	}
	if _, err := h.deps.Store.Update(ctx, call.SessionID, patch); err != nil {
		// The event exists; report it rather than inviting a duplicate booking.
		h.logFailure(call, "book_appointment.update_state", err)
	}

	return fmt.Sprintf("Appointment booked for %s: %s on %s at %s (until %s) with provider %s. Booking reference: %s.",
		b.Name, b.Service, start.Format("Mon 2 Jan 2006"), start.Format(timeLayout),
		start.Add(duration).Format(timeLayout), firstNonEmpty(event.ProviderID, provider), event.ID)
}

func (h *handlers) findOrCreateClient(ctx context.Context, name, phone string) (contractx.Client, error) {
	client, err := h.deps.Clients.FindClientByPhone(ctx, h.deps.BusinessID, phone)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, contractx.ErrNotFound) {
		return contractx.Client{}, fmt.Errorf("find client: %w", err)
	}
	client, err = h.deps.Clients.CreateClient(ctx, h.deps.BusinessID, name, phone)
	if err != nil {
		return contractx.Client{}, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}
