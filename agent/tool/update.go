package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/whatsbot-agent/agent/state"
)

var updateStateInfo = &schema.ToolInfo{
	Name: ToolUpdateBookingState,
	Desc: "Save booking details collected from the customer. Set status to pending_confirmation once all details are known to get a summary to confirm, " +
		"and to confirmed only after the customer agrees to that summary. Set status to initial to start over.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"name":      {Type: schema.String, Desc: "Customer name"},
		"phone":     {Type: schema.String, Desc: "Customer phone number"},
		"service":   {Type: schema.String, Desc: "Requested service"},
		"date":      {Type: schema.String, Desc: "Date in YYYY-MM-DD"},
		"time":      {Type: schema.String, Desc: "Time in HH:MM, 24-hour"},
		"barber_id": {Type: schema.String, Desc: "Preferred provider id"},
		"status": {
			Type: schema.String,
			Desc: "Requested booking status",
			Enum: []string{
				string(state.StatusInitial),
				string(state.StatusPendingConfirmation),
				string(state.StatusConfirmed),
				string(state.StatusCompleted),
			},
		},
	}),
}

type updateStateInput struct {
	Name     Text `json:"name"`
	Phone    Text `json:"phone" binding:"omitempty,phone"`
	Service  Text `json:"service"`
	Date     Text `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Time     Text `json:"time" binding:"omitempty,datetime=15:04"`
	BarberID Text `json:"barber_id"`
	Status   Text `json:"status" binding:"omitempty,oneof=initial pending_confirmation confirmed completed"`
}

func (in *updateStateInput) normalize() {
	in.Status = Text(strings.ToLower(in.Status.String()))
	if !in.Phone.Empty() {
		in.Phone = Text(normalizePhone(in.Phone.String()))
	}
}

func (in updateStateInput) request() state.UpdateRequest {
	req := state.UpdateRequest{
		Fields: state.Patch{
			Name:     optional(in.Name),
			Service:  optional(in.Service),
			Date:     optional(in.Date),
			Time:     optional(in.Time),
			BarberID: optional(in.BarberID),
		},
	}
	if !in.Phone.Empty() {
		req.Fields.Phone = state.String(normalizePhone(in.Phone.String()))
	}
	if !in.Status.Empty() {
		req.Status = state.StatusPtr(state.Status(in.Status.String()))
	}
	return req
}

func (h *handlers) updateBookingState(ctx context.Context, call Call, in updateStateInput) string {
	current, err := h.currentState(ctx, call.SessionID)
	if err != nil {
		h.logFailure(call, "update_booking_state.get", err)
		return apology
	}

	t := state.Plan(current, in.request())
	if _, err := h.deps.Store.Update(ctx, call.SessionID, t.Patch); err != nil {
		h.logFailure(call, "update_booking_state.update", err)
		return apology
	}

	switch t.Outcome {
	case state.OutcomeIncomplete:
		return fmt.Sprintf("Cannot ask for confirmation yet. Missing: %s. Status stays %s.",
			strings.Join(t.Missing, ", "), t.Next.Status)
	case state.OutcomeAwaitingConfirmation:
		return "All details are collected. Please confirm with the customer:\n" + summary(t.Next)
	case state.OutcomeConfirmed:
		return "The customer confirmed the booking. You can now book the appointment."
	case state.OutcomeStatusEcho:
		return fmt.Sprintf("Current booking status: %s.", t.Next.Status)
	case state.OutcomeReopened:
		return fmt.Sprintf("Booking details saved. They changed after the summary, so the earlier confirmation "+
			"no longer applies and the status is back to %s. Set status to %s to show the customer the new summary.",
			t.Next.Status, state.StatusPendingConfirmation)
	case state.OutcomeReset:
		return "Booking status reset to initial."
	case state.OutcomeRejected:
		return fmt.Sprintf("Status %s cannot be set here. Current booking status: %s.", *in.request().Status, t.Next.Status)
	}

	if len(t.Missing) > 0 {
		return fmt.Sprintf("Booking details saved. Still missing: %s.", strings.Join(t.Missing, ", "))
	}
	return "Booking details saved. All required details are collected."
}

func summary(b state.BookingState) string {
	lines := []string{
		"Name: " + b.Name,
		"Phone: " + b.Phone,
		"Service: " + b.Service,
		"Date: " + b.Date,
		"Time: " + b.Time,
	}
	if b.BarberID != "" {
		lines = append(lines, "Provider: "+b.BarberID)
	}
	return strings.Join(lines, "\n")
}
