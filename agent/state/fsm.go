package state

// transitions lists the statuses reachable from each status. Entering
// pending_confirmation is additionally gated on field completeness, and
// completed is only reachable through a booking.
var transitions = map[Status]map[Status]bool{
	StatusInitial: {
		StatusInitial:             true,
		StatusPendingConfirmation: true,
	},
	StatusPendingConfirmation: {
		StatusInitial:             true,
		StatusPendingConfirmation: true,
		StatusConfirmed:           true,
	},
	StatusConfirmed: {
		StatusInitial:             true,
		StatusPendingConfirmation: true,
		StatusCompleted:           true,
	},
	StatusCompleted: {
		StatusInitial:             true,
		StatusPendingConfirmation: true,
	},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	if from == "" {
		from = StatusInitial
	}
	return transitions[from][to]
}

// CanBook reports whether an appointment may be created in this status.
func CanBook(s Status) bool {
	return s == StatusConfirmed
}

type Outcome string

const (
	OutcomeUpdated              Outcome = "updated"
	OutcomeIncomplete           Outcome = "incomplete"
	OutcomeAwaitingConfirmation Outcome = "awaiting_confirmation"
	OutcomeConfirmed            Outcome = "confirmed"
	OutcomeStatusEcho           Outcome = "status_echo"
	OutcomeReset                Outcome = "reset"
	OutcomeRejected             Outcome = "rejected"
	OutcomeReopened             Outcome = "reopened"
)

// UpdateRequest is one update_booking_state call: field values plus an
// optional requested status.
type UpdateRequest struct {
	Fields Patch
	Status *Status
}

// Transition is the result of planning an update against the current state.
type Transition struct {
	Patch   Patch
	Outcome Outcome
	Missing []string
	From    Status
	// Next is the state as it will be once Patch is applied.
	Next BookingState
}

// Plan decides how an update applies to current. It is pure: callers persist
// t.Patch through the Store.
//
// Field values are always merged and missing_fields is always recomputed.
// A request for pending_confirmation only advances status when every required
// field is present after the merge. A request for confirmed only advances
// from pending_confirmation; otherwise the current status is echoed.
//
// Changing a detail while pending_confirmation or confirmed voids the shown
// summary: status drops to initial and the update is planned from there.
func Plan(current BookingState, req UpdateRequest) Transition {
	from := current.Status
	if from == "" {
		from = StatusInitial
	}

	patch := req.Fields
	patch.Status = nil
	patch.MissingFields = nil

	merged := patch.Apply(current)
	missing := merged.Missing()
	patch.MissingFields = missing

	t := Transition{From: from, Missing: missing, Outcome: OutcomeUpdated}

	base := from
	reopened := (from == StatusPendingConfirmation || from == StatusConfirmed) && detailsChanged(current, merged)
	if reopened {
		base = StatusInitial
		patch.Status = StatusPtr(StatusInitial)
		t.Outcome = OutcomeReopened
	}

	if req.Status != nil {
		to := *req.Status
		switch {
		case to == StatusPendingConfirmation && len(missing) > 0:
			t.Outcome = OutcomeIncomplete
		case to == StatusPendingConfirmation && CanTransition(base, to):
			patch.Status = StatusPtr(to)
			t.Outcome = OutcomeAwaitingConfirmation
		case to == StatusConfirmed && base == StatusPendingConfirmation:
			patch.Status = StatusPtr(to)
			t.Outcome = OutcomeConfirmed
		case to == StatusConfirmed && reopened:
			// The new details were never shown to the customer.
		case to == StatusConfirmed:
			t.Outcome = OutcomeStatusEcho
		case to == StatusInitial:
			patch.Status = StatusPtr(to)
			t.Outcome = OutcomeReset
		default:
			t.Outcome = OutcomeRejected
		}
	}

	t.Patch = patch
	t.Next = patch.Apply(current)
	if t.Next.Status == "" {
		t.Next.Status = StatusInitial
	}
	return t
}

// detailsChanged reports whether any detail shown in the confirmation summary
// differs between a and b.
func detailsChanged(a, b BookingState) bool {
	for _, f := range RequiredFields {
		if a.Field(f) != b.Field(f) {
			return true
		}
	}
	return a.BarberID != b.BarberID
}
