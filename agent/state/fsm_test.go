package state

import (
	"slices"
	"testing"
	"time"
)

func completeState() BookingState {
	st := NewBookingState("s1", time.Now())
	st.Name = "Dewi"
	st.Phone = "0811"
	st.Service = "Haircut"
	st.Date = "2025-01-10"
	st.Time = "10:00"
	return st
}

func TestPlanPendingConfirmationRequiresAllFields(t *testing.T) {
	t.Parallel()

	cur := NewBookingState("s1", time.Now())
	cur.Name = "Dewi"
	cur.Phone = "0811"

	tr := Plan(cur, UpdateRequest{
		Fields: Patch{Service: String("Haircut"), Time: String("10:00")},
		Status: StatusPtr(StatusPendingConfirmation),
	})

	if tr.Outcome != OutcomeIncomplete {
		t.Fatalf("Outcome = %s, want %s", tr.Outcome, OutcomeIncomplete)
	}
	if !slices.Equal(tr.Missing, []string{"date"}) {
		t.Fatalf("Missing = %v, want [date]", tr.Missing)
	}
	if tr.Patch.Status != nil {
		t.Fatalf("status must not change, got %s", *tr.Patch.Status)
	}
	if tr.Next.Status != StatusInitial {
		t.Fatalf("Next.Status = %s, want initial", tr.Next.Status)
	}
	if !slices.Equal(tr.Next.MissingFields, []string{"date"}) {
		t.Fatalf("Next.MissingFields = %v", tr.Next.MissingFields)
	}
	if tr.Next.Service != "Haircut" {
		t.Fatalf("fields must still merge, got service=%q", tr.Next.Service)
	}
}

func TestPlanPendingConfirmationUsesCallFields(t *testing.T) {
	t.Parallel()

	cur := NewBookingState("s1", time.Now())
	cur.Name = "Dewi"
	cur.Phone = "0811"

	tr := Plan(cur, UpdateRequest{
		Fields: Patch{
			Service: String("Haircut"),
			Date:    String("2025-01-10"),
			Time:    String("10:00"),
		},
		Status: StatusPtr(StatusPendingConfirmation),
	})

	if tr.Outcome != OutcomeAwaitingConfirmation {
		t.Fatalf("Outcome = %s, want %s", tr.Outcome, OutcomeAwaitingConfirmation)
	}
	if tr.Next.Status != StatusPendingConfirmation {
		t.Fatalf("Next.Status = %s", tr.Next.Status)
	}
	if len(tr.Next.MissingFields) != 0 {
		t.Fatalf("MissingFields = %v, want empty", tr.Next.MissingFields)
	}
}

func TestPlanMissingSubsetIsExact(t *testing.T) {
	t.Parallel()

	all := []string{"name", "phone", "service", "date", "time"}
	for mask := 0; mask < 1<<len(all); mask++ {
		st := NewBookingState("s", time.Now())
		var want []string
		for i, f := range all {
			if mask&(1<<i) != 0 {
				switch f {
				case "name":
					st.Name = "n"
				case "phone":
					st.Phone = "p"
				case "service":
					st.Service = "s"
				case "date":
					st.Date = "d"
				case "time":
					st.Time = "t"
				}
			} else {
				want = append(want, f)
			}
		}

		tr := Plan(st, UpdateRequest{Status: StatusPtr(StatusPendingConfirmation)})
		if len(want) == 0 {
			if tr.Outcome != OutcomeAwaitingConfirmation {
				t.Fatalf("mask=%b: Outcome = %s", mask, tr.Outcome)
			}
			continue
		}
		if tr.Outcome != OutcomeIncomplete {
			t.Fatalf("mask=%b: Outcome = %s", mask, tr.Outcome)
		}
		if !slices.Equal(tr.Missing, want) {
			t.Fatalf("mask=%b: Missing = %v, want %v", mask, tr.Missing, want)
		}
	}
}

func TestPlanConfirmedOnlyFromPending(t *testing.T) {
	t.Parallel()

	for _, from := range []Status{StatusInitial, StatusConfirmed, StatusCompleted} {
		st := completeState()
		st.Status = from
		tr := Plan(st, UpdateRequest{Status: StatusPtr(StatusConfirmed)})
		if tr.Outcome != OutcomeStatusEcho {
			t.Fatalf("from=%s: Outcome = %s, want status_echo", from, tr.Outcome)
		}
		if tr.Next.Status != from {
			t.Fatalf("from=%s: status changed to %s", from, tr.Next.Status)
		}
	}

	st := completeState()
	st.Status = StatusPendingConfirmation
	tr := Plan(st, UpdateRequest{Status: StatusPtr(StatusConfirmed)})
	if tr.Outcome != OutcomeConfirmed || tr.Next.Status != StatusConfirmed {
		t.Fatalf("Outcome = %s status = %s", tr.Outcome, tr.Next.Status)
	}
}

func TestPlanCompletedIsRejected(t *testing.T) {
	t.Parallel()

	st := completeState()
	st.Status = StatusConfirmed
	tr := Plan(st, UpdateRequest{Status: StatusPtr(StatusCompleted)})
	if tr.Outcome != OutcomeRejected {
		t.Fatalf("Outcome = %s, want rejected", tr.Outcome)
	}
	if tr.Next.Status != StatusConfirmed {
		t.Fatalf("status changed to %s", tr.Next.Status)
	}
}

func TestPlanReset(t *testing.T) {
	t.Parallel()

	st := completeState()
	st.Status = StatusCompleted
	tr := Plan(st, UpdateRequest{Status: StatusPtr(StatusInitial)})
	if tr.Outcome != OutcomeReset || tr.Next.Status != StatusInitial {
		t.Fatalf("Outcome = %s status = %s", tr.Outcome, tr.Next.Status)
	}
}

func TestCanBook(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusInitial, StatusPendingConfirmation, StatusCompleted, ""} {
		if CanBook(s) {
			t.Fatalf("CanBook(%q) = true", s)
		}
	}
	if !CanBook(StatusConfirmed) {
		t.Fatal("CanBook(confirmed) = false")
	}
}

func TestCanTransitionTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusInitial, StatusConfirmed, false},
		{StatusInitial, StatusCompleted, false},
		{StatusPendingConfirmation, StatusConfirmed, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusCompleted, StatusConfirmed, false},
		{"", StatusPendingConfirmation, true},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestPlanDetailChangeVoidsConfirmation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		from        Status
		fields      Patch
		status      *Status
		wantOutcome Outcome
		wantStatus  Status
	}{
		{"confirmed, new time", StatusConfirmed, Patch{Time: String("16:00")}, nil, OutcomeReopened, StatusInitial},
		{"confirmed, new date and time", StatusConfirmed, Patch{Date: String("2025-02-20"), Time: String("16:00")}, nil, OutcomeReopened, StatusInitial},
		{"pending, new service", StatusPendingConfirmation, Patch{Service: String("Colour")}, nil, OutcomeReopened, StatusInitial},
		{"confirmed, new provider", StatusConfirmed, Patch{BarberID: String("barber-2")}, nil, OutcomeReopened, StatusInitial},
		{"pending, change and confirm", StatusPendingConfirmation, Patch{Name: String("Rina")}, StatusPtr(StatusConfirmed), OutcomeReopened, StatusInitial},
		{"confirmed, change and re-summarise", StatusConfirmed, Patch{Time: String("16:00")}, StatusPtr(StatusPendingConfirmation), OutcomeAwaitingConfirmation, StatusPendingConfirmation},
		{"confirmed, same values", StatusConfirmed, Patch{Time: String("10:00"), Name: String("Dewi")}, nil, OutcomeUpdated, StatusConfirmed},
		{"pending, same values then confirm", StatusPendingConfirmation, Patch{Phone: String("0811")}, StatusPtr(StatusConfirmed), OutcomeConfirmed, StatusConfirmed},
		{"completed, new time", StatusCompleted, Patch{Time: String("16:00")}, nil, OutcomeUpdated, StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cur := completeState()
			cur.Status = tc.from

			tr := Plan(cur, UpdateRequest{Fields: tc.fields, Status: tc.status})
			if tr.Outcome != tc.wantOutcome {
				t.Fatalf("Outcome = %s, want %s", tr.Outcome, tc.wantOutcome)
			}
			if tr.Next.Status != tc.wantStatus {
				t.Fatalf("Next.Status = %s, want %s", tr.Next.Status, tc.wantStatus)
			}
			if CanBook(tr.Next.Status) && tc.wantOutcome == OutcomeReopened {
				t.Fatal("changed details must not stay bookable")
			}
		})
	}
}
