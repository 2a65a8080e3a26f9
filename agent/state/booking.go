package state

import (
	"slices"
	"time"
)

// BookingState is the per-session appointment-in-progress record.
type BookingState struct {
	SessionID     string    `json:"session_id"`
	Name          string    `json:"name,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Service       string    `json:"service,omitempty"`
	Date          string    `json:"date,omitempty"`
	Time          string    `json:"time,omitempty"`
	BarberID      string    `json:"barber_id,omitempty"`
	ClientExists  *bool     `json:"client_exists,omitempty"`
	MissingFields []string  `json:"missing_fields,omitempty"`
	Status        Status    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Status string

const (
	StatusInitial             Status = "initial"
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusCompleted           Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInitial, StatusPendingConfirmation, StatusConfirmed, StatusCompleted:
		return true
	default:
		return false
	}
}

// RequiredFields lists what must be collected before confirmation, in the
// order they are reported.
var RequiredFields = []string{"name", "phone", "service", "date", "time"}

func NewBookingState(sessionID string, now time.Time) BookingState {
	return BookingState{
		SessionID: sessionID,
		Status:    StatusInitial,
		UpdatedAt: now.UTC(),
	}
}

// Field returns the value of a collectable field by its wire name.
func (b BookingState) Field(name string) string {
	switch name {
	case "name":
		return b.Name
	case "phone":
		return b.Phone
	case "service":
		return b.Service
	case "date":
		return b.Date
	case "time":
		return b.Time
	case "barber_id":
		return b.BarberID
	default:
		return ""
	}
}

// Missing returns the required fields that are still empty.
func (b BookingState) Missing() []string {
	missing := make([]string, 0, len(RequiredFields))
	for _, f := range RequiredFields {
		if b.Field(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Clone returns a copy that shares no memory with b.
func (b BookingState) Clone() BookingState {
	out := b
	out.MissingFields = slices.Clone(b.MissingFields)
	if b.ClientExists != nil {
		v := *b.ClientExists
		out.ClientExists = &v
	}
	return out
}

// Patch is a top-level partial update. Nil pointers leave the field unchanged.
// MissingFields follows the same rule: nil keeps, non-nil (even empty) replaces.
type Patch struct {
	Name          *string
	Phone         *string
	Service       *string
	Date          *string
	Time          *string
	BarberID      *string
	ClientExists  *bool
	MissingFields []string
	Status        *Status
}

func (p Patch) IsZero() bool {
	return p.Name == nil && p.Phone == nil && p.Service == nil && p.Date == nil &&
		p.Time == nil && p.BarberID == nil && p.ClientExists == nil &&
		p.MissingFields == nil && p.Status == nil
}

// Apply returns b with the patch merged in.
func (p Patch) Apply(b BookingState) BookingState {
	out := b.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Phone != nil {
		out.Phone = *p.Phone
	}
	if p.Service != nil {
		out.Service = *p.Service
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Time != nil {
		out.Time = *p.Time
	}
	if p.BarberID != nil {
		out.BarberID = *p.BarberID
	}
	if p.ClientExists != nil {
		v := *p.ClientExists
		out.ClientExists = &v
	}
	if p.MissingFields != nil {
		out.MissingFields = slices.Clone(p.MissingFields)
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	return out
}

func String(v string) *string { return &v }

func Bool(v bool) *bool { return &v }

func StatusPtr(v Status) *Status { return &v }
