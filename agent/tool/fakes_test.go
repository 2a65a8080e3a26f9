package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
	"github.com/tanpawarit/whatsbot-agent/agent/state"
)

var errBackend = errors.New("backend unavailable")

type fakeProfiles struct {
	profile contractx.Profile
	err     error
}

func (f *fakeProfiles) Profile(_ context.Context, businessID string) (contractx.Profile, error) {
	if f.err != nil {
		return contractx.Profile{}, f.err
	}
	if businessID != f.profile.BusinessID {
		return contractx.Profile{}, contractx.ErrNotFound
	}
	return f.profile, nil
}

type fakeClients struct {
	mu        sync.Mutex
	byPhone   map[string]contractx.Client
	findErr   error
	createErr error
	created   int
}

func newFakeClients(existing ...contractx.Client) *fakeClients {
	f := &fakeClients{byPhone: map[string]contractx.Client{}}
	for _, c := range existing {
		f.byPhone[c.Phone] = c
	}
	return f
}

func (f *fakeClients) FindClientByPhone(_ context.Context, _ string, phone string) (contractx.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return contractx.Client{}, f.findErr
	}
	c, ok := f.byPhone[phone]
	if !ok {
		return contractx.Client{}, contractx.ErrNotFound
	}
	return c, nil
}

func (f *fakeClients) CreateClient(_ context.Context, businessID, name, phone string) (contractx.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return contractx.Client{}, f.createErr
	}
	f.created++
	c := contractx.Client{ID: fmt.Sprintf("client-%d", f.created), BusinessID: businessID, Name: name, Phone: phone}
	f.byPhone[phone] = c
	return c, nil
}

type fakeAppointments struct {
	mu          sync.Mutex
	events      []contractx.EventInput
	duration    time.Duration
	durationErr error
	createErr   error
}

func (f *fakeAppointments) CreateEvent(_ context.Context, in contractx.EventInput) (contractx.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return contractx.Event{}, f.createErr
	}
	f.events = append(f.events, in)
	return contractx.Event{
		ID:          fmt.Sprintf("event-%d", len(f.events)),
		BusinessID:  in.BusinessID,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		ServiceType: in.ServiceType,
		ProviderID:  in.ProviderID,
		ClientID:    in.ClientID,
		OwnerUserID: in.OwnerUserID,
	}, nil
}

func (f *fakeAppointments) EventDuration(context.Context, string) (time.Duration, error) {
	return f.duration, f.durationErr
}

func (f *fakeAppointments) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// failingStore fails every call.
type failingStore struct{}

func (failingStore) Init(context.Context, string) (state.BookingState, error) {
	return state.BookingState{}, errBackend
}
func (failingStore) Get(context.Context, string) (state.BookingState, error) {
	return state.BookingState{}, errBackend
}
func (failingStore) Update(context.Context, string, state.Patch) (state.BookingState, error) {
	return state.BookingState{}, errBackend
}
func (failingStore) Clear(context.Context, string) error { return errBackend }
func (failingStore) ClearAll(context.Context) error      { return errBackend }

type fixture struct {
	set          *Set
	store        *state.MemoryStore
	clients      *fakeClients
	appointments *fakeAppointments
}

var fixedNow = time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)

func testProfile() contractx.Profile {
	return contractx.Profile{
		BusinessID:  "biz-1",
		Name:        "Sharp Cuts",
		OwnerUserID: "owner-1",
		Timezone:    "Asia/Jakarta",
		Services: map[string]string{
			"Haircut": "Rp 50.000",
			"Shave":   "Rp 30.000",
			"Colour":  "Rp 150.000",
		},
		Location: map[string]string{
			"address":    "Jl. Sudirman 1",
			"directions": "Next to the bank",
			"parking":    "Free parking behind the shop",
		},
		Promo: "10% off on Mondays",
	}
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	f := fixture{
		store:        state.NewMemoryStore(),
		clients:      newFakeClients(),
		appointments: &fakeAppointments{},
	}
	set, err := NewSet(Deps{
		BusinessID:   "biz-1",
		Store:        f.store,
		Profiles:     &fakeProfiles{profile: testProfile()},
		Clients:      f.clients,
		Appointments: f.appointments,
		Slots:        []string{"09:00", "10:00", "11:00"},
		Now:          func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewSet() error = %v", err)
	}
	f.set = set
	return f
}

func (f fixture) invoke(t *testing.T, sessionID, name, args string) string {
	t.Helper()
	return f.set.Invoke(context.Background(), sessionID, name, args)
}

func (f fixture) state(t *testing.T, sessionID string) state.BookingState {
	t.Helper()
	st, err := f.store.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Get(%q) error = %v", sessionID, err)
	}
	return st
}
