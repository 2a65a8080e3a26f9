package repository

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
)

// MemoryRepository is an in-process implementation of the business
// collaborators for development and tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	profiles  map[string]contractx.Profile
	clients   map[clientKey]contractx.Client
	events    []contractx.Event
	durations map[string]time.Duration

	newID func() string
	now   func() time.Time
}

type clientKey struct {
	businessID string
	phone      string
}

var (
	_ contractx.BusinessProfiles = (*MemoryRepository)(nil)
	_ contractx.ClientRegistry   = (*MemoryRepository)(nil)
	_ contractx.Appointments     = (*MemoryRepository)(nil)
)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles:  make(map[string]contractx.Profile),
		clients:   make(map[clientKey]contractx.Client),
		durations: make(map[string]time.Duration),
		newID:     newID,
		now:       time.Now,
	}
}

func (r *MemoryRepository) SaveProfile(_ context.Context, p contractx.Profile) error {
	if strings.TrimSpace(p.BusinessID) == "" {
		return fmt.Errorf("%w: business id is required", contractx.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.BusinessID] = cloneProfile(p)
	return nil
}

func (r *MemoryRepository) SaveOwner(_ context.Context, _, ownerUserID string, eventDuration time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[ownerUserID] = eventDuration
	return nil
}

func (r *MemoryRepository) Profile(_ context.Context, businessID string) (contractx.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[businessID]
	if !ok {
		return contractx.Profile{}, fmt.Errorf("%w: business profile %s", contractx.ErrNotFound, businessID)
	}
	return cloneProfile(p), nil
}

func (r *MemoryRepository) FindClientByPhone(_ context.Context, businessID, phone string) (contractx.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientKey{businessID, phone}]
	if !ok {
		return contractx.Client{}, fmt.Errorf("%w: client with phone %s", contractx.ErrNotFound, phone)
	}
	return c, nil
}

func (r *MemoryRepository) CreateClient(_ context.Context, businessID, name, phone string) (contractx.Client, error) {
	if strings.TrimSpace(phone) == "" {
		return contractx.Client{}, fmt.Errorf("%w: client phone is required", contractx.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := clientKey{businessID, phone}
	if c, ok := r.clients[key]; ok {
		c.Name = strings.TrimSpace(name)
		r.clients[key] = c
		return c, nil
	}
	c := contractx.Client{
		ID:         r.newID(),
		BusinessID: businessID,
		Name:       strings.TrimSpace(name),
		Phone:      phone,
		CreatedAt:  r.now().UTC(),
	}
	r.clients[key] = c
	return c, nil
}

func (r *MemoryRepository) CreateEvent(_ context.Context, in contractx.EventInput) (contractx.Event, error) {
	if !in.EndTime.After(in.StartTime) {
		return contractx.Event{}, fmt.Errorf("%w: event must end after it starts", contractx.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ev := contractx.Event{
		ID:          r.newID(),
		BusinessID:  in.BusinessID,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		ServiceType: in.ServiceType,
		ProviderID:  in.ProviderID,
		ClientID:    in.ClientID,
		OwnerUserID: in.OwnerUserID,
	}
	r.events = append(r.events, ev)
	return ev, nil
}

func (r *MemoryRepository) EventDuration(_ context.Context, ownerUserID string) (time.Duration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.durations[ownerUserID], nil
}

// Events returns a copy of the events created so far.
func (r *MemoryRepository) Events() []contractx.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]contractx.Event, len(r.events))
	copy(out, r.events)
	return out
}

func cloneProfile(p contractx.Profile) contractx.Profile {
	p.Services = maps.Clone(p.Services)
	p.Location = maps.Clone(p.Location)
	return p
}
