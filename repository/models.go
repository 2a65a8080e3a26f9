package repository

import (
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
)

type BusinessProfileModel struct {
	bun.BaseModel `bun:"table:business_profiles,alias:bp"`

	ID          string            `bun:"id,pk"`
	Name        string            `bun:"name,notnull"`
	OwnerUserID string            `bun:"owner_user_id,notnull"`
	Timezone    string            `bun:"timezone"`
	Services    map[string]string `bun:"services,type:jsonb,notnull,default:'{}'"`
	Location    map[string]string `bun:"location,type:jsonb,notnull,default:'{}'"`
	Promo       string            `bun:"promo"`
	CreatedAt   time.Time         `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time         `bun:"updated_at,notnull,default:current_timestamp"`
}

func (m BusinessProfileModel) toContract() contractx.Profile {
	return contractx.Profile{
		BusinessID:  m.ID,
		Name:        m.Name,
		OwnerUserID: m.OwnerUserID,
		Timezone:    m.Timezone,
		Services:    m.Services,
		Location:    m.Location,
		Promo:       m.Promo,
	}
}

type UserModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                   string    `bun:"id,pk"`
	BusinessID           string    `bun:"business_id,notnull"`
	Name                 string    `bun:"name"`
	Email                string    `bun:"email"`
	EventDurationMinutes int       `bun:"event_duration_minutes,nullzero"`
	CreatedAt            time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type ClientModel struct {
	bun.BaseModel `bun:"table:clients,alias:c"`

	ID         string    `bun:"id,pk"`
	BusinessID string    `bun:"business_id,notnull,unique:clients_business_phone"`
	Name       string    `bun:"name,notnull"`
	Phone      string    `bun:"phone,notnull,unique:clients_business_phone"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (m ClientModel) toContract() contractx.Client {
	return contractx.Client{
		ID:         m.ID,
		BusinessID: m.BusinessID,
		Name:       m.Name,
		Phone:      m.Phone,
		CreatedAt:  m.CreatedAt,
	}
}

type EventModel struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          string    `bun:"id,pk"`
	BusinessID  string    `bun:"business_id,notnull"`
	StartTime   time.Time `bun:"start_time,notnull"`
	EndTime     time.Time `bun:"end_time,notnull"`
	ServiceType string    `bun:"service_type,notnull"`
	ProviderID  string    `bun:"provider_id,nullzero"`
	ClientID    string    `bun:"client_id,notnull"`
	OwnerUserID string    `bun:"owner_user_id,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (m EventModel) toContract() contractx.Event {
	return contractx.Event{
		ID:          m.ID,
		BusinessID:  m.BusinessID,
		StartTime:   m.StartTime,
		EndTime:     m.EndTime,
		ServiceType: m.ServiceType,
		ProviderID:  m.ProviderID,
		ClientID:    m.ClientID,
		OwnerUserID: m.OwnerUserID,
	}
}
