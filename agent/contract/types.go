package contract

import "time"

type Profile struct {
	BusinessID  string            `json:"business_id"`
	Name        string            `json:"name"`
	OwnerUserID string            `json:"owner_user_id"`
	Timezone    string            `json:"timezone,omitempty"`
	Services    map[string]string `json:"services,omitempty"` // service name -> price / description
	Location    map[string]string `json:"location,omitempty"` // address | directions | parking
	Promo       string            `json:"promo,omitempty"`
}

type Client struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	CreatedAt  time.Time `json:"created_at"`
}

type EventInput struct {
	BusinessID  string
	StartTime   time.Time
	EndTime     time.Time
	ServiceType string
	ProviderID  string
	ClientID    string
	OwnerUserID string
}

type Event struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"business_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	ServiceType string    `json:"service_type"`
	ProviderID  string    `json:"provider_id,omitempty"`
	ClientID    string    `json:"client_id"`
	OwnerUserID string    `json:"owner_user_id"`
}

type ToolCallRecord struct {
	Iteration int    `json:"iteration"`
	Tool      string `json:"tool"`
	Args      string `json:"args,omitempty"`
	Result    string `json:"result"`
}
