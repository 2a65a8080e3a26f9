package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
	configx "github.com/tanpawarit/whatsbot-agent/pkg/config"
)

// ProfileFile is the on-disk business profile. Services are a list so
// their names keep their case.
type ProfileFile struct {
	BusinessID    string        `mapstructure:"business_id"`
	Name          string        `mapstructure:"name"`
	OwnerUserID   string        `mapstructure:"owner_user_id"`
	Timezone      string        `mapstructure:"timezone"`
	EventDuration time.Duration `mapstructure:"event_duration"`
	Promo         string        `mapstructure:"promo"`
	Services      []struct {
		Name  string `mapstructure:"name"`
		Price string `mapstructure:"price"`
	} `mapstructure:"services"`
	Location map[string]string `mapstructure:"location"`
}

// LoadProfileFile reads a yaml, json or toml business profile. businessID
// fills in a missing business_id.
func LoadProfileFile(path, businessID string) (contractx.Profile, time.Duration, error) {
	var f ProfileFile
	if err := configx.ReadFile(path, &f); err != nil {
		return contractx.Profile{}, 0, err
	}

	p := contractx.Profile{
		BusinessID:  strings.TrimSpace(f.BusinessID),
		Name:        strings.TrimSpace(f.Name),
		OwnerUserID: strings.TrimSpace(f.OwnerUserID),
		Timezone:    strings.TrimSpace(f.Timezone),
		Promo:       strings.TrimSpace(f.Promo),
		Services:    make(map[string]string, len(f.Services)),
		Location:    make(map[string]string, len(f.Location)),
	}
	if p.BusinessID == "" {
		p.BusinessID = strings.TrimSpace(businessID)
	}
	if p.BusinessID == "" {
		return contractx.Profile{}, 0, fmt.Errorf("%w: %s has no business_id", contractx.ErrValidation, path)
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return contractx.Profile{}, 0, fmt.Errorf("%w: %s timezone: %v", contractx.ErrValidation, path, err)
		}
	}

	for _, s := range f.Services {
		if name := strings.TrimSpace(s.Name); name != "" {
			p.Services[name] = strings.TrimSpace(s.Price)
		}
	}
	for k, v := range f.Location {
		p.Location[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return p, f.EventDuration, nil
}

// ProfileSeeder stores a business profile and its owner.
type ProfileSeeder interface {
	SaveProfile(ctx context.Context, p contractx.Profile) error
	SaveOwner(ctx context.Context, businessID, ownerUserID string, eventDuration time.Duration) error
}

// SeedProfile loads path and saves it through seeder.
func SeedProfile(ctx context.Context, seeder ProfileSeeder, path, businessID string) (contractx.Profile, error) {
	p, duration, err := LoadProfileFile(path, businessID)
	if err != nil {
		return contractx.Profile{}, err
	}
	if err := seeder.SaveProfile(ctx, p); err != nil {
		return contractx.Profile{}, err
	}
	if p.OwnerUserID != "" {
		if err := seeder.SaveOwner(ctx, p.BusinessID, p.OwnerUserID, duration); err != nil {
			return contractx.Profile{}, err
		}
	}
	return p, nil
}
