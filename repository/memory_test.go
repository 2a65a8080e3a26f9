package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
)

func TestMemoryRepositoryClients(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.FindClientByPhone(ctx, "biz", "0811"); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	c, err := repo.CreateClient(ctx, "biz", " Dewi ", "0811")
	if err != nil {
		t.Fatalf("CreateClient() error = %v", err)
	}
	if c.ID == "" || c.Name != "Dewi" {
		t.Fatalf("unexpected client: %+v", c)
	}

	again, err := repo.CreateClient(ctx, "biz", "Dewi S", "0811")
	if err != nil {
		t.Fatalf("CreateClient() error = %v", err)
	}
	if again.ID != c.ID || again.Name != "Dewi S" {
		t.Fatalf("expected upsert of %s, got %+v", c.ID, again)
	}

	if _, err := repo.FindClientByPhone(ctx, "other-biz", "0811"); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("clients must be scoped by business, got %v", err)
	}
	if _, err := repo.CreateClient(ctx, "biz", "x", " "); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMemoryRepositoryEvents(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()
	start := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

	if _, err := repo.CreateEvent(ctx, contractx.EventInput{StartTime: start, EndTime: start}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	ev, err := repo.CreateEvent(ctx, contractx.EventInput{
		BusinessID: "biz", StartTime: start, EndTime: start.Add(time.Hour),
		ServiceType: "Haircut", ClientID: "c1", OwnerUserID: "owner",
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if ev.ID == "" || len(repo.Events()) != 1 {
		t.Fatalf("unexpected event state: %+v %d", ev, len(repo.Events()))
	}

	if d, _ := repo.EventDuration(ctx, "owner"); d != 0 {
		t.Fatalf("unset duration = %s", d)
	}
	if err := repo.SaveOwner(ctx, "biz", "owner", 30*time.Minute); err != nil {
		t.Fatalf("SaveOwner() error = %v", err)
	}
	if d, _ := repo.EventDuration(ctx, "owner"); d != 30*time.Minute {
		t.Fatalf("duration = %s", d)
	}
}

func TestMemoryRepositoryProfileIsCopied(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()
	services := map[string]string{"Haircut": "50"}
	if err := repo.SaveProfile(ctx, contractx.Profile{BusinessID: "biz", Services: services}); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}
	services["Haircut"] = "changed"

	p, err := repo.Profile(ctx, "biz")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	p.Services["Shave"] = "30"

	again, _ := repo.Profile(ctx, "biz")
	if again.Services["Haircut"] != "50" || len(again.Services) != 1 {
		t.Fatalf("stored profile was mutated: %+v", again.Services)
	}
	if _, err := repo.Profile(ctx, "missing"); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSeedProfileFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profile.yaml")
	body := `name: Sharp Cuts
owner_user_id: owner-1
event_duration: 45m
promo: " 10% off "
services:
  - name: Haircut
    price: Rp 50.000
  - name: Beard Trim
    price: Rp 30.000
location:
  Address: Jl. Sudirman 1
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	repo := NewMemoryRepository()
	ctx := context.Background()
	p, err := SeedProfile(ctx, repo, path, "biz-1")
	if err != nil {
		t.Fatalf("SeedProfile() error = %v", err)
	}
	if p.BusinessID != "biz-1" || p.Promo != "10% off" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.Services["Haircut"] != "Rp 50.000" || p.Services["Beard Trim"] != "Rp 30.000" {
		t.Fatalf("service names must keep their case: %v", p.Services)
	}
	if p.Location["address"] != "Jl. Sudirman 1" {
		t.Fatalf("location = %v", p.Location)
	}

	stored, err := repo.Profile(ctx, "biz-1")
	if err != nil || stored.Name != "Sharp Cuts" {
		t.Fatalf("stored profile = %+v, %v", stored, err)
	}
	if d, _ := repo.EventDuration(ctx, "owner-1"); d != 45*time.Minute {
		t.Fatalf("owner duration = %s", d)
	}
}

func TestLoadProfileFileRequiresBusinessID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("name: Nameless\n"), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	if _, _, err := LoadProfileFile(path, ""); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestExampleProfileLoads(t *testing.T) {
	t.Parallel()

	p, d, err := LoadProfileFile(filepath.Join("..", "configs", "business_profile.example.yaml"), "")
	if err != nil {
		t.Fatalf("LoadProfileFile() error = %v", err)
	}
	if p.BusinessID != "sharp-cuts" || len(p.Services) != 3 || d != 45*time.Minute {
		t.Fatalf("unexpected example profile: %+v duration=%s", p, d)
	}
}
