package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
)

// PostgresRepository serves the business collaborators from Postgres.
type PostgresRepository struct {
	db    *bun.DB
	newID func() string
	now   func() time.Time
}

var (
	_ contractx.BusinessProfiles = (*PostgresRepository)(nil)
	_ contractx.ClientRegistry   = (*PostgresRepository)(nil)
	_ contractx.Appointments     = (*PostgresRepository)(nil)
)

func NewPostgresRepository(db *bun.DB) *PostgresRepository {
	return &PostgresRepository{db: db, newID: newID, now: time.Now}
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Migrate creates the tables and indexes when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	models := []any{
		(*BusinessProfileModel)(nil),
		(*UserModel)(nil),
		(*ClientModel)(nil),
		(*EventModel)(nil),
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range models {
			if _, err := tx.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create table for %T: %w", m, err)
			}
		}
		for _, q := range indexQueries(tx) {
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("create index: %w", err)
			}
		}
		return nil
	})
}

func indexQueries(db bun.IDB) []*bun.CreateIndexQuery {
	return []*bun.CreateIndexQuery{
		db.NewCreateIndex().
			Model((*EventModel)(nil)).
			Index("events_business_start_idx").
			Column("business_id", "start_time").
			IfNotExists(),
		db.NewCreateIndex().
			Model((*UserModel)(nil)).
			Index("users_business_idx").
			Column("business_id").
			IfNotExists(),
	}
}

func (r *PostgresRepository) Profile(ctx context.Context, businessID string) (contractx.Profile, error) {
	var m BusinessProfileModel
	err := r.profileQuery(&m, businessID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Profile{}, fmt.Errorf("%w: business profile %s", contractx.ErrNotFound, businessID)
	}
	if err != nil {
		return contractx.Profile{}, fmt.Errorf("select business profile %s: %w", businessID, err)
	}
	return m.toContract(), nil
}

func (r *PostgresRepository) profileQuery(m *BusinessProfileModel, businessID string) *bun.SelectQuery {
	return r.db.NewSelect().Model(m).Where("bp.id = ?", businessID).Limit(1)
}

// SaveProfile upserts a business profile.
func (r *PostgresRepository) SaveProfile(ctx context.Context, p contractx.Profile) error {
	m := &BusinessProfileModel{
		ID:          p.BusinessID,
		Name:        p.Name,
		OwnerUserID: p.OwnerUserID,
		Timezone:    p.Timezone,
		Services:    nonNil(p.Services),
		Location:    nonNil(p.Location),
		Promo:       p.Promo,
		UpdatedAt:   r.now().UTC(),
	}
	if _, err := r.saveProfileQuery(m).Exec(ctx); err != nil {
		return fmt.Errorf("upsert business profile %s: %w", p.BusinessID, err)
	}
	return nil
}

func (r *PostgresRepository) saveProfileQuery(m *BusinessProfileModel) *bun.InsertQuery {
	return r.db.NewInsert().
		Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("owner_user_id = EXCLUDED.owner_user_id").
		Set("timezone = EXCLUDED.timezone").
		Set("services = EXCLUDED.services").
		Set("location = EXCLUDED.location").
		Set("promo = EXCLUDED.promo").
		Set("updated_at = EXCLUDED.updated_at")
}

// SaveOwner upserts the owner user and their default event duration.
func (r *PostgresRepository) SaveOwner(ctx context.Context, businessID, ownerUserID string, eventDuration time.Duration) error {
	m := &UserModel{
		ID:                   ownerUserID,
		BusinessID:           businessID,
		EventDurationMinutes: int(eventDuration / time.Minute),
	}
	_, err := r.db.NewInsert().
		Model(m).
		On("CONFLICT (id) DO UPDATE").
		Set("business_id = EXCLUDED.business_id").
		Set("event_duration_minutes = EXCLUDED.event_duration_minutes").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert owner %s: %w", ownerUserID, err)
	}
	return nil
}

func (r *PostgresRepository) FindClientByPhone(ctx context.Context, businessID, phone string) (contractx.Client, error) {
	var m ClientModel
	err := r.findClientQuery(&m, businessID, phone).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Client{}, fmt.Errorf("%w: client with phone %s", contractx.ErrNotFound, phone)
	}
	if err != nil {
		return contractx.Client{}, fmt.Errorf("select client by phone: %w", err)
	}
	return m.toContract(), nil
}

func (r *PostgresRepository) findClientQuery(m *ClientModel, businessID, phone string) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(m).
		Where("c.business_id = ?", businessID).
		Where("c.phone = ?", phone).
		Limit(1)
}

// CreateClient inserts a client. An existing client with the same phone is
// renamed and returned instead.
func (r *PostgresRepository) CreateClient(ctx context.Context, businessID, name, phone string) (contractx.Client, error) {
	if strings.TrimSpace(phone) == "" {
		return contractx.Client{}, fmt.Errorf("%w: client phone is required", contractx.ErrValidation)
	}
	m := &ClientModel{
		ID:         r.newID(),
		BusinessID: businessID,
		Name:       strings.TrimSpace(name),
		Phone:      phone,
		CreatedAt:  r.now().UTC(),
	}
	if _, err := r.createClientQuery(m).Exec(ctx); err != nil {
		return contractx.Client{}, fmt.Errorf("insert client: %w", err)
	}
	return m.toContract(), nil
}

func (r *PostgresRepository) createClientQuery(m *ClientModel) *bun.InsertQuery {
	return r.db.NewInsert().
		Model(m).
		On("CONFLICT (business_id, phone) DO UPDATE").
		Set("name = EXCLUDED.name").
		Returning("*")
}

func (r *PostgresRepository) CreateEvent(ctx context.Context, in contractx.EventInput) (contractx.Event, error) {
	if !in.EndTime.After(in.StartTime) {
		return contractx.Event{}, fmt.Errorf("%w: event must end after it starts", contractx.ErrValidation)
	}
	m := &EventModel{
		ID:          r.newID(),
		BusinessID:  in.BusinessID,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		ServiceType: in.ServiceType,
		ProviderID:  in.ProviderID,
		ClientID:    in.ClientID,
		OwnerUserID: in.OwnerUserID,
		CreatedAt:   r.now().UTC(),
	}
	if _, err := r.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return contractx.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return m.toContract(), nil
}

// EventDuration returns 0 when the owner is unknown or has no duration set.
func (r *PostgresRepository) EventDuration(ctx context.Context, ownerUserID string) (time.Duration, error) {
	var minutes int
	err := r.eventDurationQuery(ownerUserID).Scan(ctx, &minutes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select event duration for %s: %w", ownerUserID, err)
	}
	return time.Duration(minutes) * time.Minute, nil
}

func (r *PostgresRepository) eventDurationQuery(ownerUserID string) *bun.SelectQuery {
	return r.db.NewSelect().
		Model((*UserModel)(nil)).
		ColumnExpr("COALESCE(u.event_duration_minutes, 0)").
		Where("u.id = ?", ownerUserID).
		Limit(1)
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
