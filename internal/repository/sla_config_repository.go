package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-service/internal/domain"
)

// AgencyConfigProvider exposes agency SLA configurations to the lifecycle
// engine. A missing configuration is not an error: (nil, nil) means absent,
// and the engine falls back to platform defaults.
type AgencyConfigProvider interface {
	GetSLAConfiguration(ctx context.Context, agencyID string) (*domain.SLAConfiguration, error)
}

type slaConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSLAConfigRepository builds the postgres-backed provider.
func NewSLAConfigRepository(pool *pgxpool.Pool) AgencyConfigProvider {
	return &slaConfigRepository{pool: pool}
}

func (r *slaConfigRepository) GetSLAConfiguration(ctx context.Context, agencyID string) (*domain.SLAConfiguration, error) {
	const query = `
        SELECT agency_id, emergency_response_hours, urgent_response_hours,
               routine_response_hours, maintenance_response_days, updated_at
        FROM agency_sla_configurations WHERE agency_id=$1`
	var cfg domain.SLAConfiguration
	err := r.pool.QueryRow(ctx, query, agencyID).Scan(
		&cfg.AgencyID,
		&cfg.EmergencyResponseHours,
		&cfg.UrgentResponseHours,
		&cfg.RoutineResponseHours,
		&cfg.MaintenanceResponseDays,
		&cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
