package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS scenarios (
	id                           BIGSERIAL PRIMARY KEY,
	scenario_name                TEXT UNIQUE NOT NULL,
	monthly_invoice_volume       BIGINT NOT NULL,
	num_ap_staff                 BIGINT NOT NULL,
	avg_hours_per_invoice        DOUBLE PRECISION NOT NULL,
	hourly_wage                  DOUBLE PRECISION NOT NULL,
	error_rate_manual            DOUBLE PRECISION NOT NULL,
	error_cost                   DOUBLE PRECISION NOT NULL,
	time_horizon_months          BIGINT NOT NULL,
	one_time_implementation_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
	results                      JSONB NOT NULL,
	created_at                   TIMESTAMPTZ NOT NULL,
	updated_at                   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS scenarios_updated_at ON scenarios (updated_at DESC);

ALTER TABLE scenarios
	ALTER COLUMN monthly_invoice_volume TYPE BIGINT,
	ALTER COLUMN num_ap_staff TYPE BIGINT,
	ALTER COLUMN time_horizon_months TYPE BIGINT;
`

// PostgresStore persists scenarios in PostgreSQL. The upsert is a single
// INSERT ... ON CONFLICT statement, so replacement by name is atomic.
type PostgresStore struct {
	pool *pgxpool.Pool
	cfg  Config
}

func NewPostgresStore(ctx context.Context, dsn string, cfg Config) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{pool: pool, cfg: cfg}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, in roi.ScenarioInputs, result roi.CalculationResult) (Scenario, error) {
	in, err := prepareInputs(in)
	if err != nil {
		return Scenario{}, err
	}
	blob, err := json.Marshal(result)
	if err != nil {
		return Scenario{}, fmt.Errorf("encode results: %w", err)
	}
	now := s.cfg.now()

	row := s.pool.QueryRow(ctx,
		`INSERT INTO scenarios (scenario_name, monthly_invoice_volume, num_ap_staff, avg_hours_per_invoice,
			hourly_wage, error_rate_manual, error_cost, time_horizon_months, one_time_implementation_cost,
			results, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		 ON CONFLICT (scenario_name) DO UPDATE SET
			monthly_invoice_volume = EXCLUDED.monthly_invoice_volume,
			num_ap_staff = EXCLUDED.num_ap_staff,
			avg_hours_per_invoice = EXCLUDED.avg_hours_per_invoice,
			hourly_wage = EXCLUDED.hourly_wage,
			error_rate_manual = EXCLUDED.error_rate_manual,
			error_cost = EXCLUDED.error_cost,
			time_horizon_months = EXCLUDED.time_horizon_months,
			one_time_implementation_cost = EXCLUDED.one_time_implementation_cost,
			results = EXCLUDED.results,
			updated_at = EXCLUDED.updated_at
		 RETURNING `+scenarioColumns,
		in.ScenarioName,
		*in.MonthlyInvoiceVolume,
		*in.NumAPStaff,
		*in.AvgHoursPerInvoice,
		*in.HourlyWage,
		*in.ErrorRateManual,
		*in.ErrorCost,
		*in.TimeHorizonMonths,
		*in.OneTimeImplementationCost,
		string(blob),
		now,
	)
	sc, err := scanPostgresScenario(row)
	if err != nil {
		return Scenario{}, fmt.Errorf("upsert scenario: %w", err)
	}
	return sc, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Scenario, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+scenarioColumns+" FROM scenarios ORDER BY updated_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	out := []Scenario{}
	for rows.Next() {
		sc, err := scanPostgresScenario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (Scenario, error) {
	sc, err := scanPostgresScenario(s.pool.QueryRow(ctx, "SELECT "+scenarioColumns+" FROM scenarios WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Scenario{}, ErrNotFound
	}
	if err != nil {
		return Scenario{}, fmt.Errorf("get scenario %d: %w", id, err)
	}
	return sc, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM scenarios WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete scenario %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPostgresScenario(row pgx.Row) (Scenario, error) {
	var (
		sc      Scenario
		volume  int
		staff   int
		hours   float64
		wage    float64
		rate    float64
		cost    float64
		horizon int
		impl    float64
		results []byte
	)
	if err := row.Scan(&sc.ID, &sc.ScenarioName, &volume, &staff, &hours, &wage, &rate, &cost,
		&horizon, &impl, &results, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
		return Scenario{}, err
	}
	sc.MonthlyInvoiceVolume = roi.Int(volume)
	sc.NumAPStaff = roi.Int(staff)
	sc.AvgHoursPerInvoice = roi.Float(hours)
	sc.HourlyWage = roi.Float(wage)
	sc.ErrorRateManual = roi.Float(rate)
	sc.ErrorCost = roi.Float(cost)
	sc.TimeHorizonMonths = roi.Int(horizon)
	sc.OneTimeImplementationCost = roi.Float(impl)
	if err := json.Unmarshal(results, &sc.Results); err != nil {
		return Scenario{}, fmt.Errorf("decode results for scenario %d: %w", sc.ID, err)
	}
	sc.CreatedAt = sc.CreatedAt.UTC()
	sc.UpdatedAt = sc.UpdatedAt.UTC()
	return sc, nil
}

var _ Store = (*PostgresStore)(nil)
