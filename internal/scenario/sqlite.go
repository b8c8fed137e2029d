package scenario

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/invoice-roi/internal/roi"
)

// SQLiteStore persists scenarios in a single SQLite file. All writes go
// through one connection so a name-keyed upsert and its read-back are atomic.
type SQLiteStore struct {
	db  *sqlx.DB
	cfg Config
	mu  sync.Mutex
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scenarios (
	id                           INTEGER PRIMARY KEY AUTOINCREMENT,
	scenario_name                TEXT UNIQUE NOT NULL,
	monthly_invoice_volume       INTEGER NOT NULL,
	num_ap_staff                 INTEGER NOT NULL,
	avg_hours_per_invoice        REAL NOT NULL,
	hourly_wage                  REAL NOT NULL,
	error_rate_manual            REAL NOT NULL,
	error_cost                   REAL NOT NULL,
	time_horizon_months          INTEGER NOT NULL,
	one_time_implementation_cost REAL NOT NULL DEFAULT 0,
	results                      TEXT NOT NULL,
	created_at                   TEXT NOT NULL,
	updated_at                   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS scenarios_updated_at ON scenarios (updated_at);
`

const scenarioColumns = `id, scenario_name, monthly_invoice_volume, num_ap_staff, avg_hours_per_invoice,
	hourly_wage, error_rate_manual, error_cost, time_horizon_months, one_time_implementation_cost,
	results, created_at, updated_at`

type scenarioRow struct {
	ID                        int64   `db:"id"`
	ScenarioName              string  `db:"scenario_name"`
	MonthlyInvoiceVolume      int     `db:"monthly_invoice_volume"`
	NumAPStaff                int     `db:"num_ap_staff"`
	AvgHoursPerInvoice        float64 `db:"avg_hours_per_invoice"`
	HourlyWage                float64 `db:"hourly_wage"`
	ErrorRateManual           float64 `db:"error_rate_manual"`
	ErrorCost                 float64 `db:"error_cost"`
	TimeHorizonMonths         int     `db:"time_horizon_months"`
	OneTimeImplementationCost float64 `db:"one_time_implementation_cost"`
	Results                   string  `db:"results"`
	CreatedAt                 string  `db:"created_at"`
	UpdatedAt                 string  `db:"updated_at"`
}

func NewSQLiteStore(dbPath string, cfg Config) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return newSQLiteStoreFromDB(db, cfg), nil
}

func newSQLiteStoreFromDB(db *sqlx.DB, cfg Config) *SQLiteStore {
	return &SQLiteStore{db: db, cfg: cfg}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, in roi.ScenarioInputs, result roi.CalculationResult) (Scenario, error) {
	in, err := prepareInputs(in)
	if err != nil {
		return Scenario{}, err
	}
	blob, err := json.Marshal(result)
	if err != nil {
		return Scenario{}, fmt.Errorf("encode results: %w", err)
	}
	now := timeToString(s.cfg.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Scenario{}, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO scenarios (scenario_name, monthly_invoice_volume, num_ap_staff,
		avg_hours_per_invoice, hourly_wage, error_rate_manual, error_cost, time_horizon_months,
		one_time_implementation_cost, results, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scenario_name) DO UPDATE SET
			monthly_invoice_volume = excluded.monthly_invoice_volume,
			num_ap_staff = excluded.num_ap_staff,
			avg_hours_per_invoice = excluded.avg_hours_per_invoice,
			hourly_wage = excluded.hourly_wage,
			error_rate_manual = excluded.error_rate_manual,
			error_cost = excluded.error_cost,
			time_horizon_months = excluded.time_horizon_months,
			one_time_implementation_cost = excluded.one_time_implementation_cost,
			results = excluded.results,
			updated_at = excluded.updated_at`,
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
		now,
	); err != nil {
		return Scenario{}, fmt.Errorf("upsert scenario: %w", err)
	}

	var row scenarioRow
	if err := tx.GetContext(ctx, &row, "SELECT "+scenarioColumns+" FROM scenarios WHERE scenario_name = ?", in.ScenarioName); err != nil {
		return Scenario{}, fmt.Errorf("read back scenario: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Scenario{}, fmt.Errorf("commit save: %w", err)
	}
	return row.toScenario()
}

func (s *SQLiteStore) List(ctx context.Context) ([]Scenario, error) {
	var rows []scenarioRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+scenarioColumns+" FROM scenarios ORDER BY updated_at DESC, id DESC"); err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	out := make([]Scenario, 0, len(rows))
	for _, r := range rows {
		sc, err := r.toScenario()
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (Scenario, error) {
	var row scenarioRow
	err := s.db.GetContext(ctx, &row, "SELECT "+scenarioColumns+" FROM scenarios WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Scenario{}, ErrNotFound
	}
	if err != nil {
		return Scenario{}, fmt.Errorf("get scenario %d: %w", id, err)
	}
	return row.toScenario()
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM scenarios WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete scenario %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scenario %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r scenarioRow) toScenario() (Scenario, error) {
	sc := Scenario{
		ID: r.ID,
		ScenarioInputs: roi.ScenarioInputs{
			ScenarioName:              r.ScenarioName,
			MonthlyInvoiceVolume:      roi.Int(r.MonthlyInvoiceVolume),
			NumAPStaff:                roi.Int(r.NumAPStaff),
			AvgHoursPerInvoice:        roi.Float(r.AvgHoursPerInvoice),
			HourlyWage:                roi.Float(r.HourlyWage),
			ErrorRateManual:           roi.Float(r.ErrorRateManual),
			ErrorCost:                 roi.Float(r.ErrorCost),
			TimeHorizonMonths:         roi.Int(r.TimeHorizonMonths),
			OneTimeImplementationCost: roi.Float(r.OneTimeImplementationCost),
		},
	}
	if err := json.Unmarshal([]byte(r.Results), &sc.Results); err != nil {
		return Scenario{}, fmt.Errorf("decode results for scenario %d: %w", r.ID, err)
	}
	var err error
	if sc.CreatedAt, err = time.Parse(sortableTime, r.CreatedAt); err != nil {
		return Scenario{}, fmt.Errorf("decode created_at for scenario %d: %w", r.ID, err)
	}
	if sc.UpdatedAt, err = time.Parse(sortableTime, r.UpdatedAt); err != nil {
		return Scenario{}, fmt.Errorf("decode updated_at for scenario %d: %w", r.ID, err)
	}
	return sc, nil
}

// Fixed-width so that ORDER BY on the text column is chronological.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(sortableTime)
}

var _ Store = (*SQLiteStore)(nil)
