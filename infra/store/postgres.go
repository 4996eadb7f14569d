package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/acasal/alertd/core/model"
	corestore "github.com/acasal/alertd/core/store"
)

// PostgresStore is the shared backend for deployments where several
// engine instances process uplinks against one database. Atomicity relies
// on the same conditional availability update as the SQLite backend;
// Postgres row locking makes it safe across processes.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects with the given DSN and ensures the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			source_id TEXT NOT NULL,
			category TEXT NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			state TEXT NOT NULL DEFAULT 'reported',
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS resources (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			municipality TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			available BOOLEAN NOT NULL DEFAULT TRUE,
			avg_speed_kmh DOUBLE PRECISION NOT NULL,
			prep_delay_s INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS assignments (
			id BIGSERIAL PRIMARY KEY,
			alert_id BIGINT NOT NULL REFERENCES alerts(id),
			resource_id BIGINT NOT NULL REFERENCES resources(id),
			distance_m DOUBLE PRECISION NOT NULL,
			eta_s INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_state ON alerts(state);
		CREATE INDEX IF NOT EXISTS idx_resources_category ON resources(category, available);
		CREATE INDEX IF NOT EXISTS idx_assignments_alert_id ON assignments(alert_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAlert(ctx context.Context, a *model.Alert) error {
	a.State = model.StateReported
	a.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO alerts (source_id, category, lat, lon, state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		a.SourceID, string(a.Category), a.Location.Lat, a.Location.Lon, string(a.State), a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return &corestore.PersistenceError{Op: "create alert", Err: err}
	}
	return nil
}

func (s *PostgresStore) GetAlert(ctx context.Context, id int64) (model.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_id, category, lat, lon, state, created_at FROM alerts WHERE id = $1`, id)
	return scanAlert(row)
}

func (s *PostgresStore) ListAlerts(ctx context.Context, f corestore.AlertFilter) ([]model.Alert, error) {
	query := `SELECT id, source_id, category, lat, lon, state, created_at FROM alerts`
	var args []any
	if f.State != "" {
		args = append(args, string(f.State))
		query += fmt.Sprintf(` WHERE state = $%d`, len(args))
	}
	query += ` ORDER BY id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &corestore.PersistenceError{Op: "list alerts", Err: err}
	}
	defer func() { _ = rows.Close() }()
	return collectAlerts(rows)
}

func (s *PostgresStore) AvailableResources(ctx context.Context, c model.Category) ([]model.Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, municipality, category, lat, lon, available, avg_speed_kmh, prep_delay_s
		 FROM resources WHERE category = $1 AND available ORDER BY id`, string(c))
	if err != nil {
		return nil, &corestore.PersistenceError{Op: "query resources", Err: err}
	}
	defer func() { _ = rows.Close() }()
	return collectResources(rows)
}

func (s *PostgresStore) Assign(ctx context.Context, a model.Assignment) (model.Assignment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "begin assign", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE resources SET available = FALSE WHERE id = $1 AND available`, a.ResourceID)
	if err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "claim resource", Err: err}
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "claim resource", Err: err}
	} else if n == 0 {
		return model.Assignment{}, corestore.ErrResourceConflict
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE alerts SET state = 'assigned' WHERE id = $1 AND state = 'reported'`, a.AlertID)
	if err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "transition alert", Err: err}
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "transition alert", Err: err}
	} else if n == 0 {
		return model.Assignment{}, &corestore.PersistenceError{Op: "transition alert",
			Err: fmt.Errorf("alert %d not in reported state", a.AlertID)}
	}

	a.CreatedAt = time.Now().UTC()
	err = tx.QueryRowContext(ctx,
		`INSERT INTO assignments (alert_id, resource_id, distance_m, eta_s, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.AlertID, a.ResourceID, a.DistanceM, a.ETASeconds, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "insert assignment", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "commit assign", Err: err}
	}
	return a, nil
}

func (s *PostgresStore) ResolveAlert(ctx context.Context, alertID int64) (bool, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, false, &corestore.PersistenceError{Op: "begin resolve", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx,
		`UPDATE alerts SET state = 'resolved' WHERE id = $1 AND state != 'resolved' RETURNING id`,
		alertID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, &corestore.PersistenceError{Op: "resolve alert", Err: err}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE resources SET available = TRUE
		 WHERE NOT available
		   AND id IN (SELECT resource_id FROM assignments WHERE alert_id = $1)`, alertID)
	if err != nil {
		return false, false, &corestore.PersistenceError{Op: "release resource", Err: err}
	}
	released, err := res.RowsAffected()
	if err != nil {
		return false, false, &corestore.PersistenceError{Op: "release resource", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return false, false, &corestore.PersistenceError{Op: "commit resolve", Err: err}
	}
	return true, released > 0, nil
}

func (s *PostgresStore) SeedResources(ctx context.Context, rs []model.Resource) error {
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("seed resource %q: %w", r.Name, err)
		}
		var err error
		if r.ID != 0 {
			_, err = s.db.ExecContext(ctx,
				`INSERT INTO resources (id, name, municipality, category, lat, lon, available, avg_speed_kmh, prep_delay_s)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (id) DO NOTHING`,
				r.ID, r.Name, r.Municipality, string(r.Category), r.Location.Lat, r.Location.Lon,
				r.Available, r.AvgSpeedKMH, r.PrepDelayS)
		} else {
			_, err = s.db.ExecContext(ctx,
				`INSERT INTO resources (name, municipality, category, lat, lon, available, avg_speed_kmh, prep_delay_s)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				r.Name, r.Municipality, string(r.Category), r.Location.Lat, r.Location.Lon,
				r.Available, r.AvgSpeedKMH, r.PrepDelayS)
		}
		if err != nil {
			return &corestore.PersistenceError{Op: "seed resources", Err: err}
		}
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }
