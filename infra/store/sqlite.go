package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/acasal/alertd/core/model"
	corestore "github.com/acasal/alertd/core/store"
)

// SQLiteStore is the embedded backend. A single connection serializes
// writers, so the conditional availability update keeps assignments
// mutually exclusive without further locking.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures the
// schema. Use ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id TEXT NOT NULL,
			category TEXT NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			state TEXT NOT NULL DEFAULT 'reported',
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS resources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			municipality TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			available INTEGER NOT NULL DEFAULT 1,
			avg_speed_kmh REAL NOT NULL,
			prep_delay_s INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			alert_id INTEGER NOT NULL REFERENCES alerts(id),
			resource_id INTEGER NOT NULL REFERENCES resources(id),
			distance_m REAL NOT NULL,
			eta_s INTEGER NOT NULL,
			created_at DATETIME NOT NULL
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

func (s *SQLiteStore) CreateAlert(ctx context.Context, a *model.Alert) error {
	a.State = model.StateReported
	a.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (source_id, category, lat, lon, state, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.SourceID, string(a.Category), a.Location.Lat, a.Location.Lon, string(a.State), a.CreatedAt)
	if err != nil {
		return &corestore.PersistenceError{Op: "create alert", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return &corestore.PersistenceError{Op: "create alert", Err: err}
	}
	a.ID = id
	return nil
}

func (s *SQLiteStore) GetAlert(ctx context.Context, id int64) (model.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_id, category, lat, lon, state, created_at FROM alerts WHERE id = ?`, id)
	return scanAlert(row)
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, f corestore.AlertFilter) ([]model.Alert, error) {
	query := `SELECT id, source_id, category, lat, lon, state, created_at FROM alerts`
	var args []any
	if f.State != "" {
		query += ` WHERE state = ?`
		args = append(args, string(f.State))
	}
	query += ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &corestore.PersistenceError{Op: "list alerts", Err: err}
	}
	defer func() { _ = rows.Close() }()
	return collectAlerts(rows)
}

func (s *SQLiteStore) AvailableResources(ctx context.Context, c model.Category) ([]model.Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, municipality, category, lat, lon, available, avg_speed_kmh, prep_delay_s
		 FROM resources WHERE category = ? AND available = 1 ORDER BY id`, string(c))
	if err != nil {
		return nil, &corestore.PersistenceError{Op: "query resources", Err: err}
	}
	defer func() { _ = rows.Close() }()
	return collectResources(rows)
}

// Assign claims the resource, records the assignment and transitions the
// alert, all in one transaction. The conditional update on the
// availability flag is what detects a concurrent claim.
func (s *SQLiteStore) Assign(ctx context.Context, a model.Assignment) (model.Assignment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "begin assign", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE resources SET available = 0 WHERE id = ? AND available = 1`, a.ResourceID)
	if err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "claim resource", Err: err}
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "claim resource", Err: err}
	} else if n == 0 {
		return model.Assignment{}, corestore.ErrResourceConflict
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE alerts SET state = 'assigned' WHERE id = ? AND state = 'reported'`, a.AlertID)
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
	ins, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (alert_id, resource_id, distance_m, eta_s, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.AlertID, a.ResourceID, a.DistanceM, a.ETASeconds, a.CreatedAt)
	if err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "insert assignment", Err: err}
	}
	if a.ID, err = ins.LastInsertId(); err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "insert assignment", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return model.Assignment{}, &corestore.PersistenceError{Op: "commit assign", Err: err}
	}
	return a, nil
}

// ResolveAlert transitions the alert to resolved and releases a held
// resource atomically; an observer never sees one without the other.
func (s *SQLiteStore) ResolveAlert(ctx context.Context, alertID int64) (bool, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, false, &corestore.PersistenceError{Op: "begin resolve", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE alerts SET state = 'resolved' WHERE id = ? AND state != 'resolved'`, alertID)
	if err != nil {
		return false, false, &corestore.PersistenceError{Op: "resolve alert", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, false, &corestore.PersistenceError{Op: "resolve alert", Err: err}
	}
	if n == 0 {
		return false, false, nil
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE resources SET available = 1
		 WHERE available = 0
		   AND id IN (SELECT resource_id FROM assignments WHERE alert_id = ?)`, alertID)
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

func (s *SQLiteStore) SeedResources(ctx context.Context, rs []model.Resource) error {
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("seed resource %q: %w", r.Name, err)
		}
		available := 0
		if r.Available {
			available = 1
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO resources (id, name, municipality, category, lat, lon, available, avg_speed_kmh, prep_delay_s)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullableID(r.ID), r.Name, r.Municipality, string(r.Category), r.Location.Lat, r.Location.Lon,
			available, r.AvgSpeedKMH, r.PrepDelayS)
		if err != nil {
			return &corestore.PersistenceError{Op: "seed resources", Err: err}
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// nullableID lets the database assign an identifier when the seed omits
// one.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (model.Alert, error) {
	var a model.Alert
	var cat, state string
	err := row.Scan(&a.ID, &a.SourceID, &cat, &a.Location.Lat, &a.Location.Lon, &state, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Alert{}, corestore.ErrNotFound
	}
	if err != nil {
		return model.Alert{}, &corestore.PersistenceError{Op: "scan alert", Err: err}
	}
	a.Category = model.Category(cat)
	a.State = model.AlertState(state)
	return a, nil
}

func collectAlerts(rows *sql.Rows) ([]model.Alert, error) {
	var out []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &corestore.PersistenceError{Op: "iterate alerts", Err: err}
	}
	return out, nil
}

func collectResources(rows *sql.Rows) ([]model.Resource, error) {
	var out []model.Resource
	for rows.Next() {
		var r model.Resource
		var cat string
		if err := rows.Scan(&r.ID, &r.Name, &r.Municipality, &cat, &r.Location.Lat, &r.Location.Lon,
			&r.Available, &r.AvgSpeedKMH, &r.PrepDelayS); err != nil {
			return nil, &corestore.PersistenceError{Op: "scan resource", Err: err}
		}
		r.Category = model.Category(cat)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &corestore.PersistenceError{Op: "iterate resources", Err: err}
	}
	return out, nil
}
