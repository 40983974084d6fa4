package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zzzxajak-prog/FitnessApp/internal/model"
	"github.com/zzzxajak-prog/FitnessApp/internal/repository"
)

// compile-time check that *DB implements repository.Store
// If we forget a method, the build fails here instead of at the call site.
var _ repository.Store = (*DB)(nil)

// LoadCredentials returns every registered user. An empty database yields
// an empty (non-nil) table.
func (db *DB) LoadCredentials(ctx context.Context) (model.CredentialTable, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT username, password FROM credentials`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying credentials: %w", err)
	}
	// ALWAYS close rows: an open cursor pins the single connection.
	defer rows.Close()

	table := model.CredentialTable{}
	for rows.Next() {
		var username string
		var cred model.Credential
		if err := rows.Scan(&username, &cred.Password); err != nil {
			return nil, fmt.Errorf("sqlite: scanning credential: %w", err)
		}
		table[username] = cred
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating credentials: %w", err)
	}
	return table, nil
}

// SaveCredentials replaces the stored table with table.
//
// The JSON backend rewrites the whole file, so this does the same inside a
// transaction: users missing from table are removed.
func (db *DB) SaveCredentials(ctx context.Context, table model.CredentialTable) error {
	return db.inTx(ctx, "credentials", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
			return err
		}
		for username, cred := range table {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO credentials (username, password) VALUES (?, ?)`,
				username, cred.Password,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSnapshot returns the last saved snapshot, or model.DefaultSnapshot()
// when nothing has been saved yet.
//
// Rows edited by hand are repaired rather than rejected: negative metrics
// become zero and unknown goal periods fall back to model.DefaultPeriod.
func (db *DB) LoadSnapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	err := db.conn.QueryRowContext(ctx,
		`SELECT username, water_intake, total_calories, steps FROM snapshot WHERE id = 1`,
	).Scan(&snap.Username, &snap.WaterIntake, &snap.TotalCalories, &snap.Steps)

	// sql.ErrNoRows is not a failure here: it just means no save happened yet.
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSnapshot(), nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("sqlite: querying snapshot: %w", err)
	}

	if snap.Username == "" {
		snap.Username = model.GuestUsername
	}
	for _, v := range []*float64{&snap.WaterIntake, &snap.TotalCalories, &snap.Steps} {
		if *v < 0 {
			db.logger.Warn("repairing negative metric in snapshot", slog.Float64("value", *v))
			*v = 0
		}
	}

	goals, err := db.loadGoals(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap.Goals = goals
	return snap, nil
}

func (db *DB) loadGoals(ctx context.Context) ([]model.Goal, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT description, value, period, advice FROM goals
		 WHERE snapshot_id = 1 ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying goals: %w", err)
	}
	defer rows.Close()

	// Non-nil so an empty list is distinguishable from "no goals column".
	goals := []model.Goal{}
	for rows.Next() {
		var g model.Goal
		var period string
		if err := rows.Scan(&g.Desc, &g.Value, &period, &g.Advice); err != nil {
			return nil, fmt.Errorf("sqlite: scanning goal: %w", err)
		}
		g.Period = model.Period(period)
		if !g.Period.Valid() {
			db.logger.Warn("unknown goal period, using default",
				slog.String("period", period),
				slog.String("goal", g.Desc),
			)
			g.Period = model.DefaultPeriod
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating goals: %w", err)
	}
	return goals, nil
}

// SaveSnapshot replaces the stored snapshot, goals included, in one
// transaction.
func (db *DB) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	return db.inTx(ctx, "snapshot", func(tx *sql.Tx) error {
		// UPSERT keeps the row (and its id) stable across saves.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot (id, username, water_intake, total_calories, steps, updated_at)
			VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET
				username       = excluded.username,
				water_intake   = excluded.water_intake,
				total_calories = excluded.total_calories,
				steps          = excluded.steps,
				updated_at     = excluded.updated_at`,
			snap.Username, snap.WaterIntake, snap.TotalCalories, snap.Steps,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE snapshot_id = 1`); err != nil {
			return err
		}
		for i, g := range snap.Goals {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO goals (snapshot_id, position, description, value, period, advice)
				 VALUES (1, ?, ?, ?, ?, ?)`,
				i, g.Desc, g.Value, string(g.Period), g.Advice,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// inTx runs fn in a transaction, committing on success and rolling back on
// any error. what names the data being written, for error messages.
func (db *DB) inTx(ctx context.Context, what string, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning %s transaction: %w", what, err)
	}
	// Rollback after a successful Commit is a no-op (returns sql.ErrTxDone).
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return fmt.Errorf("sqlite: writing %s: %w", what, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing %s: %w", what, err)
	}
	return nil
}
