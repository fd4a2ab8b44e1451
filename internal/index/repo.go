package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/orgboard/internal/apperr"
	"github.com/starford/orgboard/internal/checksum"
	"github.com/starford/orgboard/internal/models"
	"github.com/starford/orgboard/internal/parser"
)

// Load returns the stored snapshot, or the default chart when none was saved.
func (db *DB) Load(ctx context.Context) (models.Chart, error) {
	var body string
	err := db.conn.QueryRowContext(ctx, `SELECT body FROM chart_snapshot WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultChart(), nil
	}
	if err != nil {
		return models.Chart{}, fmt.Errorf("index: load snapshot: %w", err)
	}
	return parser.DecodeSnapshot([]byte(body))
}

// Save replaces the snapshot and rebuilds the placement projection within a
// transaction.
func (db *DB) Save(ctx context.Context, c models.Chart) error {
	data, err := parser.EncodeSnapshot(c)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chart_snapshot (id, body, checksum, saved_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			body     = excluded.body,
			checksum = excluded.checksum,
			saved_at = excluded.saved_at
	`, string(data), checksum.Sum(data))
	if err != nil {
		return fmt.Errorf("index: upsert snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_placements`); err != nil {
		return fmt.Errorf("index: clear placements: %w", err)
	}
	if err := ftsReset(tx); err != nil {
		return err
	}

	placements := c.Placements()
	if len(placements) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO role_placements
				(role_key, role, department_id, department_name, level_id, level_number, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare placement insert: %w", err)
		}
		defer stmt.Close()
		for _, p := range placements {
			if _, err := stmt.ExecContext(ctx, roleKey(p.Role), p.Role, p.DepartmentID,
				p.DepartmentName, p.LevelID, p.LevelNumber, p.Index); err != nil {
				return fmt.Errorf("index: insert placement %q: %w", p.Role, err)
			}
			if err := ftsInsert(tx, p); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// Placement returns where role sits in the saved snapshot, ignoring case.
func (db *DB) Placement(ctx context.Context, role string) (models.Placement, error) {
	var p models.Placement
	err := db.conn.QueryRowContext(ctx, `
		SELECT role, department_id, department_name, level_id, level_number, position
		FROM role_placements WHERE role_key = ?
	`, roleKey(role)).Scan(&p.Role, &p.DepartmentID, &p.DepartmentName, &p.LevelID, &p.LevelNumber, &p.Index)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Placement{}, fmt.Errorf("index: role %q: %w", role, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Placement{}, fmt.Errorf("index: placement: %w", err)
	}
	return p, nil
}

// Checksum returns the checksum of the saved snapshot, or "" when none exists.
func (db *DB) Checksum(ctx context.Context) (string, error) {
	var cs string
	err := db.conn.QueryRowContext(ctx, `SELECT checksum FROM chart_snapshot WHERE id = 1`).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

func roleKey(role string) string {
	return strings.ToLower(role)
}

func scanPlacements(rows *sql.Rows) ([]models.Placement, error) {
	defer rows.Close()
	var out []models.Placement
	for rows.Next() {
		var p models.Placement
		if err := rows.Scan(&p.Role, &p.DepartmentID, &p.DepartmentName, &p.LevelID, &p.LevelNumber, &p.Index); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
