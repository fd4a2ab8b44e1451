//go:build sqlite_fts5

package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/orgboard/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS roles_fts USING fts5(
			role_key UNINDEXED,
			role,
			department,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsReset(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM roles_fts`); err != nil {
		return fmt.Errorf("index: reset fts: %w", err)
	}
	return nil
}

func ftsInsert(tx *sql.Tx, p models.Placement) error {
	_, err := tx.Exec(`INSERT INTO roles_fts (role_key, role, department) VALUES (?, ?, ?)`,
		roleKey(p.Role), p.Role, p.DepartmentName)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 prefix search over role and department names.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]models.Placement, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT p.role, p.department_id, p.department_name, p.level_id, p.level_number, p.position
		FROM roles_fts f
		JOIN role_placements p ON p.role_key = f.role_key
		WHERE roles_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, matchExpr(query), limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanPlacements(rows)
}

// matchExpr turns free text into a prefix query, one quoted term per word.
func matchExpr(query string) string {
	words := strings.Fields(query)
	if len(words) == 0 {
		return `""`
	}
	terms := make([]string, len(words))
	for i, w := range words {
		terms[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"*`
	}
	return strings.Join(terms, " ")
}
