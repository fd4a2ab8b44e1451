//go:build !sqlite_fts5

package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/orgboard/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on role_placements.role_key.
	return nil
}

func ftsReset(_ *sql.Tx) error { return nil }

func ftsInsert(_ *sql.Tx, _ models.Placement) error { return nil }

// Search returns roles whose name contains query, ignoring case
// (LIKE fallback when FTS5 is not compiled in).
func (db *DB) Search(ctx context.Context, query string, limit int) ([]models.Placement, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT p.role, p.department_id, p.department_name, p.level_id, p.level_number, p.position
		FROM role_placements p
		WHERE p.role_key LIKE ? ESCAPE '\'
		ORDER BY p.department_name, p.level_number, p.position
		LIMIT ?
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanPlacements(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
