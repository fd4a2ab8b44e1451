// Package chart implements the org-chart rules: role-name uniqueness, move
// reconciliation and structural validation. Every function is pure; inputs
// are never mutated and results never alias them.
package chart

import (
	"strings"

	"github.com/starford/orgboard/internal/models"
)

// Lookup finds a role by case-insensitive name and returns its location and
// stored spelling.
func Lookup(c models.Chart, name string) (models.Location, string, bool) {
	for _, d := range c.Departments {
		for _, l := range d.Levels {
			for i, r := range l.Roles {
				if strings.EqualFold(r, name) {
					return models.Location{DepartmentID: d.ID, LevelID: l.ID, Index: i}, r, true
				}
			}
		}
	}
	return models.Location{}, "", false
}

// Exists reports whether any level holds name, ignoring case.
func Exists(c models.Chart, name string) bool {
	_, _, ok := Lookup(c, name)
	return ok
}

// Register appends name to the first level of the Available Roles department.
// The name is stored verbatim.
func Register(c models.Chart, name string) (models.Chart, error) {
	if _, existing, ok := Lookup(c, name); ok {
		return c, &DuplicateRoleError{Name: name, Existing: existing}
	}
	di := c.DepartmentIndex(models.AvailableRolesID)
	if di < 0 || len(c.Departments[di].Levels) == 0 {
		return c, &InvalidChartError{Reason: "available roles department is missing"}
	}
	out := c.Clone()
	first := &out.Departments[di].Levels[0]
	first.Roles = append(first.Roles, name)
	return out, nil
}

// Search returns the placements whose role name contains query, ignoring
// case, in chart order. A limit <= 0 means no limit.
func Search(c models.Chart, query string, limit int) []models.Placement {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []models.Placement
	for _, p := range c.Placements() {
		if !strings.Contains(strings.ToLower(p.Role), q) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
