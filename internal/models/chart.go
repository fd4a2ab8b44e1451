// Package models defines the domain types for Orgboard.
package models

// Reserved identifiers of the Available Roles department. They never change
// and are never generated, so a fresh chart is identical across processes.
const (
	AvailableRolesID      = "available-roles"
	AvailableRolesName    = "Available Roles"
	AvailableRolesLevelID = "available-roles-level-0"
)

// Level is one tier of a department. Role order is the visual stacking order.
type Level struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

// Department groups ordered levels under a display name.
type Department struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Levels []Level `json:"levels"`
}

// Chart is the complete organizational structure. It always holds exactly one
// Available Roles department; the fixed Admin role is not part of it.
type Chart struct {
	Departments []Department `json:"departments"`
}

// Location addresses a single slot in the chart.
type Location struct {
	DepartmentID string `json:"department_id"`
	LevelID      string `json:"level_id"`
	Index        int    `json:"index"`
}

// Key returns the composite "departmentId:levelId" key used by the
// drag-and-drop controller.
func (l Location) Key() string {
	return l.DepartmentID + ":" + l.LevelID
}

// DefaultChart returns the chart used when no snapshot has been saved yet.
func DefaultChart() Chart {
	return Chart{
		Departments: []Department{AvailableRolesDepartment()},
	}
}

// AvailableRolesDepartment returns an empty Available Roles department.
func AvailableRolesDepartment() Department {
	return Department{
		ID:   AvailableRolesID,
		Name: AvailableRolesName,
		Levels: []Level{
			{ID: AvailableRolesLevelID, Roles: []string{}},
		},
	}
}

// Clone returns a deep copy. Nil role and level slices come back empty so the
// wire format always carries arrays.
func (c Chart) Clone() Chart {
	out := Chart{Departments: make([]Department, len(c.Departments))}
	for i, d := range c.Departments {
		nd := Department{ID: d.ID, Name: d.Name, Levels: make([]Level, len(d.Levels))}
		for j, l := range d.Levels {
			roles := make([]string, len(l.Roles))
			copy(roles, l.Roles)
			nd.Levels[j] = Level{ID: l.ID, Roles: roles}
		}
		out.Departments[i] = nd
	}
	return out
}

// DepartmentIndex returns the position of the department with id, or -1.
func (c Chart) DepartmentIndex(id string) int {
	for i := range c.Departments {
		if c.Departments[i].ID == id {
			return i
		}
	}
	return -1
}

// LevelIndex returns the position of the level with id, or -1.
func (d Department) LevelIndex(id string) int {
	for i := range d.Levels {
		if d.Levels[i].ID == id {
			return i
		}
	}
	return -1
}

// RoleCount returns the number of placed roles across all departments.
func (c Chart) RoleCount() int {
	n := 0
	for _, d := range c.Departments {
		for _, l := range d.Levels {
			n += len(l.Roles)
		}
	}
	return n
}

// Equal reports whether two charts are structurally identical. Nil and empty
// role slices compare equal.
func (c Chart) Equal(o Chart) bool {
	if len(c.Departments) != len(o.Departments) {
		return false
	}
	for i, d := range c.Departments {
		od := o.Departments[i]
		if d.ID != od.ID || d.Name != od.Name || len(d.Levels) != len(od.Levels) {
			return false
		}
		for j, l := range d.Levels {
			ol := od.Levels[j]
			if l.ID != ol.ID || len(l.Roles) != len(ol.Roles) {
				return false
			}
			for k := range l.Roles {
				if l.Roles[k] != ol.Roles[k] {
					return false
				}
			}
		}
	}
	return true
}

// Placement is a role together with where it currently sits.
type Placement struct {
	Role           string `json:"role"`
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	LevelID        string `json:"level_id"`
	// LevelNumber is the zero-based position of the level in its department.
	LevelNumber int `json:"level_number"`
	Index       int `json:"index"`
}

// Location returns the slot the placement refers to.
func (p Placement) Location() Location {
	return Location{DepartmentID: p.DepartmentID, LevelID: p.LevelID, Index: p.Index}
}

// Placements flattens the chart in department, level, role order.
func (c Chart) Placements() []Placement {
	var out []Placement
	for _, d := range c.Departments {
		for n, l := range d.Levels {
			for i, r := range l.Roles {
				out = append(out, Placement{
					Role:           r,
					DepartmentID:   d.ID,
					DepartmentName: d.Name,
					LevelID:        l.ID,
					LevelNumber:    n,
					Index:          i,
				})
			}
		}
	}
	return out
}
