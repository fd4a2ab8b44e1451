package chart

import (
	"github.com/google/uuid"

	"github.com/starford/orgboard/internal/models"
)

// IDGenerator produces opaque department and level identifiers.
// Generated ids must never contain ':'.
type IDGenerator func() string

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// AddDepartment appends a department with a single empty level. Department
// names are not checked for collisions.
func AddDepartment(c models.Chart, id, levelID, name string) models.Chart {
	out := c.Clone()
	out.Departments = append(out.Departments, models.Department{
		ID:     id,
		Name:   name,
		Levels: []models.Level{{ID: levelID, Roles: []string{}}},
	})
	return out
}

// AddLevel appends an empty level to the department with departmentID.
func AddLevel(c models.Chart, departmentID, levelID string) (models.Chart, error) {
	di := c.DepartmentIndex(departmentID)
	if di < 0 {
		return c, &UnknownDepartmentError{DepartmentID: departmentID}
	}
	out := c.Clone()
	d := &out.Departments[di]
	d.Levels = append(d.Levels, models.Level{ID: levelID, Roles: []string{}})
	return out, nil
}
