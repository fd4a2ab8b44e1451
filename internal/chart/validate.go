package chart

import (
	"fmt"
	"strings"

	"github.com/starford/orgboard/internal/models"
)

// Validate checks the structural invariants of a chart:
//   - exactly one Available Roles department with its reserved name
//   - department and level ids are non-empty, unique and free of ':'
//   - every department has at least one level
//   - role names are non-empty and unique ignoring case
func Validate(c models.Chart) error {
	available := 0
	deptIDs := make(map[string]struct{}, len(c.Departments))
	levelIDs := make(map[string]struct{})
	roles := make(map[string]string)

	for _, d := range c.Departments {
		if err := checkID("department", d.ID); err != nil {
			return err
		}
		if _, dup := deptIDs[d.ID]; dup {
			return &InvalidChartError{Reason: fmt.Sprintf("duplicate department id %q", d.ID)}
		}
		deptIDs[d.ID] = struct{}{}

		if d.ID == models.AvailableRolesID {
			available++
			if d.Name != models.AvailableRolesName {
				return &InvalidChartError{Reason: fmt.Sprintf("available roles department renamed to %q", d.Name)}
			}
		}
		if len(d.Levels) == 0 {
			return &InvalidChartError{Reason: fmt.Sprintf("department %q has no levels", d.ID)}
		}

		for _, l := range d.Levels {
			if err := checkID("level", l.ID); err != nil {
				return err
			}
			if _, dup := levelIDs[l.ID]; dup {
				return &InvalidChartError{Reason: fmt.Sprintf("duplicate level id %q", l.ID)}
			}
			levelIDs[l.ID] = struct{}{}

			for _, r := range l.Roles {
				if strings.TrimSpace(r) == "" {
					return &InvalidChartError{Reason: fmt.Sprintf("blank role in level %q", l.ID)}
				}
				key := strings.ToLower(r)
				if prev, dup := roles[key]; dup {
					return &InvalidChartError{Reason: fmt.Sprintf("role %q duplicates %q", r, prev)}
				}
				roles[key] = r
			}
		}
	}

	if available != 1 {
		return &InvalidChartError{Reason: fmt.Sprintf("expected one available roles department, found %d", available)}
	}
	return nil
}

func checkID(kind, id string) error {
	if id == "" {
		return &InvalidChartError{Reason: kind + " id is empty"}
	}
	if strings.Contains(id, ":") {
		return &InvalidChartError{Reason: fmt.Sprintf("%s id %q contains ':'", kind, id)}
	}
	return nil
}
