// Package parser converts between stored or hand-written chart documents and
// the in-memory model, and decodes the drag-and-drop slot keys.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/orgboard/internal/apperr"
	"github.com/starford/orgboard/internal/chart"
	"github.com/starford/orgboard/internal/models"
)

// DecodeSnapshot parses a persisted JSON snapshot and validates it.
// Empty input yields the default chart.
func DecodeSnapshot(data []byte) (models.Chart, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.DefaultChart(), nil
	}
	var c models.Chart
	if err := json.Unmarshal(data, &c); err != nil {
		return models.Chart{}, &chart.InvalidChartError{Reason: "decode snapshot: " + err.Error()}
	}
	c = c.Clone()
	if err := chart.Validate(c); err != nil {
		return models.Chart{}, err
	}
	return c, nil
}

// EncodeSnapshot renders the wire format. Role strings are kept verbatim.
func EncodeSnapshot(c models.Chart) ([]byte, error) {
	data, err := json.MarshalIndent(c.Clone(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("parser: encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

type seedLevel struct {
	ID    string   `yaml:"id"`
	Roles []string `yaml:"roles"`
}

type seedDepartment struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Levels []seedLevel `yaml:"levels"`
}

type seedDocument struct {
	Available   []string         `yaml:"available"`
	Departments []seedDepartment `yaml:"departments"`
}

// ParseSeed reads a hand-written chart in YAML (or JSON, which YAML
// accepts). Missing ids are generated with newID, a department without
// levels gets one empty level, and the Available Roles department is added
// when absent. Roles listed under "available" land in its first level.
func ParseSeed(data []byte, newID chart.IDGenerator) (models.Chart, error) {
	var doc seedDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return models.Chart{}, &chart.InvalidChartError{Reason: "decode seed: " + err.Error()}
	}

	var c models.Chart
	for _, sd := range doc.Departments {
		d := models.Department{ID: sd.ID, Name: strings.TrimSpace(sd.Name)}
		if d.ID == "" {
			d.ID = newID()
		}
		for _, sl := range sd.Levels {
			l := models.Level{ID: sl.ID, Roles: trimAll(sl.Roles)}
			if l.ID == "" {
				l.ID = newID()
			}
			d.Levels = append(d.Levels, l)
		}
		if len(d.Levels) == 0 {
			d.Levels = []models.Level{{ID: newID()}}
		}
		c.Departments = append(c.Departments, d)
	}

	ai := c.DepartmentIndex(models.AvailableRolesID)
	if ai < 0 {
		c.Departments = append([]models.Department{models.AvailableRolesDepartment()}, c.Departments...)
		ai = 0
	}
	first := &c.Departments[ai].Levels[0]
	first.Roles = append(first.Roles, trimAll(doc.Available)...)

	c = c.Clone()
	if err := chart.Validate(c); err != nil {
		return models.Chart{}, err
	}
	return c, nil
}

// ParseKey splits a "departmentId:levelId" slot key.
func ParseKey(key string) (departmentID, levelID string, err error) {
	departmentID, levelID, ok := strings.Cut(key, ":")
	if !ok || departmentID == "" || levelID == "" || strings.Contains(levelID, ":") {
		return "", "", fmt.Errorf("parser: malformed slot key %q: %w", key, apperr.ErrInvalid)
	}
	return departmentID, levelID, nil
}

// ParseLocation builds a Location from a slot key and a zero-based index.
func ParseLocation(key string, index int) (models.Location, error) {
	d, l, err := ParseKey(key)
	if err != nil {
		return models.Location{}, err
	}
	return models.Location{DepartmentID: d, LevelID: l, Index: index}, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
