package chart

import (
	"github.com/starford/orgboard/internal/models"
)

// Move relocates role from one slot to another and returns the new chart.
//
// to.Index is the position the role occupies after the move, counted in the
// destination level once the role has left its source. Indices past the end
// append and negative indices insert at the front. A move onto its own slot
// returns an equal chart.
//
// The move is all-or-nothing: on error the input chart is returned untouched.
func Move(c models.Chart, role string, from, to models.Location) (models.Chart, error) {
	fd := c.DepartmentIndex(from.DepartmentID)
	if fd < 0 {
		return c, &StaleMoveError{Role: role, From: from}
	}
	fl := c.Departments[fd].LevelIndex(from.LevelID)
	if fl < 0 {
		return c, &StaleMoveError{Role: role, From: from}
	}
	src := c.Departments[fd].Levels[fl].Roles
	if from.Index < 0 || from.Index >= len(src) || src[from.Index] != role {
		return c, &StaleMoveError{Role: role, From: from}
	}

	td := c.DepartmentIndex(to.DepartmentID)
	if td < 0 {
		return c, &UnknownTargetError{DepartmentID: to.DepartmentID, LevelID: to.LevelID}
	}
	tl := c.Departments[td].LevelIndex(to.LevelID)
	if tl < 0 {
		return c, &UnknownTargetError{DepartmentID: to.DepartmentID, LevelID: to.LevelID}
	}

	sameLevel := fd == td && fl == tl
	if sameLevel && from.Index == to.Index {
		return c.Clone(), nil
	}

	out := c.Clone()
	srcLevel := &out.Departments[fd].Levels[fl]
	srcLevel.Roles = removeAt(srcLevel.Roles, from.Index)

	// The destination slice is measured after removal, so a same-level move
	// towards the end is already compensated for the left shift.
	dst := &out.Departments[td].Levels[tl]
	at := min(max(to.Index, 0), len(dst.Roles))
	dst.Roles = insertAt(dst.Roles, at, role)
	return out, nil
}

func removeAt(s []string, i int) []string {
	out := make([]string, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func insertAt(s []string, i int, v string) []string {
	out := make([]string, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	return append(out, s[i:]...)
}
