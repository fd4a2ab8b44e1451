package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/orgboard/internal/models"
	"github.com/starford/orgboard/internal/parser"
	"github.com/starford/orgboard/internal/session"
)

// NameRequest is the request body for creating a department or a role.
type NameRequest struct {
	Name string `json:"name" example:"Engineering" validate:"required"`
}

// Validate checks the request shape; trimming and length limits are applied
// by the session store.
func (r NameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

// Slot addresses a position by its "departmentId:levelId" key.
type Slot struct {
	Key   string `json:"key" example:"available-roles:available-roles-level-0" validate:"required"`
	Index int    `json:"index" example:"0"`
}

// Validate checks that the key is present and well formed. Index bounds are
// left to the move itself.
func (s Slot) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Key, validation.Required, validation.By(func(any) error {
			_, _, err := parser.ParseKey(s.Key)
			return err
		})),
	)
}

// Location converts the slot to a model location.
func (s Slot) Location() (models.Location, error) {
	return parser.ParseLocation(s.Key, s.Index)
}

// MoveRequest is the request body for a drag-and-drop move.
type MoveRequest struct {
	Role string `json:"role" example:"Backend" validate:"required"`
	From Slot   `json:"from" validate:"required"`
	To   Slot   `json:"to" validate:"required"`
}

// Validate checks the move request.
func (r MoveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required),
		validation.Field(&r.From),
		validation.Field(&r.To),
	)
}

// IDResponse is returned after creating a department or level.
type IDResponse struct {
	ID string `json:"id" example:"0b8f3c1e-4c52-4f7e-9d0f-3f2b8a1c6d10" validate:"required"`
}

// RoleCreatedResponse is returned after registering a role.
type RoleCreatedResponse struct {
	Name      string `json:"name" example:"Engineer" validate:"required"`
	Persisted bool   `json:"persisted" example:"true"`
}

// SearchResponse wraps role search results.
type SearchResponse struct {
	Results []models.Placement `json:"results" validate:"required"`
}

// SessionResponse is the session summary (aliased from the session layer).
type SessionResponse = session.Status
