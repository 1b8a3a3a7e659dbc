package organization

import (
	"fmt"
	"time"

	"events_api/internal/apperr"
)

// TaskKind identifies deferred organization creations in the task registry.
const TaskKind = "organization.create"

var ErrNotFound = fmt.Errorf("organization %w", apperr.ErrNotFound)

type Organization struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Code      *string   `json:"code"`
	Category  *string   `json:"category"`
}

// Input is the client supplied part of an organization, used for both create
// and replace. Id and created_at are always assigned by the store.
type Input struct {
	Name     string  `json:"name" binding:"required,min=1,max=255"`
	Code     *string `json:"code" binding:"omitempty,max=255"`
	Category *string `json:"category" binding:"omitempty,max=255"`
}

// Filter holds the optional list filters. Name is a case-insensitive
// substring match, the others are exact.
type Filter struct {
	Name     string `form:"name"`
	Category string `form:"category"`
	Code     string `form:"code"`
}
