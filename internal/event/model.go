package event

import (
	"fmt"
	"time"

	"events_api/internal/apperr"
)

// TaskKind identifies deferred event creations in the task registry.
const TaskKind = "event.create"

var ErrNotFound = fmt.Errorf("event %w", apperr.ErrNotFound)

type Event struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Code      *string   `json:"code"`
	StartTime *string   `json:"start_time"`
	EndTime   *string   `json:"end_time"`
	Date      *string   `json:"date"`
	Location  *string   `json:"location"`
}

// Input is the client supplied part of an event. Date, when present, is a
// calendar date in YYYY-MM-DD form.
type Input struct {
	Name      string  `json:"name" binding:"required,min=1,max=255"`
	Code      *string `json:"code" binding:"omitempty,max=255"`
	StartTime *string `json:"start_time" binding:"omitempty,max=64"`
	EndTime   *string `json:"end_time" binding:"omitempty,max=64"`
	Date      *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Location  *string `json:"location" binding:"omitempty,max=255"`
}

// Filter holds the optional list filters. Name and Location are
// case-insensitive substring matches, Date is exact.
type Filter struct {
	Name     string `form:"name"`
	Date     string `form:"date" binding:"omitempty,datetime=2006-01-02"`
	Location string `form:"location"`
}
