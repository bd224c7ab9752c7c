package models

import (
	"time"

	"github.com/google/uuid"
)

type Location struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description"`
	ParentID    *uuid.UUID `json:"parentId"`
	SortOrder   int        `json:"sortOrder"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// LocationRef is a location with its parent, as embedded in other resources.
type LocationRef struct {
	ID     uuid.UUID    `json:"id"`
	Name   string       `json:"name"`
	Slug   string       `json:"slug"`
	Parent *LocationRef `json:"parent,omitempty"`
}

type UserLocation struct {
	UserID    uuid.UUID   `json:"userId"`
	Location  LocationRef `json:"location"`
	IsPublic  bool        `json:"isPublic"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type SetLocationRequest struct {
	LocationID string `json:"locationId"`
}
