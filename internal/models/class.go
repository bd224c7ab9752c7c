package models

import (
	"time"

	"github.com/google/uuid"
)

type Class struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Section   *string   `json:"section"`
	Semester  string    `json:"semester"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type ClassListItem struct {
	Class
	MemberCount int        `json:"memberCount"`
	IsJoined    bool       `json:"isJoined"`
	ChatRoomID  *uuid.UUID `json:"chatRoomId"`
}

type ClassFilter struct {
	Search     string
	Semester   string
	JoinedOnly bool
	Page       int
	Limit      int
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type ClassList struct {
	Classes    []ClassListItem `json:"classes"`
	Pagination Pagination      `json:"pagination"`
}

type ClassMembershipRequest struct {
	ClassID string `json:"classId"`
}

type JoinClassResult struct {
	Success    bool      `json:"success"`
	ClassID    uuid.UUID `json:"classId"`
	ChatRoomID uuid.UUID `json:"chatRoomId"`
}
