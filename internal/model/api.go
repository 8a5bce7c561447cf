package model

import "time"

// MessageCode identifies the outcome of a registration attempt. The engine
// returns codes only; callers render localized text.
type MessageCode string

const (
	CodeRegistered             MessageCode = "registered"
	CodeStudentNotFound        MessageCode = "student_not_found"
	CodeAlreadyRegistered      MessageCode = "already_registered"
	CodeClassroomNotAllowed    MessageCode = "classroom_not_allowed"
	CodeNotYetOpen             MessageCode = "not_yet_open"
	CodeWindowClosed           MessageCode = "window_closed"
	CodeGroupQuotaExceeded     MessageCode = "group_quota_exceeded"
	CodeUngroupedQuotaExceeded MessageCode = "ungrouped_quota_exceeded"
	CodeActivityClosed         MessageCode = "activity_closed"
	CodeActivityFull           MessageCode = "activity_full"
)

// Rejection is a structured refusal of a registration attempt. Code is always
// set; the remaining fields carry whatever data the failed rule produced so a
// caller can render a precise message.
type Rejection struct {
	Code MessageCode `json:"code"`

	GroupName         string     `json:"group_name,omitempty"`
	Quota             int        `json:"quota,omitempty"`
	AllowedClassrooms []string   `json:"allowed_classrooms,omitempty"`
	OpensAt           *time.Time `json:"opens_at,omitempty"`
	ClosesAt          *time.Time `json:"closes_at,omitempty"`
}

// RegisterRequest is the public registration payload. Number is preferred for
// the student lookup; Name is the fallback when Number is absent.
type RegisterRequest struct {
	Name       string `json:"name"`
	Classroom  string `json:"classroom"`
	Number     string `json:"number"`
	ActivityID string `json:"activity_id" validate:"required"`
}

// RegisterResult is the outcome of a registration attempt.
type RegisterResult struct {
	Success        bool        `json:"success"`
	Code           MessageCode `json:"message_code"`
	Message        string      `json:"message,omitempty"`
	Rejection      *Rejection  `json:"rejection,omitempty"`
	RemainingSeats *int        `json:"remaining_seats"`
}

// CreateActivityRequest is the admin payload for creating an activity.
type CreateActivityRequest struct {
	Title             string     `json:"title" validate:"required"`
	Description       string     `json:"description"`
	MaxPeople         int        `json:"max_people" validate:"gte=0"`
	Status            string     `json:"status" validate:"omitempty,oneof=open close"`
	AllowedClassrooms string     `json:"allowed_classrooms"`
	StartTime         *time.Time `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	Color             string     `json:"color"`
	GroupID           *string    `json:"group_id"`
}

// UpdateActivityRequest carries partial updates; nil fields are left as-is.
type UpdateActivityRequest struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	MaxPeople         *int       `json:"max_people" validate:"omitempty,gte=0"`
	Status            *string    `json:"status" validate:"omitempty,oneof=open close"`
	AllowedClassrooms *string    `json:"allowed_classrooms"`
	StartTime         *time.Time `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	Color             *string    `json:"color"`
	GroupID           *string    `json:"group_id"`
}

// CreateGroupRequest is the admin payload for creating an activity group.
type CreateGroupRequest struct {
	Name              string `json:"name" validate:"required"`
	Quota             int    `json:"quota" validate:"gte=1"`
	AllowedClassrooms string `json:"allowed_classrooms"`
	IsVisible         *bool  `json:"is_visible"`
}

// UpdateStudentRequest carries partial student updates.
type UpdateStudentRequest struct {
	Name      *string `json:"name"`
	Classroom *string `json:"classroom"`
	Number    *string `json:"number"`
}

// LoginRequest is the admin credential payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Token is the admin login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// DashboardStats summarises the system for the admin dashboard.
type DashboardStats struct {
	TotalStudents      int        `json:"total_students"`
	TotalRegistrations int        `json:"total_registrations"`
	Activities         []Activity `json:"activities"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
