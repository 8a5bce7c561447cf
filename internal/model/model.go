// Package model defines the core domain types for the activity
// registration system.
package model

import (
	"strings"
	"time"
)

// UngroupedQuota is the fixed cap on activities without a group a single
// student may join. Grouped activities use the group's own quota instead.
const UngroupedQuota = 3

// Activity statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "close"
)

// Student is a registrant imported by an administrator.
type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Classroom string    `json:"classroom,omitempty"`
	Number    string    `json:"number"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityGroup is a named bucket of activities sharing a per-student quota
// and an optional classroom restriction.
type ActivityGroup struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Quota             int       `json:"quota"`
	AllowedClassrooms string    `json:"allowed_classrooms,omitempty"`
	IsVisible         bool      `json:"is_visible"`
	CreatedAt         time.Time `json:"created_at"`
}

// Activity is a registrable event with a seat capacity and open/closed status.
type Activity struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	MaxPeople         int        `json:"max_people"`
	Status            string     `json:"status"`
	AllowedClassrooms string     `json:"allowed_classrooms,omitempty"`
	StartTime         *time.Time `json:"start_time,omitempty"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	Color             string     `json:"color,omitempty"`
	GroupID           *string    `json:"group_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`

	// Derived fields populated by list queries, never stored.
	GroupName       string `json:"group_name,omitempty"`
	RegisteredCount int    `json:"registered_count"`
	RemainingSeats  int    `json:"remaining_seats"`
}

// IsOpen reports whether the activity accepts registrations.
func (a *Activity) IsOpen() bool {
	return a.Status == StatusOpen
}

// Remaining returns the seats left given the current registration count,
// never below zero.
func (a *Activity) Remaining(registered int) int {
	if rem := a.MaxPeople - registered; rem > 0 {
		return rem
	}
	return 0
}

// Registration links a student to an activity. The (student, activity) pair
// is unique, enforced by a storage-level constraint.
type Registration struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ActivityID string    `json:"activity_id"`
	CreatedAt  time.Time `json:"created_at"`

	// Joined student fields for admin listings and export.
	StudentName      string `json:"student_name,omitempty"`
	StudentClassroom string `json:"student_classroom,omitempty"`
	StudentNumber    string `json:"student_number,omitempty"`
	ActivityTitle    string `json:"activity_title,omitempty"`
}

// Admin is a back-office user.
type Admin struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	IsSuperuser  bool   `json:"is_superuser"`
}

// AuditEntry records an administrative or registration action.
type AuditEntry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SplitClassrooms parses a comma-delimited allow-list into trimmed labels,
// dropping empty entries.
func SplitClassrooms(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ClassroomAllowed reports whether classroom is a member of the
// comma-delimited allow-list. An empty allow-list admits everyone.
func ClassroomAllowed(allowList, classroom string) bool {
	allowed := SplitClassrooms(allowList)
	if len(allowed) == 0 {
		return true
	}
	classroom = strings.TrimSpace(classroom)
	for _, a := range allowed {
		if a == classroom {
			return true
		}
	}
	return false
}
