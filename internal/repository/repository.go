// Package repository implements all database queries for the activity
// registration system. It uses pgx directly (no ORM) so the locking and
// count queries in the registration path stay visible.
package repository

import "errors"

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrStudentNotFound is returned when no student matches the public lookup.
// Unlike ErrNotFound it maps to a rejection, not a hard failure: the public
// may submit bad identifiers, activities are curated by admins.
var ErrStudentNotFound = errors.New("student not found")

// ErrAlreadyRegistered is returned when the student already holds a
// registration for the activity.
var ErrAlreadyRegistered = errors.New("already registered for this activity")

// ErrActivityFull is returned when an activity has no remaining seats.
var ErrActivityFull = errors.New("activity is full")

// ErrActivityClosed is returned when an activity no longer accepts
// registrations.
var ErrActivityClosed = errors.New("activity is closed")

// ErrGroupQuotaExceeded is returned when the student has used up the
// activity group's quota.
var ErrGroupQuotaExceeded = errors.New("group quota exceeded")

// ErrUngroupedQuotaExceeded is returned when the student has used up the
// fixed cap on ungrouped activities.
var ErrUngroupedQuotaExceeded = errors.New("ungrouped activity quota exceeded")
