package booking

import (
	"fmt"
	"strings"
)

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusInProgress BookingStatus = "IN_PROGRESS"
	StatusCompleted  BookingStatus = "COMPLETED"
	StatusCancelled  BookingStatus = "CANCELLED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// OpenStatuses are the non-terminal statuses.
var OpenStatuses = []BookingStatus{StatusPending, StatusConfirmed, StatusInProgress}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsTerminal returns true for COMPLETED and CANCELLED.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to its canonical BookingStatus.
// Letter case is ignored, so "confirmed" and "CONFIRMED" parse the same.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
