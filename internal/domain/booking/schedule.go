package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/campusmarket/service-booking/pkg/domain"
)

const (
	// DateLayout is the wire format of a booking date.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire format of start and end times (24h clock).
	TimeLayout = "15:04"
)

// Schedule is when a booked service takes place. Start and end times are
// optional; many campus services are booked for a day rather than a slot.
type Schedule struct {
	Date      time.Time
	StartTime *string
	EndTime   *string
}

// SchedulePatch is a partial schedule edit. Nil fields are left unchanged.
type SchedulePatch struct {
	Date      *time.Time
	StartTime *string
	EndTime   *string
}

// IsEmpty reports whether the patch changes nothing.
func (p SchedulePatch) IsEmpty() bool {
	return p.Date == nil && isBlank(p.StartTime) && isBlank(p.EndTime)
}

// NormalizeDate strips the clock component and pins the date to UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, domain.NewValidationError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return t, nil
}

func (s Schedule) merge(p SchedulePatch) Schedule {
	out := s
	if p.Date != nil {
		out.Date = NormalizeDate(*p.Date)
	}
	if !isBlank(p.StartTime) {
		v := strings.TrimSpace(*p.StartTime)
		out.StartTime = &v
	}
	if !isBlank(p.EndTime) {
		v := strings.TrimSpace(*p.EndTime)
		out.EndTime = &v
	}
	return out
}

func (s Schedule) validate() error {
	if s.Date.IsZero() {
		return domain.NewValidationError("booking date is required")
	}
	var start, end time.Time
	var err error
	if s.StartTime != nil {
		if start, err = time.Parse(TimeLayout, *s.StartTime); err != nil {
			return domain.NewValidationError(fmt.Sprintf("invalid start time %q, expected HH:MM", *s.StartTime))
		}
	}
	if s.EndTime != nil {
		if end, err = time.Parse(TimeLayout, *s.EndTime); err != nil {
			return domain.NewValidationError(fmt.Sprintf("invalid end time %q, expected HH:MM", *s.EndTime))
		}
	}
	if s.StartTime != nil && s.EndTime != nil && !end.After(start) {
		return domain.NewValidationError("end time must be after start time")
	}
	return nil
}

// checkNotPast rejects a date before today's UTC calendar date.
func (s Schedule) checkNotPast(now time.Time) error {
	if s.Date.Before(NormalizeDate(now.UTC())) {
		return domain.NewValidationError("booking date cannot be in the past")
	}
	return nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
