package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule determines when a periodic task should run
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

// intervalSchedule runs at fixed intervals
type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}

// dailySchedule runs once per day at specified time
type dailySchedule struct {
	hour   int
	minute int
}

func (s dailySchedule) Next(from time.Time) time.Time {
	next := time.Date(
		from.Year(), from.Month(), from.Day(),
		s.hour, s.minute, 0, 0, from.Location(),
	)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s dailySchedule) String() string {
	return fmt.Sprintf("daily@%02d:%02d", s.hour, s.minute)
}

// hourlySchedule runs every hour at specified minute
type hourlySchedule struct {
	minute int
}

func (s hourlySchedule) Next(from time.Time) time.Time {
	next := time.Date(
		from.Year(), from.Month(), from.Day(),
		from.Hour(), s.minute, 0, 0, from.Location(),
	)
	if !next.After(from) {
		next = next.Add(time.Hour)
	}
	return next
}

func (s hourlySchedule) String() string {
	return fmt.Sprintf("hourly@%02d", s.minute)
}

// Every creates a schedule that runs at fixed intervals
func Every(d time.Duration) Schedule {
	return intervalSchedule{every: d}
}

// DailyAt creates a schedule that runs daily at specified time
func DailyAt(hour, minute int) Schedule {
	return dailySchedule{hour: hour, minute: minute}
}

// HourlyAt creates a schedule that runs every hour at specified minute
func HourlyAt(minute int) Schedule {
	return hourlySchedule{minute: minute}
}

// Parse reads a schedule expression:
//
//	daily@HH:MM   once a day
//	hourly@MM     once an hour
//	every 15m     fixed interval, any time.ParseDuration value
func Parse(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(expr, "daily@"):
		hh, mm, ok := strings.Cut(strings.TrimPrefix(expr, "daily@"), ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, expr)
		}
		hour, err1 := strconv.Atoi(hh)
		minute, err2 := strconv.Atoi(mm)
		if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, expr)
		}
		return DailyAt(hour, minute), nil

	case strings.HasPrefix(expr, "hourly@"):
		minute, err := strconv.Atoi(strings.TrimPrefix(expr, "hourly@"))
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, expr)
		}
		return HourlyAt(minute), nil

	case strings.HasPrefix(expr, "every "):
		d, err := time.ParseDuration(strings.TrimSpace(strings.TrimPrefix(expr, "every ")))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, expr)
		}
		return Every(d), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, expr)
}
