package scheduler

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCronSchedule extracts the hour and minute of a daily cron expression
// "minute hour * * *". Day, month and weekday fields must be "*".
func ParseCronSchedule(expr string) (hour, minute int, err error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return 0, 0, fmt.Errorf("%w: %q must have 5 fields", ErrInvalidSchedule, expr)
	}
	for _, p := range parts[2:] {
		if p != "*" {
			return 0, 0, fmt.Errorf("%w: %q only daily schedules are supported", ErrInvalidSchedule, expr)
		}
	}

	minute, err = parseField(parts[0], 59)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: minute: %v", ErrInvalidSchedule, err)
	}
	hour, err = parseField(parts[1], 23)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: hour: %v", ErrInvalidSchedule, err)
	}
	return hour, minute, nil
}

func parseField(s string, max int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 || v > max {
		return 0, fmt.Errorf("must be 0-%d, got %d", max, v)
	}
	return v, nil
}
