package scheduler

import "errors"

// ErrInvalidSchedule is returned for cron expressions the scheduler cannot run.
var ErrInvalidSchedule = errors.New("invalid schedule")
