package schedule

import "errors"

var (
	ErrInvalidSchedule = errors.New("schedule: invalid expression")
	ErrAlreadyRunning  = errors.New("schedule: a run is already in progress")
)
