package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownStatus is returned for log status strings the client does not know.
var ErrUnknownStatus = errors.New("unknown log status")

type Habit struct {
	ID          int64
	Name        string
	Description string
	Active      bool
	Created     time.Time
	Streak      int // server computed
}

type HabitLog struct {
	ID      int64
	HabitID int64
	Date    time.Time
	Status  LogStatus
	Notes   string
}

// LogStatus is the completion state recorded for one habit on one day.
type LogStatus int

const (
	LogNotDone LogStatus = iota
	LogPartial
	LogCompleted
)

// LogStatuses lists every status in form order.
var LogStatuses = []LogStatus{LogCompleted, LogPartial, LogNotDone}

func ParseLogStatus(s string) (LogStatus, error) {
	switch s {
	case "completed":
		return LogCompleted, nil
	case "partial":
		return LogPartial, nil
	case "not_done":
		return LogNotDone, nil
	}
	return LogNotDone, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// String returns the wire form used by the API.
func (s LogStatus) String() string {
	switch s {
	case LogCompleted:
		return "completed"
	case LogPartial:
		return "partial"
	default:
		return "not_done"
	}
}

func (s LogStatus) Label() string {
	switch s {
	case LogCompleted:
		return "Completed"
	case LogPartial:
		return "Partial"
	default:
		return "Not done"
	}
}

// DisplayStatus is what a calendar cell shows.
type DisplayStatus int

const (
	DisplayFuture DisplayStatus = iota
	DisplayBeforeCreation
	DisplayNotDone
	DisplayPartial
	DisplayCompleted
)

func displayFromLog(s LogStatus) DisplayStatus {
	switch s {
	case LogCompleted:
		return DisplayCompleted
	case LogPartial:
		return DisplayPartial
	default:
		return DisplayNotDone
	}
}

func (s DisplayStatus) String() string {
	switch s {
	case DisplayFuture:
		return "future"
	case DisplayBeforeCreation:
		return "before_creation"
	case DisplayNotDone:
		return "not_done"
	case DisplayPartial:
		return "partial"
	case DisplayCompleted:
		return "completed"
	}
	return fmt.Sprintf("DisplayStatus(%d)", int(s))
}
