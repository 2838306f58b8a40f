// Package bounty computes bounty check schedules, alerts and dashboard
// aggregates from an in-memory snapshot of sales.
//
// Every function here is pure: callers pass the sales and "today" in, and
// nothing in the package reads the clock, touches storage or mutates input.
package bounty

import (
	"fmt"
	"math"

	"bountytracker/internal/core"
)

const (
	// CheckIntervalDays is the carrier billing cadence between bounty checks.
	CheckIntervalDays = 35

	// MonthsTracked is the number of bounty checkpoints per sale.
	MonthsTracked = core.MonthsTracked

	// DefaultAlertWindowDays bounds how far ahead upcoming checks are reported.
	DefaultAlertWindowDays = 14

	// DueSoonDays is the upper bound of the due-soon bucket.
	DueSoonDays = 7
)

// Schedule is the check date of one bounty month relative to a given day.
type Schedule struct {
	MonthNumber    int
	CheckDate      core.Date
	DaysUntilCheck int
}

// CheckDate returns activation + 35*month calendar days.
func CheckDate(activation core.Date, monthNumber int) core.Date {
	return core.DateOf(activation.Time).AddDays(CheckIntervalDays * monthNumber)
}

// DaysUntilCheck returns ceil((check - today) / 1 day). Positive values are
// in the future, zero is due today and negative values are past due.
func DaysUntilCheck(check, today core.Date) int {
	diff := core.DateOf(check.Time).Sub(core.DateOf(today.Time).Time)
	return int(math.Ceil(diff.Hours() / 24))
}

// ScheduleFor parses the activation date and computes the schedule of one month.
func ScheduleFor(activationDate string, monthNumber int, today core.Date) (Schedule, error) {
	activation, err := core.ParseDate(activationDate)
	if err != nil {
		return Schedule{}, fmt.Errorf("%w: %q", core.ErrInvalidActivationDate, activationDate)
	}
	check := CheckDate(activation, monthNumber)
	return Schedule{
		MonthNumber:    monthNumber,
		CheckDate:      check,
		DaysUntilCheck: DaysUntilCheck(check, today),
	}, nil
}
