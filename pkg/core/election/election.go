package election

import (
	"math"
	"time"
)

// Type is a Danish election type; each type carries its own poster
// hanging-window rules.
type Type string

const (
	Kommunal   Type = "kommunal"
	Regional   Type = "regional"
	Folketings Type = "folketings"
	Europa     Type = "europa"
)

func (t Type) IsValid() bool {
	switch t {
	case Kommunal, Regional, Folketings, Europa:
		return true
	}
	return false
}

// Posters must be down 8 days after election day for every election type
const removalDays = 8

// daysBefore is a descriptive constant per type, used for display only; the
// actual window start is computed from the calendar, not from this value.
var daysBefore = map[Type]int{
	Kommunal:   28,
	Regional:   28,
	Folketings: 21,
	Europa:     28,
}

// HangingPeriod is the legally permitted hanging/removal window for one
// election. Derived on demand from (type, election date), never stored.
type HangingPeriod struct {
	ElectionType        Type
	ElectionDate        time.Time
	EarliestHanging     time.Time
	LatestRemoval       time.Time
	DaysBeforeElection  int
	DaysAfterForRemoval int
}

// fourthSaturdayBefore walks back to the most recent Saturday strictly before
// date (a full week back when date itself is a Saturday), then three more
// weeks. The result is always a Saturday.
func fourthSaturdayBefore(date time.Time) time.Time {
	daysToLastSaturday := int(date.Weekday()) + 1
	if date.Weekday() == time.Saturday {
		daysToLastSaturday = 7
	}
	return date.AddDate(0, 0, -(daysToLastSaturday + 21))
}

// CalculateHangingPeriod computes the permitted window for the given election.
// Folketingsvalg are announced at short notice and use a flat 21-day offset;
// the scheduled election types start on the fourth Saturday before election day.
func CalculateHangingPeriod(electionType Type, electionDate time.Time) HangingPeriod {
	var earliestHanging time.Time
	if electionType == Folketings {
		earliestHanging = electionDate.AddDate(0, 0, -21)
	} else {
		earliestHanging = fourthSaturdayBefore(electionDate)
	}

	return HangingPeriod{
		ElectionType:        electionType,
		ElectionDate:        electionDate,
		EarliestHanging:     earliestHanging,
		LatestRemoval:       electionDate.AddDate(0, 0, removalDays),
		DaysBeforeElection:  daysBefore[electionType],
		DaysAfterForRemoval: removalDays,
	}
}

// IsWithinHangingPeriod reports whether checkDate falls inside the hanging
// window, inclusive at both ends.
func IsWithinHangingPeriod(electionType Type, electionDate, checkDate time.Time) bool {
	period := CalculateHangingPeriod(electionType, electionDate)
	return !checkDate.Before(period.EarliestHanging) && !checkDate.After(period.LatestRemoval)
}

// IsRemovalPeriod reports whether checkDate is in the removal window: strictly
// after election day, on or before election day + 8 days. Election day itself
// is not removal period.
func IsRemovalPeriod(electionDate, checkDate time.Time) bool {
	dayAfterElection := electionDate.AddDate(0, 0, 1)
	removalDeadline := electionDate.AddDate(0, 0, removalDays)
	return !checkDate.Before(dayAfterElection) && !checkDate.After(removalDeadline)
}

// DaysUntilRemovalDeadline returns the number of days until the removal
// deadline, rounded up. Zero exactly on the deadline boundary, negative once
// the deadline has passed.
func DaysUntilRemovalDeadline(electionDate, checkDate time.Time) int {
	deadline := electionDate.AddDate(0, 0, removalDays)
	return int(math.Ceil(deadline.Sub(checkDate).Hours() / 24))
}
