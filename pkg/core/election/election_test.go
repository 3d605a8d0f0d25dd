package election

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestCalculateHangingPeriod_Kommunal(t *testing.T) {
	// KV25: Nov 18, 2025
	electionDate := date(2025, time.November, 18)
	period := CalculateHangingPeriod(Kommunal, electionDate)

	assert.Equal(t, Kommunal, period.ElectionType)
	assert.Equal(t, electionDate, period.ElectionDate)
	assert.Equal(t, 8, period.DaysAfterForRemoval)
	assert.Equal(t, 28, period.DaysBeforeElection)

	// Earliest hanging is a Saturday roughly 4 weeks out
	assert.Equal(t, time.Saturday, period.EarliestHanging.Weekday())
	assert.True(t, period.EarliestHanging.Before(electionDate))

	// Removal deadline is election day + 8
	assert.Equal(t, date(2025, time.November, 26), period.LatestRemoval)
}

func TestCalculateHangingPeriod_Folketings(t *testing.T) {
	electionDate := date(2026, time.June, 15)
	period := CalculateHangingPeriod(Folketings, electionDate)

	// Flat 21-day offset, no Saturday alignment
	assert.Equal(t, date(2026, time.May, 25), period.EarliestHanging)
	assert.Equal(t, date(2026, time.June, 23), period.LatestRemoval)
	assert.Equal(t, 21, period.DaysBeforeElection)
}

func TestCalculateHangingPeriod_Europa(t *testing.T) {
	period := CalculateHangingPeriod(Europa, date(2029, time.June, 10))

	assert.Equal(t, time.Saturday, period.EarliestHanging.Weekday())
	assert.Equal(t, 8, period.DaysAfterForRemoval)
}

func TestCalculateHangingPeriod_RegionalMatchesKommunal(t *testing.T) {
	electionDate := date(2025, time.November, 18)
	kommunal := CalculateHangingPeriod(Kommunal, electionDate)
	regional := CalculateHangingPeriod(Regional, electionDate)

	assert.Equal(t, kommunal.EarliestHanging, regional.EarliestHanging)
	assert.Equal(t, kommunal.LatestRemoval, regional.LatestRemoval)
}

func TestCalculateHangingPeriod_SaturdayElectionWalksBackFullWeek(t *testing.T) {
	// Nov 22, 2025 is a Saturday; the window must start on a prior Saturday,
	// never election day itself
	electionDate := date(2025, time.November, 22)
	period := CalculateHangingPeriod(Kommunal, electionDate)

	assert.Equal(t, time.Saturday, period.EarliestHanging.Weekday())
	assert.Equal(t, date(2025, time.October, 25), period.EarliestHanging)
}

func TestCalculateHangingPeriod_YearBoundary(t *testing.T) {
	// Election on Jan 5, 2026: hanging starts in December 2025
	period := CalculateHangingPeriod(Kommunal, date(2026, time.January, 5))

	assert.Equal(t, 2025, period.EarliestHanging.Year())
	assert.Equal(t, time.December, period.EarliestHanging.Month())
	assert.Equal(t, time.Saturday, period.EarliestHanging.Weekday())
}

func TestIsWithinHangingPeriod(t *testing.T) {
	electionDate := date(2025, time.November, 18)
	period := CalculateHangingPeriod(Kommunal, electionDate)

	tests := []struct {
		name  string
		check time.Time
		want  bool
	}{
		{"during period", period.EarliestHanging.AddDate(0, 0, 1), true},
		{"on election day", electionDate, true},
		{"before period starts", date(2025, time.October, 1), false},
		{"after removal deadline", date(2025, time.December, 1), false},
		{"inclusive at earliest hanging", period.EarliestHanging, true},
		{"inclusive at removal deadline", period.LatestRemoval, true},
		{"just before earliest hanging", period.EarliestHanging.Add(-time.Second), false},
		{"just after removal deadline", period.LatestRemoval.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWithinHangingPeriod(Kommunal, electionDate, tt.check))
		})
	}
}

func TestIsRemovalPeriod(t *testing.T) {
	electionDate := date(2025, time.November, 18)

	assert.False(t, IsRemovalPeriod(electionDate, date(2025, time.November, 17)))
	assert.False(t, IsRemovalPeriod(electionDate, electionDate))
	assert.True(t, IsRemovalPeriod(electionDate, date(2025, time.November, 19)))
	assert.True(t, IsRemovalPeriod(electionDate, date(2025, time.November, 26)))
	assert.False(t, IsRemovalPeriod(electionDate, date(2025, time.November, 27)))
}

func TestDaysUntilRemovalDeadline(t *testing.T) {
	electionDate := date(2025, time.November, 18)

	assert.Equal(t, 8, DaysUntilRemovalDeadline(electionDate, electionDate))
	assert.Equal(t, 0, DaysUntilRemovalDeadline(electionDate, date(2025, time.November, 26)))
	assert.Equal(t, 6, DaysUntilRemovalDeadline(electionDate, date(2025, time.November, 20)))
	assert.Negative(t, DaysUntilRemovalDeadline(electionDate, date(2025, time.November, 28)))
}

func TestIsDaytime(t *testing.T) {
	assert.True(t, IsDaytime(time.Date(2025, time.May, 1, 6, 0, 0, 0, time.UTC)))
	assert.True(t, IsDaytime(time.Date(2025, time.May, 1, 21, 59, 0, 0, time.UTC)))
	assert.False(t, IsDaytime(time.Date(2025, time.May, 1, 22, 0, 0, 0, time.UTC)))
	assert.False(t, IsDaytime(time.Date(2025, time.May, 1, 3, 0, 0, 0, time.UTC)))
}

func TestTypeIsValid(t *testing.T) {
	assert.True(t, Kommunal.IsValid())
	assert.True(t, Europa.IsValid())
	assert.False(t, Type("presidential").IsValid())
}
