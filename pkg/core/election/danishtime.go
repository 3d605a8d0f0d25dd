package election

import (
	"sync"
	"time"
)

var (
	copenhagenOnce sync.Once
	copenhagenLoc  *time.Location
)

func copenhagen() *time.Location {
	copenhagenOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Copenhagen")
		if err != nil {
			// No tzdata available; CET is close enough for date-window checks
			loc = time.FixedZone("CET", 1*60*60)
		}
		copenhagenLoc = loc
	})
	return copenhagenLoc
}

// CurrentDanishTime returns the current time in the Europe/Copenhagen
// timezone. Compliance windows are defined in Danish local time regardless of
// where the device clock thinks it is.
func CurrentDanishTime() time.Time {
	return time.Now().In(copenhagen())
}

// InDanishTime converts t to Danish local time
func InDanishTime(t time.Time) time.Time {
	return t.In(copenhagen())
}

// IsDaytime reports whether t falls in the 06:00-22:00 window workers are
// expected to be out hanging posters.
func IsDaytime(t time.Time) bool {
	hour := t.Hour()
	return hour >= 6 && hour < 22
}
