package eta

import (
	"math"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/pacewatch/internal/pace"
)

// Duration is a remaining time broken down into whole calendar units.
type Duration struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// Projection is the estimated time left to reach completion at some pace.
type Projection struct {
	Applicable     bool
	RemainingHours float64
	Remaining      Duration
}

// maxHours keeps the unit breakdown within int range.
const maxHours = float64(math.MaxInt32) * 24

// Project estimates how long it takes to go from current to 1.0 at rate.
// A non-positive rate has no projection.
func Project(current float64, rate pace.Pace) Projection {
	if rate <= 0 {
		return Projection{}
	}
	hours := (1 - current) / float64(rate)
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours > maxHours {
		return Projection{}
	}
	if hours < 0 {
		hours = 0
	}
	return Projection{
		Applicable:     true,
		RemainingHours: hours,
		Remaining:      Breakdown(hours),
	}
}

// Breakdown truncates hours into days, hours, minutes and seconds,
// each taken from what is left after the coarser unit.
func Breakdown(hours float64) Duration {
	whole := math.Floor(hours)
	minutes := (hours - whole) * 60
	wholeMinutes := math.Floor(minutes)
	return Duration{
		Days:    int(math.Floor(hours / 24)),
		Hours:   int(math.Mod(whole, 24)),
		Minutes: int(wholeMinutes),
		Seconds: int(math.Floor((minutes - wholeMinutes) * 60)),
	}
}

// TotalSeconds is the breakdown expressed back in seconds.
func (d Duration) TotalSeconds() int64 {
	return int64(d.Days)*86400 + int64(d.Hours)*3600 + int64(d.Minutes)*60 + int64(d.Seconds)
}

// String lists the non-zero units in descending order, e.g. "1d 4h 30s".
func (d Duration) String() string {
	var parts []string
	for _, u := range []struct {
		n      int
		suffix string
	}{
		{d.Days, "d"},
		{d.Hours, "h"},
		{d.Minutes, "m"},
		{d.Seconds, "s"},
	} {
		if u.n != 0 {
			parts = append(parts, strconv.Itoa(u.n)+u.suffix)
		}
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}

func (p Projection) String() string {
	if !p.Applicable {
		return "N/A"
	}
	return p.Remaining.String()
}
