// Package pace turns persisted samples into a normalized rate of progress.
//
// A Pace is expressed as fraction-of-completion per hour on the [0, 1]
// scale. Percentage scaling happens only when a value is displayed.
package pace

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/pacewatch/internal/store"
)

// DefaultWindow is the length of the trailing window used for recent pace.
const DefaultWindow = 10 * time.Minute

// Pace is progress per hour, as a fraction.
type Pace float64

func (p Pace) PerDay() float64    { return float64(p) * 24 }
func (p Pace) PerHour() float64   { return float64(p) }
func (p Pace) PerMinute() float64 { return float64(p) / 60 }
func (p Pace) PerSecond() float64 { return float64(p) / 3600 }

// Percent renders the pace at every granularity as percentages.
func (p Pace) Percent() string {
	return fmt.Sprintf("%.4f%%/day / %.4f%%/hour / %.4f%%/minute / %.8f%%/second",
		p.PerDay()*100, p.PerHour()*100, p.PerMinute()*100, p.PerSecond()*100)
}

// Reader is the subset of the store needed to estimate pace.
type Reader interface {
	Earliest() (*store.Sample, error)
	Latest() (*store.Sample, error)
	Range(from, to time.Time) ([]store.Sample, error)
}

// Rate returns the hourly rate of change between two samples.
// Zero or negative elapsed time yields 0 rather than dividing by zero.
func Rate(earlier, later store.Sample) Pace {
	if earlier.Timestamp.Equal(later.Timestamp) {
		return 0
	}
	elapsed := later.Timestamp.Sub(earlier.Timestamp).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return Pace((later.Progress - earlier.Progress) * 3600 / elapsed)
}

// AllTime is the pace between the earliest and latest persisted samples.
func AllTime(r Reader) (Pace, error) {
	first, err := r.Earliest()
	if err != nil {
		return 0, fmt.Errorf("failed to read earliest sample: %w", err)
	}
	last, err := r.Latest()
	if err != nil {
		return 0, fmt.Errorf("failed to read latest sample: %w", err)
	}
	if first == nil || last == nil {
		return 0, nil
	}
	return Rate(*first, *last), nil
}

// Trailing is the pace across the samples recorded in the window ending at now.
// Fewer than two samples in the window means no measurable pace.
func Trailing(r Reader, now time.Time, window time.Duration) (Pace, error) {
	recent, err := r.Range(now.Add(-window), now)
	if err != nil {
		return 0, fmt.Errorf("failed to read trailing window: %w", err)
	}
	if len(recent) < 2 {
		return 0, nil
	}
	return Rate(recent[0], recent[len(recent)-1]), nil
}
