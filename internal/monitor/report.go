package monitor

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/pacewatch/internal/eta"
	"github.com/felixgeelhaar/pacewatch/internal/pace"
	"github.com/felixgeelhaar/pacewatch/internal/store"
)

// Report is everything computed in one polling cycle.
type Report struct {
	At          time.Time
	Progress    float64
	Samples     int
	Window      time.Duration
	AllTime     pace.Pace
	Trailing    pace.Pace
	AllTimeETA  eta.Projection
	TrailingETA eta.Projection
}

// Lines renders the report for display.
func (r Report) Lines() []string {
	recent := "Last " + windowLabel(r.Window)
	return []string{
		fmt.Sprintf("Total progress: %.2f%%", r.Progress*100),
		fmt.Sprintf("Average pace: %s", r.AllTime.Percent()),
		fmt.Sprintf("%s average pace: %s", recent, r.Trailing.Percent()),
		completionLine(r.AllTimeETA, "at average pace"),
		completionLine(r.TrailingETA, "at recent pace"),
		fmt.Sprintf("Samples recorded: %d (last at %s)", r.Samples, r.At.Format(time.DateTime)),
	}
}

// Summary is shown once when the migration has reached 100%.
type Summary struct {
	First   store.Sample
	Last    store.Sample
	Samples int
	Pace    pace.Pace
	Total   eta.Projection // time to cover 0-100% at Pace
}

func (s Summary) Lines() []string {
	return []string{
		"Migration completed",
		fmt.Sprintf("Average pace: %s", s.Pace.Percent()),
		fmt.Sprintf("Estimated migration time: %s", s.Total),
		fmt.Sprintf("Observed from %s to %s across %d samples",
			s.First.Timestamp.Format(time.DateTime), s.Last.Timestamp.Format(time.DateTime), s.Samples),
	}
}

func completionLine(p eta.Projection, suffix string) string {
	if !p.Applicable {
		return fmt.Sprintf("Migration completion %s: N/A", suffix)
	}
	return fmt.Sprintf("Migration will be completed in %s %s", p, suffix)
}

func windowLabel(d time.Duration) string {
	if d > 0 && d%time.Minute == 0 {
		if d == time.Minute {
			return "minute"
		}
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return d.String()
}
