// Package monitor runs the polling loop: fetch progress, persist it,
// estimate pace and report until the migration completes or the context
// is cancelled.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/pacewatch/internal/eta"
	"github.com/felixgeelhaar/pacewatch/internal/observe"
	"github.com/felixgeelhaar/pacewatch/internal/pace"
	"github.com/felixgeelhaar/pacewatch/internal/source"
	"github.com/felixgeelhaar/pacewatch/internal/store"
	"github.com/felixgeelhaar/pacewatch/internal/ui"
)

// DefaultDelay is the pause between polling cycles.
const DefaultDelay = 10 * time.Second

// ErrPersist marks a failure of the sample store. It ends the run.
var ErrPersist = errors.New("persistence failure")

// State is the monitor's lifecycle state.
type State int

const (
	Running State = iota
	Completed
)

func (s State) String() string {
	if s == Completed {
		return "completed"
	}
	return "running"
}

// Outcome is how a successful Run ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota + 1
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Source yields the current completion fraction in [0, 1].
type Source interface {
	Progress(ctx context.Context) (float64, error)
}

// Monitor orchestrates the polling loop.
type Monitor struct {
	store   store.Storage
	source  Source
	observe *observe.Observer
	ui      ui.UI
	bus     *EventBus
	delay   time.Duration
	window  time.Duration
	now     func() time.Time
	state   State
}

type Option func(*Monitor)

// WithDelay sets the pause between cycles.
func WithDelay(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.delay = d
		}
	}
}

// WithWindow sets the trailing window used for recent pace.
func WithWindow(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithClock replaces time.Now as the sample timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

func WithUI(u ui.UI) Option {
	return func(m *Monitor) {
		if u != nil {
			m.ui = u
		}
	}
}

func WithEventBus(bus *EventBus) Option {
	return func(m *Monitor) {
		if bus != nil {
			m.bus = bus
		}
	}
}

func New(s store.Storage, src Source, o *observe.Observer, opts ...Option) *Monitor {
	m := &Monitor{
		store:   s,
		source:  src,
		observe: o,
		ui:      ui.SilentUI{},
		bus:     NewEventBus(),
		delay:   DefaultDelay,
		window:  pace.DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the bus the monitor publishes to.
func (m *Monitor) Events() *EventBus {
	return m.bus
}

func (m *Monitor) State() State {
	return m.state
}

// Run polls until the latest sample reaches exactly 100% or ctx is done.
// Cancellation is honoured between cycles and during the sleep; a fetch
// or append already in flight runs to its end. Fetch failures are logged
// and retried on the next cycle. Store failures end the run with ErrPersist.
func (m *Monitor) Run(ctx context.Context) (Outcome, error) {
	state, err := m.initialState()
	if err != nil {
		return 0, err
	}
	m.state = state

	m.observe.Log().Info().
		Str("run_id", m.observe.RunID()).
		Str("state", state.String()).
		Int("delay_ms", int(m.delay/time.Millisecond)).
		Msg("starting monitor")

	if state == Completed {
		return OutcomeCompleted, m.complete(ctx)
	}

	for cycle := 1; ; cycle++ {
		if ctx.Err() != nil {
			return m.cancelled(), nil
		}

		done, err := m.runCycle(ctx, cycle)
		if err != nil {
			return 0, err
		}
		if done {
			m.state = Completed
			return OutcomeCompleted, m.complete(ctx)
		}

		if !m.sleep(ctx) {
			return m.cancelled(), nil
		}
	}
}

func (m *Monitor) initialState() (State, error) {
	latest, err := m.store.Latest()
	if err != nil {
		return Running, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if latest != nil && latest.Progress == 1.0 {
		return Completed, nil
	}
	return Running, nil
}

// runCycle performs one fetch-persist-report pass and reports whether
// the migration has completed.
func (m *Monitor) runCycle(ctx context.Context, cycle int) (bool, error) {
	ctx, span := m.observe.StartSpan(ctx, "monitor.cycle")
	defer span.End()

	cycleLog := m.observe.Log().With().Int("cycle", cycle).Logger()
	m.publish(Event{Type: EventCycleStart})

	work := context.WithoutCancel(ctx)

	start := time.Now()
	value, err := m.source.Progress(work)
	latency := time.Since(start)
	if err != nil {
		kind := source.Kind(err)
		cycleLog.Warn().Str("kind", kind).Err(err).Msg("failed to read progress")
		span.RecordError(err)
		m.ui.Log(fmt.Sprintf("Error reading progress: %v", err))
		m.publish(Event{Type: EventFetchFailed, Err: err, Kind: kind, Latency: latency})
		return false, nil
	}

	now := m.now()
	sample := store.Sample{Timestamp: now, Progress: value}
	if err := m.store.Append(&sample); err != nil {
		cycleLog.Error().Err(err).Msg("failed to persist sample")
		return false, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	m.publish(Event{Type: EventSampleRecorded, Sample: &sample, Latency: latency})

	report, err := m.report(value, now)
	if err != nil {
		cycleLog.Error().Err(err).Msg("failed to compute pace")
		return false, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	m.ui.Clear()
	m.ui.Print(report.Lines()...)
	m.ui.UpdateProgress(value)
	m.publish(Event{Type: EventReport, Report: report})

	cycleLog.Info().
		Str("progress", fmt.Sprintf("%.4f", value)).
		Str("pace_hour", fmt.Sprintf("%.6f", float64(report.AllTime))).
		Str("eta", report.AllTimeETA.String()).
		Msg("sample recorded")

	return value == 1.0, nil
}

// Snapshot reports the persisted state as of now without polling.
// It returns nil when no sample has been recorded yet.
func (m *Monitor) Snapshot(now time.Time) (*Report, error) {
	latest, err := m.store.Latest()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if latest == nil {
		return nil, nil
	}
	report, err := m.report(latest.Progress, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	report.At = latest.Timestamp
	return report, nil
}

func (m *Monitor) report(progress float64, now time.Time) (*Report, error) {
	all, err := pace.AllTime(m.store)
	if err != nil {
		return nil, err
	}
	recent, err := pace.Trailing(m.store, now, m.window)
	if err != nil {
		return nil, err
	}
	count, err := m.store.Count()
	if err != nil {
		return nil, err
	}
	return &Report{
		At:          now,
		Progress:    progress,
		Samples:     count,
		Window:      m.window,
		AllTime:     all,
		Trailing:    recent,
		AllTimeETA:  eta.Project(progress, all),
		TrailingETA: eta.Project(progress, recent),
	}, nil
}

// Summarize describes a completed migration from the persisted samples.
// It returns nil when the store is empty.
func (m *Monitor) Summarize() (*Summary, error) {
	first, err := m.store.Earliest()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	last, err := m.store.Latest()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if first == nil || last == nil {
		return nil, nil
	}
	count, err := m.store.Count()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	p := pace.Rate(*first, *last)
	return &Summary{
		First:   *first,
		Last:    *last,
		Samples: count,
		Pace:    p,
		Total:   eta.Project(0, p),
	}, nil
}

func (m *Monitor) complete(ctx context.Context) error {
	_, span := m.observe.StartSpan(ctx, "monitor.complete")
	defer span.End()

	summary, err := m.Summarize()
	if err != nil {
		return err
	}
	if summary == nil {
		return nil
	}

	m.ui.Clear()
	m.ui.Print(summary.Lines()...)
	m.ui.UpdateProgress(summary.Last.Progress)
	m.publish(Event{Type: EventCompleted, Summary: summary})

	m.observe.Log().Info().
		Int("samples", summary.Samples).
		Str("total", summary.Total.String()).
		Msg("migration completed")
	return nil
}

func (m *Monitor) cancelled() Outcome {
	m.observe.Log().Info().Msg("monitor cancelled")
	m.publish(Event{Type: EventCancelled})
	return OutcomeCancelled
}

// sleep waits for the polling delay and reports false if ctx ended first.
func (m *Monitor) sleep(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	timer := time.NewTimer(m.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (m *Monitor) publish(e Event) {
	e.RunID = m.observe.RunID()
	m.bus.Publish(e)
}
