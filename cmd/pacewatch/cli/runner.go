package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/pacewatch/internal/config"
	"github.com/felixgeelhaar/pacewatch/internal/metrics"
	"github.com/felixgeelhaar/pacewatch/internal/monitor"
	"github.com/felixgeelhaar/pacewatch/internal/observe"
	"github.com/felixgeelhaar/pacewatch/internal/source"
	"github.com/felixgeelhaar/pacewatch/internal/store"
	"github.com/felixgeelhaar/pacewatch/internal/ui"
)

type Runner struct {
	Observer *observe.Observer
	Store    store.Storage
	Config   config.Config
	UI       ui.UI
}

func NewRunner(obs *observe.Observer, s store.Storage, cfg config.Config, u ui.UI) *Runner {
	if u == nil {
		u = ui.SilentUI{}
	}
	return &Runner{
		Observer: obs,
		Store:    s,
		Config:   cfg,
		UI:       u,
	}
}

// Run validates the config, wires the source and metrics, and runs the
// monitor to completion or cancellation.
func (r *Runner) Run(ctx context.Context) (monitor.Outcome, error) {
	validation := r.Config.Validate()
	for _, w := range validation.Warnings {
		r.Observer.Log().Warn().Str("warning", w).Msg("config warning")
	}
	if !validation.Valid {
		r.Observer.Log().Error().Str("errors", strings.Join(validation.Errors, ", ")).Msg("Invalid config")
		return 0, fmt.Errorf("invalid config: %s", strings.Join(validation.Errors, "; "))
	}

	// Scopes the metrics server to this run.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := source.NewClient(r.Config.Timeout(), r.Config.UserAgent)
	defer client.Close()
	page := source.NewPage(r.Config.URL, client, r.Config.ProgressClass)

	bus := monitor.NewEventBus()
	if r.Config.MetricsAddr != "" {
		m := metrics.New()
		m.Attach(bus)
		if _, err := m.Start(ctx, r.Config.MetricsAddr, r.Observer.Log()); err != nil {
			r.Observer.Log().Error().Err(err).Msg("Failed to start metrics server")
			return 0, err
		}
	}

	mon := monitor.New(r.Store, page, r.Observer,
		monitor.WithDelay(r.Config.Delay()),
		monitor.WithWindow(r.Config.Window()),
		monitor.WithUI(r.UI),
		monitor.WithEventBus(bus),
	)

	r.Observer.Log().Info().
		Str("url", r.Config.URL).
		Str("database", r.Config.Database).
		Msg("watching migration progress")

	outcome, err := mon.Run(ctx)
	if err != nil {
		r.Observer.Log().Error().Err(err).Msg("Monitor failed")
		return outcome, err
	}
	return outcome, nil
}
