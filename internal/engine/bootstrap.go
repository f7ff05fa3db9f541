package engine

import (
	"context"
	"fmt"

	"clasp/internal/config"
	"clasp/internal/logging"
	"clasp/internal/pool"
	"clasp/internal/spec"
	"clasp/internal/state"
	"clasp/internal/telemetry"
	"clasp/plugin"
	"clasp/report"
)

type Config struct {
	SpecPath     string
	SettingsPath string // optional
	// Full disables incremental builds even when previous state exists.
	Full bool
}

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	// 1. settings, logging, metrics
	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	logging.Configure(logging.Options{Level: settings.Log.Level, JSON: settings.Log.JSON})
	telemetry.Expose(settings.Metrics.Port)

	// 2. build spec
	build, err := config.LoadBuildSpec(cfg.SpecPath)
	if err != nil {
		return nil, fmt.Errorf("build spec: %w", err)
	}

	// 3. plugins in chain order
	providers := make([]*provider, 0, len(build.Plugins))
	for _, ps := range build.Plugins {
		p, err := plugin.New(ps.Name)
		if err != nil {
			return nil, err
		}
		if err := p.Configure(&ps.Options); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", ps.Name, err)
		}
		providers = append(providers, newProvider(ps.Name, p))
	}

	// 4. report sinks
	sinks, err := openReports(build.Reports)
	if err != nil {
		return nil, err
	}

	// 5. incremental state
	st, err := state.Open(build.State)
	if err != nil {
		closeReports(sinks)
		return nil, fmt.Errorf("state: %w", err)
	}

	return &Engine{
		build:     build,
		full:      cfg.Full,
		res:       pool.NewResources(settings.Pools.CPU, settings.Pools.IO),
		state:     st,
		providers: providers,
		reports:   sinks,
		log:       logging.New("engine"),
	}, nil
}

func openReports(specs []spec.ReportSpec) ([]report.Adapter, error) {
	var out []report.Adapter
	for _, rs := range specs {
		a, err := report.NewAdapter(rs.Driver)
		if err == nil {
			err = a.Configure(&rs.Options)
		}
		if err != nil {
			closeReports(out)
			return nil, fmt.Errorf("report %s: %w", rs.Driver, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func closeReports(sinks []report.Adapter) {
	for _, s := range sinks {
		_ = s.Close()
	}
}
