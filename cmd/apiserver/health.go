package main

import (
	"context"

	"github.com/BlackCockder/IBEX-Mapper/internal/app"
	"github.com/BlackCockder/IBEX-Mapper/internal/interfaces/http/handlers"
)

// healthCheckers probes the cache backend and the feature catalog file.
func healthCheckers(a *app.App) []handlers.HealthChecker {
	return []handlers.HealthChecker{
		handlers.CheckFunc{
			ComponentName: "basis_cache_" + a.Backend.Name(),
			Fn:            a.Backend.Ping,
		},
		handlers.CheckFunc{
			ComponentName: "feature_catalog",
			Fn: func(ctx context.Context) error {
				_, err := a.Catalog.Load(ctx)
				return err
			},
		},
	}
}
