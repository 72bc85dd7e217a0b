// Package httpapi exposes the core's operations over HTTP: a chi-based
// router with CORS and JWT middleware, sized to the single-tenant shape
// this core needs.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/orionop/cargox/metrics"
	"github.com/orionop/cargox/store"
)

// NewRouter builds the full HTTP surface: health, metrics, and the core
// operations, with CORS and (when a signing key is configured) JWT auth on
// mutating routes. capacityFactorOverridePercent is
// CARGOX_PLACEMENT_CAPACITY_FACTOR_OVERRIDE (0 means unset, use the
// documented per-regime heuristic).
func NewRouter(st store.Store, log *zap.Logger, allowedOrigins []string, jwtSigningKey string, capacityFactorOverridePercent int) http.Handler {
	a := &api{st: st, log: log, capacityFactorOverridePercent: capacityFactorOverridePercent}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	corsMW := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	r.Use(corsMW.Handler)

	r.Get("/health", healthHandler(st))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/containers", a.listContainers)
		api.Get("/containers/{id}", a.getContainer)
		api.Get("/items", a.listItems)
		api.Get("/items/{id}", a.getItem)
		api.Get("/waste", a.wasteIdentify)
		api.Get("/logs", a.listLogs)
		api.Get("/export/arrangement.csv", a.exportArrangement)
		api.Get("/export/undocking-manifest.csv", a.exportUndockingManifest)

		api.Group(func(mutating chi.Router) {
			mutating.Use(jwtAuth(jwtSigningKey, log))
			mutating.Post("/containers", a.createContainers)
			mutating.Post("/containers/import", a.importContainers)
			mutating.Post("/items", a.createItems)
			mutating.Post("/items/import", a.importItems)
			mutating.Post("/items/use", a.useItem)
			mutating.Post("/place-all", a.placeAll)
			mutating.Post("/retrieve", a.retrieveItem)
			mutating.Post("/simulate-time", a.simulateTime)
			mutating.Post("/rearrange", a.rearrangeRun)
			mutating.Post("/undocking", a.undockingRun)
		})
	})

	return r
}

// healthHandler reports process health: memory usage via gopsutil, plus
// a store reachability probe.
func healthHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		details := map[string]interface{}{}

		if vm, err := mem.VirtualMemory(); err == nil {
			details["memory_used_percent"] = vm.UsedPercent
		}

		if _, err := st.ListContainers(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
			details["store_error"] = err.Error()
		}

		writeJSON(w, code, map[string]interface{}{
			"status":  status,
			"details": details,
		})
	}
}
