package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/orionop/cargox/csvio"
	cargoxerrors "github.com/orionop/cargox/errors"
	"github.com/orionop/cargox/metrics"
	"github.com/orionop/cargox/models"
	"github.com/orionop/cargox/placement"
	"github.com/orionop/cargox/rearrange"
	"github.com/orionop/cargox/retrieval"
	"github.com/orionop/cargox/simulate"
	"github.com/orionop/cargox/store"
	"github.com/orionop/cargox/undock"
	"github.com/orionop/cargox/waste"
)

type api struct {
	st                            store.Store
	log                           *zap.Logger
	capacityFactorOverridePercent int
}

// timed wraps a handler's core work with the standard metrics.
func timed(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	return err
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return cargoxerrors.Wrap(cargoxerrors.InvalidInput, "decode request body", err)
	}
	return nil
}

// listContainers handles GET /containers.
func (a *api) listContainers(w http.ResponseWriter, r *http.Request) {
	containers, err := a.st.ListContainers(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "containers listed", containers)
}

// createContainers handles POST /containers.
func (a *api) createContainers(w http.ResponseWriter, r *http.Request) {
	var containers []*models.Container
	if err := decodeJSON(r, &containers); err != nil {
		respondErr(w, err)
		return
	}
	if err := validateAll(containers); err != nil {
		respondErr(w, err)
		return
	}
	if err := a.st.CreateContainers(r.Context(), containers); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "containers created", containers)
}

// importContainers handles POST /containers/import (raw CSV request body;
// multipart uploads are not parsed).
func (a *api) importContainers(w http.ResponseWriter, r *http.Request) {
	result, err := csvio.ParseContainers(r.Body)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := a.st.CreateContainers(r.Context(), result.Containers); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "containers imported", result)
}

// listItems handles GET /items, optionally filtered by container_id/zone/is_waste.
func (a *api) listItems(w http.ResponseWriter, r *http.Request) {
	filter := store.ItemFilter{
		ContainerID: r.URL.Query().Get("container_id"),
		Zone:        r.URL.Query().Get("zone"),
	}
	if v := r.URL.Query().Get("is_waste"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			filter.IsWaste = &b
		}
	}
	items, err := a.st.ListItems(r.Context(), filter)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "items listed", items)
}

// createItems handles POST /items.
func (a *api) createItems(w http.ResponseWriter, r *http.Request) {
	var items []*models.Item
	if err := decodeJSON(r, &items); err != nil {
		respondErr(w, err)
		return
	}
	if err := validateAll(items); err != nil {
		respondErr(w, err)
		return
	}
	if err := a.st.CreateItems(r.Context(), items); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "items created", items)
}

// importItems handles POST /items/import.
func (a *api) importItems(w http.ResponseWriter, r *http.Request) {
	result, err := csvio.ParseItems(r.Body)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := a.st.CreateItems(r.Context(), result.Items); err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "items imported", result)
}

// placeAll handles POST /place-all: places every currently-unplaced item.
func (a *api) placeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := a.st.ListItems(ctx, store.ItemFilter{Unplaced: true})
	if err != nil {
		respondErr(w, err)
		return
	}
	containers, err := a.st.ListContainers(ctx)
	if err != nil {
		respondErr(w, err)
		return
	}

	var res *placement.Result
	err = timed("place_all", func() error {
		var placeErr error
		res, placeErr = placement.PlaceAll(ctx, a.st, a.log, items, containers, a.capacityFactorOverridePercent)
		return placeErr
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	metrics.ItemsPlaced.Add(float64(len(res.Placed)))
	metrics.ItemsUnplaced.Add(float64(len(res.Unplaced)))
	respondOK(w, "place_all completed", res)
}

// retrieveItem handles POST /retrieve.
func (a *api) retrieveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID      string `json:"item_id"`
		RetrievedBy string `json:"retrieved_by"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	retrievedBy := req.RetrievedBy
	if actor := actorFromContext(r.Context()); actor != "" {
		retrievedBy = actor
	}
	var res *retrieval.Result
	err := timed("retrieve", func() error {
		var retrieveErr error
		res, retrieveErr = retrieval.Retrieve(r.Context(), a.st, a.log, req.ItemID, retrievedBy)
		return retrieveErr
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "retrieve completed", res)
}

// useItem handles POST /items/use.
func (a *api) useItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
		N      int    `json:"n"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	if req.N <= 0 {
		req.N = 1
	}
	now, err := a.st.SimulationClock(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	var res *retrieval.UseResult
	err = timed("use", func() error {
		var useErr error
		res, useErr = retrieval.UseItem(r.Context(), a.st, a.log, req.ItemID, req.N, now)
		return useErr
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "use completed", res)
}

// simulateTime handles POST /simulate-time.
func (a *api) simulateTime(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Days      int            `json:"days"`
		UsagePlan map[string]int `json:"usage_plan"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	var res *simulate.Result
	err := timed("simulate_time", func() error {
		var simErr error
		res, simErr = simulate.Simulate(r.Context(), a.st, a.log, req.Days, req.UsagePlan)
		return simErr
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "simulate_time completed", res)
}

// wasteIdentify handles GET /waste.
func (a *api) wasteIdentify(w http.ResponseWriter, r *http.Request) {
	summary, err := waste.Summarize(r.Context(), a.st)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "waste_identify completed", summary)
}

// rearrangeRun handles POST /rearrange. With ?dry_run=true it returns the
// plan only; otherwise it plans and applies in one request.
func (a *api) rearrangeRun(w http.ResponseWriter, r *http.Request) {
	var opts rearrange.Options
	if err := decodeJSON(r, &opts); err != nil {
		respondErr(w, err)
		return
	}
	if opts.MaxMovements <= 0 {
		opts.MaxMovements = 20
	}

	var plan *rearrange.Plan
	err := timed("rearrange_plan", func() error {
		var planErr error
		plan, planErr = rearrange.PlanRearrangement(r.Context(), a.st, a.log, opts)
		return planErr
	})
	if err != nil {
		respondErr(w, err)
		return
	}

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	if dryRun {
		respondOK(w, "rearrangement planned", plan)
		return
	}

	var applied []placement.PlacedResult
	var failed []placement.UnplacedResult
	err = timed("rearrange_apply", func() error {
		var applyErr error
		applied, failed, applyErr = rearrange.Apply(r.Context(), a.st, a.log, plan)
		return applyErr
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "rearrangement applied", map[string]interface{}{
		"plan":    plan,
		"applied": applied,
		"failed":  failed,
	})
}

// undockingRun handles POST /undocking. With ?dry_run=true it returns the
// plan only; otherwise it plans and applies in one request.
func (a *api) undockingRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxWeight float64 `json:"max_weight"`
		Actor     string  `json:"actor"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, err)
		return
	}
	actor := req.Actor
	if fromToken := actorFromContext(r.Context()); fromToken != "" {
		actor = fromToken
	}

	var plan *undock.Plan
	err := timed("undocking_plan", func() error {
		var planErr error
		plan, planErr = undock.PlanUndock(r.Context(), a.st, req.MaxWeight)
		return planErr
	})
	if err != nil {
		respondErr(w, err)
		return
	}

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	if dryRun {
		respondOK(w, "undocking planned", plan)
		return
	}

	err = timed("undocking_apply", func() error {
		return undock.Apply(r.Context(), a.st, a.log, plan, actor)
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "undocking applied", plan)
}

// exportArrangement handles GET /export/arrangement.csv.
func (a *api) exportArrangement(w http.ResponseWriter, r *http.Request) {
	items, err := a.st.ListItems(r.Context(), store.ItemFilter{})
	if err != nil {
		respondErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="arrangement.csv"`)
	if err := csvio.WriteArrangement(w, items); err != nil {
		a.log.Error("export arrangement failed", zap.Error(err))
	}
}

// exportUndockingManifest handles GET /export/undocking-manifest.csv?max_weight=N.
func (a *api) exportUndockingManifest(w http.ResponseWriter, r *http.Request) {
	maxWeight, _ := strconv.ParseFloat(r.URL.Query().Get("max_weight"), 64)
	ctx := r.Context()
	plan, err := undock.PlanUndock(ctx, a.st, maxWeight)
	if err != nil {
		respondErr(w, err)
		return
	}
	names := make(map[string]string, len(plan.Selected))
	for _, sel := range plan.Selected {
		it, err := a.st.GetItem(ctx, sel.ItemID)
		if err == nil {
			names[sel.ItemID] = it.Name
		}
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="undocking_manifest.csv"`)
	if err := csvio.WriteUndockingManifest(w, plan, names); err != nil {
		a.log.Error("export undocking manifest failed", zap.Error(err))
	}
}

// getItem handles GET /items/{id}.
func (a *api) getItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	it, err := a.st.GetItem(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "item fetched", it)
}

// getContainer handles GET /containers/{id}.
func (a *api) getContainer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := a.st.GetContainer(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "container fetched", c)
}

// listLogs handles GET /logs?limit=N.
func (a *api) listLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := a.st.ListLogs(r.Context(), limit)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondOK(w, "logs listed", logs)
}
