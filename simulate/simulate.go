// Package simulate implements the time simulator (C7): it advances the
// logical clock, applies a usage plan, and transitions items to waste on
// expiry or usage exhaustion via the waste classifier.
package simulate

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/orionop/cargox/models"
	"github.com/orionop/cargox/store"
	"github.com/orionop/cargox/waste"
)

// Result summarizes one simulate_time run.
type Result struct {
	NewSimulatedDate string   `json:"new_simulated_date"`
	ItemsUsed        []string `json:"items_used"`
	ItemsExpired     []string `json:"items_expired"`
	ItemsNewlyWaste  []string `json:"items_newly_waste"`
}

// Simulate advances the clock by days and applies usagePlan (item id ->
// usage increment), transitioning items to waste per the waste classifier.
// Time is virtual: correctness never depends on wall-clock time, only on
// the store's durable simulated date.
func Simulate(ctx context.Context, st store.Store, log *zap.Logger, days int, usagePlan map[string]int) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	newDate, err := st.AdvanceSimulationClock(ctx, days)
	if err != nil {
		return nil, err
	}

	res := &Result{NewSimulatedDate: newDate.Format("2006-01-02")}
	var updates []store.ItemUpdate
	newlyWaste := make(map[string]bool)

	ids := sortedKeys(usagePlan)
	for _, id := range ids {
		n := usagePlan[id]
		item, err := st.GetItem(ctx, id)
		if err != nil {
			continue // a missing item id in the usage plan is skipped, not fatal
		}
		if item.IsWaste {
			continue
		}

		newCount := item.UsageCount
		usageUpdate := store.ItemUpdate{ID: id}
		if item.UsageLimit != nil {
			newCount += n
			usageUpdate.UsageCount = &newCount
		}

		becameWaste := waste.Classify(item.ExpiryDate, item.UsageLimit, newCount, newDate)
		if becameWaste {
			t := true
			usageUpdate.IsWaste = &t
			if item.Placement != nil {
				usageUpdate.ClearPlacement = true
			}
			newlyWaste[id] = true
		}

		updates = append(updates, usageUpdate)
		res.ItemsUsed = append(res.ItemsUsed, id)
	}

	nonWaste := false
	items, err := st.ListItems(ctx, store.ItemFilter{IsWaste: &nonWaste})
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if newlyWaste[item.ID] {
			continue // already scheduled for transition above
		}
		if item.ExpiryDate == nil || item.ExpiryDate.After(newDate) {
			continue
		}
		t := true
		updates = append(updates, store.ItemUpdate{ID: item.ID, IsWaste: &t})
		newlyWaste[item.ID] = true
		res.ItemsExpired = append(res.ItemsExpired, item.ID)
	}

	if len(updates) > 0 {
		if err := st.BulkUpdateItems(ctx, updates); err != nil {
			return nil, err
		}
	}

	for id := range newlyWaste {
		res.ItemsNewlyWaste = append(res.ItemsNewlyWaste, id)
	}
	sort.Strings(res.ItemsNewlyWaste)
	sort.Strings(res.ItemsExpired)
	sort.Strings(res.ItemsUsed)

	_, _ = st.Log(ctx, models.LogEvent{
		Action:  "simulate_time",
		Actor:   "time_simulator",
		Details: "advanced " + res.NewSimulatedDate,
	})
	log.Info("simulate_time completed",
		zap.Int("days", days),
		zap.Int("items_used", len(res.ItemsUsed)),
		zap.Int("items_newly_waste", len(res.ItemsNewlyWaste)),
	)

	return res, nil
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
