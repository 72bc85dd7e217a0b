// Package undock implements the undocking planner (C9): a greedy
// first-fit selection of waste items within a mass budget. It is
// explicitly not an optimal knapsack solver.
package undock

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/orionop/cargox/models"
	"github.com/orionop/cargox/store"
)

// Selection is one item chosen for ejection.
type Selection struct {
	ItemID      string  `json:"item_id"`
	Mass        float64 `json:"mass"`
	ContainerID string  `json:"container_id"`
}

// Plan is the payload of an undocking_plan run.
type Plan struct {
	Selected  []Selection `json:"selected"`
	TotalMass float64     `json:"total_mass"`
	MaxWeight float64     `json:"max_weight"`
}

// PlanUndock selects waste items currently placed in waste-kind
// containers, ordered by (-priority, -mass), greedily accumulating them:
// an item that would push the total over maxWeight is skipped and the
// remaining, lighter candidates are still considered.
func PlanUndock(ctx context.Context, st store.Store, maxWeight float64) (*Plan, error) {
	containers, err := st.ListContainers(ctx)
	if err != nil {
		return nil, err
	}
	wasteContainers := make(map[string]bool)
	for _, c := range containers {
		if c.Kind == models.KindWaste {
			wasteContainers[c.ID] = true
		}
	}

	items, err := st.ListItems(ctx, store.ItemFilter{})
	if err != nil {
		return nil, err
	}

	var candidates []*models.Item
	for _, it := range items {
		if it.Placement == nil || !it.IsWaste {
			continue
		}
		if !wasteContainers[it.Placement.ContainerID] {
			continue
		}
		candidates = append(candidates, it)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].Mass > candidates[j].Mass
	})

	plan := &Plan{MaxWeight: maxWeight}
	for _, it := range candidates {
		if plan.TotalMass+it.Mass > maxWeight {
			continue
		}
		plan.Selected = append(plan.Selected, Selection{ItemID: it.ID, Mass: it.Mass, ContainerID: it.Placement.ContainerID})
		plan.TotalMass += it.Mass
	}

	return plan, nil
}

// Apply detaches every selected item from its container and clears its
// waste latch, committing the undocking sweep. The waste flag is a
// one-way latch everywhere else in the core; undocking is the single
// explicit sweep that is allowed to clear it, since the item has now
// left the system's waste-zone containers entirely.
func Apply(ctx context.Context, st store.Store, log *zap.Logger, plan *Plan, actor string) error {
	if log == nil {
		log = zap.NewNop()
	}
	if len(plan.Selected) == 0 {
		return nil
	}

	notWaste := false
	updates := make([]store.ItemUpdate, 0, len(plan.Selected))
	for _, s := range plan.Selected {
		updates = append(updates, store.ItemUpdate{ID: s.ItemID, ClearPlacement: true, IsWaste: &notWaste})
	}
	if err := st.BulkUpdateItems(ctx, updates); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, s := range plan.Selected {
		_, _ = st.Log(ctx, models.LogEvent{
			Timestamp:   now,
			Action:      "undock",
			ItemID:      s.ItemID,
			ContainerID: s.ContainerID,
			Actor:       actor,
			Details:     "ejected during undocking sweep",
		})
	}
	log.Info("undocking applied", zap.Int("count", len(plan.Selected)), zap.Float64("total_mass", plan.TotalMass))
	return nil
}
