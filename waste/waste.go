// Package waste implements the waste classifier (C6): the pure expiry-
// and usage-based predicate that decides whether an item has become
// waste, and a zone-mass summary used by the waste dashboard.
package waste

import (
	"context"
	"time"

	"github.com/orionop/cargox/store"
)

// Classify reports whether an item with the given expiry/usage state is
// waste as of now: either its expiry date is set and not in the future,
// or its usage limit is set, positive, and usageCount has reached it.
// The transition this backs is idempotent and latches is_waste=true;
// Classify itself is a pure predicate and does not enforce the latch —
// callers never call it to clear the flag.
func Classify(expiry *time.Time, usageLimit *int, usageCount int, now time.Time) bool {
	if expiry != nil && !expiry.After(now) {
		return true
	}
	if usageLimit != nil && *usageLimit > 0 && usageCount >= *usageLimit {
		return true
	}
	return false
}

// Summary is a per-zone aggregate of waste mass.
type Summary struct {
	Zone      string  `json:"zone"`
	ItemCount int     `json:"item_count"`
	TotalMass float64 `json:"total_mass"`
}

// Summarize aggregates waste item mass by the zone of their container.
// Detached waste items (no placement, e.g. already undocked) are grouped
// under the zone "" (unassigned).
func Summarize(ctx context.Context, st store.Store) ([]Summary, error) {
	isWaste := true
	items, err := st.ListItems(ctx, store.ItemFilter{IsWaste: &isWaste})
	if err != nil {
		return nil, err
	}
	containers, err := st.ListContainers(ctx)
	if err != nil {
		return nil, err
	}
	zoneByContainer := make(map[string]string, len(containers))
	for _, c := range containers {
		zoneByContainer[c.ID] = c.Zone
	}

	agg := make(map[string]*Summary)
	var order []string
	for _, it := range items {
		zone := ""
		if it.Placement != nil {
			zone = zoneByContainer[it.Placement.ContainerID]
		}
		s, ok := agg[zone]
		if !ok {
			s = &Summary{Zone: zone}
			agg[zone] = s
			order = append(order, zone)
		}
		s.ItemCount++
		s.TotalMass += it.Mass
	}

	out := make([]Summary, 0, len(order))
	for _, zone := range order {
		out = append(out, *agg[zone])
	}
	return out, nil
}
