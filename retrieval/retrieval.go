// Package retrieval implements the retrieval solver (C5): given a target
// item, it computes the minimal set of occluding items that must be
// temporarily removed through the container's single open face, and the
// step-by-step path to do so. It also implements the "use" operation that
// increments an item's usage count and, on limit exhaustion, detaches it.
package retrieval

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	cargoxerrors "github.com/orionop/cargox/errors"
	"github.com/orionop/cargox/geometry"
	"github.com/orionop/cargox/models"
	"github.com/orionop/cargox/store"
	"github.com/orionop/cargox/waste"
)

// Result is the payload of a retrieve operation.
type Result struct {
	Found          bool              `json:"found"`
	Path           []string          `json:"path"`
	DisturbedItems []string          `json:"disturbed_items"` // item ids removed to clear the path
	Location       models.Placement  `json:"location"`
}

// obstructs reports whether j blocks i on the way out the open face at
// z=0: j is closer to the face (smaller z) and the two items' (x,y)
// projections overlap. z=0 is the open face, so smaller z is "in front".
func obstructs(i, j *models.Item) bool {
	ip, jp := i.Placement, j.Placement
	if jp.Z >= ip.Z {
		return false
	}
	ib := geometry.Box{X: ip.X, Y: ip.Y, W: ip.Width, H: ip.Height}
	jb := geometry.Box{X: jp.X, Y: jp.Y, W: jp.Width, H: jp.Height}
	return geometry.OverlapsXY(ib, jb)
}

// Obstructions returns the items in containerItems that obstruct target,
// sorted by id for a stable removal order.
func Obstructions(target *models.Item, containerItems []*models.Item) []*models.Item {
	var out []*models.Item
	for _, j := range containerItems {
		if j.ID == target.ID || j.Placement == nil {
			continue
		}
		if obstructs(target, j) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// Retrieve computes and applies the retrieval path for itemID: it is
// read-mostly — it does not mutate usage_count or detach the item from
// its container, only recording last_retrieved bookkeeping.
func Retrieve(ctx context.Context, st store.Store, log *zap.Logger, itemID, retrievedBy string) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	item, err := st.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Placement == nil {
		return nil, cargoxerrors.New(cargoxerrors.InvalidInput, "item is not currently placed: "+itemID)
	}

	siblings, err := st.ListItems(ctx, store.ItemFilter{ContainerID: item.Placement.ContainerID})
	if err != nil {
		return nil, err
	}

	obstructions := Obstructions(item, siblings)

	path := []string{"open container"}
	disturbed := make([]string, 0, len(obstructions))
	for _, o := range obstructions {
		path = append(path, "remove "+o.ID)
		disturbed = append(disturbed, o.ID)
	}
	path = append(path, "extract "+item.ID)
	for _, o := range obstructions {
		path = append(path, "replace "+o.ID)
	}
	path = append(path, "close container")

	now := time.Now().UTC()
	if err := st.UpdateItem(ctx, store.ItemUpdate{
		ID:              item.ID,
		LastRetrievedAt: &now,
		LastRetrievedBy: &retrievedBy,
	}); err != nil {
		return nil, err
	}

	_, _ = st.Log(ctx, models.LogEvent{
		Timestamp:   now,
		Action:      "retrieve",
		ItemID:      item.ID,
		ContainerID: item.Placement.ContainerID,
		Actor:       retrievedBy,
		Details:     "disturbed " + joinIDs(disturbed),
	})
	log.Info("retrieve completed", zap.String("item_id", item.ID), zap.Int("disturbed", len(disturbed)))

	return &Result{
		Found:          true,
		Path:           path,
		DisturbedItems: disturbed,
		Location:       *item.Placement,
	}, nil
}

func joinIDs(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	out := ids[0]
	for _, id := range ids[1:] {
		out += "," + id
	}
	return out
}

// UseResult is the payload of a UseItem call.
type UseResult struct {
	ItemID        string `json:"item_id"`
	NewUsageCount int    `json:"new_usage_count"`
	BecameWaste   bool   `json:"became_waste"`
	Detached      bool   `json:"detached"`
}

// UseItem increments an item's usage_count by n (only when the item has a
// usage limit; otherwise the count is left unchanged), transitions it to waste
// via waste.Classify if the usage limit is now exhausted, and — only on
// that transition — detaches the item from its container, freeing the
// slot. Retrieve never does this; UseItem is the separate operation that
// owns the usage-exhaustion transition.
func UseItem(ctx context.Context, st store.Store, log *zap.Logger, itemID string, n int, now time.Time) (*UseResult, error) {
	if log == nil {
		log = zap.NewNop()
	}

	item, err := st.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.IsWaste {
		return &UseResult{ItemID: itemID, NewUsageCount: item.UsageCount}, nil
	}

	newCount := item.UsageCount
	if item.UsageLimit != nil {
		newCount += n
	}

	becameWaste := waste.Classify(item.ExpiryDate, item.UsageLimit, newCount, now)

	update := store.ItemUpdate{ID: itemID}
	if item.UsageLimit != nil {
		update.UsageCount = &newCount
	}
	detached := false
	if becameWaste {
		t := true
		update.IsWaste = &t
		if item.Placement != nil {
			update.ClearPlacement = true
			detached = true
		}
	}

	if err := st.UpdateItem(ctx, update); err != nil {
		return nil, err
	}

	_, _ = st.Log(ctx, models.LogEvent{
		Timestamp: now,
		Action:    "use",
		ItemID:    itemID,
		Actor:     "use_operation",
		Details:   "usage incremented",
	})
	log.Info("use completed", zap.String("item_id", itemID), zap.Bool("became_waste", becameWaste))

	return &UseResult{ItemID: itemID, NewUsageCount: newCount, BecameWaste: becameWaste, Detached: detached}, nil
}
