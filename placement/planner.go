package placement

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/orionop/cargox/containerindex"
	cargoxerrors "github.com/orionop/cargox/errors"
	"github.com/orionop/cargox/geometry"
	"github.com/orionop/cargox/models"
	"github.com/orionop/cargox/store"
)

// PlacedResult describes one successful placement produced by a run.
type PlacedResult struct {
	ItemID      string            `json:"item_id"`
	ContainerID string            `json:"container_id"`
	Placement   models.Placement  `json:"placement"`
}

// UnplacedResult describes one item the planner could not place in this run.
type UnplacedResult struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

// Result is the payload of a place_all run.
type Result struct {
	Placed   []PlacedResult   `json:"placed"`
	Unplaced []UnplacedResult `json:"unplaced"`
}

// capacityFactor implements the capacity governor. itemCount is
// the number of items in the batch; totalCapacity is the summed capacity
// of the candidate containers. It returns the maximum number of items the
// run will place regardless of geometric fit.
//
// overridePercent is CARGOX_PLACEMENT_CAPACITY_FACTOR_OVERRIDE (0-100): the
// regime-tuned factor f is a documented heuristic tuned for a demo dataset
// (spec Open Question), so a deployment may pin it via config instead of
// letting it vary by item-count regime. 0 or out of range means unset.
func capacityFactor(itemCount, totalCapacity, overridePercent int) int {
	var f float64
	switch {
	case overridePercent > 0 && overridePercent <= 100:
		f = float64(overridePercent) / 100
	case itemCount <= 20:
		f = 0.3
	case itemCount <= 100:
		f = 0.6
	default:
		f = math.Max(0.65, 0.85-float64(itemCount)/10000)
	}
	capLimit := int(math.Floor(float64(totalCapacity) * f))

	if itemCount > 20 && itemCount <= 100 {
		// "whichever is stricter": ensure at least 15 items remain unplaced.
		leaveUnplaced := itemCount - 15
		if leaveUnplaced < 0 {
			leaveUnplaced = 0
		}
		if leaveUnplaced < capLimit {
			capLimit = leaveUnplaced
		}
	}
	if capLimit < 0 {
		capLimit = 0
	}
	return capLimit
}

// volumeEfficiencyScore implements the item ordering rule: sort by
// (-priority, volume_efficiency_score) ascending, so cubic items precede
// long/thin items at equal priority.
func volumeEfficiencyScore(it *models.Item) float64 {
	dims := []float64{it.Width, it.Height, it.Depth}
	sort.Float64s(dims)
	minDim, maxDim := dims[0], dims[2]
	aspect := 1.0
	if minDim > 0 {
		aspect = maxDim / minDim
	}
	volume := it.Width * it.Height * it.Depth
	return volume * (0.5 + aspect*0.5)
}

func sortItemsForPlacement(items []*models.Item) []*models.Item {
	out := make([]*models.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return volumeEfficiencyScore(out[i]) < volumeEfficiencyScore(out[j])
	})
	return out
}

// fillRatio is current_count / capacity, used to level containers.
func fillRatio(count, capacity int) float64 {
	if capacity == 0 {
		return 1
	}
	return float64(count) / float64(capacity)
}

func sortContainersForPass(containers []*models.Container, idx *containerindex.Index) []*models.Container {
	out := make([]*models.Container, len(containers))
	copy(out, containers)
	sort.SliceStable(out, func(i, j int) bool {
		fi := fillRatio(idx.Count(out[i].ID), out[i].Capacity)
		fj := fillRatio(idx.Count(out[j].ID), out[j].Capacity)
		if fi != fj {
			return fi < fj
		}
		return out[i].InteriorVolume() > out[j].InteriorVolume()
	})
	return out
}

// accessPriorityThreshold returns the priority cutoff above which an item
// is placed with prioritize_access=true: >75 in the preferred-zone pass,
// >70 elsewhere.
func accessPriorityThreshold(preferredPass bool) int {
	if preferredPass {
		return 75
	}
	return 70
}

// bestOrientationCandidate searches all six orientations of it and returns
// the best (orientation, position) pair for containerID.
func bestOrientationCandidate(it *models.Item, c *models.Container, idx *containerindex.Index, prioritizeAccess bool) (geometry.Orientation, Candidate, bool) {
	occupied := idx.Boxes(c.ID)
	count := idx.Count(c.ID)

	var bestOrientation geometry.Orientation
	var best Candidate
	found := false

	for _, o := range geometry.Orientations(it.Width, it.Height, it.Depth) {
		cand, ok := Search(c.Width, c.Height, c.Depth, o.W, o.H, o.D, occupied, count, c.Capacity, prioritizeAccess)
		if !ok {
			continue
		}
		if !found || better(cand, best, prioritizeAccess) {
			best = cand
			bestOrientation = o
			found = true
		}
	}
	return bestOrientation, best, found
}

func kindMatches(c *models.Container, it *models.Item) bool {
	if it.IsWaste {
		return c.Kind == models.KindWaste
	}
	return c.Kind == models.KindStorage
}

// PlaceAll is C4: place_all(items, containers) -> (placed, unplaced). It
// clears any previous placements for the input item set, attempts to
// place each item per the priority/zone policy, and commits the resulting
// diff to st atomically.
func PlaceAll(ctx context.Context, st store.Store, log *zap.Logger, items []*models.Item, containers []*models.Container, capacityFactorOverridePercent int) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	allItems, err := st.ListItems(ctx, store.ItemFilter{})
	if err != nil {
		return nil, cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "place_all: list items", err)
	}
	byID := make(map[string]*models.Item, len(allItems))
	for _, it := range allItems {
		byID[it.ID] = it
	}

	idx := containerindex.New(containers, allItems)

	for _, it := range items {
		if live, ok := byID[it.ID]; ok {
			idx.Remove(live) // clear previous placement for the input set
		}
	}

	totalCapacity := 0
	for _, c := range containers {
		totalCapacity += c.Capacity
	}
	batchCap := capacityFactor(len(items), totalCapacity, capacityFactorOverridePercent)

	byZone := make(map[string][]*models.Container)
	for _, c := range containers {
		byZone[c.Zone] = append(byZone[c.Zone], c)
	}

	ordered := sortItemsForPlacement(items)

	res := &Result{}
	var updates []store.ItemUpdate

	for _, it := range ordered {
		live, ok := byID[it.ID]
		if !ok {
			live = it
		}

		if len(res.Placed) >= batchCap {
			res.Unplaced = append(res.Unplaced, UnplacedResult{ItemID: it.ID, Reason: "capacity governor reached for this run"})
			continue
		}

		placedContainerID, placement, ok := tryPlaceOne(live, containers, byZone, idx)
		if !ok {
			res.Unplaced = append(res.Unplaced, UnplacedResult{ItemID: it.ID, Reason: "no orientation fits in any eligible container"})
			updates = append(updates, store.ItemUpdate{ID: it.ID, ClearPlacement: true})
			continue
		}

		idx.Place(placedContainerID, live, placement)
		res.Placed = append(res.Placed, PlacedResult{ItemID: it.ID, ContainerID: placedContainerID, Placement: placement})
		updates = append(updates, store.ItemUpdate{ID: it.ID, SetPlacement: &placement})
	}

	if err := st.BulkUpdateItems(ctx, updates); err != nil {
		return nil, err
	}

	for _, p := range res.Placed {
		_, _ = st.Log(ctx, models.LogEvent{
			Timestamp:   time.Now().UTC(),
			Action:      "place",
			ItemID:      p.ItemID,
			ContainerID: p.ContainerID,
			Actor:       "placement_planner",
			Details:     "placed via place_all",
		})
	}
	log.Info("place_all completed", zap.Int("placed", len(res.Placed)), zap.Int("unplaced", len(res.Unplaced)), zap.Int("batch_cap", batchCap))

	return res, nil
}

// tryPlaceOne runs the preferred pass then the fallback pass for it and
// returns the chosen container id and placement, or ok=false.
func tryPlaceOne(it *models.Item, allContainers []*models.Container, byZone map[string][]*models.Container, idx *containerindex.Index) (string, models.Placement, bool) {
	if it.PreferredZone != "" {
		if cid, p, ok := searchPass(it, byZone[it.PreferredZone], idx, true); ok {
			return cid, p, true
		}
	}

	fallback := make([]*models.Container, 0, len(allContainers))
	for _, c := range allContainers {
		if it.PreferredZone != "" && c.Zone == it.PreferredZone {
			continue
		}
		fallback = append(fallback, c)
	}
	return searchPass(it, fallback, idx, false)
}

func searchPass(it *models.Item, candidates []*models.Container, idx *containerindex.Index, preferredPass bool) (string, models.Placement, bool) {
	ordered := sortContainersForPass(candidates, idx)
	threshold := accessPriorityThreshold(preferredPass)
	prioritizeAccess := it.Priority > threshold

	for _, c := range ordered {
		if !kindMatches(c, it) {
			continue
		}
		// Capacity enforced twice: the running index counter, and a
		// resync against the tracked occupancy.
		if idx.Count(c.ID) >= c.Capacity {
			continue
		}
		if idx.Resync(c.ID) >= c.Capacity {
			continue
		}

		_, cand, ok := bestOrientationCandidate(it, c, idx, prioritizeAccess)
		if !ok {
			continue
		}
		placement := models.Placement{
			ContainerID: c.ID,
			X:           cand.Box.X,
			Y:           cand.Box.Y,
			Z:           cand.Box.Z,
			Width:       cand.Box.W,
			Height:      cand.Box.H,
			Depth:       cand.Box.D,
		}
		return c.ID, placement, true
	}
	return "", models.Placement{}, false
}

// Recommend runs the same search logic as PlaceAll for a single item,
// read-only: no store write-back. It backs a standalone "where would
// this go" preview used ahead of a real placement commit.
func Recommend(it *models.Item, containers []*models.Container, placedSnapshot []*models.Item) (string, models.Placement, bool) {
	idx := containerindex.New(containers, placedSnapshot)
	byZone := make(map[string][]*models.Container)
	for _, c := range containers {
		byZone[c.Zone] = append(byZone[c.Zone], c)
	}
	return tryPlaceOne(it, containers, byZone, idx)
}
