// Package rearrange implements the rearrangement planner (C8): a bounded
// sequence of low-priority item moves that improves utilization balance
// while respecting capacity. Plan never performs a full collision check
// at the destination — it only tests capacity and a bounding-volume fit;
// Apply re-runs the full C3 search per move before committing.
package rearrange

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/orionop/cargox/geometry"
	"github.com/orionop/cargox/models"
	"github.com/orionop/cargox/placement"
	"github.com/orionop/cargox/store"
)

const (
	defaultSpaceTarget   = 0.75
	thresholdStep        = 20
	thresholdCap         = 80
	crossZoneMinutes     = 10.0
	sameZoneMinutes      = 3.0
	highPriorityMinutes  = 5.0
	highPriorityCutoff   = 70
	lowUtilizationCutoff = 0.20
	highUtilizationCutoff = 0.90
)

// Options configures one rearrangement run. SpaceTarget is the target
// utilization fraction balancing aims for; 75% is the default when
// SpaceTarget is zero.
type Options struct {
	SpaceTarget       float64 `json:"space_target"`
	PriorityThreshold int     `json:"priority_threshold"`
	MaxMovements      int     `json:"max_movements"`
}

// Move is one proposed item transfer.
type Move struct {
	ItemID            string  `json:"item_id"`
	SourceContainerID string  `json:"source_container_id"`
	DestContainerID   string  `json:"dest_container_id"`
	EstimatedMinutes  float64 `json:"estimated_minutes"`
}

// Plan is the payload of a rearrange run.
type Plan struct {
	Moves           []Move  `json:"moves"`
	FinalThreshold  int     `json:"final_threshold"`
	UsedSpaceTarget float64 `json:"used_space_target"`
}

type containerState struct {
	c            *models.Container
	usedVolume   float64
	count        int
}

func (cs *containerState) utilization() float64 {
	vol := cs.c.InteriorVolume()
	if vol == 0 {
		return 1
	}
	return cs.usedVolume / vol
}

// efficiencyScore is the per-container scoring function: 100 minus the
// distance from the target utilization, penalized 0.7x below 20%
// utilization and 0.8x above 90%.
func efficiencyScore(utilization, target float64) float64 {
	score := 100 - math.Abs(target*100-utilization*100)
	switch {
	case utilization < lowUtilizationCutoff:
		score *= 0.7
	case utilization > highUtilizationCutoff:
		score *= 0.8
	}
	return score
}

func moveTimeEstimate(it *models.Item, crossZone bool) float64 {
	zoneCost := sameZoneMinutes
	if crossZone {
		zoneCost = crossZoneMinutes
	}
	priorityCost := 0.0
	if it.Priority > highPriorityCutoff {
		priorityCost = highPriorityMinutes
	}
	return 0.5*it.Mass + zoneCost + 0.2*it.Volume() + priorityCost
}

// fitsSomeOrientation is a volumetric fit test, not a full C3 collision
// check: it only checks that some orientation's bounding box is within
// the container's interior dimensions.
func fitsSomeOrientation(it *models.Item, c *models.Container) bool {
	for _, o := range geometry.Orientations(it.Width, it.Height, it.Depth) {
		if geometry.Fits(o.W, o.H, o.D, c.Width, c.Height, c.Depth) {
			return true
		}
	}
	return false
}

// PlanRearrangement proposes a rearrangement sequence (C8). It does not mutate the
// store; the caller applies the plan separately (possibly after operator
// confirmation) via Apply.
func PlanRearrangement(ctx context.Context, st store.Store, log *zap.Logger, opts Options) (*Plan, error) {
	if log == nil {
		log = zap.NewNop()
	}
	target := opts.SpaceTarget
	if target <= 0 {
		target = defaultSpaceTarget
	}

	containers, err := st.ListContainers(ctx)
	if err != nil {
		return nil, err
	}
	items, err := st.ListItems(ctx, store.ItemFilter{})
	if err != nil {
		return nil, err
	}

	states := make(map[string]*containerState, len(containers))
	for _, c := range containers {
		states[c.ID] = &containerState{c: c}
	}
	itemsByContainer := make(map[string][]*models.Item)
	for _, it := range items {
		if it.Placement == nil {
			continue
		}
		st := states[it.Placement.ContainerID]
		if st == nil {
			continue
		}
		st.usedVolume += it.Volume()
		st.count++
		itemsByContainer[it.Placement.ContainerID] = append(itemsByContainer[it.Placement.ContainerID], it)
	}

	threshold := opts.PriorityThreshold
	var candidates []*models.Item
	for {
		candidates = candidatesAtThreshold(items, threshold, states, target)
		if len(candidates) > 0 || threshold >= thresholdCap {
			break
		}
		threshold += thresholdStep
		if threshold > thresholdCap {
			threshold = thresholdCap
		}
	}

	plan := &Plan{FinalThreshold: threshold, UsedSpaceTarget: target}
	maxMoves := opts.MaxMovements

	for _, it := range candidates {
		if len(plan.Moves) >= maxMoves {
			break
		}
		srcID := it.Placement.ContainerID
		dest := bestDestination(it, srcID, states, target)
		if dest == nil {
			continue
		}

		crossZone := dest.c.Zone != states[srcID].c.Zone
		move := Move{
			ItemID:            it.ID,
			SourceContainerID: srcID,
			DestContainerID:   dest.c.ID,
			EstimatedMinutes:  moveTimeEstimate(it, crossZone),
		}
		plan.Moves = append(plan.Moves, move)

		states[srcID].usedVolume -= it.Volume()
		states[srcID].count--
		dest.usedVolume += it.Volume()
		dest.count++
	}

	log.Info("rearrangement planned",
		zap.Int("moves", len(plan.Moves)),
		zap.Int("final_threshold", threshold),
	)
	return plan, nil
}

// candidatesAtThreshold gathers movable items (priority <= threshold),
// ordered so items sitting in the worst-scoring (most off-target)
// containers are considered first.
func candidatesAtThreshold(items []*models.Item, threshold int, states map[string]*containerState, target float64) []*models.Item {
	var out []*models.Item
	for _, it := range items {
		if it.Placement == nil || it.IsWaste {
			continue
		}
		if it.Priority > threshold {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		si := states[out[i].Placement.ContainerID]
		sj := states[out[j].Placement.ContainerID]
		scoreI := efficiencyScore(si.utilization(), target)
		scoreJ := efficiencyScore(sj.utilization(), target)
		if scoreI != scoreJ {
			return scoreI < scoreJ // worst (lowest score) containers first
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// bestDestination scores every non-full, non-source container that
// geometrically admits it and returns the lowest-cost one.
func bestDestination(it *models.Item, srcID string, states map[string]*containerState, target float64) *containerState {
	var best *containerState
	bestCost := math.Inf(1)

	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if id == srcID {
			continue
		}
		cs := states[id]
		if cs.c.Kind != states[srcID].c.Kind {
			continue
		}
		if cs.count >= cs.c.Capacity {
			continue
		}
		if !fitsSomeOrientation(it, cs.c) {
			continue
		}
		remaining := cs.c.InteriorVolume() - cs.usedVolume
		if remaining < it.Volume() {
			continue
		}

		remainingSpaceFactor := remaining / cs.c.InteriorVolume()
		zoneMatch := 0.0
		if cs.c.Zone == it.PreferredZone || cs.c.Zone == states[srcID].c.Zone {
			zoneMatch = 1.0
		}
		utilAfter := (cs.usedVolume + it.Volume()) / cs.c.InteriorVolume()
		targetDistance := math.Abs(target - utilAfter)

		cost := targetDistance*50 - remainingSpaceFactor*30 - zoneMatch*20

		if cost < bestCost {
			bestCost = cost
			best = cs
		}
	}
	return best
}

// Apply commits plan by detaching each moved item from its source and
// re-running the full C3 search at the destination — plan's destination
// choice is only capacity+volumetric, so the applier must verify the move
// is still geometrically feasible before committing.
func Apply(ctx context.Context, st store.Store, log *zap.Logger, plan *Plan) ([]placement.PlacedResult, []placement.UnplacedResult, error) {
	if log == nil {
		log = zap.NewNop()
	}

	applied := make([]placement.PlacedResult, 0, len(plan.Moves))
	var failed []placement.UnplacedResult

	for _, mv := range plan.Moves {
		item, err := st.GetItem(ctx, mv.ItemID)
		if err != nil {
			failed = append(failed, placement.UnplacedResult{ItemID: mv.ItemID, Reason: "item vanished before apply"})
			continue
		}
		dest, err := st.GetContainer(ctx, mv.DestContainerID)
		if err != nil {
			failed = append(failed, placement.UnplacedResult{ItemID: mv.ItemID, Reason: "destination vanished before apply"})
			continue
		}
		destItems, err := st.ListItems(ctx, store.ItemFilter{ContainerID: mv.DestContainerID})
		if err != nil {
			return applied, failed, err
		}
		occupied := make([]geometry.Box, 0, len(destItems))
		for _, di := range destItems {
			occupied = append(occupied, geometry.Box{X: di.Placement.X, Y: di.Placement.Y, Z: di.Placement.Z, W: di.Placement.Width, H: di.Placement.Height, D: di.Placement.Depth})
		}

		var chosen *models.Placement
		for _, o := range geometry.Orientations(item.Width, item.Height, item.Depth) {
			cand, ok := placement.Search(dest.Width, dest.Height, dest.Depth, o.W, o.H, o.D, occupied, len(destItems), dest.Capacity, false)
			if !ok {
				continue
			}
			p := models.Placement{ContainerID: dest.ID, X: cand.Box.X, Y: cand.Box.Y, Z: cand.Box.Z, Width: cand.Box.W, Height: cand.Box.H, Depth: cand.Box.D}
			chosen = &p
			break
		}
		if chosen == nil {
			failed = append(failed, placement.UnplacedResult{ItemID: mv.ItemID, Reason: "re-verification at destination failed"})
			continue
		}

		if err := st.UpdateItem(ctx, store.ItemUpdate{ID: mv.ItemID, SetPlacement: chosen}); err != nil {
			return applied, failed, err
		}
		_, _ = st.Log(ctx, models.LogEvent{
			Action:      "rearrange_move",
			ItemID:      mv.ItemID,
			ContainerID: dest.ID,
			Actor:       "rearrangement_planner",
			Details:     "moved from " + mv.SourceContainerID,
		})
		applied = append(applied, placement.PlacedResult{ItemID: mv.ItemID, ContainerID: dest.ID, Placement: *chosen})
	}

	log.Info("rearrangement applied", zap.Int("moved", len(applied)), zap.Int("failed", len(failed)))
	return applied, failed, nil
}
