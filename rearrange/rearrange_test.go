package rearrange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orionop/cargox/models"
	"github.com/orionop/cargox/store"
)

func TestEfficiencyScorePenalizesExtremes(t *testing.T) {
	atTarget := efficiencyScore(0.75, 0.75)
	low := efficiencyScore(0.05, 0.75)
	high := efficiencyScore(0.95, 0.75)

	assert.Equal(t, 100.0, atTarget)
	assert.Less(t, low, 100.0-70.0, "below-20%% utilization carries the 0.7x penalty")
	assert.Less(t, high, 100.0-20.0*0.8+0.01, "above-90%% utilization carries the 0.8x penalty")
}

func TestMoveTimeEstimateCrossZoneAndPriority(t *testing.T) {
	light := &models.Item{Mass: 2, Priority: 10}
	heavyHighPriority := &models.Item{Mass: 2, Priority: 90}

	sameZone := moveTimeEstimate(light, false)
	crossZone := moveTimeEstimate(light, true)
	assert.Greater(t, crossZone, sameZone, "cross-zone adds 10 min vs 3 for same-zone")

	withPriority := moveTimeEstimate(heavyHighPriority, false)
	assert.Greater(t, withPriority, sameZone, "priority > 70 adds a 5-minute handling cost")
}

func TestFitsSomeOrientationTriesAllSixPermutations(t *testing.T) {
	it := &models.Item{Width: 0.3, Height: 1.5, Depth: 0.5}
	c := &models.Container{Width: 2, Height: 0.3, Depth: 1}
	assert.True(t, fitsSomeOrientation(it, c), "orientation (1.5,0.3,0.5) should fit")
}

func setupRearrangeStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemoryStore()
	require.NoError(t, m.CreateContainers(ctx, []*models.Container{
		{ID: "full", Width: 10, Height: 10, Depth: 10, Capacity: 5, Zone: "A", Kind: models.KindStorage},
		{ID: "empty", Width: 10, Height: 10, Depth: 10, Capacity: 5, Zone: "A", Kind: models.KindStorage},
	}))
	var items []*models.Item
	for i := 0; i < 4; i++ {
		items = append(items, &models.Item{
			ID: "low-" + string(rune('a'+i)), Width: 1, Height: 1, Depth: 1, Mass: 1, Priority: 10,
			Placement: &models.Placement{ContainerID: "full", X: float64(i), Y: 0, Z: 0, Width: 1, Height: 1, Depth: 1},
		})
	}
	items = append(items, &models.Item{ID: "high", Width: 1, Height: 1, Depth: 1, Mass: 1, Priority: 95,
		Placement: &models.Placement{ContainerID: "full", X: 4, Y: 0, Z: 0, Width: 1, Height: 1, Depth: 1}})
	require.NoError(t, m.CreateItems(ctx, items))
	return m
}

func TestPlanRearrangementOnlyMovesBelowThreshold(t *testing.T) {
	m := setupRearrangeStore(t)
	plan, err := PlanRearrangement(context.Background(), m, zap.NewNop(), Options{PriorityThreshold: 20, MaxMovements: 10})
	require.NoError(t, err)

	for _, mv := range plan.Moves {
		assert.NotEqual(t, "high", mv.ItemID, "priority 95 must never move at threshold 20")
	}
}

func TestPlanRearrangementNeverTargetsSourceContainer(t *testing.T) {
	m := setupRearrangeStore(t)
	plan, err := PlanRearrangement(context.Background(), m, zap.NewNop(), Options{PriorityThreshold: 50, MaxMovements: 10})
	require.NoError(t, err)
	for _, mv := range plan.Moves {
		assert.NotEqual(t, mv.SourceContainerID, mv.DestContainerID)
	}
}

func TestPlanRearrangementRespectsMaxMovements(t *testing.T) {
	m := setupRearrangeStore(t)
	plan, err := PlanRearrangement(context.Background(), m, zap.NewNop(), Options{PriorityThreshold: 50, MaxMovements: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(plan.Moves), 1)
}

func TestPlanRearrangementRaisesThresholdWhenNoCandidates(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemoryStore()
	require.NoError(t, m.CreateContainers(ctx, []*models.Container{
		{ID: "c1", Width: 10, Height: 10, Depth: 10, Capacity: 5, Kind: models.KindStorage},
		{ID: "c2", Width: 10, Height: 10, Depth: 10, Capacity: 5, Kind: models.KindStorage},
	}))
	require.NoError(t, m.CreateItems(ctx, []*models.Item{
		{ID: "only-high", Width: 1, Height: 1, Depth: 1, Mass: 1, Priority: 65,
			Placement: &models.Placement{ContainerID: "c1", Width: 1, Height: 1, Depth: 1}},
	}))

	plan, err := PlanRearrangement(ctx, m, zap.NewNop(), Options{PriorityThreshold: 10, MaxMovements: 5})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, plan.FinalThreshold, 60, "threshold steps up by 20 until a candidate qualifies or the cap is reached")
}

func TestPlanRearrangementCapacitySafetyAtEveryPrefix(t *testing.T) {
	m := setupRearrangeStore(t)
	plan, err := PlanRearrangement(context.Background(), m, zap.NewNop(), Options{PriorityThreshold: 50, MaxMovements: 10})
	require.NoError(t, err)

	virtualCounts := map[string]int{"full": 5, "empty": 0}
	containers, err := m.ListContainers(context.Background())
	require.NoError(t, err)
	capByID := map[string]int{}
	for _, c := range containers {
		capByID[c.ID] = c.Capacity
	}
	for _, mv := range plan.Moves {
		virtualCounts[mv.SourceContainerID]--
		virtualCounts[mv.DestContainerID]++
		assert.LessOrEqual(t, virtualCounts[mv.DestContainerID], capByID[mv.DestContainerID])
	}
}

func TestApplyReVerifiesGeometryAtDestination(t *testing.T) {
	ctx := context.Background()
	m := setupRearrangeStore(t)
	plan, err := PlanRearrangement(ctx, m, zap.NewNop(), Options{PriorityThreshold: 50, MaxMovements: 10})
	require.NoError(t, err)

	applied, failed, err := Apply(ctx, m, zap.NewNop(), plan)
	require.NoError(t, err)
	assert.Equal(t, len(plan.Moves), len(applied)+len(failed))

	for _, p := range applied {
		it, err := m.GetItem(ctx, p.ItemID)
		require.NoError(t, err)
		require.NotNil(t, it.Placement)
		assert.Equal(t, p.ContainerID, it.Placement.ContainerID)
	}
}
