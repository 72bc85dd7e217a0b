package waste

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orionop/cargox/models"
	"github.com/orionop/cargox/store"
)

func TestClassifyExpiry(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, Classify(&past, nil, 0, now))
	assert.True(t, Classify(&now, nil, 0, now), "expiry exactly now is already expired")
	assert.False(t, Classify(&future, nil, 0, now))
}

func TestClassifyUsageLimit(t *testing.T) {
	now := time.Now()
	limit := 3
	assert.True(t, Classify(nil, &limit, 3, now))
	assert.True(t, Classify(nil, &limit, 4, now), "exceeding the limit still counts as waste")
	assert.False(t, Classify(nil, &limit, 2, now))
}

func TestClassifyZeroLimitNeverWaste(t *testing.T) {
	now := time.Now()
	zero := 0
	assert.False(t, Classify(nil, &zero, 10, now), "a zero usage limit means unlimited, not already-exhausted")
}

func TestClassifyNoPredicates(t *testing.T) {
	assert.False(t, Classify(nil, nil, 0, time.Now()))
}

func TestSummarizeGroupsByZone(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemoryStore()
	require.NoError(t, m.CreateContainers(ctx, []*models.Container{
		{ID: "c1", Width: 1, Height: 1, Depth: 1, Capacity: 5, Zone: "A", Kind: models.KindWaste},
		{ID: "c2", Width: 1, Height: 1, Depth: 1, Capacity: 5, Zone: "B", Kind: models.KindWaste},
	}))
	require.NoError(t, m.CreateItems(ctx, []*models.Item{
		{ID: "w1", Mass: 2, IsWaste: true, Placement: &models.Placement{ContainerID: "c1"}},
		{ID: "w2", Mass: 3, IsWaste: true, Placement: &models.Placement{ContainerID: "c1"}},
		{ID: "w3", Mass: 4, IsWaste: true, Placement: &models.Placement{ContainerID: "c2"}},
		{ID: "w4", Mass: 100, IsWaste: true}, // detached, unassigned zone
		{ID: "not-waste", Mass: 50},
	}))

	summary, err := Summarize(ctx, m)
	require.NoError(t, err)

	byZone := map[string]Summary{}
	for _, s := range summary {
		byZone[s.Zone] = s
	}
	require.Contains(t, byZone, "A")
	require.Contains(t, byZone, "B")
	require.Contains(t, byZone, "")

	assert.Equal(t, 2, byZone["A"].ItemCount)
	assert.Equal(t, 5.0, byZone["A"].TotalMass)
	assert.Equal(t, 1, byZone["B"].ItemCount)
	assert.Equal(t, 4.0, byZone["B"].TotalMass)
	assert.Equal(t, 1, byZone[""].ItemCount)
	assert.Equal(t, 100.0, byZone[""].TotalMass)
}
