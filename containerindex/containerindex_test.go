package containerindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orionop/cargox/models"
)

func sampleContainer(id string) *models.Container {
	return &models.Container{ID: id, Width: 10, Height: 10, Depth: 10, Capacity: 5}
}

func placedItem(id, containerID string) *models.Item {
	return &models.Item{
		ID: id, Width: 1, Height: 1, Depth: 1, Mass: 1,
		Placement: &models.Placement{ContainerID: containerID, Width: 1, Height: 1, Depth: 1},
	}
}

func TestNewIgnoresUnplacedAndDanglingItems(t *testing.T) {
	containers := []*models.Container{sampleContainer("c1")}
	items := []*models.Item{
		placedItem("i1", "c1"),
		{ID: "i2"},                   // unplaced
		placedItem("i3", "ghost-c"), // references a container not in the snapshot
	}
	idx := New(containers, items)

	assert.Equal(t, 1, idx.Count("c1"))
	assert.Equal(t, 0, idx.Count("ghost-c"))
	require.Len(t, idx.ItemsIn("c1"), 1)
	assert.Equal(t, "i1", idx.ItemsIn("c1")[0].ID)
}

func TestItemsInStableOrder(t *testing.T) {
	containers := []*models.Container{sampleContainer("c1")}
	items := []*models.Item{placedItem("i3", "c1"), placedItem("i1", "c1"), placedItem("i2", "c1")}
	idx := New(containers, items)

	got := idx.ItemsIn("c1")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"i1", "i2", "i3"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestPlaceAndRemove(t *testing.T) {
	c := sampleContainer("c1")
	idx := New([]*models.Container{c}, nil)

	it := &models.Item{ID: "i1", Width: 1, Height: 1, Depth: 1}
	idx.Place("c1", it, models.Placement{ContainerID: "c1", X: 1, Y: 2, Z: 3, Width: 1, Height: 1, Depth: 1})

	assert.Equal(t, 1, idx.Count("c1"))
	require.NotNil(t, it.Placement)
	assert.Equal(t, "c1", it.Placement.ContainerID)

	boxes := idx.Boxes("c1")
	require.Len(t, boxes, 1)
	assert.Equal(t, 1.0, boxes[0].X)

	idx.Remove(it)
	assert.Equal(t, 0, idx.Count("c1"))
	assert.Nil(t, it.Placement)
}

func TestRemoveNoopWhenUnplaced(t *testing.T) {
	idx := New([]*models.Container{sampleContainer("c1")}, nil)
	it := &models.Item{ID: "i1"}
	assert.NotPanics(t, func() { idx.Remove(it) })
}

func TestPlaceMovesBetweenContainers(t *testing.T) {
	c1, c2 := sampleContainer("c1"), sampleContainer("c2")
	idx := New([]*models.Container{c1, c2}, nil)

	it := &models.Item{ID: "i1", Width: 1, Height: 1, Depth: 1}
	idx.Place("c1", it, models.Placement{ContainerID: "c1", Width: 1, Height: 1, Depth: 1})
	idx.Place("c2", it, models.Placement{ContainerID: "c2", Width: 1, Height: 1, Depth: 1})

	assert.Equal(t, 0, idx.Count("c1"), "Place must detach from the prior container")
	assert.Equal(t, 1, idx.Count("c2"))
}

func TestResyncMatchesCount(t *testing.T) {
	idx := New([]*models.Container{sampleContainer("c1")}, []*models.Item{placedItem("i1", "c1")})
	assert.Equal(t, idx.Count("c1"), idx.Resync("c1"))
}

func TestContainersSortedByID(t *testing.T) {
	idx := New([]*models.Container{sampleContainer("c2"), sampleContainer("c1")}, nil)
	out := idx.Containers()
	require.Len(t, out, 2)
	assert.Equal(t, "c1", out[0].ID)
	assert.Equal(t, "c2", out[1].ID)
}
