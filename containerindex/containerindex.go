// Package containerindex provides the per-container occupancy view (C2):
// for each container, the set of currently placed items and a live count.
// It is snapshot-scoped — callers build one Index from a consistent read
// of the store, mutate the in-memory copy, then the caller commits the
// diff back through store.Store. The index itself never touches the
// store.
package containerindex

import (
	"sort"

	"github.com/orionop/cargox/geometry"
	"github.com/orionop/cargox/models"
)

// Index is a snapshot-scoped view of item occupancy per container.
type Index struct {
	containers map[string]*models.Container
	items      map[string][]*models.Item // containerID -> placed items
}

// New builds an Index from a consistent snapshot of containers and items.
// Items without a placement, or whose placement references a container
// not in containers, are ignored by the per-container views (callers that
// care about unplaced items should consult the item slice directly).
func New(containers []*models.Container, items []*models.Item) *Index {
	idx := &Index{
		containers: make(map[string]*models.Container, len(containers)),
		items:      make(map[string][]*models.Item),
	}
	for _, c := range containers {
		idx.containers[c.ID] = c
	}
	for _, it := range items {
		if it.Placement == nil {
			continue
		}
		if _, ok := idx.containers[it.Placement.ContainerID]; !ok {
			continue
		}
		idx.items[it.Placement.ContainerID] = append(idx.items[it.Placement.ContainerID], it)
	}
	return idx
}

// Container returns the container record for id, or nil.
func (idx *Index) Container(id string) *models.Container {
	return idx.containers[id]
}

// Containers returns all indexed containers, sorted by id for determinism.
func (idx *Index) Containers() []*models.Container {
	out := make([]*models.Container, 0, len(idx.containers))
	for _, c := range idx.containers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ItemsIn returns the items currently placed in container id, in a stable
// order (sorted by item id).
func (idx *Index) ItemsIn(containerID string) []*models.Item {
	items := idx.items[containerID]
	out := make([]*models.Item, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of items currently placed in container id.
func (idx *Index) Count(containerID string) int {
	return len(idx.items[containerID])
}

// Boxes returns the placed items in containerID as geometry.Box values,
// for collision testing.
func (idx *Index) Boxes(containerID string) []geometry.Box {
	items := idx.items[containerID]
	boxes := make([]geometry.Box, 0, len(items))
	for _, it := range items {
		p := it.Placement
		boxes = append(boxes, geometry.Box{X: p.X, Y: p.Y, Z: p.Z, W: p.Width, H: p.Height, D: p.Depth})
	}
	return boxes
}

// Place records it as occupying containerID at placement p. The caller is
// responsible for having validated capacity and non-overlap beforehand;
// Place itself only updates the index bookkeeping.
func (idx *Index) Place(containerID string, it *models.Item, p models.Placement) {
	idx.Remove(it)
	it.Placement = &p
	idx.items[containerID] = append(idx.items[containerID], it)
}

// Remove detaches it from whatever container it currently occupies in
// this index (a no-op if it is not placed).
func (idx *Index) Remove(it *models.Item) {
	if it.Placement == nil {
		return
	}
	cid := it.Placement.ContainerID
	items := idx.items[cid]
	for i, cand := range items {
		if cand.ID == it.ID {
			idx.items[cid] = append(items[:i], items[i+1:]...)
			break
		}
	}
	it.Placement = nil
}

// Resync recomputes Count for containerID directly from the tracked item
// slice, correcting any drift between a running counter kept elsewhere and
// the index's own bookkeeping.
func (idx *Index) Resync(containerID string) int {
	return len(idx.items[containerID])
}
