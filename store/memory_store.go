package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/orionop/cargox/errors"
	"github.com/orionop/cargox/models"
)

// MemoryStore is the in-memory Store double used by core package tests.
// It is safe for concurrent use, though the core itself never calls it
// concurrently from within a single operation.
type MemoryStore struct {
	mu         sync.RWMutex
	containers map[string]*models.Container
	items      map[string]*models.Item
	logs       []models.LogEvent
	nextLogID  int64
	simClock   time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		containers: make(map[string]*models.Container),
		items:      make(map[string]*models.Item),
		nextLogID:  1,
	}
}

func cloneContainer(c *models.Container) *models.Container {
	cp := *c
	return &cp
}

func cloneItem(it *models.Item) *models.Item {
	cp := *it
	if it.Placement != nil {
		p := *it.Placement
		cp.Placement = &p
	}
	if it.ExpiryDate != nil {
		t := *it.ExpiryDate
		cp.ExpiryDate = &t
	}
	if it.UsageLimit != nil {
		v := *it.UsageLimit
		cp.UsageLimit = &v
	}
	if it.LastRetrievedAt != nil {
		t := *it.LastRetrievedAt
		cp.LastRetrievedAt = &t
	}
	return &cp
}

func (m *MemoryStore) ListContainers(ctx context.Context) ([]*models.Container, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Container, 0, len(m.containers))
	for _, c := range m.containers {
		out = append(out, cloneContainer(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetContainer(ctx context.Context, id string) (*models.Container, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.containers[id]
	if !ok {
		return nil, errors.New(errors.NotFound, "container not found: "+id)
	}
	return cloneContainer(c), nil
}

func (m *MemoryStore) CreateContainers(ctx context.Context, containers []*models.Container) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range containers {
		m.containers[c.ID] = cloneContainer(c)
	}
	return nil
}

func (m *MemoryStore) ListItems(ctx context.Context, filter ItemFilter) ([]*models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Item, 0, len(m.items))
	for _, it := range m.items {
		if filter.Unplaced && it.Placement != nil {
			continue
		}
		if filter.ContainerID != "" {
			if it.Placement == nil || it.Placement.ContainerID != filter.ContainerID {
				continue
			}
		}
		if filter.IsWaste != nil && it.IsWaste != *filter.IsWaste {
			continue
		}
		if filter.Zone != "" {
			if it.Placement == nil {
				continue
			}
			cont, ok := m.containers[it.Placement.ContainerID]
			if !ok || cont.Zone != filter.Zone {
				continue
			}
		}
		out = append(out, cloneItem(it))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetItem(ctx context.Context, id string) (*models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return nil, errors.New(errors.NotFound, "item not found: "+id)
	}
	return cloneItem(it), nil
}

func (m *MemoryStore) CreateItems(ctx context.Context, items []*models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.items[it.ID] = cloneItem(it)
	}
	return nil
}

func (m *MemoryStore) applyUpdate(u ItemUpdate) error {
	it, ok := m.items[u.ID]
	if !ok {
		return errors.New(errors.NotFound, "item not found: "+u.ID)
	}
	if u.ClearPlacement {
		it.Placement = nil
	} else if u.SetPlacement != nil {
		p := *u.SetPlacement
		it.Placement = &p
	}
	if u.UsageCount != nil {
		it.UsageCount = *u.UsageCount
	}
	if u.IsWaste != nil {
		it.IsWaste = *u.IsWaste
	}
	if u.LastRetrievedAt != nil {
		t := *u.LastRetrievedAt
		it.LastRetrievedAt = &t
	}
	if u.LastRetrievedBy != nil {
		it.LastRetrievedBy = *u.LastRetrievedBy
	}
	return nil
}

func (m *MemoryStore) UpdateItem(ctx context.Context, update ItemUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyUpdate(update)
}

func (m *MemoryStore) BulkUpdateItems(ctx context.Context, updates []ItemUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Validate every update resolves before applying any of them, so a
	// bad id in the middle of a batch can't leave a partial write.
	for _, u := range updates {
		if _, ok := m.items[u.ID]; !ok {
			return errors.New(errors.NotFound, "item not found: "+u.ID)
		}
	}
	for _, u := range updates {
		if err := m.applyUpdate(u); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Log(ctx context.Context, event models.LogEvent) (models.LogEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = m.nextLogID
	m.nextLogID++
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	m.logs = append(m.logs, event)
	return event, nil
}

func (m *MemoryStore) ListLogs(ctx context.Context, limit int) ([]models.LogEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.logs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.LogEvent, n)
	copy(out, m.logs[len(m.logs)-n:])
	return out, nil
}

func (m *MemoryStore) SimulationClock(ctx context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.simClock.IsZero() {
		m.simClock = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return m.simClock, nil
}

func (m *MemoryStore) AdvanceSimulationClock(ctx context.Context, days int) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.simClock.IsZero() {
		m.simClock = time.Now().UTC().Truncate(24 * time.Hour)
	}
	m.simClock = m.simClock.AddDate(0, 0, days)
	return m.simClock, nil
}
