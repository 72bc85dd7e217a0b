// Package store defines the object store capability the core depends on:
// a single interface with two implementations — a real transactional
// store (PGStore, gorm+postgres) and an in-memory test double
// (MemoryStore). Every core operation reads a consistent snapshot
// through this interface, computes against an in-memory copy, and writes
// back through it as one logical transaction.
//
// Update payloads are tagged structs, not dynamically typed dictionaries:
// optional fields are explicit pointers, and detaching a placement is its
// own explicit flag rather than inferred from a nil pointer.
package store

import (
	"context"
	"time"

	"github.com/orionop/cargox/models"
)

// ItemFilter narrows ListItems. Zero-value fields are "no filter".
type ItemFilter struct {
	ContainerID string
	Zone        string
	IsWaste     *bool
	Unplaced    bool // when true, only items with no placement
}

// ItemUpdate is a tagged, partial update to one item. Only non-nil fields
// (or fields with an explicit "Clear*" flag) are applied.
type ItemUpdate struct {
	ID string

	SetPlacement   *models.Placement
	ClearPlacement bool

	UsageCount *int
	IsWaste    *bool

	LastRetrievedAt *time.Time
	LastRetrievedBy *string
}

// Store is the core's only dependency on persistence.
type Store interface {
	ListContainers(ctx context.Context) ([]*models.Container, error)
	GetContainer(ctx context.Context, id string) (*models.Container, error)
	CreateContainers(ctx context.Context, containers []*models.Container) error

	ListItems(ctx context.Context, filter ItemFilter) ([]*models.Item, error)
	GetItem(ctx context.Context, id string) (*models.Item, error)
	CreateItems(ctx context.Context, items []*models.Item) error

	// UpdateItem applies one tagged update within an implicit transaction.
	UpdateItem(ctx context.Context, update ItemUpdate) error
	// BulkUpdateItems applies many tagged updates atomically: all succeed
	// or none are committed.
	BulkUpdateItems(ctx context.Context, updates []ItemUpdate) error

	// Log appends an audit event and assigns it a monotonic id.
	Log(ctx context.Context, event models.LogEvent) (models.LogEvent, error)
	ListLogs(ctx context.Context, limit int) ([]models.LogEvent, error)

	// SimulationClock returns the current simulated date. It is
	// initialized (lazily, on first read) to the real wall-clock date;
	// every subsequent comparison uses this simulated value, never
	// wall-clock time directly.
	SimulationClock(ctx context.Context) (time.Time, error)
	// AdvanceSimulationClock advances the logical clock by days and
	// returns the new simulated date. The clock is durable store state:
	// successive calls compound.
	AdvanceSimulationClock(ctx context.Context, days int) (time.Time, error)
}
