// Package models holds the core's data model: containers, items, placement
// records, and the append-only log event. These are arena-owned objects:
// containers and items carry stable string ids, and relations between them
// (an item's container) are represented as ids plus the container index
// side-table (see containerindex), never as pointers, keeping ownership
// single-directional and avoiding parent/child reference cycles.
package models

import "time"

// ContainerKind distinguishes ordinary stowage containers from waste bins.
type ContainerKind string

const (
	KindStorage ContainerKind = "storage"
	KindWaste   ContainerKind = "waste"
)

// Container is a rectangular volume with a single open face at z=0.
type Container struct {
	ID       string        `json:"id" gorm:"primaryKey" validate:"required"`
	Width    float64       `json:"width" validate:"gt=0"`
	Height   float64       `json:"height" validate:"gt=0"`
	Depth    float64       `json:"depth" validate:"gt=0"`
	Capacity int           `json:"capacity" validate:"gte=0"`
	Zone     string        `json:"zone" gorm:"index"`
	Kind     ContainerKind `json:"container_type" gorm:"column:container_type"`
}

// InteriorVolume returns W*H*D in the container's native units.
func (c Container) InteriorVolume() float64 {
	return c.Width * c.Height * c.Depth
}

// MeanDimension is the arithmetic mean of the three interior dimensions,
// used by the unit-normalization compatibility shim (geometry.Normalize).
func (c Container) MeanDimension() float64 {
	return (c.Width + c.Height + c.Depth) / 3
}

// Placement is the record of where and in what orientation an item sits
// inside a container. (w',h',d') is always a permutation of the item's
// native (w,h,d).
type Placement struct {
	ContainerID string  `json:"container_id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Width       float64 `json:"width"`  // oriented extent along x
	Height      float64 `json:"height"` // oriented extent along y
	Depth       float64 `json:"depth"`  // oriented extent along z
}

// Item is a rectangular object tracked by the planner.
type Item struct {
	ID             string     `json:"id" gorm:"primaryKey" validate:"required"`
	Name           string     `json:"name"`
	Width          float64    `json:"width" validate:"gt=0"`
	Height         float64    `json:"height" validate:"gt=0"`
	Depth          float64    `json:"depth" validate:"gt=0"`
	Mass           float64    `json:"mass" validate:"gte=0"`
	Priority       int        `json:"priority" validate:"gte=0,lte=100"`
	PreferredZone  string     `json:"preferred_zone,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	UsageLimit     *int       `json:"usage_limit,omitempty"`
	UsageCount     int        `json:"usage_count"`
	IsWaste        bool       `json:"is_waste" gorm:"index"`
	LastRetrievedAt *time.Time `json:"last_retrieved_at,omitempty"`
	LastRetrievedBy string     `json:"last_retrieved_by,omitempty"`

	// Placement is nil when the item is not currently placed in any
	// container (just imported, just retrieved-and-detached, or
	// undocked).
	Placement *Placement `json:"placement,omitempty" gorm:"embedded;embeddedPrefix:placement_"`
}

// IsPlaced reports whether the item currently occupies a container slot.
func (it *Item) IsPlaced() bool {
	return it.Placement != nil
}

// Dims returns the item's native dimensions as a triple.
func (it *Item) Dims() [3]float64 {
	return [3]float64{it.Width, it.Height, it.Depth}
}

// Volume returns w*h*d in the item's native units.
func (it *Item) Volume() float64 {
	return it.Width * it.Height * it.Depth
}

// LogEvent is an append-only audit record. IDs are assigned monotonically
// by the store.
type LogEvent struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	ItemID      string    `json:"item_id,omitempty"`
	ContainerID string    `json:"container_id,omitempty"`
	Actor       string    `json:"actor"`
	Details     string    `json:"details,omitempty"`
}
