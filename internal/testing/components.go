package testing

import (
	"github.com/tarantool/go-persist/entity"
	"github.com/tarantool/go-persist/metadata"
)

// Position is a component with scalar fields only.
type Position struct {
	X, Y, Z float64
}

// Health is a component with replicated fields.
type Health struct {
	Current int `replicate:""`
	Max     int `persist:"max" replicate:"owner-to-server,initial-only"`
}

// Inventory owns the entities of its items.
type Inventory struct {
	Items    []entity.Ref `owned:""`
	Selected int
	Labels   map[string]string
	Viewer   entity.Ref
}

// Lamp declares its type level markers.
type Lamp struct {
	On bool
}

// ComponentMarkers implements metadata.MarkerProvider.
func (Lamp) ComponentMarkers() []metadata.Marker {
	return []metadata.Marker{
		metadata.ForceBlockActive{RetainUnalteredOnBlockChange: true},
		metadata.RequiresBlockLifecycleEvents{},
	}
}

// Nameplate marks a field holding no references as owned.
type Nameplate struct {
	Text string `owned:""`
}

// Mount owns a single entity, referenced through a pointer.
type Mount struct {
	Rider  *entity.Ref `owned:""`
	Saddle string
}
