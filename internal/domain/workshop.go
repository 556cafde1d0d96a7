package domain

import "fmt"

// StationID identifies a processing station (workshop).
type StationID string

const (
	StationCutting         StationID = "cutting"
	StationCNC             StationID = "cnc"
	StationPressing        StationID = "pressing"
	StationEdging          StationID = "edging"
	StationSanding         StationID = "sanding"
	StationPainting        StationID = "painting"
	StationGlassProcessing StationID = "glass_processing"
	StationPackaging       StationID = "packaging"
)

// ItemClass categorizes a line item and restricts which stations its
// stages may visit.
type ItemClass string

const (
	ClassRegular ItemClass = "regular"
	ClassGlass   ItemClass = "glass"
)

// WorkshopGraph is the fixed routing table for production stages. Regular
// items walk the full chain; glass items are restricted to exactly two
// stations, initial processing and final aggregation.
type WorkshopGraph struct {
	regularRoute []StationID
	glassRoute   []StationID
}

// NewWorkshopGraph builds the default routing graph.
func NewWorkshopGraph() *WorkshopGraph {
	return &WorkshopGraph{
		regularRoute: []StationID{
			StationCutting,
			StationCNC,
			StationPressing,
			StationEdging,
			StationSanding,
			StationPainting,
			StationPackaging,
		},
		glassRoute: []StationID{
			StationGlassProcessing,
			StationPackaging,
		},
	}
}

func (g *WorkshopGraph) routeFor(class ItemClass) []StationID {
	if class == ClassGlass {
		return g.glassRoute
	}
	return g.regularRoute
}

// NextStation resolves the station after current for the given item class.
// The second return is false when current is the final station of the route.
func (g *WorkshopGraph) NextStation(current StationID, class ItemClass) (StationID, bool, error) {
	route := g.routeFor(class)
	for i, station := range route {
		if station != current {
			continue
		}
		if i+1 >= len(route) {
			return "", false, nil
		}
		return route[i+1], true, nil
	}
	return "", false, fmt.Errorf("%w: %s for class %s", ErrUnknownStation, current, class)
}

// AllowedFor reports whether the item class may be routed to the station.
func (g *WorkshopGraph) AllowedFor(station StationID, class ItemClass) bool {
	for _, s := range g.routeFor(class) {
		if s == station {
			return true
		}
	}
	return false
}

// Position returns the station's sequence index in the route for the item
// class.
func (g *WorkshopGraph) Position(station StationID, class ItemClass) (int, bool) {
	for i, s := range g.routeFor(class) {
		if s == station {
			return i, true
		}
	}
	return 0, false
}

// IsKnown reports whether the station exists in any route.
func (g *WorkshopGraph) IsKnown(station StationID) bool {
	return g.AllowedFor(station, ClassRegular) || g.AllowedFor(station, ClassGlass)
}

// FinalStation is the final-aggregation station. Transfers into it always
// target an aggregated stage, and confirming there records packaged output.
func (g *WorkshopGraph) FinalStation() StationID {
	return StationPackaging
}

// InitialStation returns the first station of the route for the item class.
func (g *WorkshopGraph) InitialStation(class ItemClass) StationID {
	return g.routeFor(class)[0]
}

// LayerMultiplierStation is the one station whose gross pay is multiplied
// by the line item's paint layer count.
func (g *WorkshopGraph) LayerMultiplierStation() StationID {
	return StationPainting
}
