package model

import "time"

// Category identifies the kind of emergency an alert reports and, by
// extension, the kind of resource that may respond to it.
type Category string

const (
	CategoryMedical Category = "medical"
	CategoryPolice  Category = "police"
	CategoryFire    Category = "fire"
	CategoryRescue  Category = "rescue"
)

// CategoryFromCode maps a wire category code to a Category. Unknown codes
// fall back to medical; this mirrors the deployed device firmware and is
// documented dispatch policy, not an error.
func CategoryFromCode(code byte) Category {
	switch code {
	case 1:
		return CategoryMedical
	case 2:
		return CategoryPolice
	case 3:
		return CategoryFire
	case 4:
		return CategoryRescue
	default:
		return CategoryMedical
	}
}

// Code returns the wire code for the category.
func (c Category) Code() byte {
	switch c {
	case CategoryPolice:
		return 2
	case CategoryFire:
		return 3
	case CategoryRescue:
		return 4
	default:
		return 1
	}
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMedical, CategoryPolice, CategoryFire, CategoryRescue:
		return true
	}
	return false
}

// AlertState tracks an alert through its lifecycle. Transitions are
// reported -> assigned -> resolved; a reported alert with no capacity may
// move straight to resolved, and nothing ever leaves resolved.
type AlertState string

const (
	StateReported AlertState = "reported"
	StateAssigned AlertState = "assigned"
	StateResolved AlertState = "resolved"
)

// Valid reports whether s is one of the known lifecycle states.
func (s AlertState) Valid() bool {
	switch s {
	case StateReported, StateAssigned, StateResolved:
		return true
	}
	return false
}

// Location is a WGS84 point in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within the WGS84 coordinate ranges.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// AlertObservation is the decoded content of a single telemetry frame. It
// is ephemeral: the decoder produces it and the lifecycle engine turns it
// into a persisted Alert.
type AlertObservation struct {
	Category Category
	Location Location
	Battery  uint8
	Flags    byte
}

// Alert is the persisted record of a reported emergency awaiting or
// holding a resource assignment. The identifier is assigned by the
// datastore on creation.
type Alert struct {
	ID        int64      `json:"id"`
	SourceID  string     `json:"source_id"`
	Category  Category   `json:"category"`
	Location  Location   `json:"location"`
	State     AlertState `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
}
