package model

import (
	"fmt"
	"time"
)

// Resource is a dispatchable emergency-response unit. The availability
// flag is the only field the engine mutates, and only inside an atomic
// assignment or release; everything else is reference data owned by the
// datastore.
type Resource struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Municipality string   `json:"municipality"`
	Category     Category `json:"category"`
	Location     Location `json:"location"`
	Available    bool     `json:"available"`
	AvgSpeedKMH  float64  `json:"avg_speed_kmh"` // average travel speed
	PrepDelayS   int      `json:"prep_delay_s"`  // fixed preparation delay before departure
}

// Validate checks that the resource reference data is sound. Travel speed
// must be positive or ETA estimation would divide by zero.
func (r Resource) Validate() error {
	if !r.Category.Valid() {
		return fmt.Errorf("unknown category %q", r.Category)
	}
	if !r.Location.Valid() {
		return fmt.Errorf("coordinates out of range: %.6f, %.6f", r.Location.Lat, r.Location.Lon)
	}
	if r.AvgSpeedKMH <= 0 {
		return fmt.Errorf("average speed must be positive")
	}
	if r.PrepDelayS < 0 {
		return fmt.Errorf("preparation delay must not be negative")
	}
	return nil
}

// Assignment links one alert to the resource dispatched for it. Once
// created it is immutable history: resolving the alert flips state and
// availability but never edits the assignment.
type Assignment struct {
	ID         int64     `json:"id"`
	AlertID    int64     `json:"alert_id"`
	ResourceID int64     `json:"resource_id"`
	DistanceM  float64   `json:"distance_m"`
	ETASeconds int       `json:"eta_seconds"`
	CreatedAt  time.Time `json:"created_at"`
}

// ETAMinutes returns the estimated time of arrival in whole minutes.
func (a Assignment) ETAMinutes() int {
	return a.ETASeconds / 60
}
