// Package match selects the nearest available resource for an alert and
// estimates its time of arrival. Selection is a pure computation over a
// snapshot of the resource set; availability is only consumed here, never
// mutated.
package match

import (
	"context"
	"errors"
	"math"

	"github.com/acasal/alertd/core/geo"
	"github.com/acasal/alertd/core/model"
)

// ErrNoResource reports that no available resource of the requested
// category exists. It is a normal operational outcome, not a failure: the
// alert stays reported until capacity appears.
var ErrNoResource = errors.New("match: no resource available")

// Candidate is the matcher's selection, with distance and ETA computed at
// match time. Both values are frozen into the assignment record.
type Candidate struct {
	Resource   model.Resource
	DistanceM  float64
	ETASeconds int
}

// ETAMinutes returns the estimated time of arrival in whole minutes.
func (c Candidate) ETAMinutes() int { return c.ETASeconds / 60 }

// ResourceSource provides the availability snapshot the matcher ranks.
type ResourceSource interface {
	AvailableResources(ctx context.Context, c model.Category) ([]model.Resource, error)
}

// Matcher ranks available resources by great-circle distance.
type Matcher struct {
	src ResourceSource
}

func New(src ResourceSource) *Matcher {
	return &Matcher{src: src}
}

// FindNearest returns the closest available resource of the given
// category, or ErrNoResource when the candidate set is empty.
func (m *Matcher) FindNearest(ctx context.Context, cat model.Category, loc model.Location) (Candidate, error) {
	rs, err := m.src.AvailableResources(ctx, cat)
	if err != nil {
		return Candidate{}, err
	}
	best, ok := Nearest(rs, cat, loc)
	if !ok {
		return Candidate{}, ErrNoResource
	}
	return best, nil
}

// Nearest ranks the given resources and returns the closest one matching
// the category and availability constraints. Ties break on the lowest
// resource identifier so the result is deterministic for equal inputs.
func Nearest(rs []model.Resource, cat model.Category, loc model.Location) (Candidate, bool) {
	var best Candidate
	found := false
	for _, r := range rs {
		if r.Category != cat || !r.Available {
			continue
		}
		d := geo.Distance(r.Location, loc)
		if found && (d > best.DistanceM || (d == best.DistanceM && r.ID >= best.Resource.ID)) {
			continue
		}
		best = Candidate{Resource: r, DistanceM: d, ETASeconds: ETASeconds(d, r)}
		found = true
	}
	return best, found
}

// ETASeconds estimates arrival time: travel at the resource's average
// speed plus its fixed preparation delay.
func ETASeconds(distanceM float64, r model.Resource) int {
	travel := (distanceM / 1000.0) / (r.AvgSpeedKMH / 60.0) * 60
	return int(math.Round(travel)) + r.PrepDelayS
}
