// Package geo provides the great-circle distance used to rank candidate
// resources. The computation is self-contained so the engine does not
// depend on any datastore's geospatial extension.
package geo

import (
	"math"

	"github.com/acasal/alertd/core/model"
)

// earthRadiusM is the IUGG mean earth radius.
const earthRadiusM = 6371008.8

// Distance returns the great-circle surface distance in meters between two
// WGS84 points, computed with the haversine formula on a spherical earth.
// The spherical approximation is within ~0.5% of an ellipsoidal geodesic,
// which keeps nearest-candidate ranking stable; callers must not rely on
// bit-exact distances.
func Distance(a, b model.Location) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
