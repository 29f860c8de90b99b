package geo

import (
	"errors"
	"math"
	"slices"

	"github.com/drewfead/marquee/internal"
)

const earthRadiusKm = 6371.0

var ErrNoPoints = errors.New("bounding box needs at least one point")

// DistanceKm is the haversine great-circle distance between two coordinates.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// SortByDistance returns a copy of cinemas ordered by distance from origin. Ties keep their
// input order.
func SortByDistance(cinemas []internal.Cinema, origin internal.LatLng) []internal.Cinema {
	type ranked struct {
		cinema internal.Cinema
		km     float64
	}
	rs := make([]ranked, len(cinemas))
	for i, c := range cinemas {
		rs[i] = ranked{cinema: c, km: DistanceKm(origin.Lat, origin.Lng, c.Latitude, c.Longitude)}
	}
	slices.SortStableFunc(rs, func(a, b ranked) int {
		switch {
		case a.km < b.km:
			return -1
		case a.km > b.km:
			return 1
		}
		return 0
	})
	out := make([]internal.Cinema, len(rs))
	for i, r := range rs {
		out[i] = r.cinema
	}
	return out
}

// Box is an axis-aligned lat/lng rectangle.
type Box struct {
	Min internal.LatLng `json:"min"`
	Max internal.LatLng `json:"max"`
}

// BoundingBox returns the extent of points grown by padding degrees on every side.
func BoundingBox(points []internal.LatLng, padding float64) (Box, error) {
	if len(points) == 0 {
		return Box{}, ErrNoPoints
	}
	box := Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box.Min.Lat = math.Min(box.Min.Lat, p.Lat)
		box.Min.Lng = math.Min(box.Min.Lng, p.Lng)
		box.Max.Lat = math.Max(box.Max.Lat, p.Lat)
		box.Max.Lng = math.Max(box.Max.Lng, p.Lng)
	}
	box.Min.Lat -= padding
	box.Min.Lng -= padding
	box.Max.Lat += padding
	box.Max.Lng += padding
	return box, nil
}
