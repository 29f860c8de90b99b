package geo

import (
	"github.com/drewfead/marquee/internal"
)

const (
	DefaultSinglePointPadding = 0.01
	DefaultMultiPointPadding  = 0.002
)

// DefaultFallback is central Taipei, used when no real coordinate is known.
var DefaultFallback = internal.LatLng{Lat: 25.0330, Lng: 121.5654}

// Ranker bundles the geographic defaults used for list ordering and map framing.
type Ranker struct {
	fallback           internal.LatLng
	singlePointPadding float64
	multiPointPadding  float64
}

type RankerOption func(*Ranker)

func WithFallback(p internal.LatLng) RankerOption {
	return func(r *Ranker) {
		r.fallback = p
	}
}

// WithPadding sets the viewport padding for one point and for several points.
func WithPadding(single, multi float64) RankerOption {
	return func(r *Ranker) {
		if single > 0 {
			r.singlePointPadding = single
		}
		if multi > 0 {
			r.multiPointPadding = multi
		}
	}
}

func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{
		fallback:           DefaultFallback,
		singlePointPadding: DefaultSinglePointPadding,
		multiPointPadding:  DefaultMultiPointPadding,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Ranker) Fallback() internal.LatLng {
	return r.fallback
}

// Sort orders cinemas by distance from origin, or returns them unchanged when origin is nil.
func (r *Ranker) Sort(cinemas []internal.Cinema, origin *internal.LatLng) []internal.Cinema {
	if origin == nil {
		return append([]internal.Cinema(nil), cinemas...)
	}
	return SortByDistance(cinemas, *origin)
}

// Center is the mean coordinate of the cinemas, or the fallback point when there are none.
func (r *Ranker) Center(cinemas []internal.Cinema) internal.LatLng {
	if len(cinemas) == 0 {
		return r.fallback
	}
	var c internal.LatLng
	for _, cinema := range cinemas {
		c.Lat += cinema.Latitude
		c.Lng += cinema.Longitude
	}
	n := float64(len(cinemas))
	return internal.LatLng{Lat: c.Lat / n, Lng: c.Lng / n}
}

// Viewport frames the cinemas and the optional origin. A single point gets the wider padding so
// the map never collapses to zero size. With nothing to frame, the fallback point is framed.
func (r *Ranker) Viewport(cinemas []internal.Cinema, origin *internal.LatLng) Box {
	points := make([]internal.LatLng, 0, len(cinemas)+1)
	for _, c := range cinemas {
		points = append(points, c.Location())
	}
	if origin != nil {
		points = append(points, *origin)
	}
	if len(points) == 0 {
		points = append(points, r.fallback)
	}
	padding := r.multiPointPadding
	if len(points) == 1 {
		padding = r.singlePointPadding
	}
	// points is never empty here
	box, _ := BoundingBox(points, padding)
	return box
}
