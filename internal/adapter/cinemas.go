package adapter

import (
	"log/slog"

	"github.com/drewfead/marquee/internal"
	"github.com/google/uuid"
)

type rawCinema struct {
	ID        flexString `json:"id"`
	CinemaID  flexString `json:"cinema_id"`
	Name      flexString `json:"name"`
	City      flexString `json:"city"`
	District  flexString `json:"district"`
	Address   flexString `json:"address"`
	Lat       flexFloat  `json:"lat"`
	Latitude  flexFloat  `json:"latitude"`
	Lng       flexFloat  `json:"lng"`
	Lon       flexFloat  `json:"lon"`
	Longitude flexFloat  `json:"longitude"`
}

func (r rawCinema) coordinate() (internal.LatLng, bool) {
	lat := firstSet(r.Lat, r.Latitude)
	lng := firstSet(r.Lng, r.Lon, r.Longitude)
	if !lat.Set || !lng.Set {
		return internal.LatLng{}, false
	}
	if lat.Value < -90 || lat.Value > 90 || lng.Value < -180 || lng.Value > 180 {
		return internal.LatLng{}, false
	}
	// (0, 0) is what an unset numeric column looks like after export
	if lat.Value == 0 && lng.Value == 0 {
		return internal.LatLng{}, false
	}
	return internal.LatLng{Lat: lat.Value, Lng: lng.Value}, true
}

func firstSet(values ...flexFloat) flexFloat {
	for _, v := range values {
		if v.Set {
			return v
		}
	}
	return flexFloat{}
}

// DecodeCinemas adapts a cinema directory payload. Rows without a usable coordinate get fallback
// and are flagged DefaultedLocation. Rows without an id get one derived from the name; rows with
// neither are dropped.
func DecodeCinemas(data []byte, fallback internal.LatLng) ([]internal.Cinema, error) {
	elems, err := elements(data, string(internal.FeedCinemas))
	if err != nil {
		return nil, err
	}
	raws := decodeEach[rawCinema](elems, string(internal.FeedCinemas))
	cinemas := make([]internal.Cinema, 0, len(raws))
	for i, raw := range raws {
		c := internal.Cinema{
			ID:       first(raw.ID, raw.CinemaID),
			Name:     string(raw.Name),
			City:     string(raw.City),
			District: string(raw.District),
			Address:  string(raw.Address),
		}
		if c.ID == "" {
			if c.Name == "" {
				slog.Debug("adapter: skipped cinema without id or name", "index", i)
				continue
			}
			c.ID = uuid.NewSHA1(cinemaNamespace, []byte(c.Name)).String()
		}
		loc, ok := raw.coordinate()
		if !ok {
			slog.Debug("adapter: cinema without coordinate, using fallback", "id", c.ID, "name", c.Name)
			loc = fallback
			c.DefaultedLocation = true
		}
		c.Latitude, c.Longitude = loc.Lat, loc.Lng
		cinemas = append(cinemas, c)
	}
	return cinemas, nil
}
