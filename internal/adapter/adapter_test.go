package adapter

import (
	"testing"

	"github.com/drewfead/marquee/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fallback = internal.LatLng{Lat: 25.0330, Lng: 121.5654}

func TestUnit_DecodeTheaterBlocks_GroupedSnakeCase(t *testing.T) {
	blocks, err := DecodeTheaterBlocks([]byte(`[
		{
			"theater_id": 1001,
			"theater_name": "美麗華大直影城",
			"showtimes_by_date": [
				{"date": "2026-10-17", "showtimes": [
					{"time": "13:00 (3D)", "movie_id": 42, "movie_display_title": "沙丘：第二部", "lang": "英語", "ticket_price": "320", "booking_link": "https://example.test/b/1"},
					{"time": "15:00", "movie_name": "沙丘", "type": "IMAX"}
				]},
				{"date": "明天", "showtimes": "not-a-list"}
			]
		}
	]`), "")
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	b := blocks[0]
	assert.Equal(t, "1001", b.TheaterID)
	assert.Equal(t, "美麗華大直影城", b.TheaterName)
	assert.False(t, b.GeneratedID)
	require.Len(t, b.ShowtimesByDate, 2)
	assert.Equal(t, "2026-10-17", b.ShowtimesByDate[0].Date)
	assert.Equal(t, []internal.Showtime{
		{Time: "13:00 (3D)", MovieID: "42", MovieLabel: "沙丘：第二部", Language: "英語", TicketPrice: 320, BookingLink: "https://example.test/b/1"},
		{Time: "15:00", MovieLabel: "沙丘", Attributes: []string{"IMAX"}},
	}, b.ShowtimesByDate[0].Showtimes)
	assert.Equal(t, "明天", b.ShowtimesByDate[1].Date)
	assert.Empty(t, b.ShowtimesByDate[1].Showtimes)
}

func TestUnit_DecodeTheaterBlocks_FlatCamelCase(t *testing.T) {
	blocks, err := DecodeTheaterBlocks([]byte(`{"data": [
		{
			"theaterId": "T7",
			"theaterName": "京站威秀影城",
			"showtimes": [
				{"time": "10:00", "date": "2026-10-18"},
				{"time": "11:00"},
				{"time": "12:00", "date": "2026-10-18"}
			]
		}
	]}`), "2026-10-17")
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	b := blocks[0]
	assert.Equal(t, "T7", b.TheaterID)
	require.Len(t, b.ShowtimesByDate, 2)
	assert.Equal(t, "2026-10-18", b.ShowtimesByDate[0].Date)
	assert.Len(t, b.ShowtimesByDate[0].Showtimes, 2)
	assert.Equal(t, "2026-10-17", b.ShowtimesByDate[1].Date)
	assert.True(t, b.HasShowtimes())
}

func TestUnit_DecodeTheaterBlocks_GeneratedIDs(t *testing.T) {
	payload := []byte(`[
		{"theater_name": "無名影城", "showtimes": []},
		{"showtimes": [{"time": "10:00"}]},
		"garbage",
		{"theater_id": "", "theaterId": "", "theater_name": "無名影城"}
	]`)
	blocks, err := DecodeTheaterBlocks(payload, "")
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	assert.True(t, blocks[0].GeneratedID)
	assert.NotEmpty(t, blocks[0].TheaterID)
	assert.Equal(t, blocks[0].TheaterID, blocks[1].TheaterID, "ids derive from the name deterministically")
	assert.False(t, blocks[0].HasShowtimes())

	again, err := DecodeTheaterBlocks(payload, "")
	require.NoError(t, err)
	assert.Equal(t, blocks, again)
}

func TestUnit_DecodeTheaterBlocks_Malformed(t *testing.T) {
	_, err := DecodeTheaterBlocks([]byte(`{not json`), "")
	require.ErrorIs(t, err, ErrMalformedFeed)

	_, err = DecodeTheaterBlocks([]byte(`{"theaters": 1}`), "")
	require.ErrorIs(t, err, ErrMalformedFeed)

	blocks, err := DecodeTheaterBlocks(nil, "")
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestUnit_DecodeCinemas(t *testing.T) {
	cinemas, err := DecodeCinemas([]byte(`[
		{"id": 9, "name": "美麗華影城", "lat": 25.0834, "lng": 121.5570, "city": "台北市", "district": "中山區", "address": "敬業三路20號"},
		{"id": "C2", "name": "京站威秀影城", "latitude": "25.0494", "longitude": "121.5170"},
		{"id": "C3", "name": "無座標影城"},
		{"id": "C4", "name": "零座標影城", "lat": 0, "lng": 0},
		{"name": "無編號影城", "lat": 25.1, "lon": 121.6},
		{"city": "台北市"}
	]`), fallback)
	require.NoError(t, err)
	require.Len(t, cinemas, 5)

	assert.Equal(t, internal.Cinema{
		ID: "9", Name: "美麗華影城", City: "台北市", District: "中山區", Address: "敬業三路20號",
		Latitude: 25.0834, Longitude: 121.5570,
	}, cinemas[0])
	assert.InDelta(t, 25.0494, cinemas[1].Latitude, 1e-9)
	assert.False(t, cinemas[1].DefaultedLocation)

	assert.True(t, cinemas[2].DefaultedLocation)
	assert.Equal(t, fallback, cinemas[2].Location())
	assert.True(t, cinemas[3].DefaultedLocation)

	assert.NotEmpty(t, cinemas[4].ID)
	assert.InDelta(t, 121.6, cinemas[4].Longitude, 1e-9)
	assert.False(t, cinemas[4].Synthetic)
}

func TestUnit_DecodeBoxOffice(t *testing.T) {
	entries, err := DecodeBoxOffice([]byte(`[
		{"movie_id": 1, "rank": 1, "tickets": 123456, "release_date": "2026-10-01T00:00:00.000Z",
		 "full_title": "沙丘：第二部 Dune: Part Two", "chinese_title": "沙丘：第二部", "english_title": "Dune: Part Two",
		 "poster_path": "/abc.jpg", "tmdb_id": 693134},
		{"id": "2", "rank": "2", "tickets": null, "title": "會計師2", "poster_url": "https://cdn.example.test/p.jpg"},
		{"rank": 3, "english_title": "Untitled"},
		{"rank": 4}
	]`))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	top := entries[0]
	assert.Equal(t, "1", top.Movie.ID)
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, int64(123456), top.Tickets)
	assert.Equal(t, "2026-10-01", top.Movie.ReleaseDate)
	assert.Equal(t, "沙丘：第二部", top.Movie.DisplayTitle())
	assert.Equal(t, int64(693134), top.Movie.TMDBID)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", top.PosterURL)

	assert.Equal(t, "會計師2", entries[1].Movie.DisplayTitle())
	assert.Equal(t, 2, entries[1].Rank)
	assert.Zero(t, entries[1].Tickets)
	assert.Equal(t, "https://cdn.example.test/p.jpg", entries[1].PosterURL)

	assert.Equal(t, "Untitled", entries[2].Movie.FullTitle)
	assert.NotEmpty(t, entries[2].Movie.ID)
}

func TestUnit_PosterURL(t *testing.T) {
	assert.Equal(t, "https://x.test/a.jpg", PosterURL("https://x.test/a.jpg", "/b.jpg"))
	assert.Equal(t, TMDBImageBase+"/b.jpg", PosterURL("", "/b.jpg"))
	assert.Equal(t, TMDBImageBase+"/b.jpg", PosterURL("", "b.jpg"))
	assert.Equal(t, TMDBImageBase+"/c.jpg", PosterURL("/c.jpg", ""))
	assert.Equal(t, "", PosterURL("", ""))
}

func TestUnit_FormatTickets(t *testing.T) {
	tests := []struct {
		n        int64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0千"},
		{1500, "1.5千"},
		{10000, "1.0萬"},
		{123456, "12.3萬"},
		{100000000, "1.0億"},
		{250000000, "2.5億"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTickets(tt.n))
		})
	}
}
