package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"guidecache/pkg/models"
)

func testRooms(t *testing.T) []models.Room {
	t.Helper()
	rooms, err := models.ParseRooms([]byte(`[
		{"title":"Entrance","image":"entrance.jpg","paintings":[{"image":"night.jpg"},{}]},
		{"title":"Gallery","paintings":[{"image":"milkmaid.jpg"}]}
	]`))
	require.NoError(t, err)
	return rooms
}

func TestBuildOrderAndContent(t *testing.T) {
	rooms := testRooms(t)
	assets := Build("nl-NL", rooms)

	urls := make([]string, 0, len(assets))
	for _, a := range assets {
		urls = append(urls, a.URL)
	}
	require.Equal(t, []string{
		"/data/nl-NL_rooms.json",
		"/audio/nl-NL.room1.mp3",
		"/images/entrance.jpg",
		"/audio/nl-NL.room1-p1.mp3",
		"/images/night.jpg",
		"/audio/nl-NL.room1-p2.mp3",
		"/audio/nl-NL.room2.mp3",
		"/audio/nl-NL.room2-p1.mp3",
		"/images/milkmaid.jpg",
	}, urls)

	require.Equal(t, ClassData, assets[0].Class)
	require.Equal(t, -1, assets[0].RoomIndex)
	require.Equal(t, ClassAudio, assets[1].Class)
	require.Equal(t, LevelRoom, assets[1].Level)
	require.Equal(t, "room1", assets[1].RoomID)
	require.Equal(t, LevelPainting, assets[3].Level)
	require.Equal(t, "room1-p1", assets[3].PaintingID)
	require.Equal(t, 1, assets[6].RoomIndex)
}

func TestBuildDeterministic(t *testing.T) {
	rooms := testRooms(t)
	a := Build("de-DE", rooms)
	b := Build("de-DE", rooms)
	require.Equal(t, a, b)
}

func TestImagesAreLocaleFree(t *testing.T) {
	rooms := testRooms(t)
	nl := Build("nl-NL", rooms)
	fr := Build("fr-FR", rooms)
	for i := range nl {
		if nl[i].Class == ClassImage {
			require.Equal(t, nl[i].URL, fr[i].URL, "image URLs must be shared across locales")
		} else {
			require.NotEqual(t, nl[i].URL, fr[i].URL)
		}
	}
}

func TestPaths(t *testing.T) {
	require.Equal(t, "/data/en-GB_rooms.json", DataPath("en-GB"))
	require.Equal(t, "/audio/zh-TW.room2-p3.mp3", AudioPath("zh-TW", "room2-p3"))
	require.Equal(t, "/images/vermeer.jpg", ImagePath("vermeer.jpg"))
}

func TestBuildCountsForMixedRooms(t *testing.T) {
	rooms, err := models.ParseRooms([]byte(`[
		{"image":"r1.jpg","paintings":[{"image":"a.jpg"},{}]},
		{"paintings":[{}]},
		{"image":"r3.jpg","paintings":[{"image":"b.jpg"},{},{"image":"c.jpg"}]}
	]`))
	require.NoError(t, err)
	assets := Build("en-GB", rooms)

	var data, roomAudio, roomImage, paintingAudio, paintingImage int
	for _, a := range assets {
		switch {
		case a.Class == ClassData:
			data++
		case a.Class == ClassAudio && a.Level == LevelRoom:
			roomAudio++
		case a.Class == ClassImage && a.Level == LevelRoom:
			roomImage++
		case a.Class == ClassAudio && a.Level == LevelPainting:
			paintingAudio++
		case a.Class == ClassImage && a.Level == LevelPainting:
			paintingImage++
		}
	}
	require.Equal(t, 1, data)
	require.Equal(t, 3, roomAudio)
	require.Equal(t, 2, roomImage, "rooms without images contribute none")
	require.Equal(t, 6, paintingAudio)
	require.Equal(t, 3, paintingImage)
}
