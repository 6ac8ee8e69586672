// Package manifest enumerates the asset URLs belonging to a locale's
// content. The enumeration is deterministic: the same room data always
// yields the same ordered list, which the scheduler uses as its tie-break.
package manifest

import (
	"errors"
	"fmt"

	"guidecache/pkg/models"
)

// ErrUnavailable signals that room data could not be obtained (offline and
// not cached). Callers treat it as "nothing to schedule", never a crash.
var ErrUnavailable = errors.New("room data unavailable")

// Class describes what kind of content an asset URL points at.
type Class string

const (
	ClassAudio Class = "audio"
	ClassImage Class = "image"
	ClassData  Class = "data"
)

// Level distinguishes room-level narration from painting tracks.
type Level string

const (
	LevelRoom     Level = "room"
	LevelPainting Level = "painting"
)

// Asset is a derived entity: a URL generated from room/painting data, never
// stored explicitly.
type Asset struct {
	URL   string
	Class Class
	Level Level
	// RoomIndex is the zero-based position of the owning room in the
	// locale's room list, used for distance-based scheduling.
	RoomIndex  int
	RoomID     string
	PaintingID string
}

// URL conventions of the content origin. Audio is locale-scoped; images are
// shared across locales.
const (
	dataPathFormat  = "/data/%s_rooms.json"
	audioPathFormat = "/audio/%s.%s.mp3"
	imagePathPrefix = "/images/"
)

// DataPath returns the locale's room data file URL.
func DataPath(l models.Locale) string {
	return fmt.Sprintf(dataPathFormat, string(l))
}

// AudioPath returns the audio URL for an entity in a locale.
func AudioPath(l models.Locale, entityID string) string {
	return fmt.Sprintf(audioPathFormat, string(l), entityID)
}

// ImagePath returns the shared image URL for a filename.
func ImagePath(name string) string {
	return imagePathPrefix + name
}

// Build enumerates every asset URL for the locale's rooms, in order: the
// data file, then per room (in sequence) its audio, its image if present,
// then per painting (in sequence) its audio, then its image if present.
func Build(l models.Locale, rooms []models.Room) []Asset {
	out := make([]Asset, 0, 1+len(rooms)*4)
	out = append(out, Asset{
		URL:   DataPath(l),
		Class: ClassData,
		Level: LevelRoom,
		// the data file carries no positional bias
		RoomIndex: -1,
	})
	for i, r := range rooms {
		out = append(out, Asset{
			URL:       AudioPath(l, r.ID),
			Class:     ClassAudio,
			Level:     LevelRoom,
			RoomIndex: i,
			RoomID:    r.ID,
		})
		if r.Image != "" {
			out = append(out, Asset{
				URL:       ImagePath(r.Image),
				Class:     ClassImage,
				Level:     LevelRoom,
				RoomIndex: i,
				RoomID:    r.ID,
			})
		}
		for _, p := range r.Paintings {
			out = append(out, Asset{
				URL:        AudioPath(l, p.ID),
				Class:      ClassAudio,
				Level:      LevelPainting,
				RoomIndex:  i,
				RoomID:     r.ID,
				PaintingID: p.ID,
			})
			if p.Image != "" {
				out = append(out, Asset{
					URL:        ImagePath(p.Image),
					Class:      ClassImage,
					Level:      LevelPainting,
					RoomIndex:  i,
					RoomID:     r.ID,
					PaintingID: p.ID,
				})
			}
		}
	}
	return out
}
