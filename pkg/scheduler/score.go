package scheduler

import (
	"sort"

	"guidecache/pkg/manifest"
	"guidecache/pkg/models"
)

// Score weights. Only the relative ordering matters: position match beats
// any distance bonus, nearer rooms beat farther ones, room narration beats
// painting tracks, audio beats images.
const (
	baseScore      = 10
	positionBonus  = 1000
	roomAudioBonus = 50
	imagePenalty   = 20
)

// distanceBonus grades rooms by index distance from the current room.
var distanceBonus = [...]int{0: 600, 1: 300, 2: 150, 3: 75}

// Score computes the fetch priority of an asset given the current position.
// roomIndex is the index of the position's room in the manifest's room
// order, or -1 when unknown.
func Score(a manifest.Asset, pos *models.Position, roomIndex int) int {
	s := baseScore
	if a.Class == manifest.ClassImage {
		s -= imagePenalty
	}
	if a.Class == manifest.ClassAudio && a.Level == manifest.LevelRoom {
		s += roomAudioBonus
	}
	if pos == nil || a.RoomIndex < 0 {
		return s
	}
	if a.RoomID == pos.RoomID {
		if pos.PaintingID == "" || a.PaintingID == "" || a.PaintingID == pos.PaintingID {
			s += positionBonus
		} else {
			s += distanceBonus[0]
		}
		return s
	}
	if roomIndex >= 0 {
		d := a.RoomIndex - roomIndex
		if d < 0 {
			d = -d
		}
		if d < len(distanceBonus) {
			s += distanceBonus[d]
		}
	}
	return s
}

// Plan filters already-cached assets out and orders the remainder by
// descending score, ties broken by manifest order. Recomputing the plan
// from current cache state is what makes re-entry idempotent.
func Plan(assets []manifest.Asset, cached func(a manifest.Asset) bool, pos *models.Position) []manifest.Asset {
	roomIndex := -1
	if pos != nil {
		for _, a := range assets {
			if a.RoomID == pos.RoomID && a.RoomIndex >= 0 {
				roomIndex = a.RoomIndex
				break
			}
		}
	}
	out := make([]manifest.Asset, 0, len(assets))
	for _, a := range assets {
		if !cached(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Score(out[i], pos, roomIndex) > Score(out[j], pos, roomIndex)
	})
	return out
}
