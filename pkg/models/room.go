package models

import (
	"encoding/json"
	"fmt"
)

// Room is an ordered content unit of the guide. Rooms are parsed from a
// locale's data file, immutable once loaded, and re-fetched on locale switch.
type Room struct {
	ID    string `json:"id"`
	Seq   int    `json:"seq"`
	Title string `json:"title,omitempty"`
	Intro string `json:"intro,omitempty"`
	// Image is an image filename relative to the shared image path; empty
	// when the room has no image.
	Image     string     `json:"image,omitempty"`
	Paintings []Painting `json:"paintings"`
}

// Painting belongs to exactly one room.
type Painting struct {
	// ID is stable and derived from room sequence + painting number when
	// the data file omits it.
	ID     string `json:"id,omitempty"`
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	Image  string `json:"image,omitempty"`
}

// ParseRooms decodes a locale data file into an ordered room list and fills
// in derived identifiers.
func ParseRooms(data []byte) ([]Room, error) {
	var rooms []Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("invalid room data: %w", err)
	}
	for i := range rooms {
		r := &rooms[i]
		if r.Seq == 0 {
			r.Seq = i + 1
		}
		if r.ID == "" {
			r.ID = fmt.Sprintf("room%d", r.Seq)
		}
		for j := range r.Paintings {
			p := &r.Paintings[j]
			if p.Number == 0 {
				p.Number = j + 1
			}
			if p.ID == "" {
				p.ID = fmt.Sprintf("room%d-p%d", r.Seq, p.Number)
			}
		}
	}
	return rooms, nil
}
