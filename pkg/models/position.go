package models

// Position is the user's current room/painting context. It is transient:
// supplied by the client on navigation and used only to bias scheduling
// priority. A stale position degrades scheduling, never correctness.
type Position struct {
	RoomID     string `json:"room_id"`
	PaintingID string `json:"painting_id,omitempty"`
	Locale     Locale `json:"locale"`
}
