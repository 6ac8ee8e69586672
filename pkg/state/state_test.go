package state

import (
	"testing"

	"guidecache/pkg/models"
)

func TestPositionLifecycle(t *testing.T) {
	Reset()
	if Position() != nil {
		t.Fatalf("fresh state should have no position")
	}

	SetPosition(models.Position{RoomID: "room2", PaintingID: "room2-p1", Locale: "fr-FR"})
	p := Position()
	if p == nil || p.RoomID != "room2" || p.Locale != "fr-FR" {
		t.Fatalf("position not recorded: %+v", p)
	}
	if CurrentLocale() != "fr-FR" {
		t.Fatalf("locale not tracked: %q", CurrentLocale())
	}

	// returned position is a copy; mutating it must not leak back
	p.RoomID = "mutated"
	if Position().RoomID != "room2" {
		t.Fatalf("Position must return a copy")
	}
}

func TestSetLocalePreservesRoom(t *testing.T) {
	Reset()
	SetPosition(models.Position{RoomID: "room3", PaintingID: "room3-p2", Locale: "en-GB"})
	SetLocale("de-DE")
	p := Position()
	if p == nil || p.RoomID != "room3" || p.PaintingID != "room3-p2" {
		t.Fatalf("locale switch lost the room context: %+v", p)
	}
	if p.Locale != "de-DE" || CurrentLocale() != "de-DE" {
		t.Fatalf("locale not switched: %+v", p)
	}
}

func TestReset(t *testing.T) {
	SetPosition(models.Position{RoomID: "room1", Locale: "en-GB"})
	Reset()
	if Position() != nil {
		t.Fatalf("reset should drop the position")
	}
	if CurrentLocale() != models.DefaultLocale {
		t.Fatalf("reset should restore the default locale, got %q", CurrentLocale())
	}
}
