package player

import (
	"errors"
	"testing"
)

func validRecord(id, club string, skillCode int) Record {
	return Record{
		ID:                 id,
		Name:               "Player " + id,
		Club:               club,
		SkillCode:          skillCode,
		Price:              "5.5",
		TotalPoints:        "30",
		AvgPoints:          "6",
		LastMatchdayPoints: "9",
		SelectionPercent:   "42.1",
		IsActive:           1,
		TrainingStatus:     StatusInContention,
	}
}

func TestNewCatalog_IndexesAndSorts(t *testing.T) {
	catalog, err := NewCatalog([]Record{
		validRecord("p3", "RMA", 3),
		validRecord("p1", "BAY", 1),
		validRecord("p2", "RMA", 2),
	})
	if err != nil {
		t.Fatalf("new catalog failed: %v", err)
	}

	if catalog.Len() != 3 {
		t.Fatalf("expected 3 players, got %d", catalog.Len())
	}

	players := catalog.Players()
	if players[0].ID != "p1" || players[1].ID != "p2" || players[2].ID != "p3" {
		t.Fatalf("expected ascending id order, got %v %v %v", players[0].ID, players[1].ID, players[2].ID)
	}

	gks := catalog.IDsBySkill(SkillGoalkeeper)
	if len(gks) != 1 || gks[0] != "p1" {
		t.Fatalf("expected one goalkeeper p1, got %v", gks)
	}

	rma := catalog.IDsByClub("RMA")
	if len(rma) != 2 || rma[0] != "p2" || rma[1] != "p3" {
		t.Fatalf("expected RMA players [p2 p3], got %v", rma)
	}

	clubs := catalog.Clubs()
	if len(clubs) != 2 || clubs[0] != "BAY" || clubs[1] != "RMA" {
		t.Fatalf("expected clubs [BAY RMA], got %v", clubs)
	}

	if _, ok := catalog.ByID("p2"); !ok {
		t.Fatalf("expected to find p2 by id")
	}
	if _, ok := catalog.ByID("unknown"); ok {
		t.Fatalf("did not expect to find unknown id")
	}
}

func TestNewCatalog_MissingFieldFails(t *testing.T) {
	record := validRecord("p1", "BAY", 1)
	record.Price = ""

	_, err := NewCatalog([]Record{record})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestNewCatalog_NonNumericPriceFails(t *testing.T) {
	record := validRecord("p1", "BAY", 1)
	record.Price = "n/a"

	_, err := NewCatalog([]Record{record})
	if !errors.Is(err, ErrNonNumericField) {
		t.Fatalf("expected ErrNonNumericField, got %v", err)
	}
}

func TestNewCatalog_UnknownSkillCodeFails(t *testing.T) {
	record := validRecord("p1", "BAY", 9)

	_, err := NewCatalog([]Record{record})
	if !errors.Is(err, ErrUnknownSkill) {
		t.Fatalf("expected ErrUnknownSkill, got %v", err)
	}
}

func TestNewCatalog_DuplicateIDFails(t *testing.T) {
	_, err := NewCatalog([]Record{
		validRecord("p1", "BAY", 1),
		validRecord("p1", "RMA", 2),
	})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestPlayer_Available(t *testing.T) {
	available := Player{Active: true, TrainingStatus: StatusInContention}
	if !available.Available() {
		t.Fatalf("expected active in-contention player to be available")
	}

	benched := Player{Active: true, TrainingStatus: ""}
	if benched.Available() {
		t.Fatalf("expected player without training status to be unavailable")
	}

	inactive := Player{Active: false, TrainingStatus: StatusInContention}
	if inactive.Available() {
		t.Fatalf("expected inactive player to be unavailable")
	}
}
