package postgres

import (
	"testing"
	"time"

	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
	"github.com/uclfantasy/squad-optimizer/internal/domain/tournament"
)

func TestSelectionRowRoundTrip(t *testing.T) {
	original := squad.Selection{
		ID:          "sel_abc",
		Matchday:    7,
		Stage:       tournament.StageRoundOf16,
		PlayerIDs:   []string{"p1", "p2"},
		PlayerNames: []string{"Player p1", "Player p2"},
		TotalPrice:  95.5,
		Diagnostics: squad.Diagnostics{
			ExtraTransfers:      3,
			UnavailableSelected: 1,
			Relaxed:             true,
			Objective:           412.25,
		},
		CreatedAt: time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
	}

	row, err := toSelectionRow(original)
	if err != nil {
		t.Fatalf("to row failed: %v", err)
	}
	got, err := row.toDomain()
	if err != nil {
		t.Fatalf("to domain failed: %v", err)
	}

	if got.ID != original.ID || got.Matchday != original.Matchday || got.Stage != original.Stage {
		t.Fatalf("identity fields lost: %+v", got)
	}
	if got.Diagnostics != original.Diagnostics {
		t.Fatalf("diagnostics lost: %+v vs %+v", got.Diagnostics, original.Diagnostics)
	}
	if len(got.PlayerIDs) != 2 || got.PlayerIDs[1] != "p2" {
		t.Fatalf("player ids lost: %v", got.PlayerIDs)
	}
}

func TestSelectionRowEmptyDiagnostics(t *testing.T) {
	row := selectionRow{
		PublicID: "sel_x",
		Matchday: 1,
		Stage:    string(tournament.StageGroup),
	}
	got, err := row.toDomain()
	if err != nil {
		t.Fatalf("to domain failed: %v", err)
	}
	if got.Diagnostics != (squad.Diagnostics{}) {
		t.Fatalf("expected zero diagnostics, got %+v", got.Diagnostics)
	}
}
