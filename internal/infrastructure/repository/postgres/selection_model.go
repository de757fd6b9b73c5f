package postgres

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"

	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
	"github.com/uclfantasy/squad-optimizer/internal/domain/tournament"
)

type selectionRow struct {
	PublicID    string         `db:"public_id"`
	Matchday    int            `db:"matchday"`
	Stage       string         `db:"stage"`
	PlayerIDs   pq.StringArray `db:"player_ids"`
	PlayerNames pq.StringArray `db:"player_names"`
	TotalPrice  float64        `db:"total_price"`
	Diagnostics []byte         `db:"diagnostics"`
	CreatedAt   time.Time      `db:"created_at"`
}

type diagnosticsDoc struct {
	ExtraTransfers      int     `json:"extra_transfers"`
	UnavailableSelected int     `json:"unavailable_selected"`
	Relaxed             bool    `json:"relaxed"`
	Objective           float64 `json:"objective"`
}

func toSelectionRow(s squad.Selection) (selectionRow, error) {
	diag, err := jsoniter.Marshal(diagnosticsDoc{
		ExtraTransfers:      s.Diagnostics.ExtraTransfers,
		UnavailableSelected: s.Diagnostics.UnavailableSelected,
		Relaxed:             s.Diagnostics.Relaxed,
		Objective:           s.Diagnostics.Objective,
	})
	if err != nil {
		return selectionRow{}, fmt.Errorf("marshal diagnostics: %w", err)
	}

	return selectionRow{
		PublicID:    s.ID,
		Matchday:    s.Matchday,
		Stage:       string(s.Stage),
		PlayerIDs:   pq.StringArray(s.PlayerIDs),
		PlayerNames: pq.StringArray(s.PlayerNames),
		TotalPrice:  s.TotalPrice,
		Diagnostics: diag,
		CreatedAt:   s.CreatedAt,
	}, nil
}

func (r selectionRow) toDomain() (squad.Selection, error) {
	var diag diagnosticsDoc
	if len(r.Diagnostics) > 0 {
		if err := jsoniter.Unmarshal(r.Diagnostics, &diag); err != nil {
			return squad.Selection{}, fmt.Errorf("unmarshal diagnostics: %w", err)
		}
	}

	return squad.Selection{
		ID:          r.PublicID,
		Matchday:    r.Matchday,
		Stage:       tournament.Stage(r.Stage),
		PlayerIDs:   []string(r.PlayerIDs),
		PlayerNames: []string(r.PlayerNames),
		TotalPrice:  r.TotalPrice,
		Diagnostics: squad.Diagnostics{
			ExtraTransfers:      diag.ExtraTransfers,
			UnavailableSelected: diag.UnavailableSelected,
			Relaxed:             diag.Relaxed,
			Objective:           diag.Objective,
		},
		CreatedAt: r.CreatedAt,
	}, nil
}
