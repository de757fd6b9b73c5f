package usecase

import (
	"github.com/uclfantasy/squad-optimizer/internal/domain/player"
	"github.com/uclfantasy/squad-optimizer/internal/domain/tournament"
)

// objectiveComposer blends three signals per available player: a
// form-weighted average favoring last matchday's points, the running points
// total normalized by matchdays played, and the market price as a liquidity
// reward. Unavailable players score zero, so a relaxed solution only retains
// them to dodge transfer penalties, never for points.
type objectiveComposer struct {
	rules tournament.Rules
}

func (c objectiveComposer) compose(sm *squadModel, catalog *player.Catalog, matchday int) {
	w := c.rules.FormWeight
	for _, p := range catalog.Players() {
		if !p.Available() {
			continue
		}
		score := (1-w)*p.AvgPoints + w*p.LastMatchdayPoints + p.Price
		if matchday > tournament.FirstMatchday {
			score += p.TotalPoints / float64(matchday-1)
		}
		sm.model.SetObjectiveCoef(sm.varByID[p.ID], score)
	}

	if sm.extraVar >= 0 && matchday > tournament.FirstMatchday {
		sm.model.SetObjectiveCoef(sm.extraVar, -c.rules.TransferPenalty)
	}
}
