package usecase

import (
	"fmt"
	"math"

	"github.com/uclfantasy/squad-optimizer/internal/domain/player"
	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
	"github.com/uclfantasy/squad-optimizer/internal/domain/tournament"
	"github.com/uclfantasy/squad-optimizer/internal/platform/solver"
)

// skillOrder fixes the constraint emission order so two builds over the same
// pool produce identical models.
var skillOrder = []player.Skill{
	player.SkillGoalkeeper,
	player.SkillDefender,
	player.SkillMidfielder,
	player.SkillForward,
}

// squadModel is one assembled integer program plus the handles the relaxation
// step needs: the hard transfer cap and the pinned unavailable incumbents
// that may be released.
type squadModel struct {
	model      *solver.Model
	varByID    map[string]int
	extraVar   int
	hardCapCon int
	releasable []int
}

// constraintBuilder turns a catalog, matchday, and optional current-squad
// snapshot into the full constraint set, one binary decision per player.
// Conflicting pins (an override against an availability exclusion, or an id
// in both override lists) intersect variable bounds down to an empty domain,
// which the solver reports as infeasible instead of letting one pin win.
type constraintBuilder struct {
	rules tournament.Rules
}

func (b constraintBuilder) build(
	catalog *player.Catalog,
	matchday int,
	stage tournament.Stage,
	hasCurrentSquad bool,
	current squad.Current,
	overrides squad.Overrides,
) (*squadModel, error) {
	sm := &squadModel{
		model:      solver.NewModel(),
		varByID:    make(map[string]int, catalog.Len()),
		extraVar:   -1,
		hardCapCon: -1,
	}
	model := sm.model

	players := catalog.Players()
	for _, p := range players {
		sm.varByID[p.ID] = model.AddBinary(p.ID)
	}

	for _, skill := range skillOrder {
		quota := b.rules.QuotaBySkill[skill]
		ids := catalog.IDsBySkill(skill)
		terms := make([]solver.Term, 0, len(ids))
		for _, id := range ids {
			terms = append(terms, solver.Term{Var: sm.varByID[id], Coef: 1})
		}
		model.AddConstraint(solver.Constraint{
			Name:  fmt.Sprintf("quota:%s", skill),
			Terms: terms,
			Rel:   solver.Equal,
			RHS:   float64(quota),
		})
	}

	clubCap := float64(b.rules.ClubCap(stage))
	for _, club := range catalog.Clubs() {
		ids := catalog.IDsByClub(club)
		terms := make([]solver.Term, 0, len(ids))
		for _, id := range ids {
			terms = append(terms, solver.Term{Var: sm.varByID[id], Coef: 1})
		}
		model.AddConstraint(solver.Constraint{
			Name:  fmt.Sprintf("club:%s", club),
			Terms: terms,
			Rel:   solver.LessEq,
			RHS:   clubCap,
		})
	}

	currentSet := current.IDSet()
	if hasCurrentSquad {
		for _, id := range current.PlayerIDs {
			if _, ok := catalog.ByID(id); !ok {
				return nil, fmt.Errorf("%w: current squad player %s is not in the pool", ErrInvalidInput, id)
			}
		}
	}

	// Budget applies to a fresh squad; an existing squad must instead keep
	// teamBalance + retainedValue - newSquadValue >= 0, which leaves only
	// the newcomers' prices on the left-hand side.
	if hasCurrentSquad {
		terms := make([]solver.Term, 0, len(players))
		for _, p := range players {
			if _, incumbent := currentSet[p.ID]; incumbent {
				continue
			}
			terms = append(terms, solver.Term{Var: sm.varByID[p.ID], Coef: p.Price})
		}
		model.AddConstraint(solver.Constraint{
			Name:  "balance",
			Terms: terms,
			Rel:   solver.LessEq,
			RHS:   current.TeamBalance,
		})
	} else {
		terms := make([]solver.Term, 0, len(players))
		for _, p := range players {
			terms = append(terms, solver.Term{Var: sm.varByID[p.ID], Coef: p.Price})
		}
		model.AddConstraint(solver.Constraint{
			Name:  "budget",
			Terms: terms,
			Rel:   solver.LessEq,
			RHS:   b.rules.Budget(matchday),
		})
	}

	if hasCurrentSquad {
		free, err := b.rules.FreeTransfers(matchday)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}

		// extraTransfers >= droppedIncumbents - freeAllowance, with the hard
		// cap pinning it to zero until relaxation disables that constraint.
		sm.extraVar = model.AddIntVar("extra_transfers", 0, math.Inf(1))
		terms := make([]solver.Term, 0, len(current.PlayerIDs)+1)
		terms = append(terms, solver.Term{Var: sm.extraVar, Coef: 1})
		for _, id := range current.PlayerIDs {
			terms = append(terms, solver.Term{Var: sm.varByID[id], Coef: 1})
		}
		model.AddConstraint(solver.Constraint{
			Name:  "transfers",
			Terms: terms,
			Rel:   solver.GreaterEq,
			RHS:   float64(len(current.PlayerIDs) - free),
		})
		sm.hardCapCon = model.AddConstraint(solver.Constraint{
			Name:  "transfer-cap",
			Terms: []solver.Term{{Var: sm.extraVar, Coef: 1}},
			Rel:   solver.LessEq,
			RHS:   0,
		})
	}

	// Unknown override ids are skipped, not errors.
	included := knownIDSet(overrides.IncludeIDs, catalog)
	excluded := knownIDSet(overrides.ExcludeIDs, catalog)
	for id := range included {
		model.Fix(sm.varByID[id], 1)
	}
	for id := range excluded {
		model.Fix(sm.varByID[id], 0)
	}

	crowdTerms := make([]solver.Term, 0, len(players))
	for _, p := range players {
		v := sm.varByID[p.ID]

		if !p.Available() {
			model.Fix(v, 0)

			_, incumbent := currentSet[p.ID]
			_, isIncluded := included[p.ID]
			_, isExcluded := excluded[p.ID]
			if hasCurrentSquad && incumbent && p.Active && !isIncluded && !isExcluded {
				sm.releasable = append(sm.releasable, v)
			}
		}

		if !p.Active {
			continue
		}
		crowdTerms = append(crowdTerms, solver.Term{Var: v, Coef: p.SelectionPercent})
		// Per-player crowd floor as an implication: vacuous unless selected,
		// and it survives the availability relaxation untouched.
		if p.SelectionPercent < b.rules.MinSelectionPercent {
			model.AddConstraint(solver.Constraint{
				Name:  fmt.Sprintf("popularity:%s", p.ID),
				Terms: []solver.Term{{Var: v, Coef: p.SelectionPercent - b.rules.MinSelectionPercent}},
				Rel:   solver.GreaterEq,
				RHS:   0,
			})
		}
	}
	model.AddConstraint(solver.Constraint{
		Name:  "crowd-floor",
		Terms: crowdTerms,
		Rel:   solver.GreaterEq,
		RHS:   b.rules.CrowdFloorPerSlot * float64(b.rules.SquadSize),
	})

	return sm, nil
}

func knownIDSet(ids []string, catalog *player.Catalog) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := catalog.ByID(id); ok {
			set[id] = struct{}{}
		}
	}
	return set
}

// relax releases unavailable incumbents and swaps the hard transfer cap for
// the soft objective penalty. It reports whether anything actually changed.
func (sm *squadModel) relax() bool {
	changed := false
	for _, v := range sm.releasable {
		sm.model.SetBounds(v, 0, 1)
		changed = true
	}
	if sm.hardCapCon >= 0 {
		sm.model.SetConstraintDisabled(sm.hardCapCon, true)
		changed = true
	}
	return changed
}
