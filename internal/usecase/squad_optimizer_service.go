package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/uclfantasy/squad-optimizer/internal/domain/player"
	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
	"github.com/uclfantasy/squad-optimizer/internal/domain/tournament"
	idgen "github.com/uclfantasy/squad-optimizer/internal/platform/id"
	"github.com/uclfantasy/squad-optimizer/internal/platform/solver"
)

// selectThreshold tolerates numeric solver output when reading a binary
// decision back as "selected".
const selectThreshold = 0.9999

// OptimizeInput is one squad optimization request. HasCurrentSquad switches
// the model between initial-squad mode (stage budget) and transfer mode
// (balance plus transfer accounting); an empty Current with the flag unset is
// the normal first-matchday shape.
type OptimizeInput struct {
	Matchday        int
	Records         []player.Record
	HasCurrentSquad bool
	Current         squad.Current
	Overrides       squad.Overrides
}

type SquadOptimizerService struct {
	solver       solver.Solver
	squadRepo    squad.Repository
	rules        tournament.Rules
	idGen        idgen.Generator
	solveTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewSquadOptimizerService wires the optimizer. squadRepo may be nil when
// selection history is not kept.
func NewSquadOptimizerService(
	slv solver.Solver,
	squadRepo squad.Repository,
	rules tournament.Rules,
	idGen idgen.Generator,
	solveTimeout time.Duration,
	logger *slog.Logger,
) *SquadOptimizerService {
	if logger == nil {
		logger = slog.Default()
	}

	return &SquadOptimizerService{
		solver:       slv,
		squadRepo:    squadRepo,
		rules:        rules,
		idGen:        idGen,
		solveTimeout: solveTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Optimize assembles the matchday model, solves it, and applies the one-shot
// relaxation protocol when the strict model is infeasible: unavailable
// incumbents become retainable and the hard transfer cap gives way to the
// per-transfer objective penalty. A second infeasible verdict is terminal.
func (s *SquadOptimizerService) Optimize(ctx context.Context, input OptimizeInput) (squad.Selection, error) {
	ctx, span := startUsecaseSpan(ctx, "SquadOptimizerService.Optimize")
	defer span.End()

	stage, err := s.rules.StageFor(input.Matchday)
	if err != nil {
		return squad.Selection{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(input.Records) == 0 {
		return squad.Selection{}, fmt.Errorf("%w: player records are required", ErrInvalidInput)
	}
	if input.HasCurrentSquad && len(input.Current.PlayerIDs) == 0 {
		return squad.Selection{}, fmt.Errorf("%w: current squad ids are required in transfer mode", ErrInvalidInput)
	}

	catalog, err := player.NewCatalog(input.Records)
	if err != nil {
		return squad.Selection{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	sm, err := constraintBuilder{rules: s.rules}.build(
		catalog, input.Matchday, stage, input.HasCurrentSquad, input.Current, input.Overrides,
	)
	if err != nil {
		return squad.Selection{}, err
	}
	objectiveComposer{rules: s.rules}.compose(sm, catalog, input.Matchday)

	sol, err := s.solveOnce(ctx, sm.model)
	if err != nil {
		return squad.Selection{}, err
	}

	relaxed := false
	if sol.Status == solver.StatusInfeasible {
		if !sm.relax() {
			return squad.Selection{}, fmt.Errorf("%w: matchday %d model has no solution", ErrInfeasible, input.Matchday)
		}
		relaxed = true
		s.logger.WarnContext(ctx, "strict model infeasible, retrying relaxed",
			"matchday", input.Matchday,
			"releasable", len(sm.releasable),
		)

		sol, err = s.solveOnce(ctx, sm.model)
		if err != nil {
			return squad.Selection{}, err
		}
		if sol.Status == solver.StatusInfeasible {
			return squad.Selection{}, fmt.Errorf("%w: matchday %d model has no solution even relaxed", ErrInfeasible, input.Matchday)
		}
	}
	if sol.Status != solver.StatusOptimal {
		return squad.Selection{}, fmt.Errorf("%w: solver returned status %s", ErrDependencyUnavailable, sol.Status)
	}

	selection, err := s.extractSelection(catalog, stage, input, sm, sol, relaxed)
	if err != nil {
		return squad.Selection{}, err
	}

	if s.squadRepo != nil {
		if err := s.squadRepo.Save(ctx, selection); err != nil {
			return squad.Selection{}, fmt.Errorf("save selection: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "squad optimized",
		"matchday", input.Matchday,
		"stage", string(stage),
		"players", len(selection.PlayerIDs),
		"relaxed", relaxed,
		"extra_transfers", selection.Diagnostics.ExtraTransfers,
		"unavailable_selected", selection.Diagnostics.UnavailableSelected,
		"objective", selection.Diagnostics.Objective,
	)

	return selection, nil
}

// SelectionByMatchday returns the stored selection for one matchday.
func (s *SquadOptimizerService) SelectionByMatchday(ctx context.Context, matchday int) (squad.Selection, error) {
	ctx, span := startUsecaseSpan(ctx, "SquadOptimizerService.SelectionByMatchday")
	defer span.End()

	if _, err := s.rules.StageFor(matchday); err != nil {
		return squad.Selection{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.squadRepo == nil {
		return squad.Selection{}, fmt.Errorf("%w: selection history is not configured", ErrDependencyUnavailable)
	}

	selection, found, err := s.squadRepo.GetByMatchday(ctx, matchday)
	if err != nil {
		return squad.Selection{}, fmt.Errorf("get selection by matchday: %w", err)
	}
	if !found {
		return squad.Selection{}, fmt.Errorf("%w: no selection stored for matchday %d", ErrNotFound, matchday)
	}
	return selection, nil
}

// RecentSelections lists stored selections, newest first.
func (s *SquadOptimizerService) RecentSelections(ctx context.Context, limit int) ([]squad.Selection, error) {
	ctx, span := startUsecaseSpan(ctx, "SquadOptimizerService.RecentSelections")
	defer span.End()

	if limit <= 0 {
		limit = tournament.LastMatchday
	}
	if s.squadRepo == nil {
		return nil, fmt.Errorf("%w: selection history is not configured", ErrDependencyUnavailable)
	}

	selections, err := s.squadRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	return selections, nil
}

func (s *SquadOptimizerService) solveOnce(ctx context.Context, model *solver.Model) (solver.Solution, error) {
	if s.solveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.solveTimeout)
		defer cancel()
	}

	sol, err := s.solver.Solve(ctx, model)
	if err != nil {
		return solver.Solution{}, fmt.Errorf("%w: solve: %v", ErrDependencyUnavailable, err)
	}
	if sol.Status == solver.StatusInterrupted {
		return solver.Solution{}, fmt.Errorf("%w: solve interrupted before completion", ErrDependencyUnavailable)
	}
	return sol, nil
}

func (s *SquadOptimizerService) extractSelection(
	catalog *player.Catalog,
	stage tournament.Stage,
	input OptimizeInput,
	sm *squadModel,
	sol solver.Solution,
	relaxed bool,
) (squad.Selection, error) {
	selected := make([]player.Player, 0, s.rules.SquadSize)
	unavailable := 0
	for _, p := range catalog.Players() {
		value, err := sol.Value(sm.varByID[p.ID])
		if err != nil {
			return squad.Selection{}, fmt.Errorf("read decision for player %s: %w", p.ID, err)
		}
		if value < selectThreshold {
			continue
		}
		selected = append(selected, p)
		if !p.Available() {
			unavailable++
		}
	}

	if err := tournament.ValidateSquad(selected, stage, s.rules); err != nil {
		return squad.Selection{}, fmt.Errorf("solver returned an illegal squad: %w", err)
	}

	extraTransfers := 0
	if sm.extraVar >= 0 {
		value, err := sol.Value(sm.extraVar)
		if err != nil {
			return squad.Selection{}, fmt.Errorf("read extra transfers: %w", err)
		}
		extraTransfers = int(math.Round(value))
	}

	ids := make([]string, 0, len(selected))
	names := make([]string, 0, len(selected))
	for _, p := range selected {
		ids = append(ids, p.ID)
		names = append(names, p.Name)
	}

	selectionID, err := s.idGen.NewID()
	if err != nil {
		return squad.Selection{}, fmt.Errorf("generate selection id: %w", err)
	}

	return squad.Selection{
		ID:          selectionID,
		Matchday:    input.Matchday,
		Stage:       stage,
		PlayerIDs:   ids,
		PlayerNames: names,
		TotalPrice:  tournament.TotalPrice(selected),
		Diagnostics: squad.Diagnostics{
			ExtraTransfers:      extraTransfers,
			UnavailableSelected: unavailable,
			Relaxed:             relaxed,
			Objective:           sol.Objective,
		},
		CreatedAt: s.now().UTC(),
	}, nil
}
