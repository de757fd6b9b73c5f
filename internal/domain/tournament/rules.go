package tournament

import (
	"errors"
	"fmt"

	"github.com/uclfantasy/squad-optimizer/internal/domain/player"
)

// Stage is one phase of the knockout tournament.
type Stage string

const (
	StageGroup         Stage = "Group stage"
	StageRoundOf16     Stage = "Round of 16"
	StageQuarterFinals Stage = "Quarter-finals"
	StageSemiFinals    Stage = "Semi-finals"
	StageFinal         Stage = "Final"
)

const (
	FirstMatchday = 1
	LastMatchday  = 13
)

var (
	ErrUnknownMatchday        = errors.New("matchday outside tournament range")
	ErrInvalidSquadSize       = errors.New("invalid squad size")
	ErrQuotaMismatch          = errors.New("skill quota not met exactly")
	ErrExceededClubCap        = errors.New("max players from same club exceeded")
	ErrDuplicatePlayerInSquad = errors.New("duplicate player in squad")
)

type stageSpan struct {
	stage Stage
	first int
	last  int
}

// Rules stores the fixed tournament constants as one immutable value so the
// engine can be exercised against hypothetical rule sets in tests.
type Rules struct {
	SquadSize               int
	QuotaBySkill            map[player.Skill]int
	ClubCapByStage          map[Stage]int
	GroupStageBudget        float64
	KnockoutBudget          float64
	FreeTransfersByMatchday map[int]int
	FormWeight              float64
	TransferPenalty         float64
	MinSelectionPercent     float64
	CrowdFloorPerSlot       float64

	stageSpans []stageSpan
}

// DefaultRules returns the official UCL Fantasy rule set.
func DefaultRules() Rules {
	return Rules{
		SquadSize: 15,
		QuotaBySkill: map[player.Skill]int{
			player.SkillGoalkeeper: 2,
			player.SkillDefender:   5,
			player.SkillMidfielder: 5,
			player.SkillForward:    3,
		},
		ClubCapByStage: map[Stage]int{
			StageGroup:         3,
			StageRoundOf16:     4,
			StageQuarterFinals: 5,
			StageSemiFinals:    6,
			StageFinal:         8,
		},
		GroupStageBudget: 100,
		KnockoutBudget:   105,
		FreeTransfersByMatchday: map[int]int{
			1: 15, 2: 2, 3: 2, 4: 2, 5: 2, 6: 2,
			7: 15, 8: 3, 9: 5, 10: 3, 11: 5, 12: 3, 13: 5,
		},
		FormWeight:          0.3,
		TransferPenalty:     20,
		MinSelectionPercent: 1,
		CrowdFloorPerSlot:   10,
		stageSpans: []stageSpan{
			{StageGroup, 1, 6},
			{StageRoundOf16, 7, 8},
			{StageQuarterFinals, 9, 10},
			{StageSemiFinals, 11, 12},
			{StageFinal, 13, 13},
		},
	}
}

// StageFor resolves the stage a matchday belongs to.
func (r Rules) StageFor(matchday int) (Stage, error) {
	for _, span := range r.stageSpans {
		if matchday >= span.first && matchday <= span.last {
			return span.stage, nil
		}
	}
	return "", fmt.Errorf("%w: %d", ErrUnknownMatchday, matchday)
}

// Budget returns the squad budget for an initial selection on this matchday.
func (r Rules) Budget(matchday int) float64 {
	if matchday > 6 {
		return r.KnockoutBudget
	}
	return r.GroupStageBudget
}

// ClubCap returns the per-club concentration cap for the given stage.
func (r Rules) ClubCap(stage Stage) int {
	return r.ClubCapByStage[stage]
}

// FreeTransfers returns the free-transfer allowance ahead of a matchday.
func (r Rules) FreeTransfers(matchday int) (int, error) {
	allowance, ok := r.FreeTransfersByMatchday[matchday]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownMatchday, matchday)
	}
	return allowance, nil
}

// ValidateSquad checks roster shape: exact size, exact per-skill quota, and
// the stage's club cap. Budget and balance checks stay with the optimizer
// because they depend on squad-existence mode.
func ValidateSquad(players []player.Player, stage Stage, rules Rules) error {
	if len(players) != rules.SquadSize {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidSquadSize, rules.SquadSize, len(players))
	}

	clubCounter := make(map[string]int)
	skillCounter := make(map[player.Skill]int)
	seen := make(map[string]struct{}, len(players))
	clubCap := rules.ClubCap(stage)

	for _, p := range players {
		if _, exists := seen[p.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayerInSquad, p.ID)
		}
		seen[p.ID] = struct{}{}

		clubCounter[p.Club]++
		if clubCounter[p.Club] > clubCap {
			return fmt.Errorf("%w: club=%s cap=%d stage=%s", ErrExceededClubCap, p.Club, clubCap, stage)
		}
		skillCounter[p.Skill]++
	}

	for skill, required := range rules.QuotaBySkill {
		if skillCounter[skill] != required {
			return fmt.Errorf("%w: skill=%s required=%d got=%d", ErrQuotaMismatch, skill, required, skillCounter[skill])
		}
	}

	return nil
}

// TotalPrice sums the market value of a set of players.
func TotalPrice(players []player.Player) float64 {
	var total float64
	for _, p := range players {
		total += p.Price
	}
	return total
}
