package player

import (
	"errors"
	"fmt"
)

// Skill represents the four roster categories used by the tournament rules.
type Skill string

const (
	SkillGoalkeeper Skill = "GK"
	SkillDefender   Skill = "DEF"
	SkillMidfielder Skill = "MID"
	SkillForward    Skill = "FWD"
)

var AllSkills = map[Skill]struct{}{
	SkillGoalkeeper: {},
	SkillDefender:   {},
	SkillMidfielder: {},
	SkillForward:    {},
}

var (
	ErrMissingField    = errors.New("player record is missing a required field")
	ErrNonNumericField = errors.New("player record field is not numeric")
	ErrUnknownSkill    = errors.New("unknown player skill code")
	ErrDuplicateID     = errors.New("duplicate player id")
)

// SkillFromCode maps the provider's numeric skill codes (1..4) to a Skill.
func SkillFromCode(code int) (Skill, error) {
	switch code {
	case 1:
		return SkillGoalkeeper, nil
	case 2:
		return SkillDefender, nil
	case 3:
		return SkillMidfielder, nil
	case 4:
		return SkillForward, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownSkill, code)
	}
}

// StatusInContention is the training status the provider reports for players
// expected to feature in the next fixture. Any other value, including the
// empty string the feed returns between matchdays, means unavailable.
const StatusInContention = "In contention to start next game"

// Record is one loosely-typed player row as handed over by the feed layer.
// Numeric fields stay raw strings until the catalog validates them, because
// the provider is not consistent about quoting numbers.
type Record struct {
	ID                 string
	Name               string
	Club               string
	SkillCode          int
	Price              string
	TotalPoints        string
	AvgPoints          string
	LastMatchdayPoints string
	SelectionPercent   string
	IsActive           int
	TrainingStatus     string
}

// Player is a validated, immutable pool entry for one optimization run.
type Player struct {
	ID                 string
	Name               string
	Club               string
	Skill              Skill
	Price              float64
	TotalPoints        float64
	AvgPoints          float64
	LastMatchdayPoints float64
	SelectionPercent   float64
	Active             bool
	TrainingStatus     string
}

// Available reports whether the player is in contention to start the next
// game. Inactive players are never available.
func (p Player) Available() bool {
	return p.Active && p.TrainingStatus == StatusInContention
}
