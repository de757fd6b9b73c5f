package player

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Catalog is a read-only view over one matchday's validated player pool.
// It is built once per optimization call and never mutated afterwards.
type Catalog struct {
	players []Player
	byID    map[string]Player
	bySkill map[Skill][]string
	byClub  map[string][]string
}

// NewCatalog validates raw feed records and indexes them. Players are kept in
// ascending id order so downstream model assembly is deterministic.
func NewCatalog(records []Record) (*Catalog, error) {
	c := &Catalog{
		players: make([]Player, 0, len(records)),
		byID:    make(map[string]Player, len(records)),
		bySkill: make(map[Skill][]string),
		byClub:  make(map[string][]string),
	}

	for i, record := range records {
		p, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("player record %d: %w", i, err)
		}
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		c.byID[p.ID] = p
		c.players = append(c.players, p)
	}

	sort.Slice(c.players, func(i, j int) bool { return c.players[i].ID < c.players[j].ID })
	for _, p := range c.players {
		c.bySkill[p.Skill] = append(c.bySkill[p.Skill], p.ID)
		c.byClub[p.Club] = append(c.byClub[p.Club], p.ID)
	}

	return c, nil
}

func (c *Catalog) Len() int {
	return len(c.players)
}

// Players returns the pool in ascending id order.
func (c *Catalog) Players() []Player {
	out := make([]Player, len(c.players))
	copy(out, c.players)
	return out
}

func (c *Catalog) ByID(id string) (Player, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// IDsBySkill returns the ids of all players with the given skill, ascending.
func (c *Catalog) IDsBySkill(skill Skill) []string {
	return append([]string(nil), c.bySkill[skill]...)
}

// IDsByClub returns the ids of all players in the given club, ascending.
func (c *Catalog) IDsByClub(club string) []string {
	return append([]string(nil), c.byClub[club]...)
}

// Clubs returns every club code present in the pool, ascending.
func (c *Catalog) Clubs() []string {
	clubs := make([]string, 0, len(c.byClub))
	for club := range c.byClub {
		clubs = append(clubs, club)
	}
	sort.Strings(clubs)
	return clubs
}

// AvailableIDs returns the ids of active players in contention to start.
func (c *Catalog) AvailableIDs() []string {
	out := make([]string, 0, len(c.players))
	for _, p := range c.players {
		if p.Available() {
			out = append(out, p.ID)
		}
	}
	return out
}

func parseRecord(record Record) (Player, error) {
	id := strings.TrimSpace(record.ID)
	if id == "" {
		return Player{}, fmt.Errorf("%w: id", ErrMissingField)
	}
	name := strings.TrimSpace(record.Name)
	if name == "" {
		return Player{}, fmt.Errorf("%w: name (player %s)", ErrMissingField, id)
	}
	club := strings.TrimSpace(record.Club)
	if club == "" {
		return Player{}, fmt.Errorf("%w: club (player %s)", ErrMissingField, id)
	}

	skill, err := SkillFromCode(record.SkillCode)
	if err != nil {
		return Player{}, fmt.Errorf("player %s: %w", id, err)
	}

	price, err := parseNumeric("price", record.Price, id)
	if err != nil {
		return Player{}, err
	}
	totalPoints, err := parseNumeric("total points", record.TotalPoints, id)
	if err != nil {
		return Player{}, err
	}
	avgPoints, err := parseNumeric("average points", record.AvgPoints, id)
	if err != nil {
		return Player{}, err
	}
	lastPoints, err := parseNumeric("last matchday points", record.LastMatchdayPoints, id)
	if err != nil {
		return Player{}, err
	}
	selectionPct, err := parseNumeric("selection percent", record.SelectionPercent, id)
	if err != nil {
		return Player{}, err
	}

	return Player{
		ID:                 id,
		Name:               name,
		Club:               club,
		Skill:              skill,
		Price:              price,
		TotalPoints:        totalPoints,
		AvgPoints:          avgPoints,
		LastMatchdayPoints: lastPoints,
		SelectionPercent:   selectionPct,
		Active:             record.IsActive == 1,
		TrainingStatus:     record.TrainingStatus,
	}, nil
}

func parseNumeric(field, raw, playerID string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: %s (player %s)", ErrMissingField, field, playerID)
	}

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q (player %s)", ErrNonNumericField, field, trimmed, playerID)
	}

	return value, nil
}
