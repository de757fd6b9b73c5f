package squad

import (
	"fmt"
	"time"

	"github.com/uclfantasy/squad-optimizer/internal/domain/tournament"
)

// Current is the squad snapshot carried over from the previous matchday,
// including the spare budget accumulated from prior sales.
type Current struct {
	PlayerIDs   []string
	TeamBalance float64
}

// IDSet returns the membership set of the current squad.
func (c Current) IDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.PlayerIDs))
	for _, id := range c.PlayerIDs {
		set[id] = struct{}{}
	}
	return set
}

// Overrides lists caller-forced inclusions and exclusions. Ids unknown to the
// catalog are ignored.
type Overrides struct {
	IncludeIDs []string
	ExcludeIDs []string
}

// Diagnostics describes how a selection was reached, so callers can detect
// that constraint relaxation occurred.
type Diagnostics struct {
	ExtraTransfers      int
	UnavailableSelected int
	Relaxed             bool
	Objective           float64
}

// Selection is one accepted matchday squad.
type Selection struct {
	ID          string
	Matchday    int
	Stage       tournament.Stage
	PlayerIDs   []string
	PlayerNames []string
	TotalPrice  float64
	Diagnostics Diagnostics
	CreatedAt   time.Time
}

func (s Selection) ValidateBasic() error {
	if s.ID == "" {
		return fmt.Errorf("selection id is required")
	}
	if s.Matchday < tournament.FirstMatchday || s.Matchday > tournament.LastMatchday {
		return fmt.Errorf("selection matchday %d is out of range", s.Matchday)
	}
	if len(s.PlayerIDs) == 0 {
		return fmt.Errorf("selection players are required")
	}
	if len(s.PlayerIDs) != len(s.PlayerNames) {
		return fmt.Errorf("selection ids and names are out of sync")
	}
	return nil
}
