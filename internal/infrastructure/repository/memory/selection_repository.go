// Package memory holds the default, dependency-free selection history used
// when no database is configured.
package memory

import (
	"context"
	"sync"

	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
)

type SelectionRepository struct {
	mu    sync.RWMutex
	items []squad.Selection
}

func NewSelectionRepository() *SelectionRepository {
	return &SelectionRepository{}
}

func (r *SelectionRepository) Save(_ context.Context, selection squad.Selection) error {
	if err := selection.ValidateBasic(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, cloneSelection(selection))
	return nil
}

// GetByMatchday returns the most recently saved selection for a matchday.
func (r *SelectionRepository) GetByMatchday(_ context.Context, matchday int) (squad.Selection, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].Matchday == matchday {
			return cloneSelection(r.items[i]), true, nil
		}
	}
	return squad.Selection{}, false, nil
}

// List returns stored selections, newest first.
func (r *SelectionRepository) List(_ context.Context, limit int) ([]squad.Selection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.items) {
		limit = len(r.items)
	}

	out := make([]squad.Selection, 0, limit)
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, cloneSelection(r.items[i]))
	}
	return out, nil
}

func cloneSelection(s squad.Selection) squad.Selection {
	copied := s
	copied.PlayerIDs = append([]string(nil), s.PlayerIDs...)
	copied.PlayerNames = append([]string(nil), s.PlayerNames...)
	return copied
}
