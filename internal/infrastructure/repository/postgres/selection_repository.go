// Package postgres persists selection history when a database is configured.
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
)

type SelectionRepository struct {
	db *sqlx.DB
}

func NewSelectionRepository(db *sqlx.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

func (r *SelectionRepository) Save(ctx context.Context, selection squad.Selection) error {
	if err := selection.ValidateBasic(); err != nil {
		return err
	}

	row, err := toSelectionRow(selection)
	if err != nil {
		return err
	}

	const query = `
INSERT INTO squad_selections (public_id, matchday, stage, player_ids, player_names, total_price, diagnostics, created_at)
VALUES (:public_id, :matchday, :stage, :player_ids, :player_names, :total_price, :diagnostics, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert selection: %w", err)
	}
	return nil
}

func (r *SelectionRepository) GetByMatchday(ctx context.Context, matchday int) (squad.Selection, bool, error) {
	const query = `
SELECT public_id, matchday, stage, player_ids, player_names, total_price, diagnostics, created_at
FROM squad_selections
WHERE matchday = $1
ORDER BY created_at DESC, id DESC
LIMIT 1`

	var row selectionRow
	if err := r.db.GetContext(ctx, &row, query, matchday); err != nil {
		if isNotFound(err) {
			return squad.Selection{}, false, nil
		}
		return squad.Selection{}, false, fmt.Errorf("get selection: %w", err)
	}

	selection, err := row.toDomain()
	if err != nil {
		return squad.Selection{}, false, err
	}
	return selection, true, nil
}

func (r *SelectionRepository) List(ctx context.Context, limit int) ([]squad.Selection, error) {
	const query = `
SELECT public_id, matchday, stage, player_ids, player_names, total_price, diagnostics, created_at
FROM squad_selections
ORDER BY created_at DESC, id DESC
LIMIT $1`

	var rows []selectionRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}

	out := make([]squad.Selection, 0, len(rows))
	for _, row := range rows {
		selection, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, selection)
	}
	return out, nil
}
