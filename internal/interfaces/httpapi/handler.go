package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
	"github.com/uclfantasy/squad-optimizer/internal/usecase"
)

type Handler struct {
	feed             usecase.PlayerFeed
	optimizerService *usecase.SquadOptimizerService
	planService      *usecase.PlanService
	logger           *slog.Logger
	validator        *validator.Validate
}

func NewHandler(
	feed usecase.PlayerFeed,
	optimizerService *usecase.SquadOptimizerService,
	planService *usecase.PlanService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		feed:             feed,
		optimizerService: optimizerService,
		planService:      planService,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type optimizeSquadRequest struct {
	Matchday     int              `json:"matchday" validate:"required,min=1,max=13"`
	CurrentSquad *currentSquadDTO `json:"current_squad" validate:"omitempty"`
	Overrides    overridesDTO     `json:"overrides"`
}

type currentSquadDTO struct {
	PlayerIDs   []string `json:"player_ids" validate:"required,min=1,dive,required"`
	TeamBalance float64  `json:"team_balance" validate:"gte=0"`
}

type overridesDTO struct {
	IncludeIDs []string `json:"include_ids" validate:"omitempty,dive,required"`
	ExcludeIDs []string `json:"exclude_ids" validate:"omitempty,dive,required"`
}

func (o overridesDTO) toDomain() squad.Overrides {
	return squad.Overrides{
		IncludeIDs: o.IncludeIDs,
		ExcludeIDs: o.ExcludeIDs,
	}
}

type planMatchdaysRequest struct {
	Matchdays  []int        `json:"matchdays" validate:"required,min=1,dive,min=1,max=13"`
	MaxWorkers int          `json:"max_workers" validate:"omitempty,min=1,max=13"`
	Overrides  overridesDTO `json:"overrides"`
}

type diagnosticsDTO struct {
	ExtraTransfers      int     `json:"extra_transfers"`
	UnavailableSelected int     `json:"unavailable_selected"`
	Relaxed             bool    `json:"relaxed"`
	Objective           float64 `json:"objective"`
}

type selectionDTO struct {
	ID          string         `json:"id"`
	Matchday    int            `json:"matchday"`
	Stage       string         `json:"stage"`
	PlayerIDs   []string       `json:"player_ids"`
	PlayerNames []string       `json:"player_names"`
	TotalPrice  float64        `json:"total_price"`
	Diagnostics diagnosticsDTO `json:"diagnostics"`
	CreatedAt   time.Time      `json:"created_at"`
}

func selectionToDTO(selection squad.Selection) selectionDTO {
	return selectionDTO{
		ID:          selection.ID,
		Matchday:    selection.Matchday,
		Stage:       string(selection.Stage),
		PlayerIDs:   selection.PlayerIDs,
		PlayerNames: selection.PlayerNames,
		TotalPrice:  selection.TotalPrice,
		Diagnostics: diagnosticsDTO{
			ExtraTransfers:      selection.Diagnostics.ExtraTransfers,
			UnavailableSelected: selection.Diagnostics.UnavailableSelected,
			Relaxed:             selection.Diagnostics.Relaxed,
			Objective:           selection.Diagnostics.Objective,
		},
		CreatedAt: selection.CreatedAt,
	}
}
