package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	sonic "github.com/bytedance/sonic"
	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
	"github.com/uclfantasy/squad-optimizer/internal/usecase"
)

func (h *Handler) OptimizeSquad(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.OptimizeSquad")
	defer span.End()

	var req optimizeSquadRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	records, err := h.feed.PlayersByMatchday(ctx, req.Matchday)
	if err != nil {
		h.logger.WarnContext(ctx, "player feed failed", "matchday", req.Matchday, "error", err)
		writeError(ctx, w, fmt.Errorf("%w: player feed: %v", usecase.ErrDependencyUnavailable, err))
		return
	}

	input := usecase.OptimizeInput{
		Matchday:  req.Matchday,
		Records:   records,
		Overrides: req.Overrides.toDomain(),
	}
	if req.CurrentSquad != nil {
		input.HasCurrentSquad = true
		input.Current = squad.Current{
			PlayerIDs:   req.CurrentSquad.PlayerIDs,
			TeamBalance: req.CurrentSquad.TeamBalance,
		}
	}

	selection, err := h.optimizerService.Optimize(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "optimize squad failed", "matchday", req.Matchday, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, selectionToDTO(selection))
}

func (h *Handler) PlanMatchdays(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PlanMatchdays")
	defer span.End()

	var req planMatchdaysRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.planService.Plan(ctx, usecase.PlanInput{
		Matchdays:  req.Matchdays,
		MaxWorkers: req.MaxWorkers,
		Overrides:  req.Overrides.toDomain(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "matchday plan failed", "matchdays", len(req.Matchdays), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) GetSelectionByMatchday(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSelectionByMatchday")
	defer span.End()

	matchday, err := strconv.Atoi(r.PathValue("matchday"))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: matchday must be an integer", usecase.ErrInvalidInput))
		return
	}

	selection, err := h.optimizerService.SelectionByMatchday(ctx, matchday)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, selectionToDTO(selection))
}

func (h *Handler) ListSelections(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSelections")
	defer span.End()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be a non-negative integer", usecase.ErrInvalidInput))
			return
		}
		limit = parsed
	}

	selections, err := h.optimizerService.RecentSelections(ctx, limit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	out := make([]selectionDTO, 0, len(selections))
	for _, selection := range selections {
		out = append(out, selectionToDTO(selection))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}
