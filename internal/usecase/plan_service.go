package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/uclfantasy/squad-optimizer/internal/domain/player"
	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
)

const (
	planStatusSuccess = "success"
	planStatusFailed  = "failed"

	defaultPlanWorkers = 4
	maxPlanWorkers     = 13
)

// PlayerFeed supplies one matchday's player pool. The production
// implementation is the tournament provider client; tests stub it.
type PlayerFeed interface {
	PlayersByMatchday(ctx context.Context, matchday int) ([]player.Record, error)
}

// PlanInput asks for independent initial-squad optimizations over a set of
// matchdays. Each matchday gets its own fresh pool snapshot and model, so the
// tasks are safe to run concurrently.
type PlanInput struct {
	Matchdays  []int
	MaxWorkers int
	Overrides  squad.Overrides
}

type PlanResult struct {
	TaskCount    int              `json:"task_count"`
	SuccessCount int              `json:"success_count"`
	FailedCount  int              `json:"failed_count"`
	WorkerCount  int              `json:"worker_count"`
	Tasks        []PlanTaskResult `json:"tasks"`
}

type PlanTaskResult struct {
	Matchday    int      `json:"matchday"`
	Status      string   `json:"status"`
	PlayerNames []string `json:"player_names,omitempty"`
	Objective   float64  `json:"objective,omitempty"`
	Relaxed     bool     `json:"relaxed,omitempty"`
	DurationMs  int64    `json:"duration_ms"`
	Message     string   `json:"message,omitempty"`
}

type PlanService struct {
	feed      PlayerFeed
	optimizer *SquadOptimizerService
	logger    *slog.Logger
}

func NewPlanService(feed PlayerFeed, optimizer *SquadOptimizerService, logger *slog.Logger) *PlanService {
	if logger == nil {
		logger = slog.Default()
	}

	return &PlanService{
		feed:      feed,
		optimizer: optimizer,
		logger:    logger,
	}
}

// Plan fans the requested matchdays out over a bounded worker pool and
// reports per-matchday outcomes. One failed matchday does not abort the rest.
func (s *PlanService) Plan(ctx context.Context, input PlanInput) (PlanResult, error) {
	ctx, span := startUsecaseSpan(ctx, "PlanService.Plan")
	defer span.End()

	matchdays, err := s.cleanMatchdays(input.Matchdays)
	if err != nil {
		return PlanResult{}, err
	}

	workerCount := input.MaxWorkers
	if workerCount <= 0 {
		workerCount = defaultPlanWorkers
	}
	if workerCount > maxPlanWorkers {
		workerCount = maxPlanWorkers
	}
	if workerCount > len(matchdays) {
		workerCount = len(matchdays)
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return PlanResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan PlanTaskResult, len(matchdays))
	var successCount atomic.Int32
	var failedCount atomic.Int32

	var workers sync.WaitGroup
	for _, matchday := range matchdays {
		matchday := matchday
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := s.runPlanTask(ctx, matchday, input.Overrides)
			row.DurationMs = time.Since(start).Milliseconds()

			if row.Status == planStatusSuccess {
				successCount.Add(1)
			} else {
				failedCount.Add(1)
			}
			results <- row
		}); err != nil {
			workers.Done()
			failedCount.Add(1)
			results <- PlanTaskResult{
				Matchday: matchday,
				Status:   planStatusFailed,
				Message:  fmt.Sprintf("submit task: %v", err),
			}
		}
	}

	workers.Wait()
	close(results)

	out := PlanResult{
		TaskCount:   len(matchdays),
		WorkerCount: workerCount,
	}
	for row := range results {
		out.Tasks = append(out.Tasks, row)
	}
	sort.Slice(out.Tasks, func(i, j int) bool { return out.Tasks[i].Matchday < out.Tasks[j].Matchday })
	out.SuccessCount = int(successCount.Load())
	out.FailedCount = int(failedCount.Load())

	s.logger.InfoContext(ctx, "matchday plan finished",
		"tasks", out.TaskCount,
		"success", out.SuccessCount,
		"failed", out.FailedCount,
		"workers", out.WorkerCount,
	)

	return out, nil
}

func (s *PlanService) runPlanTask(ctx context.Context, matchday int, overrides squad.Overrides) PlanTaskResult {
	row := PlanTaskResult{Matchday: matchday}

	records, err := s.feed.PlayersByMatchday(ctx, matchday)
	if err != nil {
		row.Status = planStatusFailed
		row.Message = fmt.Sprintf("fetch players: %v", err)
		return row
	}

	selection, err := s.optimizer.Optimize(ctx, OptimizeInput{
		Matchday:  matchday,
		Records:   records,
		Overrides: overrides,
	})
	if err != nil {
		row.Status = planStatusFailed
		row.Message = err.Error()
		return row
	}

	row.Status = planStatusSuccess
	row.PlayerNames = selection.PlayerNames
	row.Objective = selection.Diagnostics.Objective
	row.Relaxed = selection.Diagnostics.Relaxed
	return row
}

func (s *PlanService) cleanMatchdays(matchdays []int) ([]int, error) {
	if len(matchdays) == 0 {
		return nil, fmt.Errorf("%w: at least one matchday is required", ErrInvalidInput)
	}

	seen := make(map[int]struct{}, len(matchdays))
	out := make([]int, 0, len(matchdays))
	for _, matchday := range matchdays {
		if _, err := s.optimizer.rules.StageFor(matchday); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if _, dup := seen[matchday]; dup {
			continue
		}
		seen[matchday] = struct{}{}
		out = append(out, matchday)
	}
	sort.Ints(out)
	return out, nil
}
