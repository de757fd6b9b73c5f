package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/uclfantasy/squad-optimizer/external/uclfantasy"
	"github.com/uclfantasy/squad-optimizer/internal/config"
	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
	"github.com/uclfantasy/squad-optimizer/internal/domain/tournament"
	idgen "github.com/uclfantasy/squad-optimizer/internal/platform/id"
	"github.com/uclfantasy/squad-optimizer/internal/platform/logging"
	"github.com/uclfantasy/squad-optimizer/internal/platform/resilience"
	"github.com/uclfantasy/squad-optimizer/internal/platform/solver"
	"github.com/uclfantasy/squad-optimizer/internal/usecase"
)

func main() {
	matchday := flag.Int("matchday", 0, "matchday to optimize (1..13)")
	transfers := flag.Bool("transfers", false, "fetch the current squad and optimize transfers instead of building from scratch")
	include := flag.String("include", "", "comma-separated player ids that must be in the squad")
	exclude := flag.String("exclude", "", "comma-separated player ids that must stay out")
	flag.Parse()

	if *matchday < tournament.FirstMatchday || *matchday > tournament.LastMatchday {
		fmt.Fprintf(os.Stderr, "matchday must be between %d and %d\n", tournament.FirstMatchday, tournament.LastMatchday)
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*matchday, *transfers, splitIDs(*include), splitIDs(*exclude)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(matchday int, transfers bool, includeIDs, excludeIDs []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	accessLogger := logging.NewJSON(logging.LevelWarn)
	defer func() { _ = accessLogger.Sync() }()

	client := uclfantasy.NewClient(uclfantasy.Config{
		BaseURL:      cfg.FeedBaseURL,
		Email:        cfg.FeedEmail,
		Password:     cfg.FeedPassword,
		Timeout:      cfg.FeedTimeout,
		FeedCacheTTL: cfg.FeedCacheTTL,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FeedCircuitEnabled,
			FailureThreshold: cfg.FeedCircuitFailureCount,
			OpenTimeout:      cfg.FeedCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FeedCircuitHalfOpenMaxReq,
		},
	}, accessLogger)

	ctx := context.Background()

	input := usecase.OptimizeInput{
		Matchday: matchday,
		Overrides: squad.Overrides{
			IncludeIDs: includeIDs,
			ExcludeIDs: excludeIDs,
		},
	}

	if transfers {
		if err := client.Login(ctx); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		defer func() {
			if err := client.Logout(ctx); err != nil {
				logger.Warn("logout failed", "error", err)
			}
		}()

		current, found, err := client.CurrentSquad(ctx, matchday)
		if err != nil {
			return fmt.Errorf("fetch current squad: %w", err)
		}
		if found {
			input.HasCurrentSquad = true
			input.Current = current
		} else {
			fmt.Println("no current squad found, building from scratch")
		}
	}

	input.Records, err = client.PlayersByMatchday(ctx, matchday)
	if err != nil {
		return fmt.Errorf("fetch players: %w", err)
	}

	optimizer := usecase.NewSquadOptimizerService(
		solver.NewBranchBound(),
		nil,
		tournament.DefaultRules(),
		idgen.NewRandomGenerator("sel"),
		cfg.SolveTimeout,
		logger,
	)

	selection, err := optimizer.Optimize(ctx, input)
	if err != nil {
		return err
	}

	printSelection(selection)
	return nil
}

func printSelection(selection squad.Selection) {
	fmt.Printf("matchday %d (%s stage) squad:\n", selection.Matchday, selection.Stage)
	for i, name := range selection.PlayerNames {
		fmt.Printf("  %2d. %s\n", i+1, name)
	}
	fmt.Printf("total price: %.1f\n", selection.TotalPrice)
	fmt.Printf("objective: %.2f\n", selection.Diagnostics.Objective)
	if selection.Diagnostics.ExtraTransfers > 0 {
		fmt.Printf("extra transfers beyond allowance: %d\n", selection.Diagnostics.ExtraTransfers)
	}
	if selection.Diagnostics.Relaxed {
		fmt.Printf("note: availability constraints were relaxed to find this squad\n")
	}
	if selection.Diagnostics.UnavailableSelected > 0 {
		fmt.Printf("note: %d selected players are not in contention to start\n", selection.Diagnostics.UnavailableSelected)
	}
}

func splitIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	return out
}
