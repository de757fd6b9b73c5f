package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/uclfantasy/squad-optimizer/external/uclfantasy"
	"github.com/uclfantasy/squad-optimizer/internal/config"
	"github.com/uclfantasy/squad-optimizer/internal/domain/squad"
	"github.com/uclfantasy/squad-optimizer/internal/domain/tournament"
	"github.com/uclfantasy/squad-optimizer/internal/infrastructure/repository/memory"
	"github.com/uclfantasy/squad-optimizer/internal/infrastructure/repository/postgres"
	"github.com/uclfantasy/squad-optimizer/internal/interfaces/httpapi"
	idgen "github.com/uclfantasy/squad-optimizer/internal/platform/id"
	"github.com/uclfantasy/squad-optimizer/internal/platform/logging"
	"github.com/uclfantasy/squad-optimizer/internal/platform/resilience"
	"github.com/uclfantasy/squad-optimizer/internal/platform/solver"
	"github.com/uclfantasy/squad-optimizer/internal/usecase"
)

// Runtime holds the wired service and the resources that need closing on
// shutdown.
type Runtime struct {
	Server *http.Server
	Feed   *uclfantasy.Client
	DB     *sqlx.DB
}

func NewRuntime(cfg config.Config, logger *slog.Logger, accessLogger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if accessLogger == nil {
		accessLogger = logging.Default()
	}

	var db *sqlx.DB
	var squadRepo squad.Repository
	if cfg.DBEnabled {
		dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
		conn, err := otelsqlx.Connect("postgres", dbURL,
			otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		db = conn
		squadRepo = postgres.NewSelectionRepository(db)
	} else {
		squadRepo = memory.NewSelectionRepository()
	}

	feed := uclfantasy.NewClient(uclfantasy.Config{
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

	branchBound := solver.NewBranchBound()
	if cfg.SolverNodeLimit > 0 {
		branchBound.NodeLimit = cfg.SolverNodeLimit
	}

	optimizerService := usecase.NewSquadOptimizerService(
		branchBound,
		squadRepo,
		tournament.DefaultRules(),
		idgen.NewRandomGenerator("sel"),
		cfg.SolveTimeout,
		logger,
	)
	planService := usecase.NewPlanService(feed, optimizerService, logger)

	handler := httpapi.NewHandler(feed, optimizerService, planService, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &Runtime{
		Server: server,
		Feed:   feed,
		DB:     db,
	}, nil
}

func (r *Runtime) Close() error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}
