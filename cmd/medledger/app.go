package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/medledger/internal/config"
	"github.com/ehr/medledger/internal/domain/billing"
	"github.com/ehr/medledger/internal/domain/catalog"
	"github.com/ehr/medledger/internal/domain/doctor"
	"github.com/ehr/medledger/internal/domain/patient"
	"github.com/ehr/medledger/internal/platform/apperr"
	"github.com/ehr/medledger/internal/platform/db"
	"github.com/ehr/medledger/internal/platform/metrics"
)

// app holds everything a command needs once storage and reference data are
// loaded. pool is nil on flat-file storage.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	pool      *pgxpool.Pool
	metrics   *metrics.Collector
	directory doctor.Directory
	registry  *patient.Registry
	engine    *billing.Engine
}

func bootstrap(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewCollector("medledger"),
	}

	policy, err := loadPolicy(cfg)
	if err != nil {
		return nil, err
	}

	var (
		repo   patient.Repository
		ledger billing.Ledger
	)
	if cfg.UsePostgres() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		logger.Info().Msg("connected to database")
		repo = patient.NewPGRepository(pool)
		ledger = billing.NewPGLedger(pool)
	} else {
		repo = patient.NewCSVRepository(cfg.PatientsFile, logger)
		ledger = billing.NewCSVLedger(cfg.LedgerFile, logger)
	}

	a.directory = doctor.Load(cfg.DoctorsFile, logger)
	cat := catalog.Load(cfg.CatalogFile, logger)

	a.registry = patient.NewRegistry(repo, logger)
	a.registry.SetCollector(a.metrics)
	if err := a.registry.Load(ctx); err != nil {
		if !apperr.IsIntegrity(err) {
			a.Close()
			return nil, fmt.Errorf("load patients: %w", err)
		}
		logger.Warn().Err(err).Int("patients", a.registry.Len()).
			Msg("patient data is corrupt, continuing with the rows read before the error")
	}

	a.engine = billing.NewEngine(cat, policy, ledger, a.registry, logger)
	a.engine.SetCollector(a.metrics)
	return a, nil
}

func loadPolicy(cfg *config.Config) (billing.Policy, error) {
	if cfg.BillingPolicyFile == "" {
		return billing.DefaultPolicy(cfg.SpecialistService), nil
	}
	policy, err := billing.LoadPolicy(cfg.BillingPolicyFile)
	if err != nil {
		return billing.Policy{}, err
	}
	return policy, nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// withApp runs fn against a freshly bootstrapped app, logging like the server.
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := bootstrap(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
