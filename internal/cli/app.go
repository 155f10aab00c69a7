package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harun/toolgate/internal/config"
	"github.com/harun/toolgate/internal/logger"
	"github.com/harun/toolgate/internal/metrics"
	"github.com/harun/toolgate/pkg/discovery"
	"github.com/harun/toolgate/pkg/journal"
	"github.com/harun/toolgate/pkg/learning"
	"github.com/harun/toolgate/pkg/security"
)

// app bundles the gate components a CLI command operates on. Every
// command builds one from the loaded config and closes it on exit.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics

	gate     *security.ValidationGate
	recorder *learning.UsageRecorder
	index    *learning.PerformanceIndex
	engine   *learning.RecommendationEngine
	catalog  *discovery.Catalog

	auditJournal journal.Journal
	usageJournal journal.Journal
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		lg.Close()
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	auditJournal, err := openJournal(cfg, "audit")
	if err != nil {
		lg.Close()
		return nil, err
	}
	usageJournal, err := openJournal(cfg, "usage")
	if err != nil {
		auditJournal.Close()
		lg.Close()
		return nil, err
	}

	perms, err := security.NewPermissionStore(filepath.Join(cfg.DataDir, "permissions.json"))
	if err != nil {
		return nil, err
	}
	tracker, err := security.NewResourceTracker(filepath.Join(cfg.DataDir, "limits.json"))
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics()
	}

	audit := security.NewAuditLog(auditJournal)
	gateOpts := []security.GateOption{
		security.WithStrictMode(cfg.Strict.Enabled),
		security.WithRequireLimits(cfg.Strict.RequireLimits),
	}
	engineOpts := []learning.EngineOption{
		learning.WithWeights(cfg.Scoring.SuccessWeight, cfg.Scoring.ContextWeight),
	}
	if m != nil {
		gateOpts = append(gateOpts, security.WithMetrics(m))
		engineOpts = append(engineOpts, learning.WithEngineMetrics(m))
	}
	gate := security.NewValidationGate(perms, tracker, audit, gateOpts...)

	recorder := learning.NewUsageRecorder(usageJournal)
	index := learning.NewPerformanceIndex(recorder)
	if m != nil {
		recorder = recorder.WithMetrics(m)
		index = index.WithMetrics(m)
	}

	catalog := discovery.NewCatalog()

	engine := learning.NewRecommendationEngine(index, perms, catalog, engineOpts...)

	return &app{
		cfg:          cfg,
		log:          lg,
		metrics:      m,
		gate:         gate,
		recorder:     recorder,
		index:        index,
		engine:       engine,
		catalog:      catalog,
		auditJournal: auditJournal,
		usageJournal: usageJournal,
	}, nil
}

func openJournal(cfg *config.Config, name string) (journal.Journal, error) {
	switch cfg.Journal.Backend {
	case "sqlite":
		return journal.NewSQLiteJournal(filepath.Join(cfg.DataDir, name+".db"))
	default:
		return journal.NewFileJournal(filepath.Join(cfg.DataDir, name+".jsonl"))
	}
}

func (a *app) Close() {
	a.usageJournal.Close()
	a.auditJournal.Close()
	a.log.Close()
}
