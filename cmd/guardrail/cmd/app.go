package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Guardrail-Labs/guardrail/internal/adapter/outbound/memory"
	"github.com/Guardrail-Labs/guardrail/internal/adapter/outbound/sqlite"
	"github.com/Guardrail-Labs/guardrail/internal/config"
	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
	"github.com/Guardrail-Labs/guardrail/internal/metrics"
	"github.com/Guardrail-Labs/guardrail/internal/service"
	"github.com/Guardrail-Labs/guardrail/internal/telemetry"
)

// app holds the wired services for one CLI invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	admin  *service.AdminService
	eval   *service.EvaluationService
	audit  *service.AuditService
	tracer *telemetry.Tracer
	db     *sqlite.DB
}

// newApp loads config and wires the storage backend and services.
func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	m := metrics.New(prometheus.NewRegistry())

	tracer, err := telemetry.New(cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	var (
		store      guideline.Store
		auditStore audit.Store
		db         *sqlite.DB
	)
	switch cfg.Storage.Backend {
	case "memory":
		as := memory.NewAuditStore()
		auditStore = as
		store = memory.NewGuidelineStore(as)
	case "sqlite":
		db, err = sqlite.Open(sqlite.DefaultConfig(cfg.Storage.Path), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		auditStore = sqlite.NewAuditStore(db)
		store = sqlite.NewGuidelineStore(db)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	evalOpts := []service.EvaluationOption{
		service.WithCacheSize(cfg.Evaluation.CacheSize),
	}
	if cfg.Audit.LogEvaluations {
		evalOpts = append(evalOpts, service.WithEvaluationAudit())
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		admin:  service.NewAdminService(store, m, logger),
		eval:   service.NewEvaluationService(store, auditStore, m, tracer, logger, evalOpts...),
		audit:  service.NewAuditService(auditStore, logger),
		tracer: tracer,
		db:     db,
	}, nil
}

// tenant resolves the effective tenant: the --tenant flag wins over config.
func (a *app) tenant() string {
	if tenantFlag != "" {
		return tenantFlag
	}
	return a.cfg.Tenant
}

// close releases the storage backend and flushes pending trace spans.
func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to shut down tracing", "error", err)
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
