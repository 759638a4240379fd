package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/report-facts/internal/registry"
)

// ExtractionService is the health service name reported next to the
// overall ("") status.
const ExtractionService = "reportfacts.Extraction"

// Pinger is satisfied by *repository.DB.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// HealthReporter keeps the gRPC health service in line with backend
// availability and store reachability. Without a text backend the daemon can
// not produce records and reports NOT_SERVING.
type HealthReporter struct {
	hs     *health.Server
	reg    *registry.Registry
	db     Pinger
	logger *slog.Logger

	last healthpb.HealthCheckResponse_ServingStatus
}

func NewHealthReporter(hs *health.Server, reg *registry.Registry, db Pinger, logger *slog.Logger) *HealthReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthReporter{hs: hs, reg: reg, db: db, logger: logger}
}

// Update recomputes and publishes the serving status.
func (h *HealthReporter) Update(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	switch {
	case h.reg == nil || !h.reg.HasText():
		st = healthpb.HealthCheckResponse_NOT_SERVING
	case h.db != nil:
		if err := h.db.HealthCheck(ctx, 2*time.Second); err != nil {
			h.logger.Warn("health.db.failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(ExtractionService, st)
	if st != h.last {
		inv := registryReport(h.reg)
		h.logger.Info("health.status", "status", st.String(), "text_backends", inv)
		h.last = st
	}
	return st
}

// Watch calls Update every interval until ctx ends, then marks the server as
// shutting down.
func (h *HealthReporter) Watch(ctx context.Context, interval time.Duration) {
	h.Update(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.hs.Shutdown()
			return
		case <-t.C:
			h.Update(ctx)
		}
	}
}

func registryReport(reg *registry.Registry) []string {
	if reg == nil {
		return nil
	}
	return reg.Report().Text
}
