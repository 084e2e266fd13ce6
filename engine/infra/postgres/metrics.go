package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultPoolLabel  = "default"
	postgresMeterName = "todolists.postgres"
	metricPrefix      = "todolists_postgres_"
)

var (
	postgresMetricsOnce      sync.Once
	postgresMetricsErr       error
	postgresConnectionsOpen  metric.Int64ObservableGauge
	postgresConnectionsInUse metric.Int64ObservableGauge
	postgresConnectionsIdle  metric.Int64ObservableGauge
	postgresQueryDuration    metric.Float64Histogram
	postgresPools            sync.Map
)

// poolMetrics registers one pool with the shared observable gauges.
type poolMetrics struct {
	label string
	pool  atomic.Pointer[pgxpool.Pool]
}

func ensurePostgresMetrics() error {
	postgresMetricsOnce.Do(func() {
		postgresMetricsErr = setupPostgresMetrics(otel.GetMeterProvider().Meter(postgresMeterName))
	})
	return postgresMetricsErr
}

func setupPostgresMetrics(meter metric.Meter) error {
	if err := initPostgresInstruments(meter); err != nil {
		return err
	}
	return registerPostgresCallback(meter)
}

func initPostgresInstruments(meter metric.Meter) error {
	var err error
	postgresConnectionsOpen, err = meter.Int64ObservableGauge(
		metricPrefix+"connections_open",
		metric.WithDescription("Number of open Postgres connections"),
	)
	if err != nil {
		return err
	}
	postgresConnectionsInUse, err = meter.Int64ObservableGauge(
		metricPrefix+"connections_in_use",
		metric.WithDescription("Number of Postgres connections currently checked out"),
	)
	if err != nil {
		return err
	}
	postgresConnectionsIdle, err = meter.Int64ObservableGauge(
		metricPrefix+"connections_idle",
		metric.WithDescription("Number of idle Postgres connections"),
	)
	if err != nil {
		return err
	}
	postgresQueryDuration, err = meter.Float64Histogram(
		metricPrefix+"query_duration_seconds",
		metric.WithDescription("Time spent executing a single statement, connection checkout included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2),
	)
	return err
}

func registerPostgresCallback(meter metric.Meter) error {
	_, err := meter.RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			postgresPools.Range(func(_, value any) bool {
				pm, ok := value.(*poolMetrics)
				if !ok {
					return true
				}
				pool := pm.pool.Load()
				if pool == nil {
					return true
				}
				stats := pool.Stat()
				attrs := metric.WithAttributes(attribute.String("pool", pm.label))
				observer.ObserveInt64(postgresConnectionsOpen, int64(stats.TotalConns()), attrs)
				observer.ObserveInt64(postgresConnectionsInUse, int64(stats.AcquiredConns()), attrs)
				observer.ObserveInt64(postgresConnectionsIdle, int64(stats.IdleConns()), attrs)
				return true
			})
			return nil
		},
		postgresConnectionsOpen,
		postgresConnectionsInUse,
		postgresConnectionsIdle,
	)
	return err
}

func registerPoolMetrics(pool *pgxpool.Pool, label string) (*poolMetrics, error) {
	if err := ensurePostgresMetrics(); err != nil {
		return nil, fmt.Errorf("postgres: init metrics: %w", err)
	}
	pm := &poolMetrics{label: label}
	pm.pool.Store(pool)
	postgresPools.Store(pm, pm)
	return pm, nil
}

func (p *poolMetrics) unregister() {
	if p == nil {
		return
	}
	postgresPools.Delete(p)
	p.pool.Store(nil)
}

// recordQuery is a no-op until the instruments are initialized.
func recordQuery(ctx context.Context, statement string, elapsed time.Duration, err error) {
	if ensurePostgresMetrics() != nil || postgresQueryDuration == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	postgresQueryDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("operation", statementVerb(statement)),
		attribute.String("outcome", outcome),
	))
}

// statementVerb returns the lowercased leading keyword of a statement.
func statementVerb(statement string) string {
	fields := strings.Fields(statement)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

func poolLabel(cfg *Config) string {
	parts := make([]string, 0, 3)
	for _, c := range []string{cfg.Host, cfg.Port, cfg.DBName} {
		if s := strings.TrimSpace(strings.ToLower(c)); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return defaultPoolLabel
	}
	return strings.Join(parts, "-")
}
