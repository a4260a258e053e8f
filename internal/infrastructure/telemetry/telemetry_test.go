package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestSetup_Disabled(t *testing.T) {
	tel, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "crm-test"}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tel.Tracer.IsEnabled())
	assert.False(t, tel.Profiler.IsEnabled())
	assert.NotNil(t, tel.Meter.Meter("x"))
	assert.NotNil(t, tel.Tracer.Tracer("x"))
	assert.False(t, tel.Logs.ZapCore(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.Profiler.Stop(), "second stop is a no-op")
}

func TestNewProfiler_RequiresServerAddress(t *testing.T) {
	_, err := NewProfiler(config.TelemetryConfig{Enabled: true, ProfilingEnabled: true, ServiceName: "crm"}, zap.NewNop())
	assert.Error(t, err)
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestStartServiceSpan(t *testing.T) {
	rec := useRecorder(t)

	ctx, span := StartServiceSpan(context.Background(), "lead", "transition",
		SpanAttrLeadID, "l-1", SpanAttrToStatus, "QUALIFIED", "ignored")
	assert.NotEmpty(t, TraceID(ctx))
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "lead.transition", s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Len(t, s.Attributes(), 2)
	assert.Len(t, s.Events(), 1)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestDBTracing_AnnotatesSpans(t *testing.T) {
	rec := useRecorder(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, NewDBTracing("sqlite", 0, zap.NewNop()).Register(db))

	ctx, parent := otel.Tracer("test").Start(context.Background(), "parent")
	require.NoError(t, db.WithContext(ctx).Create(&widget{Name: "a"}).Error)
	var got widget
	err = db.WithContext(ctx).Where("name = ?", "missing").First(&got).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	parent.End()

	var sawTable bool
	for _, s := range rec.Ended() {
		for _, a := range s.Attributes() {
			if string(a.Key) == "db.sql.table" && a.Value.AsString() == "widgets" {
				sawTable = true
			}
		}
		assert.NotEqual(t, codes.Error, s.Status().Code, "record not found is not an error: %s", s.Name())
	}
	assert.True(t, sawTable)
}

func TestBusinessMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	bm, err := NewBusinessMetrics(mp.Meter("crm"))
	require.NoError(t, err)

	ctx := context.Background()
	bm.LeadTransitioned(ctx, "NEW", "CONTACTED")
	bm.LeadTransitioned(ctx, "NEW", "CONTACTED")
	bm.DealWon(ctx, decimal.RequireFromString("1500.50"))
	bm.ConflictDetected(ctx, "lead.transition")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	sums := map[string]float64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, 2.0, sums["crm_lead_transitions_total"])
	assert.Equal(t, 1.0, sums["crm_deals_won_total"])
	assert.InDelta(t, 1500.50, sums["crm_deals_won_amount_total"], 0.001)
	assert.Equal(t, 1.0, sums["crm_concurrency_conflicts_total"])
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	_, err := NewBusinessMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}
