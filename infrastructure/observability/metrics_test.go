package observability

import (
	"context"
	"testing"
	"time"

	"finengine/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsProvider_NilIsSafe(t *testing.T) {
	var mp *MetricsProvider

	assert.NotPanics(t, func() {
		mp.RecordWorkflowAction("withdrawal", "approve", "success")
		mp.RecordBalanceMutation("debit", false)
		mp.RecordSpinDraw("cash")
		mp.RecordNATSMessagePublished("user_created")
		mp.RecordHTTPRequest("/health", "GET", 200, time.Millisecond)
	})
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetricsProvider_Disabled(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = false

	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))
	assert.False(t, mp.isEnabled())
	assert.NotPanics(t, func() { mp.RecordSpinDraw("cash") })
}

func TestMetricsProvider_ExporterTypes(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		cfg := config.NewTestConfig()
		cfg.OTelEnabled = true
		cfg.OTelExporterType = "none"

		mp := NewMetricsProvider(cfg)
		require.NoError(t, mp.Initialize(context.Background()))
		assert.False(t, mp.isEnabled())
	})

	t.Run("console", func(t *testing.T) {
		cfg := config.NewTestConfig()
		cfg.OTelEnabled = true
		cfg.OTelExporterType = "console"
		cfg.OTelExportIntervalMillis = 60000

		mp := NewMetricsProvider(cfg)
		require.NoError(t, mp.Initialize(context.Background()))
		defer mp.Shutdown(context.Background())

		assert.True(t, mp.isEnabled())
		assert.NotPanics(t, func() {
			mp.RecordWorkflowAction("withdrawal", "approve", "success")
			mp.RecordBalanceMutation("credit", true)
		})
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := config.NewTestConfig()
		cfg.OTelEnabled = true
		cfg.OTelExporterType = "carrier-pigeon"

		err := NewMetricsProvider(cfg).Initialize(context.Background())
		assert.Error(t, err)
	})
}
