package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Run("should count notifications by result", func(t *testing.T) {
		m := NewMetrics()
		m.RecordNotification(SourceHTTP, nil)
		m.RecordNotification(SourceHTTP, errors.New("bad"))
		m.RecordNotification(SourceOTLP, nil)

		assert.Equal(t, float64(1), testutil.ToFloat64(m.Notifications.WithLabelValues(SourceHTTP, ResultAccepted)))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Notifications.WithLabelValues(SourceHTTP, ResultRejected)))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Notifications.WithLabelValues(SourceOTLP, ResultAccepted)))
	})

	t.Run("should count reports and excluded entries", func(t *testing.T) {
		m := NewMetrics()
		m.RecordReport(time.Now(), 2, nil)
		assert.Equal(t, float64(2), testutil.ToFloat64(m.ExcludedEntries))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Reports.WithLabelValues("ok")))
	})

	t.Run("should serve the private registry", func(t *testing.T) {
		m := NewMetrics()
		m.RecordNotification(SourceHTTP, nil)
		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `profiler_notifications_total{result="accepted",source="http"} 1`)
	})
}
