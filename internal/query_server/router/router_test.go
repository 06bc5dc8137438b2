package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amadev/osprofiler/internal/driver/memory"
	"github.com/amadev/osprofiler/internal/driver/messaging"
	"github.com/amadev/osprofiler/internal/metrics"
	"github.com/amadev/osprofiler/internal/query_server/handler"
	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/asaskevich/EventBus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const nestedTrace = `[
	{"base_id": "b1", "trace_id": "t1", "parent_id": "", "name": "op-start", "project": "p", "service": "s", "host": "h", "timestamp": "2020-01-01T00:00:00.000000"},
	{"base_id": "b1", "trace_id": "t2", "parent_id": "t1", "name": "sub", "phase": "start", "timestamp": "2020-01-01T00:00:00.100000"},
	{"base_id": "b1", "trace_id": "t2", "parent_id": "t1", "name": "sub", "phase": "stop", "timestamp": "2020-01-01T00:00:00.200000"},
	{"base_id": "b1", "trace_id": "t1", "parent_id": "", "name": "op-stop", "timestamp": "2020-01-01T00:00:00.500000", "raw_payload": {"rows": 3}}
]`

func newTestRouter(t *testing.T, d driver.Driver) (http.Handler, *metrics.Metrics) {
	m := metrics.NewMetrics()
	return CreateRouter(d, d, m, zap.NewNop()), m
}

func newMemoryDriver(t *testing.T) driver.Driver {
	d, err := memory.New("memory://", driver.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	return d
}

func do(h http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestRouter_Notifications(t *testing.T) {
	t.Run("should store notifications and return the nested report", func(t *testing.T) {
		h, m := newTestRouter(t, newMemoryDriver(t))

		rec := do(h, http.MethodPost, "/notifications", nestedTrace)
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.JSONEq(t, `{"accepted": 4}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get(RequestIdHeader))

		rec = do(h, http.MethodGet, "/traces/b1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{
			"info": {"name": "total", "started": 0, "finished": 500},
			"children": [{
				"trace_id": "t1",
				"info": {
					"name": "op", "project": "p", "service": "s", "host": "h",
					"started": 0, "finished": 500,
					"meta.raw_payload.op-start": {},
					"meta.raw_payload.op-stop": {"rows": 3}
				},
				"children": [{
					"trace_id": "t2",
					"parent_id": "t1",
					"info": {
						"name": "sub", "started": 100, "finished": 200,
						"meta.raw_payload.sub-start": {},
						"meta.raw_payload.sub-stop": {}
					},
					"children": []
				}]
			}]
		}`, rec.Body.String())
		assert.Equal(t, float64(4), testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.SourceHTTP, metrics.ResultAccepted)))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/traces/{base_id}", "200")))
	})

	t.Run("should accept a single notification object", func(t *testing.T) {
		h, _ := newTestRouter(t, newMemoryDriver(t))
		rec := do(h, http.MethodPost, "/notifications",
			`{"base_id": "b1", "trace_id": "t1", "name": "op-start", "timestamp": "2020-01-01T00:00:00.000000"}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("should reject malformed input", func(t *testing.T) {
		h, _ := newTestRouter(t, newMemoryDriver(t))
		cases := map[string]string{
			"not json":        `{`,
			"empty array":     `[]`,
			"bad timestamp":   `{"base_id": "b1", "trace_id": "t1", "name": "op-start", "timestamp": "noon"}`,
			"no base id":      `{"trace_id": "t1", "name": "op-start", "timestamp": "2020-01-01T00:00:00.000000"}`,
			"no trace id":     `{"base_id": "b1", "name": "op-start", "timestamp": "2020-01-01T00:00:00.000000"}`,
			"wrong json type": `"op-start"`,
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				rec := do(h, http.MethodPost, "/notifications", body)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				var message handler.ErrorMessage
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &message))
				assert.NotEmpty(t, message.Message)
			})
		}
	})
}

func TestRouter_Traces(t *testing.T) {
	t.Run("should return not found for an unknown trace", func(t *testing.T) {
		h, _ := newTestRouter(t, newMemoryDriver(t))
		rec := do(h, http.MethodGet, "/traces/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should name excluded entries of a malformed trace", func(t *testing.T) {
		d := newMemoryDriver(t)
		ctx := context.Background()
		for _, n := range []model.Notification{
			{BaseID: "b1", TraceID: "a", ParentID: "b", Name: "x", Phase: model.PhaseStart, Timestamp: "2020-01-01T00:00:00.000000"},
			{BaseID: "b1", TraceID: "b", ParentID: "a", Name: "y", Phase: model.PhaseStart, Timestamp: "2020-01-01T00:00:00.001000"},
			{BaseID: "b1", TraceID: "c", Name: "z", Phase: model.PhaseStart, Timestamp: "2020-01-01T00:00:00.002000"},
		} {
			require.NoError(t, d.Notify(ctx, n))
		}
		h, m := newTestRouter(t, d)

		rec := do(h, http.MethodGet, "/traces/b1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.ElementsMatch(t, []string{"a", "b"}, strings.Split(rec.Header().Get(handler.ExcludedTraceIdsHeader), ","))
		var report model.Node
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		require.Len(t, report.Children, 1)
		assert.Equal(t, "c", report.Children[0].TraceID)
		assert.Equal(t, float64(2), testutil.ToFloat64(m.ExcludedEntries))
	})

	t.Run("should search and evict traces", func(t *testing.T) {
		h, _ := newTestRouter(t, newMemoryDriver(t))
		require.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/notifications", nestedTrace).Code)

		rec := do(h, http.MethodPost, "/traces/search", `{"query": {"project": "p"}, "fields": ["project"]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"traces": [{"base_id": "b1", "project": "p"}]}`, rec.Body.String())

		rec = do(h, http.MethodPost, "/traces/search", `{"query": {"color": "red"}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(h, http.MethodDelete, "/traces/b1", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = do(h, http.MethodGet, "/traces/b1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should answer not implemented for a write-only backend", func(t *testing.T) {
		d, err := messaging.NewConstructor(EventBus.New())("messaging://", driver.Options{})
		require.NoError(t, err)
		h, _ := newTestRouter(t, d)

		assert.Equal(t, http.StatusNotImplemented, do(h, http.MethodGet, "/traces/b1", "").Code)
		assert.Equal(t, http.StatusNotImplemented, do(h, http.MethodPost, "/traces/search", "").Code)
		assert.Equal(t, http.StatusNotImplemented, do(h, http.MethodDelete, "/traces/b1", "").Code)
	})

	t.Run("should serve metrics", func(t *testing.T) {
		h, _ := newTestRouter(t, newMemoryDriver(t))
		rec := do(h, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
