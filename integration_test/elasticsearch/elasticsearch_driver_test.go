//go:build integration

package elasticsearch

import (
	"context"
	"testing"
	"time"

	esdriver "github.com/amadev/osprofiler/internal/driver/elasticsearch"
	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIndex = "osprofiler-integration"

func notification(baseID, traceID, parentID, event, timestamp string) model.Notification {
	name, phase := model.ParseEventName(event)
	return model.Notification{
		BaseID:     baseID,
		TraceID:    traceID,
		ParentID:   parentID,
		Name:       name,
		Phase:      phase,
		Timestamp:  timestamp,
		RawPayload: map[string]interface{}{"event": event},
	}
}

func newDriver(t *testing.T) driver.Driver {
	d, err := esdriver.New(
		"elasticsearch://"+address+"?index="+testIndex+"&buffer=2",
		driver.Options{Project: "nova", Service: "api", Host: "node-1", Logger: logger},
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		assert.NoError(t, d.Close(ctx))
		assert.NoError(t, deleteAllDocuments(es, testIndex))
	})
	return d
}

func TestElasticsearchDriver(t *testing.T) {
	if es == nil {
		t.Error("es uninitialized or misconfigured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	t.Run("should assemble a stored trace into a report", func(t *testing.T) {
		d := newDriver(t)
		for _, n := range []model.Notification{
			notification("b1", "t1", "", "wsgi-start", "2020-01-01T00:00:00.000000"),
			notification("b1", "t2", "t1", "db-start", "2020-01-01T00:00:00.120000"),
			notification("b1", "t2", "t1", "db-stop", "2020-01-01T00:00:00.180000"),
			notification("b1", "t1", "", "wsgi-stop", "2020-01-01T00:00:00.400000"),
			notification("b1", "t1", "", "wsgi-stop", "2020-01-01T00:00:00.400000"),
		} {
			require.NoError(t, d.Notify(ctx, n))
		}

		report, err := d.GetReport(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, int64(400), *report.Info.Finished)
		require.Len(t, report.Children, 1)
		wsgi := report.Children[0]
		assert.Equal(t, "wsgi", wsgi.Info.Name)
		assert.Equal(t, "nova", wsgi.Info.Project)
		assert.Equal(t, "node-1", wsgi.Info.Host)
		assert.Equal(t, map[string]interface{}{"event": "wsgi-stop"}, wsgi.Info.RawPayloads["wsgi-stop"])
		require.Len(t, wsgi.Children, 1)
		db := wsgi.Children[0]
		assert.Equal(t, int64(120), db.Info.Started)
		assert.Equal(t, int64(180), *db.Info.Finished)
	})

	t.Run("should list one record per trace in timestamp order", func(t *testing.T) {
		d := newDriver(t)
		for _, n := range []model.Notification{
			notification("late", "t1", "", "op-start", "2020-01-01T00:00:09.000000"),
			notification("early", "t1", "", "op-start", "2020-01-01T00:00:01.000000"),
			notification("early", "t1", "", "op-stop", "2020-01-01T00:00:02.000000"),
		} {
			require.NoError(t, d.Notify(ctx, n))
		}

		records, err := d.ListTraces(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []map[string]interface{}{
			{"base_id": "early", "timestamp": "2020-01-01T00:00:01.000000"},
			{"base_id": "late", "timestamp": "2020-01-01T00:00:09.000000"},
		}, records)

		records, err = d.ListTraces(ctx, map[string]string{"phase": "stop"}, []string{"name"})
		require.NoError(t, err)
		assert.Equal(t, []map[string]interface{}{{"base_id": "early", "name": "op"}}, records)
	})

	t.Run("should forget an evicted trace", func(t *testing.T) {
		d := newDriver(t)
		require.NoError(t, d.Notify(ctx, notification("gone", "t1", "", "op-start", "2020-01-01T00:00:00.000000")))
		require.NoError(t, d.Notify(ctx, notification("kept", "t1", "", "op-start", "2020-01-01T00:00:00.000000")))

		evicter, ok := d.(driver.Evicter)
		require.True(t, ok)
		require.NoError(t, evicter.Evict(ctx, "gone"))

		report, err := d.GetReport(ctx, "gone")
		require.NoError(t, err)
		assert.Empty(t, report.Children)
		report, err = d.GetReport(ctx, "kept")
		require.NoError(t, err)
		assert.Len(t, report.Children, 1)
	})
}
