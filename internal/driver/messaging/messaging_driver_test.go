package messaging

import (
	"context"
	"testing"

	"github.com/amadev/osprofiler/internal/driver/memory"
	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseTopic(t *testing.T) {
	topic, err := ParseTopic("messaging")
	require.NoError(t, err)
	assert.Equal(t, DefaultTopic, topic)

	topic, err = ParseTopic("messaging://nova.profiler")
	require.NoError(t, err)
	assert.Equal(t, "nova.profiler", topic)
}

func TestDriver(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("should not read traces back", func(t *testing.T) {
		d, err := NewConstructor(EventBus.New())("messaging://", driver.Options{Logger: logger})
		require.NoError(t, err)

		_, err = d.GetReport(ctx, "b1")
		assert.ErrorIs(t, err, driver.ErrNotSupported)
		assert.EqualError(t, err, "messaging: GetReport is either not supported or has to be overridden")
		_, err = d.ListTraces(ctx, nil, nil)
		assert.ErrorIs(t, err, driver.ErrNotSupported)
	})

	t.Run("should hand published notifications to a collector", func(t *testing.T) {
		bus := EventBus.New()
		store, err := memory.New("memory://", driver.Options{Logger: logger})
		require.NoError(t, err)
		defer store.Close(ctx)

		collector := NewCollector(bus, "traces", store, logger)
		require.NoError(t, collector.Start())

		d, err := NewConstructor(bus)("messaging://traces", driver.Options{Project: "nova", Logger: logger})
		require.NoError(t, err)
		start := model.Notification{
			BaseID: "b1", TraceID: "t1", Name: "op", Phase: model.PhaseStart,
			Timestamp: "2020-01-01T00:00:00.000000", RawPayload: map[string]interface{}{"k": "v"},
		}
		stop := start
		stop.Phase = model.PhaseStop
		stop.Timestamp = "2020-01-01T00:00:00.250000"
		require.NoError(t, d.Notify(ctx, start))
		require.NoError(t, d.Notify(ctx, stop))
		require.NoError(t, collector.Stop())

		report, err := store.GetReport(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, report.Children, 1)
		op := report.Children[0]
		assert.Equal(t, "nova", op.Info.Project)
		assert.Equal(t, int64(250), *op.Info.Finished)
		assert.Equal(t, map[string]interface{}{"k": "v"}, op.Info.RawPayloads["op-start"])
	})

	t.Run("should reject a notification without a base id", func(t *testing.T) {
		d, err := NewConstructor(EventBus.New())("messaging://", driver.Options{})
		require.NoError(t, err)
		err = d.Notify(ctx, model.Notification{TraceID: "t1", Timestamp: "2020-01-01T00:00:00.000000"})
		assert.ErrorIs(t, err, driver.ErrMissingBaseID)
	})
}
