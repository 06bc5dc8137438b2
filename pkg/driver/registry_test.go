package driver

import (
	"context"
	"testing"

	"github.com/amadev/osprofiler/pkg/trace/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	Base
}

func fakeConstructor(name string) Constructor {
	return func(connectionString string, opts Options) (Driver, error) {
		return &fakeDriver{Base: NewBase(name, connectionString, opts)}, nil
	}
}

func newTestRegistry(t *testing.T) *Registry {
	r := NewRegistry()
	require.NoError(t, r.Register("mongodb", fakeConstructor("mongodb")))
	require.NoError(t, r.Register("elasticsearch", fakeConstructor("elasticsearch")))
	require.NoError(t, r.Register("messaging", fakeConstructor("messaging")))
	return r
}

func TestRegistry_Resolve(t *testing.T) {
	t.Run("should pick the driver named by the scheme", func(t *testing.T) {
		r := newTestRegistry(t)
		d, err := r.Resolve("mongodb://host/db", Options{})
		require.NoError(t, err)
		assert.Equal(t, "mongodb", d.Name())
		assert.Equal(t, "mongodb://host/db", d.(*fakeDriver).ConnectionString())
	})

	t.Run("should fail with the connection string when no driver matches", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Resolve("unknownscheme://x", Options{})
		assert.ErrorIs(t, err, ErrDriverNotFound)

		var notFound *DriverNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "unknownscheme://x", notFound.ConnectionString)
		assert.Contains(t, err.Error(), "unknownscheme://x")
	})

	t.Run("should treat a bare name like a scheme with nothing after it", func(t *testing.T) {
		r := newTestRegistry(t)
		bare, err := r.Resolve("mongodb", Options{})
		require.NoError(t, err)
		full, err := r.Resolve("mongodb://", Options{})
		require.NoError(t, err)

		assert.Equal(t, full.Name(), bare.Name())
		assert.IsType(t, full, bare)
	})

	t.Run("should report an unparseable connection string as not found", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Resolve("1bad://host", Options{})
		var notFound *DriverNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Error(t, notFound.Cause)
	})

	t.Run("should pass construction options through", func(t *testing.T) {
		r := newTestRegistry(t)
		d, err := r.Resolve("messaging://", Options{Project: "nova", Service: "api", Host: "node-1"})
		require.NoError(t, err)

		filled := d.(*fakeDriver).WithDefaults(model.Notification{TraceID: "t1", Host: "explicit"})
		assert.Equal(t, "nova", filled.Project)
		assert.Equal(t, "api", filled.Service)
		assert.Equal(t, "explicit", filled.Host)
	})
}

func TestRegistry_Register(t *testing.T) {
	t.Run("should reject a duplicate name", func(t *testing.T) {
		r := newTestRegistry(t)
		err := r.Register("mongodb", fakeConstructor("mongodb"))
		assert.ErrorIs(t, err, ErrDuplicateDriver)
		assert.Equal(t, []string{"elasticsearch", "messaging", "mongodb"}, r.Names())
	})
}

func TestBase_NotSupported(t *testing.T) {
	ctx := context.Background()
	d := &fakeDriver{Base: NewBase("fake", "fake://", Options{})}

	err := d.Notify(ctx, model.Notification{})
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.EqualError(t, err, "fake: Notify is either not supported or has to be overridden")

	_, err = d.GetReport(ctx, "base")
	var notSupported *NotSupportedError
	require.ErrorAs(t, err, &notSupported)
	assert.Equal(t, "GetReport", notSupported.Method)
	assert.Equal(t, "fake", notSupported.Driver)

	_, err = d.ListTraces(ctx, nil, nil)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.NoError(t, d.Close(ctx))
}

func TestBase_Assemble(t *testing.T) {
	d := &fakeDriver{Base: NewBase("fake", "fake://", Options{})}
	report, err := d.Assemble([]model.Notification{
		{TraceID: "t1", Name: "op", Phase: model.PhaseStart, Timestamp: "2020-01-01T00:00:00.000000"},
		{TraceID: "t1", Name: "op", Phase: model.PhaseStop, Timestamp: "not a timestamp"},
		{TraceID: "t1", Name: "op", Phase: model.PhaseStop, Timestamp: "2020-01-01T00:00:00.040000"},
	})
	require.NoError(t, err)
	require.Len(t, report.Children, 1)
	assert.Equal(t, int64(40), *report.Children[0].Info.Finished)
}
