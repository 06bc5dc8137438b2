package drivers

import (
	"testing"

	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAll(t *testing.T) {
	t.Run("should register every built-in driver", func(t *testing.T) {
		registry := driver.NewRegistry()
		require.NoError(t, RegisterAll(registry, EventBus.New()))
		assert.Equal(t, []string{"elasticsearch", "memory", "messaging", "mongodb"}, registry.Names())

		d, err := registry.Resolve("memory", driver.Options{})
		require.NoError(t, err)
		assert.Equal(t, "memory", d.Name())

		d, err = registry.Resolve("messaging://topic", driver.Options{})
		require.NoError(t, err)
		assert.Equal(t, "messaging", d.Name())
	})

	t.Run("should fail when registered twice", func(t *testing.T) {
		registry := driver.NewRegistry()
		require.NoError(t, RegisterAll(registry, EventBus.New()))
		assert.ErrorIs(t, RegisterAll(registry, EventBus.New()), driver.ErrDuplicateDriver)
	})
}
