package drivers

import (
	"fmt"

	"github.com/amadev/osprofiler/internal/driver/elasticsearch"
	"github.com/amadev/osprofiler/internal/driver/memory"
	"github.com/amadev/osprofiler/internal/driver/messaging"
	"github.com/amadev/osprofiler/internal/driver/mongodb"
	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/asaskevich/EventBus"
)

// RegisterAll adds every built-in driver to registry. Messaging drivers publish on bus.
func RegisterAll(registry *driver.Registry, bus EventBus.Bus) error {
	constructors := []struct {
		name        string
		constructor driver.Constructor
	}{
		{elasticsearch.Name, elasticsearch.New},
		{memory.Name, memory.New},
		{messaging.Name, messaging.NewConstructor(bus)},
		{mongodb.Name, mongodb.New},
	}
	for _, c := range constructors {
		if err := registry.Register(c.name, c.constructor); err != nil {
			return fmt.Errorf("failed to register built-in drivers: %w", err)
		}
	}
	return nil
}
