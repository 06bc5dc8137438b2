package driver

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const schemeDelimiter = "://"

// Constructor builds a driver from the connection string it was resolved with.
type Constructor func(connectionString string, opts Options) (Driver, error)

// Registry maps driver names to constructors. Names are matched against the scheme
// of a connection string.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
	}
}

func (r *Registry) Register(name string, constructor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.constructors[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDriver, name)
	}
	r.constructors[name] = constructor
	return nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve constructs the driver registered under the scheme of connectionString.
// A bare name such as "messaging" is read as "messaging://". The constructor receives
// connectionString unmodified.
func (r *Registry) Resolve(connectionString string, opts Options) (Driver, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	parsed, err := url.Parse(NormalizeConnectionString(connectionString))
	if err != nil {
		return nil, &DriverNotFoundError{ConnectionString: connectionString, Cause: err}
	}
	opts.Logger.Debug("Resolving driver from connection string", zap.String("scheme", parsed.Scheme))

	r.mu.RLock()
	constructor, ok := r.constructors[parsed.Scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, &DriverNotFoundError{ConnectionString: connectionString}
	}

	d, err := constructor(connectionString, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s driver: %w", parsed.Scheme, err)
	}
	return d, nil
}

// NormalizeConnectionString appends an empty scheme component to a bare driver name.
func NormalizeConnectionString(connectionString string) string {
	if !strings.Contains(connectionString, schemeDelimiter) {
		return connectionString + schemeDelimiter
	}
	return connectionString
}

var defaultRegistry = NewRegistry()

func Register(name string, constructor Constructor) error {
	return defaultRegistry.Register(name, constructor)
}

func Resolve(connectionString string, opts Options) (Driver, error) {
	return defaultRegistry.Resolve(connectionString, opts)
}

func DefaultRegistry() *Registry {
	return defaultRegistry
}
