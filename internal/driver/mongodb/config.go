package mongodb

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/amadev/osprofiler/pkg/driver"
)

const (
	defaultDatabase   = "osprofiler"
	defaultCollection = "profiler"
	defaultHost       = "localhost:27017"
)

type Config struct {
	URI        string
	Database   string
	Collection string
}

// ParseConfig reads mongodb://host/db?collection=. Every other query option is passed on
// to the Mongo client untouched.
func ParseConfig(connectionString string) (Config, error) {
	config := Config{Database: defaultDatabase, Collection: defaultCollection}
	u, err := url.Parse(driver.NormalizeConnectionString(connectionString))
	if err != nil {
		return config, fmt.Errorf("failed to parse mongodb connection string: %w", err)
	}

	if database := strings.Trim(u.Path, "/"); database != "" {
		config.Database = database
	}
	query := u.Query()
	if collection := query.Get("collection"); collection != "" {
		config.Collection = collection
	}
	query.Del("collection")

	if u.Host == "" {
		u.Host = defaultHost
	}
	u.RawQuery = query.Encode()
	config.URI = u.String()
	return config, nil
}
