package elasticsearch

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/amadev/osprofiler/pkg/driver"
	"github.com/amadev/osprofiler/pkg/elasticsearch/bootstrapper"
	"github.com/amadev/osprofiler/pkg/write_buffer"
)

const (
	defaultAddress           = "localhost:9200"
	defaultRetentionSchedule = "@every 1h"
	defaultBootstrapRetries  = 30
)

type Config struct {
	Addresses         []string
	Index             string
	BufferSize        int
	Retention         time.Duration
	RetentionSchedule string
	BootstrapRetries  int
}

// ParseConfig reads elasticsearch://host:port?index=&buffer=&retention=&retention_schedule=&bootstrap_retries=
func ParseConfig(connectionString string) (Config, error) {
	config := Config{
		Index:             bootstrapper.DefaultNotificationIndexName,
		BufferSize:        write_buffer.WriteQueueSize,
		RetentionSchedule: defaultRetentionSchedule,
		BootstrapRetries:  defaultBootstrapRetries,
	}
	u, err := url.Parse(driver.NormalizeConnectionString(connectionString))
	if err != nil {
		return config, fmt.Errorf("failed to parse elasticsearch connection string: %w", err)
	}

	host := u.Host
	if host == "" {
		host = defaultAddress
	}
	scheme := "http"
	query := u.Query()
	if query.Get("tls") == "true" {
		scheme = "https"
	}
	config.Addresses = []string{scheme + "://" + host}

	if index := query.Get("index"); index != "" {
		config.Index = index
	}
	if buffer := query.Get("buffer"); buffer != "" {
		config.BufferSize, err = strconv.Atoi(buffer)
		if err != nil || config.BufferSize <= 0 {
			return config, fmt.Errorf("invalid buffer %q", buffer)
		}
	}
	if retention := query.Get("retention"); retention != "" {
		config.Retention, err = time.ParseDuration(retention)
		if err != nil || config.Retention < 0 {
			return config, fmt.Errorf("invalid retention %q", retention)
		}
	}
	if schedule := query.Get("retention_schedule"); schedule != "" {
		config.RetentionSchedule = schedule
	}
	if retries := query.Get("bootstrap_retries"); retries != "" {
		config.BootstrapRetries, err = strconv.Atoi(retries)
		if err != nil || config.BootstrapRetries <= 0 {
			return config, fmt.Errorf("invalid bootstrap_retries %q", retries)
		}
	}
	return config, nil
}
