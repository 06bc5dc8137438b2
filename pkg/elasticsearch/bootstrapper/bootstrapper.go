package bootstrapper

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

const retries = 30
const waitTime = 5

const resourceAlreadyExists = "resource_already_exists_exception"

type Bootstrapper struct {
	esClient *elasticsearch.Client
	logger   *zap.Logger
	retries  int
	delay    time.Duration
}

func NewBootstrapper(esClient *elasticsearch.Client, logger *zap.Logger) *Bootstrapper {
	return &Bootstrapper{
		esClient: esClient,
		logger:   logger,
		retries:  retries,
		delay:    waitTime * time.Second,
	}
}

// WithRetries overrides how long BootstrapElasticsearch waits for the cluster.
func (bs *Bootstrapper) WithRetries(retries int, delay time.Duration) *Bootstrapper {
	bs.retries = retries
	bs.delay = delay
	return bs
}

// BootstrapElasticsearch waits for the cluster and creates the notification index.
// An index that already exists is left untouched.
func (bs *Bootstrapper) BootstrapElasticsearch(indexName string) error {
	if err := bs.waitForElasticsearch(bs.retries, bs.delay); err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	if err := bs.createIndex(indexName, notificationIndex); err != nil {
		return fmt.Errorf("error creating notification index: %w", err)
	}

	return nil
}

func (bs *Bootstrapper) waitForElasticsearch(maxRetries int, delay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		res, err := bs.esClient.Info()
		if err == nil {
			res.Body.Close()
			if res.StatusCode == 200 {
				bs.logger.Info("Elasticsearch is available")
				return nil
			}
		}
		bs.logger.Warn(fmt.Sprintf("Elasticsearch not available (attempt %d/%d), retrying...", i+1, maxRetries))

		time.Sleep(delay)
	}

	return fmt.Errorf("Elasticsearch is not available after %d attempts", maxRetries)
}

func (bs *Bootstrapper) createIndex(indexName string, index map[string]interface{}) error {
	body, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("error marshaling index input during bootstrap: %w", err)
	}

	res, err := bs.esClient.Indices.Create(
		indexName,
		bs.esClient.Indices.Create.WithBody(strings.NewReader(string(body))),
	)
	if err != nil {
		return fmt.Errorf("error creating index during bootstrap %s: %w", indexName, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		response := res.String()
		if strings.Contains(response, resourceAlreadyExists) {
			bs.logger.Info("Index already exists", zap.String("index_name", indexName))
			return nil
		}
		return fmt.Errorf("error response for index %s: %s", indexName, response)
	}

	bs.logger.Info("Successfully created index", zap.String("index_name", indexName))
	return nil
}
